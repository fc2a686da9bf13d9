package dualtree

import "errors"

// Usage errors (§7): precondition violations the caller should not retry.
// They are returned, not panicked, so that a host can log and decide
// whether to abort.
var (
	// ErrSlotOutOfRange is returned when a slot index passed to Push or
	// Unlock does not correspond to a live registry slot. Dequeue reports
	// an out-of-range index as ok=false instead of an error.
	ErrSlotOutOfRange = errors.New("dualtree: slot index out of range")

	// ErrNotInitialized is returned by Push and Unlock when called against
	// a Queue whose registry has never been populated via Init. Dequeue
	// reports this case as ok=false; RequestSplit returns no error.
	ErrNotInitialized = errors.New("dualtree: queue not initialized")

	// ErrUnlockFree is returned by Unlock when the named slot is already
	// free. Unlocking a free slot is a programmer error, not a normal
	// race: the core serializes all operations (§5), so it can only
	// happen if the caller passed back a slot index it never locked.
	ErrUnlockFree = errors.New("dualtree: unlock of a free slot")
)
