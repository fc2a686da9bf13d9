package dualtree

import (
	"log/slog"
	"sync"

	"github.com/dualtree-sched/dualtreequeue/pkg/metric"
)

// Queue is the scheduling core (C5): a registry of query subtrees, each
// with its own lock and priority queue, plus a one-shot split-request
// latch and a running count of pending tasks. It is a single-threaded
// cooperative data structure (§5) — every exported method holds mu
// for its full body, so no two operations ever interleave regardless of
// how many goroutines call in concurrently.
type Queue struct {
	mu sync.Mutex

	reg    *registry
	cache  CacheLocker
	logger *slog.Logger

	splitRequested bool
	remainingTasks int

	initialized bool

	observer func(Event)
}

// Event is a lifecycle notification emitted by the queue for observability
// tooling (the debug/metrics surface's event stream); it carries no
// information the core itself depends on.
type Event struct {
	Kind      string
	SlotIndex int
	CacheID   string
}

// WithObserver registers fn to be called after every push, dequeue, and
// split. fn is called synchronously while q.mu is held, so it must not call
// back into q; it exists purely to let ambient tooling (e.g. a websocket
// event stream) mirror queue activity.
func (q *Queue) WithObserver(fn func(Event)) *Queue {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.observer = fn
	return q
}

func (q *Queue) notify(ev Event) {
	if q.observer != nil {
		q.observer(ev)
	}
}

// New constructs a Queue with no cache collaborator wired in yet; callers
// normally get a ready-to-use Queue from Init instead.
func New() *Queue {
	return &Queue{reg: newRegistry(), logger: slog.Default()}
}

// WithLogger overrides the queue's logger, used to trace splits and
// cache-lock failures. Passing nil silences logging entirely.
func (q *Queue) WithLogger(logger *slog.Logger) *Queue {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.logger = logger
	return q
}

// Init populates the registry from the local query table's frontier
// subtrees (at most maxQuerySubtreeSize points each), sets every lock free,
// zeroes remainingTasks, clears splitRequested, and retains cache for
// later LockCache calls issued by the splitter.
func (q *Queue) Init(table QueryTable, maxQuerySubtreeSize int, cache CacheLocker) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.reg = newRegistry()
	for _, n := range table.FrontierNodes(maxQuerySubtreeSize) {
		q.reg.append(n)
	}
	q.cache = cache
	q.remainingTasks = 0
	q.splitRequested = false
	q.initialized = true
}

// Push (C5) computes the task's priority from the query slot's bound and
// the reference binding's bound, then enqueues it into tasks[slot],
// incrementing remainingTasks. Push performs no lock check: it is
// permitted while the slot is held, so that producers are never blocked
// by a worker mid-task.
func (q *Queue) Push(slotIdx int, referenceBound metric.Bound, ref ReferenceBinding) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.initialized {
		return ErrNotInitialized
	}
	if !q.reg.inRange(slotIdx) {
		return ErrSlotOutOfRange
	}
	s := &q.reg.slots[slotIdx]
	priority := computePriority(s.query.Bound(), referenceBound)
	s.tasks.push(Task{Query: s.query, Reference: ref, Priority: priority})
	q.remainingTasks++
	q.notify(Event{Kind: "push", SlotIndex: slotIdx, CacheID: ref.CacheID})
	return nil
}

// Dequeue (C5) atomically pops the best task bound to slot i and, if
// lockOnTake is set, takes the slot's lock. Returns ok=false if the slot
// is empty or already held — both normal signals, not errors, instructing
// the caller to try another slot or request a split.
func (q *Queue) Dequeue(i int, lockOnTake bool) (task Task, slotIdx int, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.initialized || !q.reg.inRange(i) {
		return Task{}, 0, false
	}
	s := &q.reg.slots[i]
	if s.lock == held {
		return Task{}, 0, false
	}
	t, has := s.tasks.pop()
	if !has {
		return Task{}, 0, false
	}
	if lockOnTake {
		s.lock = held
	}
	q.remainingTasks--
	q.notify(Event{Kind: "dequeue", SlotIndex: i, CacheID: t.Reference.CacheID})
	return t, i, true
}

// Unlock (C5) frees slot i's lock. If a split has been requested, it then
// runs the splitter against the currently eligible slots (which now
// includes i) and clears the request flag regardless of whether a split
// occurred.
func (q *Queue) Unlock(i int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.initialized {
		return ErrNotInitialized
	}
	if !q.reg.inRange(i) {
		return ErrSlotOutOfRange
	}
	if q.reg.slots[i].lock == free {
		return ErrUnlockFree
	}
	q.reg.slots[i].lock = free

	if q.splitRequested {
		q.split()
		q.splitRequested = false
	}
	return nil
}

// RequestSplit (C5) sets the split-requested latch. Idempotent; the split
// itself is deferred to the next Unlock.
func (q *Queue) RequestSplit() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.splitRequested = true
}

// Size (C5) returns the number of registry slots.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.reg.size()
}

// IsEmpty (C5) reports whether any task remains pending anywhere in the
// registry.
func (q *Queue) IsEmpty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.remainingTasks == 0
}

// RemainingTasks exposes the invariant-2 counter directly, primarily for
// tests and for the debug/metrics surface.
func (q *Queue) RemainingTasks() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.remainingTasks
}

// SlotSnapshot reports one registry slot's pending task count and, if
// non-empty, the priority of its next task (C2's top, surfaced without
// consuming it).
type SlotSnapshot struct {
	Index        int
	Size         int
	HasNext      bool
	NextPriority float64
}

// SlotMetrics returns a SlotSnapshot for every registry slot, for the
// debug/metrics surface's per-slot reporting.
func (q *Queue) SlotMetrics() []SlotSnapshot {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]SlotSnapshot, len(q.reg.slots))
	for i := range q.reg.slots {
		s := &q.reg.slots[i]
		snap := SlotSnapshot{Index: i, Size: s.tasks.size()}
		if t, ok := s.tasks.top(); ok {
			snap.HasNext = true
			snap.NextPriority = t.Priority
		}
		out[i] = snap
	}
	return out
}
