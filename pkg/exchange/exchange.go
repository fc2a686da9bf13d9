// Package exchange is the producer side of the distributed table exchange
// layer (spec.md §1's "CACHE", reduced to its one queue-facing
// responsibility): when a peer notifies this process that a reference
// subtree is now resident in the local cache, the exchange layer takes
// the initial cache-reference lock and calls dualtree.Push.
//
// Grounded on the teacher's pkg/p2p Node interface (Subscribe/Broadcast)
// and its libp2p-backed implementation.
package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/dualtree-sched/dualtreequeue/pkg/dualtree"
	"github.com/dualtree-sched/dualtreequeue/pkg/metric"
)

// Notification is the wire payload a peer sends when it has made a
// reference subtree available in the shared cache.
type Notification struct {
	Table        string       `json:"table"`
	CacheID      string       `json:"cache_id"`
	SlotIndex    int          `json:"slot_index"`
	ReferenceLow float64      `json:"reference_low"`
	ReferenceHi  float64      `json:"reference_high"`
	NodeIsLeaf   bool         `json:"node_is_leaf"`
	NodeCount    int          `json:"node_count"`
}

// CacheLocker is the subset of the CACHE contract the exchange layer
// needs: taking the caller-side initial lock described in spec.md §4.6 /
// §9 Open Question 3, before handing the binding to Push.
type CacheLocker interface {
	LockCache(cacheID string, count int) error
}

// NodeBuilder turns a Notification into a dualtree.SubtreeNode the local
// process can use as a reference binding's Node. It is supplied by the
// caller because only the caller knows how to materialize (or fetch) the
// actual reference-tree node behind a cache_id.
type NodeBuilder func(Notification) dualtree.SubtreeNode

// Subscriber receives Notifications (e.g. via a libp2p pubsub topic),
// rate-limits them, takes the initial cache lock, and pushes the
// resulting task onto the local queue.
type Subscriber struct {
	queue   *dualtree.Queue
	cache   CacheLocker
	build   NodeBuilder
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewSubscriber constructs a Subscriber. ratePerSecond/burst bound how
// fast inbound notifications are admitted to Push, guarding the queue
// against a bursty peer (spec.md §5 places no such limit on the core
// itself; this is ambient backpressure around it).
func NewSubscriber(queue *dualtree.Queue, locker CacheLocker, build NodeBuilder, ratePerSecond float64, burst int, logger *slog.Logger) *Subscriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &Subscriber{
		queue:   queue,
		cache:   locker,
		build:   build,
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst),
		logger:  logger,
	}
}

// HandleMessage implements the shape of the teacher's p2p.MessageHandler:
// func(ctx, from, data) error. It decodes a Notification, waits for rate
// budget, takes the initial cache lock, and pushes the resulting task.
func (s *Subscriber) HandleMessage(ctx context.Context, from string, data []byte) error {
	reqID := uuid.New()

	var n Notification
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("exchange: decode notification from %s (req %s): %w", from, reqID, err)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("exchange: rate limit wait (req %s): %w", reqID, err)
	}

	// The initial lock is the caller's responsibility (spec.md §9 Open
	// Question 3): taken here, before the binding is ever pushed.
	if err := s.cache.LockCache(n.CacheID, 1); err != nil {
		return fmt.Errorf("exchange: initial lock for %s: %w", n.CacheID, err)
	}

	node := s.build(n)
	ref := dualtree.ReferenceBinding{Table: n.Table, Node: node, CacheID: n.CacheID}
	bound := metric.Bound{Low: n.ReferenceLow, High: n.ReferenceHi}

	if err := s.queue.Push(n.SlotIndex, bound, ref); err != nil {
		s.logger.Error("push failed for exchanged reference subtree", "req", reqID, "cache_id", n.CacheID, "slot", n.SlotIndex, "error", err)
		return err
	}
	s.logger.Debug("pushed reference subtree from peer", "req", reqID, "from", from, "cache_id", n.CacheID, "slot", n.SlotIndex)
	return nil
}
