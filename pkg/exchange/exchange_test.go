package exchange

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dualtree-sched/dualtreequeue/pkg/cache"
	"github.com/dualtree-sched/dualtreequeue/pkg/dualtree"
	"github.com/dualtree-sched/dualtreequeue/pkg/metric"
	"github.com/dualtree-sched/dualtreequeue/pkg/tree"
)

func newTestQueue(t *testing.T) (*dualtree.Queue, *cache.InMemory) {
	t.Helper()
	ll := tree.NewLeaf("QL", 1, metric.Bound{Low: 0, High: 1})
	lr := tree.NewLeaf("QR", 1, metric.Bound{Low: 1, High: 2})
	root := tree.NewInternal("Q", ll, lr)

	q := dualtree.New()
	c := cache.NewInMemory()
	q.Init(tree.QueryTable{Root: root}, 1, c)
	return q, c
}

func leafBuilder() NodeBuilder {
	return func(n Notification) dualtree.SubtreeNode {
		return tree.NewLeaf(n.CacheID, n.NodeCount, metric.Bound{Low: n.ReferenceLow, High: n.ReferenceHi})
	}
}

func TestHandleMessagePushesTaskAndLocksCache(t *testing.T) {
	q, c := newTestQueue(t)
	sub := NewSubscriber(q, c, leafBuilder(), 1000, 10, nil)

	n := Notification{
		Table:        "R",
		CacheID:      "cache-1",
		SlotIndex:    0,
		ReferenceLow: 5,
		ReferenceHi:  6,
		NodeIsLeaf:   true,
		NodeCount:    3,
	}
	data, err := json.Marshal(n)
	require.NoError(t, err)

	require.NoError(t, sub.HandleMessage(context.Background(), "peer-1", data))

	assert.Equal(t, 1, q.RemainingTasks())
	assert.Equal(t, 1, c.RefCount("cache-1"))
}

func TestHandleMessageRejectsMalformedPayload(t *testing.T) {
	q, c := newTestQueue(t)
	sub := NewSubscriber(q, c, leafBuilder(), 1000, 10, nil)

	err := sub.HandleMessage(context.Background(), "peer-1", []byte("not json"))
	assert.Error(t, err)
	assert.Equal(t, 0, q.RemainingTasks())
}

func TestHandleMessagePropagatesPushErrorForBadSlot(t *testing.T) {
	q, c := newTestQueue(t)
	sub := NewSubscriber(q, c, leafBuilder(), 1000, 10, nil)

	n := Notification{CacheID: "cache-2", SlotIndex: 99, NodeIsLeaf: true, NodeCount: 1}
	data, err := json.Marshal(n)
	require.NoError(t, err)

	err = sub.HandleMessage(context.Background(), "peer-1", data)
	assert.ErrorIs(t, err, dualtree.ErrSlotOutOfRange)
	// The initial lock is still taken before Push is attempted.
	assert.Equal(t, 1, c.RefCount("cache-2"))
}
