package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dualtree-sched/dualtreequeue/pkg/metric"
)

func buildTestTree() *Node {
	ll := NewLeaf("LL", 2, metric.Bound{Low: 0, High: 1})
	lr := NewLeaf("LR", 2, metric.Bound{Low: 1, High: 2})
	l := NewInternal("L", ll, lr)

	rl := NewLeaf("RL", 2, metric.Bound{Low: 2, High: 3})
	rr := NewLeaf("RR", 2, metric.Bound{Low: 3, High: 4})
	r := NewInternal("R", rl, rr)

	return NewInternal("ROOT", l, r)
}

func TestNewInternalUnionsBoundsAndSumsCount(t *testing.T) {
	root := buildTestTree()
	assert.Equal(t, 8, root.Count())
	assert.Equal(t, metric.Bound{Low: 0, High: 4}, root.Bound())
}

func TestLeafHasNoChildren(t *testing.T) {
	leaf := NewLeaf("X", 1, metric.Bound{Low: 0, High: 1})
	assert.True(t, leaf.IsLeaf())
	assert.Nil(t, leaf.Left())
	assert.Nil(t, leaf.Right())
}

func TestInternalChildrenSatisfySubtreeNode(t *testing.T) {
	root := buildTestTree()
	require.False(t, root.IsLeaf())
	left := root.Left()
	require.NotNil(t, left)
	assert.Equal(t, 4, left.Count())
}

func TestFrontierNodesStopsAtMaxSize(t *testing.T) {
	table := QueryTable{Root: buildTestTree()}
	frontier := table.FrontierNodes(4)
	require.Len(t, frontier, 2)
	for _, n := range frontier {
		assert.LessOrEqual(t, n.Count(), 4)
	}
}

func TestFrontierNodesDescendsToLeavesWhenSmaller(t *testing.T) {
	table := QueryTable{Root: buildTestTree()}
	frontier := table.FrontierNodes(1)
	require.Len(t, frontier, 4)
	for _, n := range frontier {
		assert.True(t, n.IsLeaf())
	}
}

func TestFrontierNodesOnNilRoot(t *testing.T) {
	table := QueryTable{}
	assert.Nil(t, table.FrontierNodes(10))
}
