// Package tree provides a minimal in-memory binary tree satisfying the
// dualtree package's TREE and QUERY_TABLE consumed interfaces. Tree
// construction and the pairwise dual-tree algorithm are explicit
// non-goals of the core (spec.md §1); this package exists only so the
// core has something concrete to run against in tests and in the demo
// node.
package tree

import (
	"github.com/dualtree-sched/dualtreequeue/pkg/dualtree"
	"github.com/dualtree-sched/dualtreequeue/pkg/metric"
)

// Node is a binary tree node over a one-dimensional point set. It
// satisfies dualtree.SubtreeNode.
type Node struct {
	Name  string
	count int
	bound metric.Bound
	left  *Node
	right *Node
}

// NewLeaf builds a leaf node covering the given bound with count points.
func NewLeaf(name string, count int, bound metric.Bound) *Node {
	return &Node{Name: name, count: count, bound: bound}
}

// NewInternal builds an internal node whose bound is the union of its
// children's bounds and whose count is their sum.
func NewInternal(name string, left, right *Node) *Node {
	return &Node{
		Name:  name,
		count: left.count + right.count,
		bound: metric.Bound{Low: min(left.bound.Low, right.bound.Low), High: max(left.bound.High, right.bound.High)},
		left:  left,
		right: right,
	}
}

func (n *Node) IsLeaf() bool { return n.left == nil && n.right == nil }

func (n *Node) Left() dualtree.SubtreeNode {
	if n.left == nil {
		return nil
	}
	return n.left
}

func (n *Node) Right() dualtree.SubtreeNode {
	if n.right == nil {
		return nil
	}
	return n.right
}

func (n *Node) Count() int { return n.count }

func (n *Node) Bound() metric.Bound { return n.bound }

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
