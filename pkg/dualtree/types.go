// Package dualtree implements the per-process scheduling core of a
// distributed dual-tree traversal engine: a priority queue of
// (query-subtree, reference-subtree) pairs that adapts its granularity by
// splitting query subtrees under contention.
package dualtree

import "github.com/dualtree-sched/dualtreequeue/pkg/metric"

// SubtreeNode is the TREE interface the core consumes. It is satisfied by
// the caller's query-tree node type; the core never constructs or mutates
// one, it only reads IsLeaf/Left/Right/Count/Bound.
type SubtreeNode interface {
	IsLeaf() bool
	Left() SubtreeNode
	Right() SubtreeNode
	Count() int
	Bound() metric.Bound
}

// QueryTable is the QUERY_TABLE interface the core consumes during Init.
type QueryTable interface {
	// FrontierNodes returns disjoint subtrees covering the table's leaves,
	// each bounded to at most maxSize points.
	FrontierNodes(maxSize int) []SubtreeNode
}

// ReferenceBinding identifies a reference subtree resident in the external
// CACHE. CacheID is the opaque slot identifier used for reference counting.
type ReferenceBinding struct {
	Table   string
	Node    SubtreeNode
	CacheID string
}

// Task is an immutable bundle of a query subtree, a reference binding, and
// the priority computed for that pairing. Higher Priority (less negative)
// sorts first.
type Task struct {
	Query     SubtreeNode
	Reference ReferenceBinding
	Priority  float64

	// seq breaks priority ties in FIFO order; assigned by the queue at
	// push time and never exposed to callers.
	seq uint64
}
