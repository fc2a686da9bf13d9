package tree

import "github.com/dualtree-sched/dualtreequeue/pkg/dualtree"

// QueryTable wraps a tree root and satisfies dualtree.QueryTable by
// recursively descending until a subtree's count drops to or below
// maxSize, returning the resulting disjoint frontier.
type QueryTable struct {
	Root *Node
}

// FrontierNodes returns disjoint subtrees covering the table's leaves,
// each with at most maxSize points. A subtree larger than maxSize is
// descended into; a leaf is always returned regardless of its count,
// since it cannot be split further.
func (t QueryTable) FrontierNodes(maxSize int) []dualtree.SubtreeNode {
	if t.Root == nil {
		return nil
	}
	var out []dualtree.SubtreeNode
	var walk func(n *Node)
	walk = func(n *Node) {
		if n.IsLeaf() || n.count <= maxSize {
			out = append(out, n)
			return
		}
		walk(n.left)
		walk(n.right)
	}
	walk(t.Root)
	return out
}
