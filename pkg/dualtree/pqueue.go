package dualtree

import "container/heap"

// taskHeap is a max-priority queue of Task, keyed on Task.Priority with
// FIFO tie-breaking via seq. It implements heap.Interface directly rather
// than through a wrapper type, the way the teacher's scheduler package
// implements its own priority queue over a concrete task type.
type taskHeap []Task

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority > h[j].Priority // max-heap
	}
	return h[i].seq < h[j].seq // earlier insertion sorts first
}

func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *taskHeap) Push(x interface{}) {
	*h = append(*h, x.(Task))
}

func (h *taskHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// subtreeQueue is the per-query-subtree priority queue (C2): push, top,
// pop, size, is_empty. No merge operation is needed; splits move tasks one
// at a time via pop followed by push on another subtreeQueue.
type subtreeQueue struct {
	heap taskHeap
	next uint64 // monotonic insertion sequence for FIFO tie-breaking
}

func newSubtreeQueue() *subtreeQueue {
	q := &subtreeQueue{heap: make(taskHeap, 0)}
	heap.Init(&q.heap)
	return q
}

func (q *subtreeQueue) push(t Task) {
	t.seq = q.next
	q.next++
	heap.Push(&q.heap, t)
}

func (q *subtreeQueue) top() (Task, bool) {
	if len(q.heap) == 0 {
		return Task{}, false
	}
	return q.heap[0], true
}

func (q *subtreeQueue) pop() (Task, bool) {
	if len(q.heap) == 0 {
		return Task{}, false
	}
	return heap.Pop(&q.heap).(Task), true
}

func (q *subtreeQueue) size() int { return len(q.heap) }

func (q *subtreeQueue) isEmpty() bool { return len(q.heap) == 0 }
