package dualtree

import "github.com/dualtree-sched/dualtreequeue/pkg/metric"

// computePriority implements C1: the priority of a (query, reference)
// pairing is the negation of the midpoint of their squared range-distance
// interval. Closer pairs (smaller midpoint) get a higher, less-negative
// priority and are dequeued first.
func computePriority(query, reference metric.Bound) float64 {
	lo, hi := query.RangeDistanceSq(reference)
	return -metric.Mid(lo, hi)
}
