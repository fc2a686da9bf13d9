package dualtree

// split implements C4. It must be called with q.mu already held.
//
// Entry condition: split_requested = true (checked by the caller, Unlock)
// and an eligible slot exists. Eligibility: free lock, internal (non-leaf)
// query subtree, non-empty task queue. Among eligible slots, the one with
// the greatest Count wins; ties break by the lowest index.
//
// Splitting is best-effort: if no slot is eligible, this is a no-op (the
// split_requested flag is cleared by the caller either way).
func (q *Queue) split() {
	k, ok := q.chooseSplitTarget()
	if !ok {
		if q.logger != nil {
			q.logger.Debug("split requested but no eligible slot found")
		}
		return
	}

	query := q.reg.slots[k].query
	left, right := query.Left(), query.Right()
	if q.logger != nil {
		q.logger.Info("splitting query subtree", "slot", k, "count", query.Count())
	}

	// Append the new slot before mutation, so its index equals the
	// pre-append length (§4.4).
	kPrime := q.reg.append(right)
	q.reg.slots[k].query = left

	// Drain every pending task from slot k; order does not matter since
	// priorities are recomputed against the new bounds.
	drained := make([]Task, 0, q.reg.slots[k].tasks.size())
	for {
		t, has := q.reg.slots[k].tasks.pop()
		if !has {
			break
		}
		drained = append(drained, t)
	}

	for _, t := range drained {
		q.redistribute(t, k, kPrime, left, right)
	}
	q.notify(Event{Kind: "split", SlotIndex: k})
}

// chooseSplitTarget scans the registry for the eligible slot with the
// greatest query-subtree Count, breaking ties by lowest index. It must be
// called with q.mu already held.
func (q *Queue) chooseSplitTarget() (int, bool) {
	best := -1
	bestCount := -1
	for i := range q.reg.slots {
		s := &q.reg.slots[i]
		if s.lock != free || s.query.IsLeaf() || s.tasks.isEmpty() {
			continue
		}
		if c := s.query.Count(); c > bestCount {
			best = i
			bestCount = c
		}
	}
	if best < 0 {
		return 0, false
	}
	return best, true
}

// redistribute handles one drained task per §4.4's reference-node case
// split. It must be called with q.mu already held.
func (q *Queue) redistribute(t Task, k, kPrime int, left, right SubtreeNode) {
	ref := t.Reference
	refNode := ref.Node

	if refNode.IsLeaf() {
		// Two new tasks replace the one drained: (left, N) into k,
		// (right, N) into k'. Net task change +1; emit LockCache(c, 1)
		// to match (invariant 5).
		q.reg.slots[k].tasks.push(Task{
			Query:     left,
			Reference: ref,
			Priority:  computePriority(left.Bound(), refNode.Bound()),
		})
		q.reg.slots[kPrime].tasks.push(Task{
			Query:     right,
			Reference: ref,
			Priority:  computePriority(right.Bound(), refNode.Bound()),
		})
		q.remainingTasks++ // one drained, two pushed: net +1
		q.lockCache(ref.CacheID, 1)
		return
	}

	// Internal reference node: expand into both children, generating
	// four tasks (left,N.left) (left,N.right) (right,N.left) (right,N.right).
	// Net task change +3; emit LockCache(c, 3).
	nLeft, nRight := refNode.Left(), refNode.Right()
	pairs := []struct {
		query SubtreeNode
		slot  int
		ref   SubtreeNode
	}{
		{left, k, nLeft},
		{left, k, nRight},
		{right, kPrime, nLeft},
		{right, kPrime, nRight},
	}
	for _, p := range pairs {
		q.reg.slots[p.slot].tasks.push(Task{
			Query:     p.query,
			Reference: ReferenceBinding{Table: ref.Table, Node: p.ref, CacheID: ref.CacheID},
			Priority:  computePriority(p.query.Bound(), p.ref.Bound()),
		})
	}
	q.remainingTasks += 3 // one drained, four pushed: net +3
	q.lockCache(ref.CacheID, 3)
}

// lockCache issues the cache-reference accounting call (C6). It must be
// called with q.mu already held; the cache is assumed safe to call from
// within the lock (§5, "must be safe to call from queue operations").
func (q *Queue) lockCache(cacheID string, count int) {
	if q.cache == nil {
		return
	}
	// The contract (§4.6) is that the queue only ever issues additional
	// locks; a failure here is a collaborator-side concern the core has
	// no recovery strategy for (§7), so it is logged rather than
	// propagated — the split itself has already committed its task
	// redistribution and cannot be rolled back.
	if err := q.cache.LockCache(cacheID, count); err != nil && q.logger != nil {
		q.logger.Error("lock_cache failed during split", "cache_id", cacheID, "count", count, "error", err)
	}
}
