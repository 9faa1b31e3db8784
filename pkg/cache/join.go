package cache

// attemptRangeJoinLocked is triggered whenever a keyframe interval
// finalization extends a range's seek_end. It scans the other ranges for
// the best join candidate, validates overlap packet by packet for every
// eager stream, and on success splices the two ranges together and installs
// the match as current.
func (c *Cache) attemptRangeJoinLocked(cur *cachedRange) {
	other := c.findJoinCandidateLocked(cur)
	if other == nil {
		return
	}

	if !c.validateJoinOverlapLocked(cur, other) {
		c.metrics.joinFailCount.Inc()
		c.discardRangeLocked(other)
		return
	}

	c.spliceJoinLocked(cur, other)
	c.metrics.joinCount.Inc()

	c.installCurrentRangeLocked(other)
	for _, sd := range c.streams {
		sd.refreshing = true
	}
	c.queueProducerSeekLocked(other.seekEnd.Add(-1.0), SeekHR)
}

// findJoinCandidateLocked finds the other range whose seek_start lies
// within cur's [seek_start, seek_end], preferring the smallest positive
// cur.seek_end - other.seek_start.
func (c *Cache) findJoinCandidateLocked(cur *cachedRange) *cachedRange {
	if !cur.seekStart.IsSet() || !cur.seekEnd.IsSet() {
		return nil
	}
	var best *cachedRange
	bestGap := Timestamp(0)
	for _, r := range c.ranges {
		if r == cur {
			continue
		}
		if !r.seekStart.IsSet() {
			continue
		}
		if r.seekStart < cur.seekStart || r.seekStart > cur.seekEnd {
			continue
		}
		gap := cur.seekEnd - r.seekStart
		if best == nil || gap < bestGap {
			best, bestGap = r, gap
		}
	}
	return best
}

// validateJoinOverlapLocked implements the per-stream overlap validation:
// only streams selected in BOTH ranges' stream sets participate; a stream
// selected in only one of the two can neither block nor validate the join.
func (c *Cache) validateJoinOverlapLocked(cur, other *cachedRange) bool {
	for idx, curQ := range cur.queues {
		sd := c.streamLocked(idx)
		if sd == nil || !sd.selected || !sd.eager {
			continue
		}
		otherQ, ok := other.queues[idx]
		if !ok {
			continue
		}
		if !sd.globalCorrectDTS && !sd.globalCorrectPos {
			// Non-monotone: this stream is skipped and neither blocks nor
			// validates the join; no equality check is made for it, even
			// when it is the only eager stream.
			continue
		}
		if !findOverlapMatch(curQ, otherQ) {
			return false
		}
	}
	return true
}

// findOverlapMatch walks other's queue from the head, looking for a packet
// that matches an existing packet in cur's tail region on all four of
// {dts, pos, pts, len}, with no tolerance on the comparison.
func findOverlapMatch(cur, other *streamQueue) bool {
	for n := other.head; n != nil; n = n.next {
		if tailContainsMatch(cur, n) {
			return true
		}
	}
	return false
}

func tailContainsMatch(q *streamQueue, candidate *Packet) bool {
	for n := q.head; n != nil; n = n.next {
		if packetsMatch(n, candidate) {
			return true
		}
	}
	return false
}

func packetsMatch(a, b *Packet) bool {
	if a.DTS.IsSet() != b.DTS.IsSet() {
		return false
	}
	if a.DTS.IsSet() && a.DTS != b.DTS {
		return false
	}
	if a.Pos != b.Pos {
		return false
	}
	if a.PTS.IsSet() != b.PTS.IsSet() {
		return false
	}
	if a.PTS.IsSet() && a.PTS != b.PTS {
		return false
	}
	return a.Len() == b.Len()
}

// spliceJoinLocked splices other's queues to logically continue cur's,
// copying next_prune_target/seek_start/monotone flags as specified.
func (c *Cache) spliceJoinLocked(cur, other *cachedRange) {
	for idx, otherQ := range other.queues {
		curQ, ok := cur.queues[idx]
		if !ok {
			other.queues[idx] = otherQ
			continue
		}
		otherQ.nextPruneTarget = curQ.nextPruneTarget
		otherQ.seekStart = MinTimestamp(otherQ.seekStart, curQ.seekStart)
		otherQ.correctDTS = curQ.correctDTS && otherQ.correctDTS
		otherQ.correctPos = curQ.correctPos && otherQ.correctPos
		otherQ.recomputeBytes(c.cfg.PacketOverheadBytes)
	}
}

// installCurrentRangeLocked replaces the current range with other,
// preserving LRU order elsewhere, and updates every SD's queue pointer.
func (c *Cache) installCurrentRangeLocked(other *cachedRange) {
	kept := c.ranges[:0]
	for _, r := range c.ranges {
		if r == other {
			continue
		}
		kept = append(kept, r)
	}
	c.ranges = append(kept, other)
	for _, sd := range c.streams {
		if q, ok := other.queues[sd.Index]; ok {
			sd.queue = q
		}
	}
}

// discardRangeLocked drops a join candidate that failed validation, keeping
// the current range.
func (c *Cache) discardRangeLocked(other *cachedRange) {
	c.logger().Warn("range join aborted: unjoinable overlap", "range", other.id.String())
	c.removeRangeLocked(other)
	c.totalBytes = c.sumRangeBytesLocked()
}

func (c *Cache) removeRangeLocked(r *cachedRange) {
	kept := c.ranges[:0]
	for _, x := range c.ranges {
		if x == r {
			continue
		}
		kept = append(kept, x)
	}
	c.ranges = kept
}

// queueProducerSeekLocked arms the worker's deferred producer seek.
func (c *Cache) queueProducerSeekLocked(pts Timestamp, flags SeekFlags) {
	c.seeking = true
	c.seekPTS = pts
	c.seekFlags = flags
	c.workerWake.notify()
}
