package cache

// updateSeekRangeLocked maintains keyframe-interval tracking for seeking,
// run on every append once SeekableCache is enabled. pkt may be nil,
// representing the sentinel-null packet used at EOF to finalize the last
// open keyframe interval.
func (c *Cache) updateSeekRangeLocked(sd *StreamDescriptor, q *streamQueue, r *cachedRange, pkt *Packet) {
	if pkt == nil || pkt.Keyframe {
		c.finalizeKeyframeIntervalLocked(sd, q, r)
		q.keyframeLatest = pkt
		q.keyframePTS = UnsetTimestamp
		q.keyframeEndPTS = UnsetTimestamp
	}
	if pkt != nil {
		ts := pkt.effectiveTimestamp()
		q.keyframePTS = MinTimestamp(q.keyframePTS, ts)
		q.keyframeEndPTS = MaxTimestamp(q.keyframeEndPTS, ts)
	}
}

// finalizeKeyframeIntervalLocked closes out the interval started at
// q.keyframeLatest: assigns its kfSeekPTS, extends the queue's seekStart if
// unset, sets seekEnd, recomputes the range's derived bounds, and — if
// seekEnd grew — attempts a range join.
func (c *Cache) finalizeKeyframeIntervalLocked(sd *StreamDescriptor, q *streamQueue, r *cachedRange) {
	if q.keyframeLatest == nil {
		return
	}
	q.keyframeLatest.kfSeekPTS = q.keyframePTS
	if !q.seekStart.IsSet() {
		q.seekStart = q.keyframePTS
	}
	prevEnd := q.seekEnd
	q.seekEnd = q.keyframeEndPTS

	selected := func(idx int) bool {
		s := c.streamLocked(idx)
		return s != nil && s.selected
	}
	r.recomputeSeekBounds(selected)

	grew := !prevEnd.IsSet() || (q.seekEnd.IsSet() && q.seekEnd > prevEnd)
	if grew && r.seekEnd.IsSet() {
		c.attemptRangeJoinLocked(r)
	}
}
