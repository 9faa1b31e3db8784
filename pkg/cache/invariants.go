package cache

// checkInvariantsLocked walks every range and stream descriptor and
// validates the structural properties that must hold whenever the cache's
// mutex is not held by the worker or a consumer mid-mutation. It is O(n)
// over every buffered packet, so it is only ever called from tests, never
// wired into a production code path.
func (c *Cache) checkInvariantsLocked() error {
	if err := c.checkByteAccountingLocked(); err != nil {
		return err
	}
	for _, r := range c.ranges {
		if err := checkRangeLocked(r); err != nil {
			return err
		}
	}
	for _, sd := range c.streams {
		if err := c.checkStreamLocked(sd); err != nil {
			return err
		}
	}
	if len(c.ranges) > 0 && c.currentRange() != c.ranges[len(c.ranges)-1] {
		return &ErrInvariantViolation{Detail: "current range is not the LRU-tail element"}
	}
	return nil
}

func (c *Cache) checkByteAccountingLocked() error {
	var wantTotal, wantForward int64
	for _, r := range c.ranges {
		wantTotal += r.totalBytes()
	}
	for _, sd := range c.streams {
		wantForward += sd.fwBytes
	}
	if wantTotal != c.totalBytes {
		return &ErrInvariantViolation{Detail: "total_bytes does not match the sum of range byte counts"}
	}
	if wantForward != c.fwBytes {
		return &ErrInvariantViolation{Detail: "fw_bytes does not match the sum of stream forward byte counts"}
	}
	return nil
}

func checkRangeLocked(r *cachedRange) error {
	if r.seekStart.IsSet() != r.seekEnd.IsSet() {
		return &ErrInvariantViolation{Detail: "range seek_start/seek_end must be set or unset together"}
	}
	if r.seekStart.IsSet() && r.seekEnd.IsSet() && r.seekEnd <= r.seekStart {
		return &ErrInvariantViolation{Detail: "range seek_end must be strictly after seek_start"}
	}
	for _, q := range r.queues {
		if err := checkQueueLocked(q); err != nil {
			return err
		}
	}
	return nil
}

func checkQueueLocked(q *streamQueue) error {
	if (q.head == nil) != (q.tail == nil) {
		return &ErrInvariantViolation{Detail: "queue head/tail nil-ness disagree"}
	}

	count := 0
	var bytes int64
	seen := make(map[*Packet]bool, q.length)
	var lastDTS Timestamp
	dtsStrict := true
	for n := q.head; n != nil; n = n.next {
		if seen[n] {
			return &ErrInvariantViolation{Detail: "queue list is cyclic"}
		}
		seen[n] = true
		count++
		bytes += n.EstimatedSize(0)
		if n.next == nil && n != q.tail {
			return &ErrInvariantViolation{Detail: "queue tail pointer does not match the list's last node"}
		}
		if lastDTS.IsSet() && n.DTS.IsSet() && n.DTS <= lastDTS {
			dtsStrict = false
		}
		if n.DTS.IsSet() {
			lastDTS = n.DTS
		}
	}
	if count != q.length {
		return &ErrInvariantViolation{Detail: "queue length does not match the number of linked nodes"}
	}
	if q.correctDTS && !dtsStrict {
		return &ErrInvariantViolation{Detail: "correct_dts is set but DTS is not strictly monotone"}
	}
	if q.nextPruneTarget != nil && !seen[q.nextPruneTarget] {
		return &ErrInvariantViolation{Detail: "next_prune_target does not point into its own queue"}
	}
	if q.keyframeLatest != nil && !seen[q.keyframeLatest] {
		return &ErrInvariantViolation{Detail: "keyframe_latest does not point into its own queue"}
	}
	return nil
}

func (c *Cache) checkStreamLocked(sd *StreamDescriptor) error {
	if sd.readerHead == nil {
		return nil
	}
	if sd.queue == nil || !sd.queue.contains(sd.readerHead) {
		return &ErrInvariantViolation{Detail: "reader_head does not point into the stream's current queue"}
	}
	return nil
}
