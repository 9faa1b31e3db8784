package cache

// pruneLocked is triggered after every successful dequeue: it evicts packets
// from the oldest range forward until total_bytes - fw_bytes <= max_bytes_bw
// (which is 0 when the seekable cache is disabled, i.e. "keep only the
// forward buffer").
func (c *Cache) pruneLocked() error {
	for c.totalBytes-c.fwBytes > c.cfg.MaxBytesBackward {
		pruned, err := c.pruneOneStepLocked()
		if err != nil {
			return err
		}
		if !pruned {
			return &ErrInvariantViolation{Detail: "pruning selected nothing while over budget"}
		}
	}
	return nil
}

// pruneOneStepLocked performs one eviction step: pick a stream queue in the
// oldest range and drop packets from its head up to the computed prune
// target. Returns whether any packet was actually removed.
func (c *Cache) pruneOneStepLocked() (bool, error) {
	if len(c.ranges) == 0 {
		return false, nil
	}
	r := c.ranges[0]
	sd, q := c.choosePruneQueueLocked(r)
	if q == nil {
		return false, nil
	}

	if c.cfg.SeekableCache && q.nextPruneTarget == nil {
		target := q.firstValidKeyframeAfter(q.head)
		if target != nil {
			pred := q.predecessorOf(target)
			q.nextPruneTarget = pred
			q.seekStart = target.kfSeekPTS
		} else {
			// No further valid keyframe: drop everything (prune target is
			// the tail itself, meaning the whole queue is fair game).
			q.nextPruneTarget = q.tail
		}
		if sd != nil {
			selected := func(idx int) bool {
				s := c.streamLocked(idx)
				return s != nil && s.selected
			}
			r.recomputeSeekBounds(selected)
		}
	}

	removed := false
	for q.head != nil && q.head != sd.readerHead {
		stop := q.nextPruneTarget != nil && q.head == q.nextPruneTarget
		pkt := q.popHead(c.cfg.PacketOverheadBytes)
		c.totalBytes -= pkt.EstimatedSize(c.cfg.PacketOverheadBytes)
		c.metrics.pruneCount.Inc()
		removed = true
		if stop {
			break
		}
	}

	if r != c.currentRange() && r.isEmpty() {
		c.ranges = c.ranges[1:]
	}
	return removed, nil
}

// choosePruneQueueLocked picks, among the oldest range's queues, the stream
// with the earliest head.kfSeekPTS that is not the reader's own head. Falls
// back to "prune anything" (any queue whose head lacks a valid kfSeekPTS, is
// non-keyframe, or when the seekable cache is disabled). This can in theory
// starve a slow-growing stream's queue indefinitely in favor of a
// fast-growing one; accepted as-is rather than adding fairness bookkeeping.
func (c *Cache) choosePruneQueueLocked(r *cachedRange) (*StreamDescriptor, *streamQueue) {
	var bestSD *StreamDescriptor
	var bestQ *streamQueue
	bestPTS := UnsetTimestamp

	for idx, q := range r.queues {
		if q.isEmpty() {
			continue
		}
		sd := c.streamLocked(idx)
		if q.head == sd.readerHead {
			continue
		}
		if !c.cfg.SeekableCache || !q.head.Keyframe || !q.head.kfSeekPTS.IsSet() {
			return sd, q
		}
		if !bestPTS.IsSet() || q.head.kfSeekPTS < bestPTS {
			bestPTS = q.head.kfSeekPTS
			bestSD, bestQ = sd, q
		}
	}
	return bestSD, bestQ
}
