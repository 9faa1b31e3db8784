package cache

import "context"

// Seek repositions every selected stream's reader cursor to pts, preferring
// an in-cache jump within an already-buffered range over a producer-level
// seek. It blocks until the worker has run the seek bookkeeping via the
// single-slot run_fn handoff; a producer-level seek, if one is required, is
// only queued by then and the worker issues it afterwards.
func (c *Cache) Seek(ctx context.Context, pts Timestamp, flags SeekFlags) error {
	return c.runOnWorker(ctx, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.seekLocked(pts, flags)
	})
}

func (c *Cache) seekLocked(pts Timestamp, flags SeekFlags) {
	if !flags.has(SeekFactor) && c.cfg.SeekableCache {
		if r := c.findSeekableRangeLocked(pts); r != nil {
			c.seekWithinRangeLocked(r, pts, flags)
			return
		}
	}
	c.freshRangeSeekLocked(pts, flags)
}

// findSeekableRangeLocked searches the cached ranges for one whose
// [seek_start, seek_end] contains pts.
func (c *Cache) findSeekableRangeLocked(pts Timestamp) *cachedRange {
	for _, r := range c.ranges {
		if r.containsPTS(pts) {
			return r
		}
	}
	return nil
}

// seekWithinRangeLocked performs an in-cache seek into an already-buffered
// range: repositions every selected stream's reader cursor, then switches
// the current range if the target range isn't already current.
func (c *Cache) seekWithinRangeLocked(r *cachedRange, pts Timestamp, flags SeekFlags) {
	target := pts
	if !flags.has(SeekHR) {
		if adjusted, ok := c.videoKeyframeAdjustmentLocked(r, pts, flags); ok {
			target = adjusted
		}
	}

	for _, sd := range c.streams {
		if !sd.selected {
			continue
		}
		q, ok := r.queues[sd.Index]
		if !ok {
			continue
		}
		pkt := findSeekTarget(q, target, flags)
		sd.clearReaderState()
		if pkt == nil {
			sd.skipToKeyframe = true
			continue
		}
		sd.readerHead = pkt
		if ts := pkt.effectiveTimestamp(); ts.IsSet() {
			sd.baseTS = ts
		}
		c.recountForwardLocked(sd, q)
	}

	if r != c.currentRange() {
		c.switchToRangeLocked(r)
		c.queueProducerSeekLocked(r.seekEnd.Add(-1.0), SeekHR)
		for _, sd := range c.streams {
			sd.refreshing = true
		}
	}
	c.eof = false
	c.lastEOF = false
}

// videoKeyframeAdjustmentLocked: for the video stream, find the nearest
// keyframe with a kfSeekPTS in the requested
// direction and return it as the adjusted global target (to avoid audio
// undershoot when HR precision wasn't requested).
func (c *Cache) videoKeyframeAdjustmentLocked(r *cachedRange, pts Timestamp, flags SeekFlags) (Timestamp, bool) {
	for idx, q := range r.queues {
		sd := c.streamLocked(idx)
		if sd == nil || sd.Type != StreamVideo || !sd.selected {
			continue
		}
		best := nearestKeyframe(q, pts, flags.has(SeekForward))
		if best != nil {
			return best.kfSeekPTS, true
		}
	}
	return pts, false
}

// nearestKeyframe finds the keyframe in q whose kfSeekPTS is nearest to pts
// in the requested direction (forward biases toward >= pts, otherwise <= pts).
func nearestKeyframe(q *streamQueue, pts Timestamp, forward bool) *Packet {
	var best *Packet
	for n := q.head; n != nil; n = n.next {
		if !n.Keyframe || !n.kfSeekPTS.IsSet() {
			continue
		}
		if forward {
			if n.kfSeekPTS >= pts && (best == nil || n.kfSeekPTS < best.kfSeekPTS) {
				best = n
			}
		} else {
			if n.kfSeekPTS <= pts && (best == nil || n.kfSeekPTS > best.kfSeekPTS) {
				best = n
			}
		}
	}
	return best
}

// findSeekTarget locates the packet a stream's reader should resume at for
// the given target pts and direction flags. Returns nil if no suitable
// packet is buffered (caller sets skip_to_keyframe).
func findSeekTarget(q *streamQueue, pts Timestamp, flags SeekFlags) *Packet {
	forward := flags.has(SeekForward)
	var best *Packet
	for n := q.head; n != nil; n = n.next {
		ts := n.effectiveTimestamp()
		if !ts.IsSet() {
			continue
		}
		if forward {
			if ts >= pts && (best == nil || ts < best.effectiveTimestamp()) {
				best = n
			}
		} else {
			if ts <= pts && (best == nil || ts > best.effectiveTimestamp()) {
				best = n
			}
		}
	}
	return best
}

// recountForwardLocked recomputes sd.fwPackets/fwBytes and c.fwBytes'
// contribution from sd.readerHead to the tail of q, after repositioning a
// cursor.
func (c *Cache) recountForwardLocked(sd *StreamDescriptor, q *streamQueue) {
	c.fwBytes -= sd.fwBytes
	sd.fwPackets = 0
	sd.fwBytes = 0
	for n := sd.readerHead; n != nil; n = n.next {
		sd.fwPackets++
		sd.fwBytes += n.EstimatedSize(c.cfg.PacketOverheadBytes)
	}
	c.fwBytes += sd.fwBytes
}

// switchToRangeLocked drops each queue's pre-seek material
// (head..next_prune_target span) and installs r as the current range.
func (c *Cache) switchToRangeLocked(r *cachedRange) {
	for _, q := range r.queues {
		if q.nextPruneTarget == nil {
			continue
		}
		for q.head != nil && q.head != q.nextPruneTarget.next {
			pkt := q.popHead(c.cfg.PacketOverheadBytes)
			c.totalBytes -= pkt.EstimatedSize(c.cfg.PacketOverheadBytes)
		}
		q.nextPruneTarget = nil
	}
	c.installCurrentRangeLocked(r)
}

// freshRangeSeekLocked handles a seek that misses every cached range:
// allocate a new range (seekable cache on) or clear the current one, then
// queue a producer-level seek with the original pts/flags.
func (c *Cache) freshRangeSeekLocked(pts Timestamp, flags SeekFlags) {
	if c.cfg.SeekableCache {
		fresh := newCachedRange()
		for _, sd := range c.streams {
			fresh.queueFor(sd.Index)
		}
		c.ranges = append(c.ranges, fresh)
	} else {
		c.clearCurrentRangeLocked()
	}
	for _, sd := range c.streams {
		sd.clearReaderState()
		sd.queue = c.currentRange().queueFor(sd.Index)
		sd.eof = false
	}
	c.recomputeRangeBoundsLocked()
	c.totalBytes = c.sumRangeBytesLocked()
	c.fwBytes = 0
	c.eof = false
	c.lastEOF = false
	c.queueProducerSeekLocked(pts, flags)
}

func (c *Cache) clearCurrentRangeLocked() {
	r := c.currentRange()
	*r = *newCachedRange()
}

func (c *Cache) sumRangeBytesLocked() int64 {
	var total int64
	for _, r := range c.ranges {
		total += r.totalBytes()
	}
	return total
}
