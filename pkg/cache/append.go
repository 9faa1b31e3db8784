package cache

// Append is the producer-facing entry point: it consumes pkt (the packet is
// either linked into the current range's queue for pkt.StreamIndex, or
// dropped) and must only ever be called by the Producer, with the cache's
// mutex not held by the caller (Append takes it itself).
func (c *Cache) Append(pkt *Packet) {
	if pkt == nil || pkt.Len() <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	sd := c.streamLocked(pkt.StreamIndex)
	if sd == nil {
		return
	}

	if c.dropLocked(sd, pkt) {
		return
	}

	r := c.currentRange()
	q := r.queueFor(pkt.StreamIndex)
	sd.queue = q

	q.updateMonotonicity(pkt)

	q.append(pkt, c.cfg.PacketOverheadBytes)
	c.totalBytes += pkt.EstimatedSize(c.cfg.PacketOverheadBytes)

	// The reader head is (re)installed whenever it is nil, independent of
	// whether the queue was empty: even if the reader ran out of data, the
	// queue is not necessarily empty due to the backbuffer (SeekableCache,
	// MaxBytesBackward), so wasEmpty alone is the wrong gate.
	if sd.readerHead == nil && (!sd.skipToKeyframe || pkt.Keyframe) {
		sd.readerHead = pkt
		sd.fwPackets = 0
		sd.fwBytes = 0
		c.advanceForwardAccountingLocked(sd, pkt)
		sd.wake.notify()
	} else if sd.readerHead != nil {
		sd.fwPackets++
		sd.fwBytes += pkt.EstimatedSize(c.cfg.PacketOverheadBytes)
		c.fwBytes += pkt.EstimatedSize(c.cfg.PacketOverheadBytes)
	}

	c.deriveTimestampLocked(sd, pkt)

	if c.cfg.SeekableCache {
		c.updateSeekRangeLocked(sd, q, r, pkt)
	}

	if !sd.ignoreEOF {
		sd.eof = false
		c.eof = false
		c.lastEOF = false
	}

	c.fireWakeupCBAsync()
}

// advanceForwardAccountingLocked adds pkt's size to the per-SD forward
// counters when it becomes the (new) reader head because the reader had
// drained to empty; subsequent appends accumulate via the branch in Append.
func (c *Cache) advanceForwardAccountingLocked(sd *StreamDescriptor, pkt *Packet) {
	sd.fwPackets = 1
	sd.fwBytes = pkt.EstimatedSize(c.cfg.PacketOverheadBytes)
	c.fwBytes += sd.fwBytes
}

// dropLocked implements the append-time drop preconditions: stream not
// selected, need_refresh pending, a seek queued, or (during refresh) the
// packet precedes the resume cutoff.
func (c *Cache) dropLocked(sd *StreamDescriptor, pkt *Packet) bool {
	if !sd.selected || sd.needRefresh || c.seeking {
		return true
	}
	if sd.refreshing {
		return c.applyRefreshGateLocked(sd, pkt)
	}
	return false
}

// applyRefreshGateLocked drops packets preceding the resume cutoff while a
// stream is mid-refresh, clearing the refreshing flag once the cutoff is
// crossed.
func (c *Cache) applyRefreshGateLocked(sd *StreamDescriptor, pkt *Packet) (drop bool) {
	q := sd.queue
	switch {
	case q != nil && q.correctDTS && pkt.DTS.IsSet():
		if pkt.DTS < q.lastDTS {
			return true
		}
		sd.refreshing = false
		return true // the cutoff packet itself is dropped; successors kept
	case q != nil && q.correctPos:
		if pkt.Pos < q.lastPos {
			return true
		}
		sd.refreshing = false
		return true
	default:
		c.logger().Warn("refresh gate cleared without a monotone key",
			"stream", sd.Index)
		sd.refreshing = false
		return false
	}
}

// deriveTimestampLocked fills in a non-video packet's missing PTS from DTS and
// updates the queue's and stream's derived timestamp bookkeeping.
func (c *Cache) deriveTimestampLocked(sd *StreamDescriptor, pkt *Packet) {
	if sd.Type != StreamVideo && !pkt.PTS.IsSet() {
		pkt.PTS = pkt.DTS
	}
	ts := pkt.effectiveTimestamp()
	q := sd.queue
	if q == nil {
		return
	}
	if ts.IsSet() && (!q.lastTS.IsSet() || ts > q.lastTS || float64(ts)+NonMonotoneToleranceSeconds < float64(q.lastTS)) {
		q.lastTS = ts
	}
	if !sd.baseTS.IsSet() {
		sd.baseTS = q.lastTS
	}
}

// fireWakeupCBAsync schedules the registered wakeup callback to run after
// the mutex is released. Append already holds c.mu via its own defer, so
// callers invoke this while still locked; the callback itself must not
// re-enter the cache, since it runs without the lock held.
func (c *Cache) fireWakeupCBAsync() {
	if c.wakeupCB != nil {
		cb := c.wakeupCB
		go cb()
	}
}
