package cache

import "context"

// Flush drops every buffered packet across every range, clears all reader
// cursors, and re-arms a fresh current range. It does not touch stream
// selection, so a subsequent read resumes from wherever the producer's next
// FillBuffer call happens to land.
func (c *Cache) Flush() error {
	return c.runOnWorker(context.Background(), func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.ranges = []*cachedRange{newCachedRange()}
		for _, sd := range c.streams {
			sd.clearReaderState()
			sd.queue = c.currentRange().queueFor(sd.Index)
			sd.eof = false
		}
		c.totalBytes = 0
		c.fwBytes = 0
		c.eof = false
		c.lastEOF = false
	})
}

// Update publishes the consumer-visible snapshot fields (idle/eof/bitrate)
// immediately instead of waiting for the worker's periodic telemetry pass.
// Callers that poll cache state from outside the worker goroutine call this
// to force a fresh sample.
func (c *Cache) Update() {
	c.RequestCacheUpdate()
}

// Control issues a cache-level query or notification. Stream-size and
// cache-info queries reach the Producer directly; everything else is
// answered from state already tracked under c.mu, so it never blocks on a
// producer round-trip.
func (c *Cache) Control(cmd ControlCommand, arg any) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch cmd {
	case ControlStreamSize, ControlCacheInfo:
		if c.producer == nil {
			return nil, ErrNoProducer
		}
		producer := c.producer
		ctx := c.ctx
		c.mu.Unlock()
		res, err := producer.Control(ctx, cmd, arg)
		c.mu.Lock()
		return res, err
	case ControlReplaceStream:
		index, ok := arg.(int)
		if !ok {
			return nil, &ErrInvariantViolation{Detail: "ControlReplaceStream requires an int stream index"}
		}
		sd := c.streamLocked(index)
		if sd == nil {
			return nil, ErrStreamUnknown
		}
		sd.needRefresh = true
		sd.refPTS = sd.baseTS
		c.tracksSwitched = true
		c.workerWake.notify()
		return nil, nil
	default:
		return nil, &ErrInvariantViolation{Detail: "unknown control command"}
	}
}

// Idle reports whether the worker currently has nothing to do: every
// selected eager stream is either EOF or has its forward buffer filled
// beyond MinSecs. It is a point-in-time snapshot, not a guarantee the worker
// won't immediately have new work.
func (c *Cache) Idle() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.idle
}

// EOF reports whether every selected stream has reached end of stream at
// its current reader position, with no pending seek or refresh.
func (c *Cache) EOF() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.eof
}

// StreamCount returns the number of streams declared via AddStream so far.
func (c *Cache) StreamCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.streams)
}
