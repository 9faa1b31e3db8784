package cache

import (
	"context"
	"log/slog"
)

// runWorker is the single background goroutine that drives the Producer.
// It cooperatively checks a fixed list of conditions under the mutex and
// takes one of several exit actions each iteration, releasing the mutex
// around any call into the Producer.
func (c *Cache) runWorker() {
	defer close(c.workerDone)
	logger := c.logger().With(slog.String("component", "cache.worker"))

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		c.mu.Lock()

		// 1. Deferred call queued.
		if c.runFn != nil {
			fn := c.runFn
			c.runFn = nil
			c.mu.Unlock()
			fn()
			c.runDone.notify()
			c.workerWake.notify()
			continue
		}

		// 2. Track switch notification.
		if c.tracksSwitched {
			c.tracksSwitched = false
			c.mu.Unlock()
			c.notifyProducerSwitchedTracks(logger)
			c.workerWake.notify()
			continue
		}

		// 3. Queued seek.
		if c.seeking {
			pts, flags := c.seekPTS, c.seekFlags
			c.mu.Unlock()
			if err := c.producer.Seek(c.ctx, pts, flags); err != nil {
				logger.Warn("producer seek failed", "error", err)
			}
			c.mu.Lock()
			c.seeking = false
			c.mu.Unlock()
			c.workerWake.notify()
			continue
		}

		// 4. Not EOF: attempt a read.
		if !c.eof {
			progressed, err := c.readPacketLocked(logger)
			if err != nil {
				logger.Warn("read_packet error", "error", err)
			}
			c.mu.Unlock()
			if progressed {
				continue
			}
		} else {
			c.mu.Unlock()
		}

		// 5. Telemetry refresh.
		c.mu.Lock()
		if c.forceUpdate {
			c.forceUpdate = false
			c.mu.Unlock()
			c.refreshTelemetry(logger)
			continue
		}
		c.idle = true
		c.mu.Unlock()

		// 6. Nothing to do: wait.
		if err := c.workerWake.wait(c.ctx); err != nil {
			return
		}
		c.mu.Lock()
		c.idle = false
		c.mu.Unlock()
	}
}

// notifyProducerSwitchedTracks calls the producer's switched-tracks
// notification so it can prioritize or drop its own internal buffers to
// match the newly selected stream set.
func (c *Cache) notifyProducerSwitchedTracks(logger *slog.Logger) {
	if _, err := c.producer.Control(c.ctx, ControlSwitchedTracks, nil); err != nil {
		logger.Debug("producer switched-tracks control failed", "error", err)
	}
}

// readPacketLocked is called with c.mu held; it decides whether to drive the
// producer, releases the lock to call FillBuffer (and, if a refresh seek is
// due, Seek first), then reacquires to handle EOF bookkeeping. Returns
// whether it made progress (an immediate recheck is warranted) and must
// return with c.mu still held.
func (c *Cache) readPacketLocked(logger *slog.Logger) (progressed bool, err error) {
	readMore, prefetchMore := c.readaheadDemandLocked()

	if c.fwBytes >= c.cfg.MaxBytes && !readMore {
		c.handleOverflowLocked(logger)
		return false, nil
	}

	refreshSeek, needRefreshSeek := c.computeRefreshSeekLocked()

	if !readMore && !prefetchMore && !c.initialState && !needRefreshSeek {
		return false, nil
	}

	producer := c.producer
	ctx := c.ctx
	c.mu.Unlock()

	if needRefreshSeek {
		if serr := producer.Seek(ctx, refreshSeek, SeekHR); serr != nil {
			logger.Warn("refresh seek failed", "error", serr)
		}
	}
	n, ferr := producer.FillBuffer(ctx)

	c.mu.Lock()
	c.initialState = false

	if ferr != nil {
		return false, ferr
	}
	if n <= 0 {
		c.handleEOFLocked()
		return false, nil
	}
	return true, nil
}

// readaheadDemandLocked computes read_more and prefetch_more: read_more is
// true if any selected eager stream is drained or any stream is
// mid-refresh; prefetch_more is true if any eager stream's buffered
// duration is below MinSecs.
func (c *Cache) readaheadDemandLocked() (readMore, prefetchMore bool) {
	for _, sd := range c.streams {
		if !sd.selected {
			continue
		}
		if sd.refreshing {
			readMore = true
		}
		if sd.eager {
			if sd.readerHead == nil && !sd.eof {
				readMore = true
			}
			if sd.baseTS.IsSet() && sd.queue != nil && sd.queue.lastTS.IsSet() {
				buffered := float64(sd.queue.lastTS - sd.baseTS)
				if buffered < c.cfg.MinSecs {
					prefetchMore = true
				}
			} else {
				prefetchMore = true
			}
		}
	}
	return readMore, prefetchMore
}

// handleOverflowLocked implements the forward-buffer overflow policy: mark
// every drained stream EOF, warn once.
func (c *Cache) handleOverflowLocked(logger *slog.Logger) {
	if !c.eof {
		logger.Warn("forward buffer overflow: stopping readahead until drained",
			"fw_bytes", c.fwBytes, "max_bytes", c.cfg.MaxBytes)
		c.metrics.overflowCount.Inc()
	}
	anyDrained := false
	for _, sd := range c.streams {
		if sd.selected && sd.readerHead == nil {
			sd.eof = true
			anyDrained = true
		}
	}
	if anyDrained {
		c.eof = true
		c.lastEOF = true
		c.notifyAllReadersLocked()
	}
}

// handleEOFLocked handles the case where the producer returned no packets:
// every stream is marked EOF, the final open keyframe interval is finalized
// with the sentinel-null packet, and c.eof/c.lastEOF are set.
func (c *Cache) handleEOFLocked() {
	for _, sd := range c.streams {
		sd.eof = true
	}
	if c.cfg.SeekableCache {
		r := c.currentRange()
		for idx, q := range r.queues {
			sd := c.streamLocked(idx)
			if sd == nil || !sd.selected {
				continue
			}
			c.updateSeekRangeLocked(sd, q, r, nil)
		}
	}
	c.eof = true
	c.lastEOF = true
	c.notifyAllReadersLocked()
}

func (c *Cache) notifyAllReadersLocked() {
	for _, sd := range c.streams {
		sd.wake.notify()
	}
	c.fireWakeupCBAsync()
}

// refreshTelemetry refreshes stream-size and other telemetry outside the
// lock.
func (c *Cache) refreshTelemetry(logger *slog.Logger) {
	if c.producer == nil {
		return
	}
	if _, err := c.producer.Control(c.ctx, ControlStreamSize, nil); err != nil {
		logger.Debug("stream size control failed", "error", err)
	}
	c.mu.Lock()
	c.metrics.observe(c)
	c.mu.Unlock()
}

// RequestCacheUpdate asks the worker to refresh telemetry on its next
// iteration.
func (c *Cache) RequestCacheUpdate() {
	c.mu.Lock()
	c.forceUpdate = true
	c.mu.Unlock()
	c.workerWake.notify()
}

// runOnWorker enqueues fn into the single-slot deferred call handoff and
// blocks the calling consumer goroutine until the worker has executed it.
// Must be called without c.mu held.
func (c *Cache) runOnWorker(ctx context.Context, fn func()) error {
	c.mu.Lock()
	c.runFn = fn
	c.mu.Unlock()
	c.workerWake.notify()
	return c.runDone.wait(ctx)
}
