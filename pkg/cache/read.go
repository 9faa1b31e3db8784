package cache

import (
	"context"
	"log/slog"
)

// ReadPacket blocks until a packet is available for stream, EOF is reached,
// or ctx is done. The returned packet has pkt.PTS/DTS/Start/End shifted by
// the cache's ts_offset, and dequeuing triggers both a worker wakeup (so
// readahead can refill) and an immediate pruning pass.
func (c *Cache) ReadPacket(ctx context.Context, stream int) (*Packet, error) {
	for {
		c.mu.Lock()
		sd := c.streamLocked(stream)
		if sd == nil {
			c.mu.Unlock()
			return nil, ErrStreamUnknown
		}

		if sd.AttachedPicture && sd.attachedPictureSent {
			c.mu.Unlock()
			return nil, ErrAttachedPictureConsumed
		}

		if pkt, ok := c.tryDequeueLocked(sd); ok {
			c.mu.Unlock()
			return pkt, nil
		}

		if sd.eof && sd.readerHead == nil {
			c.mu.Unlock()
			return nil, nil
		}

		waitCh := sd.wake.waitChan()
		c.mu.Unlock()

		select {
		case <-waitCh:
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-c.ctx.Done():
			return nil, ErrClosed
		}
	}
}

// ReadPacketAsync is the non-blocking counterpart to ReadPacket: it returns
// immediately with (nil, nil) if no packet is currently queued, instead of
// waiting.
func (c *Cache) ReadPacketAsync(stream int) (*Packet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sd := c.streamLocked(stream)
	if sd == nil {
		return nil, ErrStreamUnknown
	}
	pkt, _ := c.tryDequeueLocked(sd)
	return pkt, nil
}

// HasPacket reports whether a packet is immediately available for stream
// without dequeuing it.
func (c *Cache) HasPacket(stream int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	sd := c.streamLocked(stream)
	if sd == nil {
		return false
	}
	if sd.AttachedPicture {
		return sd.attachedPicture != nil && !sd.attachedPictureSent
	}
	return sd.readerHead != nil
}

// tryDequeueLocked implements the attached-picture one-shot path and the
// normal forward-cursor dequeue, including the bitrate sample and the
// post-dequeue pruning trigger. Returns ok=false when nothing is currently
// available.
func (c *Cache) tryDequeueLocked(sd *StreamDescriptor) (*Packet, bool) {
	if sd.AttachedPicture {
		if sd.attachedPicture == nil || sd.attachedPictureSent {
			return nil, false
		}
		sd.attachedPictureSent = true
		return sd.attachedPicture.clone(c.tsOffset), true
	}

	n := sd.readerHead
	if n == nil {
		return nil, false
	}
	sd.readerHead = n.next
	sd.fwPackets--
	sd.fwBytes -= n.EstimatedSize(c.cfg.PacketOverheadBytes)
	c.fwBytes -= n.EstimatedSize(c.cfg.PacketOverheadBytes)

	if ts := n.effectiveTimestamp(); ts.IsSet() {
		sd.baseTS = ts
	}

	sd.bytesDequeued += n.EstimatedSize(c.cfg.PacketOverheadBytes)
	sd.updateBitrate(n.effectiveTimestamp(), sd.bytesDequeued, n.Keyframe)

	if err := c.pruneLocked(); err != nil {
		c.logger().Error("prune after dequeue failed", slog.String("error", err.Error()))
	}

	c.workerWake.notify()
	return n.clone(c.tsOffset), true
}

// ReadAny implements the non-threaded single-call interleaving mode: when
// no worker goroutine is running, a consumer may instead drive the producer
// itself by calling ReadAny in a loop. It is equivalent to one iteration of
// the worker's read_packet branch, without the background goroutine.
// Returns the stream index that advanced, or -1 at EOF with a nil error.
func (c *Cache) ReadAny(ctx context.Context) (int, error) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return -1, errNotNonThreaded
	}
	if c.eof {
		c.mu.Unlock()
		return -1, nil
	}
	logger := c.logger().With(slog.String("component", "cache.readany"))
	progressed, err := c.readPacketLocked(logger)
	advanced := -1
	if progressed {
		for _, sd := range c.streams {
			if sd.selected && sd.readerHead != nil {
				advanced = sd.Index
				break
			}
		}
	}
	c.mu.Unlock()
	return advanced, err
}

// ReaderState returns a snapshot of a stream's consumer-visible state:
// selection, EOF, buffered forward packets/bytes, bitrate, and seek bounds.
func (c *Cache) ReaderState(stream int) (ReaderState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sd := c.streamLocked(stream)
	if sd == nil {
		return ReaderState{}, ErrStreamUnknown
	}
	st := ReaderState{
		Selected:       sd.selected,
		EOF:            sd.EOF(),
		Idle:           c.idle,
		Underrun:       sd.selected && sd.eager && sd.readerHead == nil && !sd.eof,
		ForwardPackets: sd.fwPackets,
		ForwardBytes:   sd.fwBytes,
		Bitrate:        sd.bitrate,
		BaseTS:         sd.baseTS,
	}
	if sd.queue != nil {
		st.SeekStart = sd.queue.seekStart
		st.SeekEnd = sd.queue.seekEnd
	}
	return st, nil
}
