package cache

// SelectTrack toggles selection of a stream, recomputes eagerness across
// all streams, and — if the stream is being newly enabled mid-playback —
// arms the refresh-seek machinery.
func (c *Cache) SelectTrack(index int, refPTS Timestamp, selected bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sd := c.streamLocked(index)
	if sd == nil {
		return ErrStreamUnknown
	}
	if sd.selected == selected {
		return nil
	}

	wasEOF := c.eof
	sd.selected = selected

	if !selected {
		sd.clearReaderState()
		for _, r := range c.ranges {
			if q, ok := r.queues[index]; ok {
				*q = *newStreamQueue()
			}
		}
		c.recomputeRangeBoundsLocked()
		c.freeEmptyNonCurrentRangesLocked()
	} else {
		// Selecting a stream after the cache had already reached EOF must
		// give the refresh machinery a chance to run again, even though
		// nothing else changed.
		if wasEOF {
			c.eof = false
			c.lastEOF = false
		}
		if !c.initialState {
			sd.needRefresh = true
			sd.refPTS = refPTS
			c.tracksSwitched = true
		}
	}

	c.recomputeEagerLocked()
	c.workerWake.notify()
	return nil
}

// recomputeEagerLocked implements: eager iff selected && !attachedPicture;
// if any non-subtitle eager stream exists, subtitle streams are forced
// passive (non-eager), since a subtitle-only readahead target would stall
// audio/video buffering behind sparse subtitle packets.
func (c *Cache) recomputeEagerLocked() {
	hasNonSubEager := false
	for _, sd := range c.streams {
		sd.eager = sd.selected && !sd.AttachedPicture
		if sd.eager && sd.Type != StreamSubtitle {
			hasNonSubEager = true
		}
	}
	if hasNonSubEager {
		for _, sd := range c.streams {
			if sd.Type == StreamSubtitle {
				sd.eager = false
			}
		}
	}
}

// recomputeRangeBoundsLocked recomputes seek bounds for every range based
// on current selection.
func (c *Cache) recomputeRangeBoundsLocked() {
	selected := func(idx int) bool {
		sd := c.streamLocked(idx)
		return sd != nil && sd.selected
	}
	for _, r := range c.ranges {
		r.recomputeSeekBounds(selected)
	}
}

// freeEmptyNonCurrentRangesLocked destroys any non-current range that has
// become empty.
func (c *Cache) freeEmptyNonCurrentRangesLocked() {
	cur := c.currentRange()
	kept := c.ranges[:0]
	for _, r := range c.ranges {
		if r != cur && r.isEmpty() {
			continue
		}
		kept = append(kept, r)
	}
	c.ranges = kept
}
