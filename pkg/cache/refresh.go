package cache

// computeRefreshSeekLocked handles a stream newly enabled during playback:
// it computes the low-amplitude seek needed to rediscover the packets that
// stream missed without disturbing already-selected streams. Returns the
// target pts and whether a refresh seek should actually be issued this
// pass.
func (c *Cache) computeRefreshSeekLocked() (pts Timestamp, needed bool) {
	pending := c.streamsNeedingRefreshLocked()
	if len(pending) == 0 {
		return UnsetTimestamp, false
	}

	startTS := c.refreshStartTSLocked(pending)

	if c.allSelectedNeedRefreshLocked() {
		// A fresh user seek, not merely a selection change: issue a normal
		// seek to start_ts and clear the pending flags, since Seek already
		// handles range/queue setup.
		c.clearNeedRefreshLocked(pending)
		c.queueProducerSeekLocked(startTS, 0)
		return startTS, false
	}

	if !c.refreshPrerequisitesMetLocked() {
		// Prerequisites failed: skip the refresh, tolerate the gap.
		c.clearNeedRefreshLocked(pending)
		return UnsetTimestamp, false
	}

	for _, sd := range pending {
		if sd.queue != nil && !sd.queue.isEmpty() {
			sd.refreshing = true
		}
		sd.needRefresh = false
	}
	return startTS.Add(-1.0), true
}

func (c *Cache) streamsNeedingRefreshLocked() []*StreamDescriptor {
	var pending []*StreamDescriptor
	for _, sd := range c.streams {
		if sd.needRefresh {
			pending = append(pending, sd)
		}
	}
	return pending
}

// refreshStartTSLocked computes start_ts = min(ref_pts, base_ts over
// selected audio/video streams).
func (c *Cache) refreshStartTSLocked(pending []*StreamDescriptor) Timestamp {
	start := UnsetTimestamp
	for _, sd := range pending {
		start = MinTimestamp(start, sd.refPTS)
	}
	for _, sd := range c.streams {
		if sd.selected && (sd.Type == StreamVideo || sd.Type == StreamAudio) {
			start = MinTimestamp(start, sd.baseTS)
		}
	}
	return start
}

func (c *Cache) allSelectedNeedRefreshLocked() bool {
	any := false
	for _, sd := range c.streams {
		if !sd.selected {
			continue
		}
		any = true
		if !sd.needRefresh {
			return false
		}
	}
	return any
}

// refreshPrerequisitesMetLocked: the producer is assumed seekable — this
// package has no byte-stream seekability query of its own, so it checks the
// part it actually controls: every selected stream descriptor must have a
// usable monotone key (correct_dts or correct_pos).
func (c *Cache) refreshPrerequisitesMetLocked() bool {
	for _, sd := range c.streams {
		if !sd.selected {
			continue
		}
		if !sd.globalCorrectDTS && !sd.globalCorrectPos {
			return false
		}
	}
	return true
}

func (c *Cache) clearNeedRefreshLocked(pending []*StreamDescriptor) {
	for _, sd := range pending {
		sd.needRefresh = false
	}
}
