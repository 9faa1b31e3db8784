package cache

// StreamDescriptor is the per-stream runtime state: selection, reader
// cursor, bitrate, EOF. It is owned by the Cache for the lifetime of the
// cache (stream descriptors are additive-only; never removed).
type StreamDescriptor struct {
	Index           int
	Type            StreamType
	AttachedPicture bool

	selected bool
	// eager: the cache tries to keep at least one forward packet queued.
	// False for attached-picture streams and, when audio/video is present,
	// for subtitle streams.
	eager bool

	// queue points into the current range's streamQueue for this stream.
	queue *streamQueue
	// readerHead is the borrowed dequeue cursor; nil means drained.
	readerHead    *Packet
	fwPackets     int
	fwBytes       int64
	bytesDequeued int64

	baseTS Timestamp

	bitrate          float64
	lastBitrateTS    Timestamp
	lastBitrateBytes int64

	eof            bool
	skipToKeyframe bool
	refreshing     bool
	needRefresh    bool
	refPTS         Timestamp
	ignoreEOF      bool

	// globalCorrectDTS/globalCorrectPos AND-accumulate the per-range
	// monotonicity flags across every range this stream has ever had a
	// queue in.
	globalCorrectDTS bool
	globalCorrectPos bool

	// attachedPictureSent tracks whether the one-shot attached picture has
	// already been delivered.
	attachedPictureSent bool
	attachedPicture     *Packet

	// wake is notified whenever a packet becomes available at readerHead,
	// or EOF/seek state changes in a way a blocked reader should observe.
	wake *signal
}

func newStreamDescriptor(index int, typ StreamType, attachedPicture bool) *StreamDescriptor {
	return &StreamDescriptor{
		Index:            index,
		Type:             typ,
		AttachedPicture:  attachedPicture,
		baseTS:           UnsetTimestamp,
		lastBitrateTS:    UnsetTimestamp,
		refPTS:           UnsetTimestamp,
		globalCorrectDTS: true,
		globalCorrectPos: true,
		wake:             newSignal(),
	}
}

// Selected reports whether the consumer wants packets for this stream.
func (sd *StreamDescriptor) Selected() bool { return sd.selected }

// Eager reports whether the cache tries to keep a forward packet buffered.
func (sd *StreamDescriptor) Eager() bool { return sd.eager }

// EOF reports whether this stream has been marked drained with no more
// data expected until the next seek or selection change.
func (sd *StreamDescriptor) EOF() bool { return sd.eof && sd.readerHead == nil }

// Bitrate returns the most recently computed bitrate estimate in bytes per
// second, recomputed at most every 0.5s at keyframe boundaries.
func (sd *StreamDescriptor) Bitrate() float64 { return sd.bitrate }

// clearReaderState resets the reader cursor, forward accounting, and base_ts,
// used on deselect and on switching to a different current range. base_ts is
// cleared here so it re-seeds from the next packet returned to the reader,
// rather than carrying a stale floor across a seek or reselection.
func (sd *StreamDescriptor) clearReaderState() {
	sd.readerHead = nil
	sd.fwPackets = 0
	sd.fwBytes = 0
	sd.skipToKeyframe = false
	sd.baseTS = UnsetTimestamp
}

// updateBitrate recomputes sd.bitrate at most every 0.5s, sampled at
// keyframe boundaries.
func (sd *StreamDescriptor) updateBitrate(now Timestamp, bytesSoFar int64, atKeyframe bool) {
	const minInterval = 0.5
	if !atKeyframe {
		return
	}
	if !sd.lastBitrateTS.IsSet() {
		sd.lastBitrateTS = now
		sd.lastBitrateBytes = bytesSoFar
		return
	}
	if !now.IsSet() || float64(now-sd.lastBitrateTS) < minInterval {
		return
	}
	dt := float64(now - sd.lastBitrateTS)
	if dt > 0 {
		sd.bitrate = float64(bytesSoFar-sd.lastBitrateBytes) / dt
	}
	sd.lastBitrateTS = now
	sd.lastBitrateBytes = bytesSoFar
}

// ReaderState is a snapshot of a stream's consumer-visible state, returned
// by Cache.ReaderState.
type ReaderState struct {
	Selected       bool
	EOF            bool
	Idle           bool
	Underrun       bool
	ForwardPackets int
	ForwardBytes   int64
	Bitrate        float64
	BaseTS         Timestamp
	SeekStart      Timestamp
	SeekEnd        Timestamp
}
