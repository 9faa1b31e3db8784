package cache

// StreamType classifies a declared stream: video, audio, subtitle, or
// unknown.
type StreamType int

const (
	StreamUnknown StreamType = iota
	StreamVideo
	StreamAudio
	StreamSubtitle
)

func (t StreamType) String() string {
	switch t {
	case StreamVideo:
		return "video"
	case StreamAudio:
		return "audio"
	case StreamSubtitle:
		return "subtitle"
	default:
		return "unknown"
	}
}

// defaultPacketOverheadBytes is the fixed per-packet accounting overhead
// added on top of the payload length when computing total_bytes/fw_bytes:
// without it, streams made of many tiny packets (e.g. subtitles) would
// under-report their true memory footprint relative to the bookkeeping each
// packet actually costs. Overridable via Config.
const defaultPacketOverheadBytes = 64

// Packet is the immutable-after-append unit carried through the cache.
// Every field except kfSeekPTS and next is fixed once the packet has been
// appended to a streamQueue; those two are mutated in place by the
// seek-range maintenance and pruning/join machinery.
type Packet struct {
	StreamIndex int
	Data        []byte

	PTS, DTS, Start, End Timestamp

	// Pos is the byte position of the packet in the underlying source, or
	// -1 if unknown.
	Pos int64

	Keyframe  bool
	Segmented bool

	// kfSeekPTS is the seek-point timestamp assigned to this packet once
	// the *following* keyframe arrives (it is only ever set on keyframe
	// packets). Mutable after append.
	kfSeekPTS Timestamp

	// next links to the following packet in the same StreamQueue, or nil
	// at the tail. Mutable after append (cleared when the node is pruned
	// or spliced during a range join).
	next *Packet
}

// NewPacket constructs a packet with all timestamps unset and Pos unset
// (-1). Callers fill in whichever fields the producer knows before handing
// it to Cache.Append.
func NewPacket(streamIndex int, data []byte) *Packet {
	return &Packet{
		StreamIndex: streamIndex,
		Data:        data,
		PTS:         UnsetTimestamp,
		DTS:         UnsetTimestamp,
		Start:       UnsetTimestamp,
		End:         UnsetTimestamp,
		Pos:         -1,
		kfSeekPTS:   UnsetTimestamp,
	}
}

// Len returns the payload length in bytes.
func (p *Packet) Len() int {
	return len(p.Data)
}

// EstimatedSize is the accounting size used for total_bytes/fw_bytes: the
// payload length plus a fixed per-packet overhead.
func (p *Packet) EstimatedSize(overhead int64) int64 {
	return int64(len(p.Data)) + overhead
}

// KeyframeSeekPTS returns the seek-point timestamp assigned to this (must be
// a keyframe) packet, or UnsetTimestamp if it hasn't been finalized yet.
func (p *Packet) KeyframeSeekPTS() Timestamp {
	return p.kfSeekPTS
}

// clone returns a deep, independent copy of p with ts shifted by offset
// seconds on every timestamp field — the value handed back to a consumer
// from ReadPacket. The original packet, still owned by its streamQueue, is
// untouched.
func (p *Packet) clone(offset float64) *Packet {
	data := make([]byte, len(p.Data))
	copy(data, p.Data)
	return &Packet{
		StreamIndex: p.StreamIndex,
		Data:        data,
		PTS:         p.PTS.Add(offset),
		DTS:         p.DTS.Add(offset),
		Start:       p.Start.Add(offset),
		End:         p.End.Add(offset),
		Pos:         p.Pos,
		Keyframe:    p.Keyframe,
		Segmented:   p.Segmented,
		kfSeekPTS:   p.kfSeekPTS,
	}
}

// effectiveTimestamp returns dts if set, else pts — the "ts" used by the
// seek-range maintenance and non-monotone tolerance logic, clamped into
// [start, end] when the packet is segmented.
func (p *Packet) effectiveTimestamp() Timestamp {
	ts := p.DTS
	if !ts.IsSet() {
		ts = p.PTS
	}
	if p.Segmented {
		ts = ts.Clamp(p.Start, p.End)
	}
	return ts
}
