package cache

import "context"

// SeekFlags is an independent bitmask of seek modifiers.
type SeekFlags uint8

const (
	// SeekHR requests precise (high-resolution) seeking rather than
	// snapping to the nearest keyframe.
	SeekHR SeekFlags = 1 << iota
	// SeekForward biases ambiguous seeks (e.g. no exact keyframe) forward
	// in time.
	SeekForward
	// SeekBackward biases ambiguous seeks backward in time.
	SeekBackward
	// SeekFactor indicates pts is a fraction of total duration in
	// [0,1] rather than an absolute timestamp.
	SeekFactor
)

func (f SeekFlags) has(bit SeekFlags) bool { return f&bit != 0 }

// Events is a union-mergeable bitmask of producer lifecycle events.
type Events uint8

const (
	EventInit Events = 1 << iota
	EventStreams
	EventMetadata
)

// EventAll is the union of every event bit.
const EventAll = EventInit | EventStreams | EventMetadata

// ControlCommand identifies a format-specific query or notification passed
// through Producer.Control.
type ControlCommand int

const (
	// ControlSwitchedTracks notifies the producer that the set of selected
	// streams changed; arg is unused.
	ControlSwitchedTracks ControlCommand = iota
	// ControlReplaceStream notifies the producer that a stream's
	// parameters changed in place; arg is the stream index.
	ControlReplaceStream
	// ControlStreamSize queries total source size in bytes; arg is
	// unused, result is int64 (-1 if unknown).
	ControlStreamSize
	// ControlCacheInfo queries the underlying byte-stream's own cache
	// state (opaque to this package); result is implementation-defined.
	ControlCacheInfo
)

// CheckLevel is passed to Producer.Open, mirroring the original's
// "check_level" probing strictness knob.
type CheckLevel int

const (
	CheckLevelNormal CheckLevel = iota
	CheckLevelForce
)

// Producer is the format-parsing demuxer implementation this cache drives.
// Concrete container/codec parsing is deliberately out of this package's
// scope; see pkg/cache/demoproducer for a synthetic in-memory implementation
// used by tests and the CLI demo.
//
// All methods are called by the worker goroutine (or, with threading
// disabled, synchronously by the consumer) with the cache's mutex NOT held.
type Producer interface {
	// Open initializes the producer and declares its streams via callbacks
	// supplied out of band (see AddStream on Cache, which the Producer is
	// expected to call during Open or at any later point — streams are
	// additive-only for the cache's lifetime).
	Open(ctx context.Context, level CheckLevel) error

	// FillBuffer appends zero or more packets (via Cache.Append) and
	// returns the number of packets appended. Returning 0 with a nil error
	// signals EOF for this pass.
	FillBuffer(ctx context.Context) (int, error)

	// Seek repositions the producer's read point.
	Seek(ctx context.Context, pts Timestamp, flags SeekFlags) error

	// Control issues a format-specific query or notification.
	Control(ctx context.Context, cmd ControlCommand, arg any) (any, error)

	// Close releases any resources held by the producer.
	Close() error
}
