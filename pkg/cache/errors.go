package cache

import "errors"

// Sentinel errors returned by the public API. Recoverable conditions never
// panic; ErrInvariantViolation is the one exception (see its doc comment).
var (
	// ErrStreamUnknown is returned when an operation names a stream index
	// that was never declared via AddStream.
	ErrStreamUnknown = errors.New("cache: unknown stream index")

	// ErrClosed is returned by StartThread after Free, and by a blocked
	// ReadPacket when the cache shuts down.
	ErrClosed = errors.New("cache: closed")

	// ErrNoProducer is returned if the worker is started without a
	// Producer attached.
	ErrNoProducer = errors.New("cache: no producer attached")

	// ErrAttachedPictureConsumed is returned by a second ReadPacket on an
	// attached-picture stream; the picture is delivered exactly once.
	ErrAttachedPictureConsumed = errors.New("cache: attached picture already delivered")

	// errNotNonThreaded is returned by ReadAny when a worker goroutine is
	// already driving the producer; the two drive modes are mutually
	// exclusive for a given Cache.
	errNotNonThreaded = errors.New("cache: ReadAny is only valid before StartThread")
)

// ErrInvariantViolation is the "this should never happen" error: pruning
// selected nothing while over budget, a cursor pointing outside its queue,
// and similar internal-consistency failures. These are bugs, not
// recoverable conditions, so callers should treat them as fatal rather than
// retry. It is still returned rather than panicking so an embedding
// application can log and shut the session down cleanly instead of crashing
// the whole process.
type ErrInvariantViolation struct {
	Detail string
}

func (e *ErrInvariantViolation) Error() string {
	return "cache: invariant violation: " + e.Detail
}
