package cache

import "log/slog"

// Config holds the tunables for a Cache.
type Config struct {
	// MinSecs is the readahead target: how far past the current reader
	// position the worker tries to keep each eager stream buffered.
	MinSecs float64
	// MinSecsCache is the readahead target used while the seekable cache
	// is actively backfilling a freshly joined or seeked range.
	MinSecsCache float64
	// MaxBytes is the forward buffer cap across all streams in the
	// current range.
	MaxBytes int64
	// MaxBytesBackward is the back-buffer cap (bytes held behind the
	// reader to permit in-cache backward seeks). 0 disables the seekable
	// cache's back-buffer, i.e. "keep only the forward buffer".
	MaxBytesBackward int64
	// SeekableCache enables keyframe-interval tracking, range joining,
	// and in-cache seeking. When false, seeks always go to the producer
	// and old ranges are discarded rather than merged.
	SeekableCache bool
	// PacketOverheadBytes is added to every packet's payload length when
	// computing byte-budget accounting. 0 adds no overhead; a negative
	// value selects the default.
	PacketOverheadBytes int64

	Logger *slog.Logger
}

// DefaultConfig returns the package's baseline tunables.
func DefaultConfig() Config {
	const mib = 1024 * 1024
	return Config{
		MinSecs:             1.0,
		MinSecsCache:        10.0,
		MaxBytes:            400 * mib,
		MaxBytesBackward:    0,
		SeekableCache:       false,
		PacketOverheadBytes: defaultPacketOverheadBytes,
		Logger:              slog.Default(),
	}
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.MinSecs <= 0 {
		out.MinSecs = DefaultConfig().MinSecs
	}
	if out.MinSecsCache <= 0 {
		out.MinSecsCache = DefaultConfig().MinSecsCache
	}
	if out.MaxBytes <= 0 {
		out.MaxBytes = DefaultConfig().MaxBytes
	}
	if out.PacketOverheadBytes < 0 {
		out.PacketOverheadBytes = defaultPacketOverheadBytes
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	return out
}
