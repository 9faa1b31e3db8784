// Package demoproducer provides a synthetic, in-memory Producer
// implementation for pkg/cache. It invents deterministic video, audio, and
// subtitle packet streams from a StreamSpec list rather than parsing any
// real container format, so it can drive the cache's worker loop in tests
// and in the CLI demo without a real media file.
package demoproducer

import (
	"context"
	"fmt"
	"math"

	"github.com/jmylchreest/demuxcache/pkg/cache"
)

// StreamSpec describes one synthetic elementary stream to generate.
type StreamSpec struct {
	Type StreamType
	// FrameRate is frames (or packets) per second.
	FrameRate float64
	// FrameBytes is the payload size of an ordinary packet.
	FrameBytes int
	// KeyframeEvery is the keyframe interval in frames; ignored for
	// non-video streams, which have every packet as a keyframe.
	KeyframeEvery int
	// AttachedPicture marks this stream as a single one-shot cover image
	// rather than a continuous timeline.
	AttachedPicture bool
}

// StreamType mirrors cache.StreamType without importing its unexported
// internals, so callers can build a spec without reaching into the cache
// package's packet construction helpers.
type StreamType = cache.StreamType

const (
	StreamVideo    = cache.StreamVideo
	StreamAudio    = cache.StreamAudio
	StreamSubtitle = cache.StreamSubtitle
)

// Config configures a demo producer.
type Config struct {
	Streams []StreamSpec
	// Duration is the total synthetic timeline length in seconds. Once every
	// stream's generator has passed Duration, FillBuffer reports EOF.
	Duration float64
	// BatchPackets is how many packets FillBuffer appends per call.
	BatchPackets int
}

func (c Config) withDefaults() Config {
	if c.BatchPackets <= 0 {
		c.BatchPackets = 32
	}
	if c.Duration <= 0 {
		c.Duration = 60
	}
	return c
}

type streamGen struct {
	index     int
	spec      StreamSpec
	nextFrame int64
	done      bool
	pos       int64
}

// Producer is a synthetic cache.Producer. It is safe for use only by the
// single worker goroutine that drives it, matching the contract of the
// Producer interface it implements.
type Producer struct {
	cfg    Config
	cache  *cache.Cache
	gens   []*streamGen
	closed bool
}

// New constructs a demo producer bound to c. Call c.StartThread(p) (or drive
// it manually via c.ReadAny) to begin generating packets.
func New(c *cache.Cache, cfg Config) *Producer {
	return &Producer{cfg: cfg.withDefaults(), cache: c}
}

// Open declares every configured stream on the cache.
func (p *Producer) Open(ctx context.Context, level cache.CheckLevel) error {
	for _, spec := range p.cfg.Streams {
		sd := p.cache.AddStream(spec.Type, spec.AttachedPicture)
		p.gens = append(p.gens, &streamGen{index: sd.Index, spec: spec})
	}
	return nil
}

// FillBuffer appends up to cfg.BatchPackets packets across every
// non-attached-picture, non-done generator, round-robin, and returns how
// many were appended. Attached-picture streams are emitted once, on the
// first call that reaches them.
func (p *Producer) FillBuffer(ctx context.Context) (int, error) {
	if p.closed {
		return 0, fmt.Errorf("demoproducer: closed")
	}
	appended := 0
	for appended < p.cfg.BatchPackets {
		progressedThisRound := false
		for _, g := range p.gens {
			if g.done {
				continue
			}
			select {
			case <-ctx.Done():
				return appended, ctx.Err()
			default:
			}
			pkt := p.nextPacket(g)
			if pkt == nil {
				g.done = true
				continue
			}
			p.cache.Append(pkt)
			appended++
			progressedThisRound = true
			if appended >= p.cfg.BatchPackets {
				break
			}
		}
		if !progressedThisRound {
			break
		}
	}
	return appended, nil
}

// nextPacket generates the next packet for g, or nil once g has exhausted
// its timeline (or, for an attached picture, already emitted its one frame).
func (p *Producer) nextPacket(g *streamGen) *cache.Packet {
	if g.spec.AttachedPicture {
		if g.nextFrame > 0 {
			return nil
		}
		g.nextFrame++
		data := make([]byte, g.spec.FrameBytes)
		pkt := cache.NewPacket(g.index, data)
		pkt.PTS, pkt.DTS = 0, 0
		pkt.Keyframe = true
		return pkt
	}

	ts := float64(g.nextFrame) / g.spec.FrameRate
	if ts >= p.cfg.Duration {
		return nil
	}

	data := make([]byte, g.spec.FrameBytes)
	pkt := cache.NewPacket(g.index, data)
	pkt.PTS = cache.Timestamp(ts)
	pkt.DTS = cache.Timestamp(ts)
	pkt.Pos = g.pos
	pkt.Keyframe = isKeyframe(g)

	g.nextFrame++
	g.pos += int64(g.spec.FrameBytes)
	return pkt
}

func isKeyframe(g *streamGen) bool {
	if g.spec.Type != cache.StreamVideo {
		return true
	}
	interval := g.spec.KeyframeEvery
	if interval <= 0 {
		interval = 1
	}
	return g.nextFrame%int64(interval) == 0
}

// Seek repositions every generator's next-frame cursor to the frame nearest
// pts, snapping video streams backward to a keyframe boundary when flags
// doesn't request high-resolution precision.
func (p *Producer) Seek(ctx context.Context, pts cache.Timestamp, flags cache.SeekFlags) error {
	target := float64(pts)
	if !pts.IsSet() || math.IsInf(target, 0) {
		target = 0
	}
	if target < 0 {
		target = 0
	}
	for _, g := range p.gens {
		if g.spec.AttachedPicture {
			continue
		}
		frame := int64(target * g.spec.FrameRate)
		if g.spec.Type == cache.StreamVideo && g.spec.KeyframeEvery > 1 && flags&cache.SeekHR == 0 {
			frame -= frame % int64(g.spec.KeyframeEvery)
		}
		if frame < 0 {
			frame = 0
		}
		g.nextFrame = frame
		g.pos = frame * int64(g.spec.FrameBytes)
		g.done = false
	}
	return nil
}

// Control answers the query/notification commands the cache worker issues.
func (p *Producer) Control(ctx context.Context, cmd cache.ControlCommand, arg any) (any, error) {
	switch cmd {
	case cache.ControlStreamSize:
		var total int64
		for _, g := range p.gens {
			if g.spec.AttachedPicture {
				continue
			}
			frames := int64(p.cfg.Duration * g.spec.FrameRate)
			total += frames * int64(g.spec.FrameBytes)
		}
		return total, nil
	case cache.ControlCacheInfo:
		return nil, nil
	case cache.ControlSwitchedTracks, cache.ControlReplaceStream:
		return nil, nil
	default:
		return nil, fmt.Errorf("demoproducer: unsupported control command %v", cmd)
	}
}

// Close marks the producer closed; subsequent FillBuffer calls error.
func (p *Producer) Close() error {
	p.closed = true
	return nil
}
