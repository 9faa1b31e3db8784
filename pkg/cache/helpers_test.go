package cache

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"
)

// newTestCache builds a Cache with the given config overrides applied on top
// of a config tuned for deterministic, low-volume tests. mutate may be nil.
func newTestCache(t *testing.T, mutate func(*Config)) *Cache {
	t.Helper()
	cfg := Config{
		MinSecs:             1.0,
		MinSecsCache:        10.0,
		MaxBytes:            1 << 20,
		MaxBytesBackward:    0,
		SeekableCache:       false,
		PacketOverheadBytes: 0,
		Logger:              slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return New(cfg)
}

// mkPacket builds a packet for stream idx with the given pts/dts and payload
// size, optionally a keyframe.
func mkPacket(idx int, pts, dts float64, size int, keyframe bool) *Packet {
	p := NewPacket(idx, make([]byte, size))
	p.PTS = Timestamp(pts)
	p.DTS = Timestamp(dts)
	p.Pos = int64(dts * 1000)
	p.Keyframe = keyframe
	return p
}

// selectStream is a test convenience around SelectTrack for the common case
// of selecting a stream before the cache has seen any packets (initial
// selection, not a late/refresh-triggering one).
func selectStream(t *testing.T, c *Cache, idx int) {
	t.Helper()
	if err := c.SelectTrack(idx, UnsetTimestamp, true); err != nil {
		t.Fatalf("SelectTrack(%d): %v", idx, err)
	}
}

// scriptedProducer is a Producer driven entirely by test code: FillBuffer
// pulls one batch off a channel and appends it, blocking when the channel is
// empty until either a batch arrives or ctx is cancelled.
type scriptedProducer struct {
	mu      sync.Mutex
	cache   *Cache
	batches chan []*Packet
	seeks   []seekCall
	opened  bool
	closed  bool
}

type seekCall struct {
	pts   Timestamp
	flags SeekFlags
}

func newScriptedProducer(c *Cache) *scriptedProducer {
	return &scriptedProducer{cache: c, batches: make(chan []*Packet, 16)}
}

func (p *scriptedProducer) Open(_ context.Context, _ CheckLevel) error {
	p.mu.Lock()
	p.opened = true
	p.mu.Unlock()
	return nil
}

// push enqueues a batch of packets for the next FillBuffer call to append.
func (p *scriptedProducer) push(pkts ...*Packet) {
	p.batches <- pkts
}

// pushEOF enqueues an empty batch, which FillBuffer reports as EOF (0, nil).
func (p *scriptedProducer) pushEOF() {
	p.batches <- nil
}

func (p *scriptedProducer) FillBuffer(ctx context.Context) (int, error) {
	select {
	case batch := <-p.batches:
		for _, pkt := range batch {
			p.cache.Append(pkt)
		}
		return len(batch), nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (p *scriptedProducer) Seek(_ context.Context, pts Timestamp, flags SeekFlags) error {
	p.mu.Lock()
	p.seeks = append(p.seeks, seekCall{pts, flags})
	p.mu.Unlock()
	return nil
}

func (p *scriptedProducer) Control(_ context.Context, _ ControlCommand, _ any) (any, error) {
	return nil, nil
}

func (p *scriptedProducer) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}

func (p *scriptedProducer) seekCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.seeks)
}

func (p *scriptedProducer) lastSeek() (seekCall, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.seeks) == 0 {
		return seekCall{}, false
	}
	return p.seeks[len(p.seeks)-1], true
}
