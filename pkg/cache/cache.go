package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Cache is the shared mutable state coordinating a Producer with any number
// of packet consumers. All exported methods are safe for concurrent use by
// the worker goroutine and any number of consumer goroutines.
type Cache struct {
	cfg Config

	mu sync.Mutex

	producer Producer

	streams []*StreamDescriptor
	// ranges is LRU-sorted: index 0 is least recently used, the last
	// element is the current range the producer appends into.
	ranges []*cachedRange

	totalBytes int64
	fwBytes    int64

	reading bool
	idle    bool

	eof         bool
	lastEOF     bool
	initialState bool

	seeking   bool
	seekPTS   Timestamp
	seekFlags SeekFlags

	tracksSwitched bool

	tsOffset float64

	// runFn is the single-slot deferred control task handoff from a
	// consumer goroutine to the worker.
	runFn   func()
	runDone *signal

	workerWake *signal
	workerDone chan struct{}
	started    bool
	closed     bool

	cancel context.CancelFunc
	ctx    context.Context

	wakeupCB    func()
	forceUpdate bool

	metrics *metricsCollector
}

// New constructs a Cache with the given configuration. AddStream must be
// called (directly, or by the Producer during Open) before the worker has
// anything useful to do; streams are additive-only for the cache's
// lifetime.
func New(cfg Config) *Cache {
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	c := &Cache{
		cfg:          cfg,
		seekPTS:      UnsetTimestamp,
		initialState: true,
		workerWake:   newSignal(),
		runDone:      newSignal(),
		workerDone:   make(chan struct{}),
		ctx:          ctx,
		cancel:       cancel,
		metrics:      newMetricsCollector(),
	}
	c.ranges = append(c.ranges, newCachedRange())
	return c
}

// AddStream declares a new stream. Streams are additive-only and never
// removed for the cache's lifetime.
func (c *Cache) AddStream(typ StreamType, attachedPicture bool) *StreamDescriptor {
	c.mu.Lock()
	defer c.mu.Unlock()
	index := len(c.streams)
	sd := newStreamDescriptor(index, typ, attachedPicture)
	c.streams = append(c.streams, sd)
	c.recomputeEagerLocked()
	return sd
}

// Stream returns the StreamDescriptor for index, or nil if unknown.
func (c *Cache) Stream(index int) *StreamDescriptor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streamLocked(index)
}

func (c *Cache) streamLocked(index int) *StreamDescriptor {
	if index < 0 || index >= len(c.streams) {
		return nil
	}
	return c.streams[index]
}

// currentRange returns the current (most recently touched, tail-of-LRU)
// range. Never nil: New always seeds one.
func (c *Cache) currentRange() *cachedRange {
	return c.ranges[len(c.ranges)-1]
}

// StartThread attaches producer and starts the background worker goroutine.
func (c *Cache) StartThread(producer Producer) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.started {
		c.mu.Unlock()
		return fmt.Errorf("cache: worker already started")
	}
	c.producer = producer
	c.started = true
	c.mu.Unlock()

	if producer == nil {
		return ErrNoProducer
	}
	go c.runWorker()
	return nil
}

// StopThread signals the worker to exit and waits for it to do so. Safe to
// call even if the worker was never started.
func (c *Cache) StopThread() {
	c.mu.Lock()
	started := c.started
	c.mu.Unlock()
	if !started {
		return
	}
	c.cancel()
	c.workerWake.notify()
	<-c.workerDone
}

// Free releases all resources: stops the worker, closes the producer, and
// drops every buffered packet.
func (c *Cache) Free() error {
	c.StopThread()
	c.mu.Lock()
	closed := c.closed
	c.closed = true
	producer := c.producer
	c.ranges = nil
	c.streams = nil
	c.mu.Unlock()
	if closed || producer == nil {
		return nil
	}
	return producer.Close()
}

// SetWakeupCallback registers cb to be invoked (without the cache's mutex
// held) whenever new data becomes available for any selected stream.
func (c *Cache) SetWakeupCallback(cb func()) {
	c.mu.Lock()
	c.wakeupCB = cb
	c.mu.Unlock()
}

func (c *Cache) fireWakeupCB() {
	c.mu.Lock()
	cb := c.wakeupCB
	c.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// SetTSOffset sets the timestamp offset applied to packets returned from
// ReadPacket.
func (c *Cache) SetTSOffset(v float64) {
	c.mu.Lock()
	c.tsOffset = v
	c.mu.Unlock()
}

// logger returns the configured logger, defaulting to slog.Default.
func (c *Cache) logger() *slog.Logger {
	if c.cfg.Logger != nil {
		return c.cfg.Logger
	}
	return slog.Default()
}

// assertNoInvariantViolation validates the structural properties that must
// hold at every mutex release. It is deliberately NOT wired into production
// code paths (it is O(n) over every queue); it exists for white-box tests
// in this package and lives in invariants.go.
func (c *Cache) assertNoInvariantViolation() error {
	return c.checkInvariantsLocked()
}
