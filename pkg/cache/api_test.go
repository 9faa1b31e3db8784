package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlush_DropsBuffersAndResetsCursors(t *testing.T) {
	c := newTestCache(t, nil)
	c.AddStream(StreamVideo, false)
	selectStream(t, c, 0)
	c.Append(mkPacket(0, 1.0, 1.0, 100, true))

	require.NoError(t, c.Flush())

	assert.Equal(t, int64(0), c.totalBytes)
	assert.Equal(t, int64(0), c.fwBytes)
	assert.False(t, c.HasPacket(0))
	assert.Len(t, c.ranges, 1)
}

func TestControl_StreamSizeRequiresProducer(t *testing.T) {
	c := newTestCache(t, nil)
	_, err := c.Control(ControlStreamSize, nil)
	assert.ErrorIs(t, err, ErrNoProducer)
}

func TestControl_CacheInfoRoutesToProducer(t *testing.T) {
	c := newTestCache(t, nil)
	c.AddStream(StreamVideo, false)
	p := newScriptedProducer(c)
	require.NoError(t, c.StartThread(p))
	defer c.StopThread()

	_, err := c.Control(ControlCacheInfo, nil)
	assert.NoError(t, err)
}

func TestControl_ReplaceStreamRejectsWrongArgType(t *testing.T) {
	c := newTestCache(t, nil)
	c.AddStream(StreamVideo, false)

	_, err := c.Control(ControlReplaceStream, "not-an-int")
	require.Error(t, err)
	var viol *ErrInvariantViolation
	assert.ErrorAs(t, err, &viol)
}

func TestControl_ReplaceStreamRejectsUnknownStream(t *testing.T) {
	c := newTestCache(t, nil)
	_, err := c.Control(ControlReplaceStream, 5)
	assert.ErrorIs(t, err, ErrStreamUnknown)
}

func TestControl_ReplaceStreamArmsRefresh(t *testing.T) {
	c := newTestCache(t, nil)
	sd := c.AddStream(StreamVideo, false)
	selectStream(t, c, sd.Index)
	sd.baseTS = 3.0

	_, err := c.Control(ControlReplaceStream, sd.Index)
	require.NoError(t, err)

	assert.True(t, c.Stream(sd.Index).needRefresh)
	assert.Equal(t, Timestamp(3.0), c.Stream(sd.Index).refPTS)
}

func TestControl_UnknownCommand(t *testing.T) {
	c := newTestCache(t, nil)
	_, err := c.Control(ControlCommand(999), nil)
	require.Error(t, err)
	var viol *ErrInvariantViolation
	assert.ErrorAs(t, err, &viol)
}

func TestIdle_ReflectsWorkerSnapshot(t *testing.T) {
	c := newTestCache(t, nil)
	c.mu.Lock()
	c.idle = true
	c.mu.Unlock()
	assert.True(t, c.Idle())
}

func TestEOF_ReflectsWorkerSnapshot(t *testing.T) {
	c := newTestCache(t, nil)
	c.mu.Lock()
	c.eof = true
	c.mu.Unlock()
	assert.True(t, c.EOF())
}

func TestStreamCount_ReflectsAddedStreams(t *testing.T) {
	c := newTestCache(t, nil)
	assert.Equal(t, 0, c.StreamCount())
	c.AddStream(StreamVideo, false)
	c.AddStream(StreamAudio, false)
	assert.Equal(t, 2, c.StreamCount())
}
