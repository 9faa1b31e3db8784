package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadPacketAsync_NoPacketAvailable(t *testing.T) {
	c := newTestCache(t, nil)
	c.AddStream(StreamVideo, false)
	selectStream(t, c, 0)

	pkt, err := c.ReadPacketAsync(0)
	require.NoError(t, err)
	assert.Nil(t, pkt)
}

func TestReadPacketAsync_UnknownStream(t *testing.T) {
	c := newTestCache(t, nil)
	_, err := c.ReadPacketAsync(0)
	assert.ErrorIs(t, err, ErrStreamUnknown)
}

func TestReadPacketAsync_DequeuesAndPrunes(t *testing.T) {
	c := newTestCache(t, nil) // MaxBytesBackward defaults to 0: no back-buffer retained.
	c.AddStream(StreamVideo, false)
	selectStream(t, c, 0)

	orig := mkPacket(0, 0, 0, 100, true)
	c.Append(orig)

	pkt, err := c.ReadPacketAsync(0)
	require.NoError(t, err)
	require.NotNil(t, pkt)
	assert.NotSame(t, orig, pkt, "ReadPacket must hand back a clone")
	assert.Equal(t, orig.PTS, pkt.PTS)

	assert.Equal(t, int64(0), c.totalBytes, "the dequeued packet is pruned immediately with no back-buffer")
	assert.Equal(t, int64(0), c.fwBytes)
	assert.False(t, c.HasPacket(0))
}

func TestReadPacketAsync_AppliesTSOffset(t *testing.T) {
	c := newTestCache(t, nil)
	c.AddStream(StreamVideo, false)
	selectStream(t, c, 0)
	c.SetTSOffset(10.0)

	c.Append(mkPacket(0, 5.0, 5.0, 10, true))
	pkt, err := c.ReadPacketAsync(0)
	require.NoError(t, err)
	require.NotNil(t, pkt)
	assert.Equal(t, Timestamp(15.0), pkt.PTS)
}

func TestHasPacket_AttachedPicture(t *testing.T) {
	c := newTestCache(t, nil)
	sd := c.AddStream(StreamVideo, true)
	require.NoError(t, c.SelectTrack(sd.Index, UnsetTimestamp, true))

	assert.False(t, c.HasPacket(sd.Index))

	c.mu.Lock()
	c.streamLocked(sd.Index).attachedPicture = mkPacket(sd.Index, 0, 0, 10, true)
	c.mu.Unlock()

	assert.True(t, c.HasPacket(sd.Index))
}

func TestReadPacket_AttachedPicture_OneShot(t *testing.T) {
	c := newTestCache(t, nil)
	sd := c.AddStream(StreamVideo, true)
	require.NoError(t, c.SelectTrack(sd.Index, UnsetTimestamp, true))

	c.mu.Lock()
	c.streamLocked(sd.Index).attachedPicture = mkPacket(sd.Index, 0, 0, 10, true)
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	pkt, err := c.ReadPacket(ctx, sd.Index)
	require.NoError(t, err)
	require.NotNil(t, pkt)

	_, err = c.ReadPacket(ctx, sd.Index)
	assert.ErrorIs(t, err, ErrAttachedPictureConsumed)
}

func TestReadPacket_ReturnsNilNilAtDrainedEOF(t *testing.T) {
	c := newTestCache(t, nil)
	c.AddStream(StreamVideo, false)
	selectStream(t, c, 0)

	c.mu.Lock()
	c.streamLocked(0).eof = true
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	pkt, err := c.ReadPacket(ctx, 0)
	require.NoError(t, err)
	assert.Nil(t, pkt)
}

func TestReadPacket_BlocksUntilAppendThenWakes(t *testing.T) {
	c := newTestCache(t, nil)
	c.AddStream(StreamVideo, false)
	selectStream(t, c, 0)

	result := make(chan *Packet, 1)
	errCh := make(chan error, 1)
	go func() {
		pkt, err := c.ReadPacket(context.Background(), 0)
		errCh <- err
		result <- pkt
	}()

	time.Sleep(20 * time.Millisecond) // give the reader time to start blocking
	c.Append(mkPacket(0, 0, 0, 10, true))

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("ReadPacket did not unblock after Append")
	}
	pkt := <-result
	require.NotNil(t, pkt)
}

func TestReadPacket_ContextCancellation(t *testing.T) {
	c := newTestCache(t, nil)
	c.AddStream(StreamVideo, false)
	selectStream(t, c, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ReadPacket(ctx, 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReaderState_Snapshot(t *testing.T) {
	c := newTestCache(t, nil)
	c.AddStream(StreamVideo, false)
	selectStream(t, c, 0)
	c.Append(mkPacket(0, 1.0, 1.0, 100, true))
	c.Append(mkPacket(0, 2.0, 2.0, 50, false))

	st, err := c.ReaderState(0)
	require.NoError(t, err)
	assert.True(t, st.Selected)
	assert.False(t, st.EOF)
	assert.Equal(t, 2, st.ForwardPackets, "the reader head and the packet after it")
	assert.Equal(t, int64(150), st.ForwardBytes)
}

func TestReaderState_UnderrunWhenEagerAndDrained(t *testing.T) {
	c := newTestCache(t, nil)
	c.AddStream(StreamVideo, false)
	selectStream(t, c, 0)

	st, err := c.ReaderState(0)
	require.NoError(t, err)
	assert.True(t, st.Underrun)
}

func TestReadAny_RejectsWhenWorkerStarted(t *testing.T) {
	c := newTestCache(t, nil)
	c.AddStream(StreamVideo, false)
	p := newScriptedProducer(c)
	require.NoError(t, c.StartThread(p))
	defer c.StopThread()

	_, err := c.ReadAny(context.Background())
	assert.ErrorIs(t, err, errNotNonThreaded)
}

func TestReadAny_DrivesProducerOnce(t *testing.T) {
	c := newTestCache(t, nil)
	c.AddStream(StreamVideo, false)
	selectStream(t, c, 0)

	p := newScriptedProducer(c)
	p.push(mkPacket(0, 0, 0, 10, true))

	// Wire the producer field directly (as StartThread would) without
	// spinning the background goroutine, so ReadAny's non-threaded drive
	// mode can be exercised synchronously.
	c.mu.Lock()
	c.producer = p
	c.mu.Unlock()

	idx, err := c.ReadAny(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
	assert.True(t, c.HasPacket(0))
}
