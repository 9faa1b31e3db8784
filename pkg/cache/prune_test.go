package cache

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPruneLocked_NoopUnderBudget(t *testing.T) {
	c := newTestCache(t, func(cfg *Config) { cfg.MaxBytesBackward = 1 << 20 })
	c.AddStream(StreamVideo, false)
	selectStream(t, c, 0)
	c.Append(mkPacket(0, 0, 0, 100, true))

	c.mu.Lock()
	err := c.pruneLocked()
	c.mu.Unlock()

	require.NoError(t, err)
	assert.Equal(t, int64(100), c.totalBytes)
}

func TestPruneLocked_EvictsBehindReaderHeadWithNoBackBuffer(t *testing.T) {
	c := newTestCache(t, func(cfg *Config) { cfg.MaxBytesBackward = 0 })
	c.AddStream(StreamVideo, false)
	selectStream(t, c, 0)

	c.Append(mkPacket(0, 0, 0, 100, true))
	c.Append(mkPacket(0, 1, 1, 50, false))
	pkt, err := c.ReadPacketAsync(0) // dequeues the first packet, pruneLocked runs internally
	require.NoError(t, err)
	require.NotNil(t, pkt)

	assert.Equal(t, int64(50), c.totalBytes, "only the still-unread packet remains")
}

func TestPruneOneStepLocked_ComputesNextPruneTargetWhenSeekable(t *testing.T) {
	c := newTestCache(t, func(cfg *Config) {
		cfg.SeekableCache = true
		cfg.MaxBytesBackward = 0
	})
	c.AddStream(StreamVideo, false)
	selectStream(t, c, 0)

	kf1 := mkPacket(0, 1, 1, 10, true)
	kf1.kfSeekPTS = 1.0
	mid := mkPacket(0, 2, 2, 10, false)
	kf2 := mkPacket(0, 3, 3, 10, true)
	kf2.kfSeekPTS = 3.0

	c.Append(kf1)
	c.Append(mid)
	c.Append(kf2)

	// Force the reader head past everything so pruning has room to work.
	c.mu.Lock()
	sd := c.streamLocked(0)
	sd.readerHead = nil
	c.mu.Unlock()

	pruned, err := c.pruneOneStepLocked()
	require.NoError(t, err)
	assert.True(t, pruned)

	q := c.currentRange().queues[0]
	assert.Equal(t, 1, q.length, "pruning stops once it reaches the computed target keyframe")
	assert.Same(t, kf2, q.head, "only the keyframe interval up to the next valid keyframe is evicted")
}

func TestChoosePruneQueueLocked_SkipsReaderOwnHead(t *testing.T) {
	c := newTestCache(t, func(cfg *Config) { cfg.SeekableCache = false })
	c.AddStream(StreamVideo, false)
	selectStream(t, c, 0)
	c.Append(mkPacket(0, 0, 0, 10, true))

	r := c.currentRange()
	sd, q := c.choosePruneQueueLocked(r)
	assert.Nil(t, sd, "the sole packet is still the reader head and must not be pruned")
	assert.Nil(t, q)
}

func TestChoosePruneQueueLocked_PrefersEarliestKeyframeWhenSeekable(t *testing.T) {
	c := newTestCache(t, func(cfg *Config) { cfg.SeekableCache = true })
	video := c.AddStream(StreamVideo, false)
	audio := c.AddStream(StreamAudio, false)
	selectStream(t, c, video.Index)
	selectStream(t, c, audio.Index)

	r := c.currentRange()
	vq := r.queueFor(video.Index)
	vkf := mkPacket(video.Index, 1, 1, 10, true)
	vkf.kfSeekPTS = 5.0
	vq.append(vkf, 0)
	vq.append(mkPacket(video.Index, 2, 2, 10, false), 0)

	aq := r.queueFor(audio.Index)
	akf := mkPacket(audio.Index, 1, 1, 10, true)
	akf.kfSeekPTS = 1.0
	aq.append(akf, 0)
	aq.append(mkPacket(audio.Index, 2, 2, 10, false), 0)

	// Neither head is a reader head: clear both cursors so both are eligible.
	c.Stream(video.Index).readerHead = nil
	c.Stream(audio.Index).readerHead = nil

	_, q := c.choosePruneQueueLocked(r)
	require.NotNil(t, q)
	assert.Same(t, aq, q, "earliest kfSeekPTS wins regardless of stream type")
}

func TestMetricsCollector_PruneCountIncrementsOnEviction(t *testing.T) {
	c := newTestCache(t, func(cfg *Config) { cfg.MaxBytesBackward = 0 })
	c.AddStream(StreamVideo, false)
	selectStream(t, c, 0)

	before := testutil.ToFloat64(c.metrics.pruneCount)

	c.Append(mkPacket(0, 0, 0, 100, true))
	c.Append(mkPacket(0, 1, 1, 50, false))
	_, err := c.ReadPacketAsync(0)
	require.NoError(t, err)

	after := testutil.ToFloat64(c.metrics.pruneCount)
	assert.Greater(t, after, before)
}
