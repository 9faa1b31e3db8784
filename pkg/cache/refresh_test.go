package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeRefreshSeekLocked_NothingPendingIsNoop(t *testing.T) {
	c := newTestCache(t, nil)
	c.AddStream(StreamVideo, false)
	selectStream(t, c, 0)

	pts, needed := c.computeRefreshSeekLocked()
	assert.False(t, needed)
	assert.False(t, pts.IsSet())
}

func TestComputeRefreshSeekLocked_AllSelectedNeedRefreshIsPlainSeek(t *testing.T) {
	c := newTestCache(t, nil)
	video := c.AddStream(StreamVideo, false)
	selectStream(t, c, video.Index)

	sd := c.Stream(video.Index)
	sd.needRefresh = true
	sd.refPTS = 7.0

	pts, needed := c.computeRefreshSeekLocked()
	assert.False(t, needed, "a fresh user seek is handled by Seek itself, not a refresh backfill")
	assert.Equal(t, Timestamp(7.0), pts)
	assert.False(t, sd.needRefresh)

	c.mu.Lock()
	seeking := c.seeking
	c.mu.Unlock()
	assert.True(t, seeking, "a plain producer seek was armed")
}

func TestComputeRefreshSeekLocked_LateSelectionArmsBackfill(t *testing.T) {
	c := newTestCache(t, nil)
	video := c.AddStream(StreamVideo, false)
	audio := c.AddStream(StreamAudio, false)
	selectStream(t, c, video.Index) // already selected, not pending refresh
	vsd := c.Stream(video.Index)
	vsd.baseTS = 2.0
	vsd.queue = newStreamQueue()
	vsd.queue.lastTS = 9.0

	asd := c.Stream(audio.Index)
	asd.selected = true
	asd.needRefresh = true
	asd.refPTS = 3.0
	asd.globalCorrectDTS = true

	pts, needed := c.computeRefreshSeekLocked()
	require.True(t, needed)
	assert.Equal(t, Timestamp(1.0), pts, "start_ts - 1 second resume cutoff, min'd with baseTS of other selected streams")
	assert.False(t, asd.needRefresh)
}

func TestComputeRefreshSeekLocked_PrerequisitesFailedSkipsGap(t *testing.T) {
	c := newTestCache(t, nil)
	video := c.AddStream(StreamVideo, false)
	audio := c.AddStream(StreamAudio, false)
	selectStream(t, c, video.Index)

	asd := c.Stream(audio.Index)
	asd.selected = true
	asd.needRefresh = true
	asd.refPTS = 3.0

	vsd := c.Stream(video.Index)
	vsd.globalCorrectDTS = false
	vsd.globalCorrectPos = false // video has no monotone key: prerequisites fail

	pts, needed := c.computeRefreshSeekLocked()
	assert.False(t, needed)
	assert.False(t, pts.IsSet())
	assert.False(t, asd.needRefresh, "pending flag is cleared even when the refresh is skipped")
}

func TestRefreshPrerequisitesMetLocked(t *testing.T) {
	c := newTestCache(t, nil)
	sd := c.AddStream(StreamVideo, false)
	selectStream(t, c, sd.Index)

	assert.True(t, c.refreshPrerequisitesMetLocked(), "fresh descriptors default both monotone flags true")

	c.Stream(sd.Index).globalCorrectDTS = false
	c.Stream(sd.Index).globalCorrectPos = false
	assert.False(t, c.refreshPrerequisitesMetLocked())
}

func TestRefreshStartTSLocked_MinsAcrossPendingAndSelected(t *testing.T) {
	c := newTestCache(t, nil)
	video := c.AddStream(StreamVideo, false)
	audio := c.AddStream(StreamAudio, false)

	vsd := c.Stream(video.Index)
	vsd.selected = true
	vsd.baseTS = 4.0

	asd := c.Stream(audio.Index)
	asd.refPTS = 1.5

	got := c.refreshStartTSLocked([]*StreamDescriptor{asd})
	assert.Equal(t, Timestamp(1.5), got)
}
