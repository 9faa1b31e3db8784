package cache

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacketsMatch(t *testing.T) {
	base := mkPacket(0, 1.0, 2.0, 10, false)
	base.Pos = 100

	t.Run("identical packets match", func(t *testing.T) {
		other := mkPacket(0, 1.0, 2.0, 10, false)
		other.Pos = 100
		assert.True(t, packetsMatch(base, other))
	})

	t.Run("differing pos does not match", func(t *testing.T) {
		other := mkPacket(0, 1.0, 2.0, 10, false)
		other.Pos = 200
		assert.False(t, packetsMatch(base, other))
	})

	t.Run("differing length does not match", func(t *testing.T) {
		other := mkPacket(0, 1.0, 2.0, 20, false)
		other.Pos = 100
		assert.False(t, packetsMatch(base, other))
	})

	t.Run("differing dts does not match", func(t *testing.T) {
		other := mkPacket(0, 1.0, 9.0, 10, false)
		other.Pos = 100
		assert.False(t, packetsMatch(base, other))
	})

	t.Run("dts set/unset mismatch does not match", func(t *testing.T) {
		other := mkPacket(0, 1.0, 2.0, 10, false)
		other.Pos = 100
		other.DTS = UnsetTimestamp
		assert.False(t, packetsMatch(base, other))
	})
}

func TestFindJoinCandidateLocked_PrefersSmallestPositiveGap(t *testing.T) {
	c := newTestCache(t, func(cfg *Config) { cfg.SeekableCache = true })

	cur := newCachedRange()
	cur.seekStart, cur.seekEnd = 10.0, 20.0

	far := newCachedRange()
	far.seekStart, far.seekEnd = 12.0, 25.0 // gap from cur.seekEnd: 20-12=8

	near := newCachedRange()
	near.seekStart, near.seekEnd = 18.0, 30.0 // gap: 20-18=2

	outOfRange := newCachedRange()
	outOfRange.seekStart, outOfRange.seekEnd = 50.0, 60.0 // not within [10,20]

	c.mu.Lock()
	c.ranges = []*cachedRange{cur, far, near, outOfRange}
	got := c.findJoinCandidateLocked(cur)
	c.mu.Unlock()

	require.NotNil(t, got)
	assert.Same(t, near, got)
}

func TestFindJoinCandidateLocked_NoCandidateWhenBoundsUnset(t *testing.T) {
	c := newTestCache(t, func(cfg *Config) { cfg.SeekableCache = true })
	cur := newCachedRange() // unset bounds
	other := newCachedRange()
	other.seekStart, other.seekEnd = 1.0, 2.0

	c.mu.Lock()
	c.ranges = []*cachedRange{cur, other}
	got := c.findJoinCandidateLocked(cur)
	c.mu.Unlock()

	assert.Nil(t, got)
}

func TestValidateJoinOverlapLocked_SkipsNonEagerAndUnselectedStreams(t *testing.T) {
	c := newTestCache(t, func(cfg *Config) { cfg.SeekableCache = true })
	sd := c.AddStream(StreamSubtitle, false) // not selected, not eager

	cur := newCachedRange()
	cur.queueFor(sd.Index).append(mkPacket(sd.Index, 1, 1, 10, false), 0)
	other := newCachedRange()
	other.queueFor(sd.Index).append(mkPacket(sd.Index, 99, 99, 999, false), 0) // no overlap at all

	ok := c.validateJoinOverlapLocked(cur, other)
	assert.True(t, ok, "a stream that's not selected/eager cannot block a join")
}

func TestValidateJoinOverlapLocked_RequiresMatchingOverlapForEagerStream(t *testing.T) {
	c := newTestCache(t, func(cfg *Config) { cfg.SeekableCache = true })
	sd := c.AddStream(StreamVideo, false)
	selectStream(t, c, sd.Index)

	shared := mkPacket(sd.Index, 5.0, 5.0, 10, false)
	shared.Pos = 500

	cur := newCachedRange()
	curQ := cur.queueFor(sd.Index)
	curQ.correctDTS = true
	curQ.append(mkPacket(sd.Index, 1, 1, 10, false), 0)
	curQ.append(shared, 0)

	t.Run("matching overlap validates", func(t *testing.T) {
		other := newCachedRange()
		otherQ := other.queueFor(sd.Index)
		otherQ.correctDTS = true
		otherMatch := mkPacket(sd.Index, 5.0, 5.0, 10, false)
		otherMatch.Pos = 500
		otherQ.append(otherMatch, 0)
		otherQ.append(mkPacket(sd.Index, 6, 6, 10, false), 0)

		assert.True(t, c.validateJoinOverlapLocked(cur, other))
	})

	t.Run("no matching packet fails validation", func(t *testing.T) {
		other := newCachedRange()
		otherQ := other.queueFor(sd.Index)
		otherQ.correctDTS = true
		otherQ.append(mkPacket(sd.Index, 50, 50, 10, false), 0)

		assert.False(t, c.validateJoinOverlapLocked(cur, other))
	})
}

func TestAttemptRangeJoinLocked_SuccessSplicesAndInstallsOther(t *testing.T) {
	c := newTestCache(t, func(cfg *Config) { cfg.SeekableCache = true })
	sd := c.AddStream(StreamVideo, false)
	selectStream(t, c, sd.Index)

	shared := mkPacket(sd.Index, 5.0, 5.0, 10, false)
	shared.Pos = 500

	cur := newCachedRange()
	curQ := cur.queueFor(sd.Index)
	curQ.correctDTS = true
	curQ.append(mkPacket(sd.Index, 1, 1, 10, false), 0)
	curQ.append(shared, 0)
	cur.seekStart, cur.seekEnd = 1.0, 6.0

	other := newCachedRange()
	otherQ := other.queueFor(sd.Index)
	otherQ.correctDTS = true
	otherMatch := mkPacket(sd.Index, 5.0, 5.0, 10, false)
	otherMatch.Pos = 500
	otherQ.append(otherMatch, 0)
	otherQ.append(mkPacket(sd.Index, 7, 7, 10, false), 0)
	other.seekStart, other.seekEnd = 5.0, 8.0

	joinsBefore := testutil.ToFloat64(c.metrics.joinCount)

	c.mu.Lock()
	c.ranges = []*cachedRange{cur, other}
	c.attemptRangeJoinLocked(cur)
	c.mu.Unlock()

	assert.Same(t, other, c.currentRange())
	assert.True(t, c.Stream(sd.Index).refreshing)
	assert.Equal(t, joinsBefore+1, testutil.ToFloat64(c.metrics.joinCount))
}

func TestAttemptRangeJoinLocked_FailureDiscardsCandidate(t *testing.T) {
	c := newTestCache(t, func(cfg *Config) { cfg.SeekableCache = true })
	sd := c.AddStream(StreamVideo, false)
	selectStream(t, c, sd.Index)

	cur := newCachedRange()
	curQ := cur.queueFor(sd.Index)
	curQ.correctDTS = true
	curQ.append(mkPacket(sd.Index, 1, 1, 10, false), 0)
	cur.seekStart, cur.seekEnd = 1.0, 6.0

	other := newCachedRange() // starts within [1,6] but its only packet matches nothing in cur, so validation fails
	otherQ := other.queueFor(sd.Index)
	otherQ.correctDTS = true
	otherQ.append(mkPacket(sd.Index, 99, 99, 10, false), 0)
	other.seekStart, other.seekEnd = 5.0, 7.0

	failsBefore := testutil.ToFloat64(c.metrics.joinFailCount)

	c.mu.Lock()
	c.ranges = []*cachedRange{cur, other}
	c.attemptRangeJoinLocked(cur)
	current := c.currentRange()
	c.mu.Unlock()

	assert.Same(t, cur, current, "a failed join must leave cur as current")
	assert.Equal(t, failsBefore+1, testutil.ToFloat64(c.metrics.joinFailCount))
}

func TestInstallCurrentRangeLocked_PreservesOtherRangesAndUpdatesQueues(t *testing.T) {
	c := newTestCache(t, nil)
	sd := c.AddStream(StreamVideo, false)
	selectStream(t, c, sd.Index)

	kept := newCachedRange()
	target := newCachedRange()
	target.queueFor(sd.Index)

	c.mu.Lock()
	c.ranges = []*cachedRange{kept, c.currentRange(), target}
	c.installCurrentRangeLocked(target)
	c.mu.Unlock()

	require.Len(t, c.ranges, 3)
	assert.Same(t, target, c.currentRange())
	assert.Same(t, target.queues[sd.Index], c.Stream(sd.Index).queue)
}
