package cache

import "github.com/google/uuid"

// RangeID is an opaque handle identifying a cached range. Range identity
// must never be a slice index: ranges are reordered (LRU touch) and
// destroyed, so callers that need to remember "the range I last matched"
// hold this instead.
type RangeID uuid.UUID

func newRangeID() RangeID {
	return RangeID(uuid.New())
}

func (id RangeID) String() string {
	return uuid.UUID(id).String()
}

// cachedRange holds one streamQueue per known stream, spanning one
// contiguous time window.
type cachedRange struct {
	id     RangeID
	queues map[int]*streamQueue

	// seekStart/seekEnd are derived: max of selected streams' seekStart,
	// min of selected streams' seekEnd; unset if any selected stream is
	// unset or the interval would be empty.
	seekStart, seekEnd Timestamp
}

func newCachedRange() *cachedRange {
	return &cachedRange{
		id:        newRangeID(),
		queues:    make(map[int]*streamQueue),
		seekStart: UnsetTimestamp,
		seekEnd:   UnsetTimestamp,
	}
}

// queueFor returns the streamQueue for stream, creating it on first use —
// a range's queues are created lazily the first time a stream is written to
// or selected within that range.
func (r *cachedRange) queueFor(stream int) *streamQueue {
	q, ok := r.queues[stream]
	if !ok {
		q = newStreamQueue()
		r.queues[stream] = q
	}
	return q
}

// recomputeSeekBounds recomputes seekStart/seekEnd from the queues of
// streams for which selected(index) is true. An empty selected set, or any
// selected stream with an unset bound, makes the range's bounds unset.
func (r *cachedRange) recomputeSeekBounds(selected func(stream int) bool) {
	start := UnsetTimestamp
	end := UnsetTimestamp
	any := false
	for idx, q := range r.queues {
		if !selected(idx) {
			continue
		}
		any = true
		if !q.seekStart.IsSet() || !q.seekEnd.IsSet() {
			r.seekStart, r.seekEnd = UnsetTimestamp, UnsetTimestamp
			return
		}
		start = MaxTimestamp(start, q.seekStart)
		end = MinTimestamp(end, q.seekEnd)
	}
	if !any || !start.IsSet() || !end.IsSet() || end <= start {
		r.seekStart, r.seekEnd = UnsetTimestamp, UnsetTimestamp
		return
	}
	r.seekStart, r.seekEnd = start, end
}

// containsPTS reports whether pts falls within [seekStart, seekEnd].
func (r *cachedRange) containsPTS(pts Timestamp) bool {
	if !r.seekStart.IsSet() || !r.seekEnd.IsSet() || !pts.IsSet() {
		return false
	}
	return pts >= r.seekStart && pts <= r.seekEnd
}

// isEmpty reports whether every queue in the range is empty.
func (r *cachedRange) isEmpty() bool {
	for _, q := range r.queues {
		if !q.isEmpty() {
			return false
		}
	}
	return true
}

// totalBytes sums the accounting size of every queue in the range.
func (r *cachedRange) totalBytes() int64 {
	var total int64
	for _, q := range r.queues {
		total += q.bytes
	}
	return total
}
