package cache

import "context"

// signal is a level-triggered, coalescing wakeup channel: any number of
// notify() calls between two wait() calls collapse into a single wakeup. It
// replaces a mutex+condition-variable pair with a buffered channel, which
// this package needs in two places: the worker waiting for work, and each
// consumer waiting for its stream to have data.
//
// All of signal's methods are safe to call while holding or not holding the
// cache's mutex; notify must never be called in a way that assumes the
// waiter will still be waiting by the time it runs.
type signal struct {
	ch chan struct{}
}

func newSignal() *signal {
	return &signal{ch: make(chan struct{}, 1)}
}

// notify wakes a pending or future wait, without blocking.
func (s *signal) notify() {
	select {
	case s.ch <- struct{}{}:
	default:
	}
}

// wait blocks until notify has been called at least once since the last
// wait, or ctx is done.
func (s *signal) wait(ctx context.Context) error {
	select {
	case <-s.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// waitChan exposes the raw channel for select loops that need to watch it
// alongside other events (e.g. the worker loop watching shutdown too).
func (s *signal) waitChan() <-chan struct{} {
	return s.ch
}
