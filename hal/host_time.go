//go:build !tinygo

package hal

import "time"

// hostTime turns wall-clock progress, sampled by the runner loop, into
// millisecond ticks.
type hostTime struct {
	ch  chan uint64
	seq uint64

	last time.Time
	acc  time.Duration
}

func newHostTime() *hostTime {
	return &hostTime{ch: make(chan uint64, 1)}
}

func (t *hostTime) Ticks() <-chan uint64 { return t.ch }

func (t *hostTime) step(now time.Time) {
	if t.last.IsZero() {
		t.last = now
		t.stepN(1)
		return
	}

	t.acc += now.Sub(t.last)
	t.last = now

	ticks := uint64(t.acc / time.Millisecond)
	if ticks == 0 {
		return
	}
	t.acc %= time.Millisecond
	t.stepN(ticks)
}

// stepN publishes only the newest count; consumers need the time, not
// every tick.
func (t *hostTime) stepN(n uint64) {
	t.seq += n
	select {
	case <-t.ch:
	default:
	}
	select {
	case t.ch <- t.seq:
	default:
	}
}
