//go:build tinygo

package hal

import "time"

// tinyGoTime publishes milliseconds since boot. The count is read from the
// monotonic clock on every ticker fire, so late or missed fires never slow
// device time down.
type tinyGoTime struct {
	ch    chan uint64
	start time.Time
}

func newTinyGoTime() *tinyGoTime {
	t := &tinyGoTime{ch: make(chan uint64, 1), start: time.Now()}
	go func() {
		ticker := time.NewTicker(1 * time.Millisecond)
		defer ticker.Stop()
		for now := range ticker.C {
			t.publish(now)
		}
	}()
	return t
}

func (t *tinyGoTime) publish(now time.Time) {
	ms := elapsedMillis(t.start, now)
	// Keep only the newest count.
	select {
	case <-t.ch:
	default:
	}
	select {
	case t.ch <- ms:
	default:
	}
}

func (t *tinyGoTime) Ticks() <-chan uint64 { return t.ch }
