package kernel

import (
	"io"
	"sync/atomic"
	"time"
)

// RingSize is the receive ring capacity. It holds several maximum-size
// frames so a slow render never forces the producer to drop bytes.
const RingSize = 256

// Ring is a fixed single-producer, single-consumer byte queue.
//
// The producer is the serial interrupt or reader goroutine; the consumer
// is the scheduler loop. Neither side blocks or allocates.
type Ring struct {
	_        [0]func() // prevent accidental copying.
	buf      [RingSize]byte
	rd       atomic.Uint32 // consumer index (monotonic)
	wr       atomic.Uint32 // producer index (monotonic)
	overruns atomic.Uint32
	readable chan struct{} // empty -> non-empty edge
}

// NewRing returns a ring whose Readable channel signals new data.
func NewRing() *Ring {
	return &Ring{readable: make(chan struct{}, 1)}
}

// Producer side.

// Push enqueues b, counting an overrun and returning false when full.
func (r *Ring) Push(b byte) bool {
	wr := r.wr.Load()
	rd := r.rd.Load()
	if wr-rd >= RingSize {
		r.overruns.Add(1)
		return false
	}
	r.buf[wr%RingSize] = b
	r.wr.Store(wr + 1)
	r.signalIfDrained(wr)
	return true
}

// Write enqueues as much of p as fits. Bytes that do not fit are dropped
// and counted as overruns.
func (r *Ring) Write(p []byte) int {
	wr := r.wr.Load()
	rd := r.rd.Load()
	space := int(RingSize - (wr - rd))
	n := len(p)
	if n > space {
		r.overruns.Add(uint32(n - space))
		n = space
	}
	for i := 0; i < n; i++ {
		r.buf[(wr+uint32(i))%RingSize] = p[i]
	}
	r.wr.Store(wr + uint32(n))
	if n > 0 {
		r.signalIfDrained(wr)
	}
	return n
}

// signalIfDrained fires Readable when the consumer had taken everything
// before the bytes just published at wr. rd is loaded after the store: a
// consumer that found the ring empty has already advanced rd to wr, so it
// cannot go idle without a token. Extra tokens only cost a spare Step.
func (r *Ring) signalIfDrained(wr uint32) {
	if r.rd.Load() == wr {
		r.notify()
	}
}

func (r *Ring) notify() {
	select {
	case r.readable <- struct{}{}:
	default:
	}
}

// Pump copies src into the ring until src fails. A zero-byte read sleeps
// for idle, which suits drivers whose Read never blocks.
func (r *Ring) Pump(src io.Reader, idle time.Duration) error {
	var chunk [64]byte
	for {
		n, err := src.Read(chunk[:])
		if n > 0 {
			r.Write(chunk[:n])
		}
		if err != nil {
			return err
		}
		if n == 0 && idle > 0 {
			time.Sleep(idle)
		}
	}
}

// Consumer side.

// Pop dequeues one byte.
func (r *Ring) Pop() (byte, bool) {
	rd := r.rd.Load()
	wr := r.wr.Load()
	if rd == wr {
		return 0, false
	}
	b := r.buf[rd%RingSize]
	r.rd.Store(rd + 1)
	return b, true
}

func (r *Ring) Available() int {
	return int(r.wr.Load() - r.rd.Load())
}

func (r *Ring) Overruns() uint32 { return r.overruns.Load() }

// Readable fires when the ring goes from empty to non-empty. A consumer
// that drains with Pop until it reports empty and then waits here never
// misses data.
func (r *Ring) Readable() <-chan struct{} { return r.readable }
