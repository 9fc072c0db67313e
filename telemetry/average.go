package telemetry

import "hwgauge/proto"

// WindowLen is the number of 1 Hz samples in the rolling average.
const WindowLen = 15

// RollingAverage is a fixed-capacity circular mean of percent values.
//
// The running sum is rebuilt from the buffer each time the write index
// wraps, so it always equals the sum of the retained values.
type RollingAverage struct {
	buf  [WindowLen]proto.Percent
	n    int
	next int
	sum  uint32
}

// Push adds v, evicting the oldest value when full.
func (r *RollingAverage) Push(v proto.Percent) {
	if r.n == WindowLen {
		r.sum -= uint32(r.buf[r.next])
	} else {
		r.n++
	}
	r.buf[r.next] = v
	r.sum += uint32(v)
	r.next++
	if r.next == WindowLen {
		r.next = 0
		r.recompute()
	}
}

func (r *RollingAverage) recompute() {
	var s uint32
	for _, v := range r.buf[:r.n] {
		s += uint32(v)
	}
	r.sum = s
}

// Average returns the rounded mean of the retained values, or 0 when empty.
func (r *RollingAverage) Average() proto.Percent {
	if r.n == 0 {
		return 0
	}
	n := uint32(r.n)
	return proto.Percent((r.sum + n/2) / n)
}

func (r *RollingAverage) Len() int    { return r.n }
func (r *RollingAverage) Sum() uint32 { return r.sum }

func (r *RollingAverage) Reset() { *r = RollingAverage{} }
