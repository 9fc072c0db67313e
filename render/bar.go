package render

import (
	"time"

	"hwgauge/internal/mathx"
)

var maxHeight = FixedFromInt(100)

// BarState animates one bar. Rises are instant; falls are linear at
// Velocity percent per second and never pass below Target.
type BarState struct {
	Current  Fixed
	Target   Fixed
	Velocity Fixed
}

// SetTarget clamps t to 0..100.
func (b *BarState) SetTarget(t Fixed) {
	b.Target = mathx.Clamp(t, 0, maxHeight)
}

// Step advances the bar by dt.
func (b *BarState) Step(dt time.Duration) {
	if b.Target > b.Current {
		b.Current = b.Target
		return
	}
	if dt < 0 {
		dt = 0
	}
	drop := Fixed(int64(b.Velocity) * int64(dt) / int64(time.Second))
	next := b.Current - drop
	if next < b.Target {
		next = b.Target
	}
	b.Current = mathx.Clamp(next, 0, maxHeight)
}
