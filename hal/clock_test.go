package hal

import (
	"testing"
	"time"
)

func TestElapsedMillis(t *testing.T) {
	start := time.Unix(100, 0)
	cases := []struct {
		now  time.Time
		want uint64
	}{
		{start, 0},
		{start.Add(999 * time.Microsecond), 0},
		// A single late fire still reports the full wall-clock time.
		{start.Add(1234*time.Millisecond + 900*time.Microsecond), 1234},
		{start.Add(30 * time.Second), 30000},
		{start.Add(-time.Second), 0},
	}
	for _, tc := range cases {
		if got := elapsedMillis(start, tc.now); got != tc.want {
			t.Fatalf("elapsedMillis(%v) = %d, want %d", tc.now.Sub(start), got, tc.want)
		}
	}
}
