package hal

import "time"

// elapsedMillis is the tick count for now on a clock that started at
// start. It never goes below zero.
func elapsedMillis(start, now time.Time) uint64 {
	d := now.Sub(start)
	if d < 0 {
		return 0
	}
	return uint64(d / time.Millisecond)
}
