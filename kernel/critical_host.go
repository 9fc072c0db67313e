//go:build !tinygo

package kernel

import "sync"

// critical stands in for interrupt masking on the host, where the timer
// and reader are goroutines rather than interrupt handlers.
type critical struct {
	mu sync.Mutex
}

func (c *critical) enter() { c.mu.Lock() }
func (c *critical) exit()  { c.mu.Unlock() }
