//go:build tinygo

package kernel

import "runtime/interrupt"

// critical masks interrupts so the serial and timer handlers cannot run
// while shared scheduler state is being touched.
type critical struct {
	state interrupt.State
	held  bool
}

func (c *critical) enter() {
	state := interrupt.Disable()
	if c.held {
		interrupt.Restore(state)
		panic("kernel: nested critical section")
	}
	c.state = state
	c.held = true
}

func (c *critical) exit() {
	c.held = false
	interrupt.Restore(c.state)
}
