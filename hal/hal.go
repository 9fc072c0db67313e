package hal

import (
	"errors"
	"io"

	"hwgauge/render"
)

// Logger writes newline-delimited log lines.
type Logger interface {
	WriteLineString(s string)
	WriteLineBytes(b []byte)
}

// LED is a minimal output pin abstraction.
type LED interface {
	High()
	Low()
}

var ErrNotImplemented = errors.New("not implemented")

// Display is the 128x64 monochrome panel.
type Display interface {
	// Configure brings the panel up. An error here is fatal.
	Configure() error
	// Flush pushes a complete frame to the panel.
	Flush(fb *render.FrameBuffer) error
}

// Serial is the link to the host. Read may return 0, nil when idle.
type Serial interface {
	io.Reader
	io.Writer
}

// Time provides a base tick stream.
//
// One tick is one millisecond; the value is the running tick count.
type Time interface {
	Ticks() <-chan uint64
}

// HAL provides the only contact point between the firmware and the outside world.
type HAL interface {
	Logger() Logger
	LED() LED
	Display() Display
	Serial() Serial
	Time() Time
	// Restart resets the device. On hardware it does not return.
	Restart()
}
