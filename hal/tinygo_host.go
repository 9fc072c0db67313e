//go:build tinygo && !baremetal

package hal

import (
	"os"

	"hwgauge/render"
)

type tinyGoHostHAL struct {
	logger *tinyGoHostLogger
	led    *tinyGoHostLED
	disp   *tinyGoHostDisplay
	t      *tinyGoTime
	serial Serial
}

// New returns a TinyGo-on-host HAL implementation.
//
// This is used by `tinygo run` targets like linux/wasm where there is no
// MCU pin mapping. Frames arrive on stdin, replies go to stdout and the
// panel is printed to stderr as text on every flush.
func New() HAL {
	l := &tinyGoHostLogger{}
	return &tinyGoHostHAL{
		logger: l,
		led:    &tinyGoHostLED{},
		disp:   &tinyGoHostDisplay{},
		t:      newTinyGoTime(),
		serial: stdio{},
	}
}

func (h *tinyGoHostHAL) Logger() Logger   { return h.logger }
func (h *tinyGoHostHAL) LED() LED         { return h.led }
func (h *tinyGoHostHAL) Display() Display { return h.disp }
func (h *tinyGoHostHAL) Serial() Serial   { return h.serial }
func (h *tinyGoHostHAL) Time() Time       { return h.t }

func (h *tinyGoHostHAL) Restart() {
	h.logger.WriteLineString("hal: restart")
	os.Exit(3)
}

type stdio struct{}

func (stdio) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdio) Write(p []byte) (int, error) { return os.Stdout.Write(p) }

type tinyGoHostLogger struct{}

func (l *tinyGoHostLogger) WriteLineString(s string) {
	println(s)
}

func (l *tinyGoHostLogger) WriteLineBytes(b []byte) {
	println(string(b))
}

type tinyGoHostLED struct {
	on bool
}

func (l *tinyGoHostLED) High() { l.on = true }
func (l *tinyGoHostLED) Low()  { l.on = false }

type tinyGoHostDisplay struct {
	last [render.Width * render.Height / 8]byte
}

func (d *tinyGoHostDisplay) Configure() error { return nil }

func (d *tinyGoHostDisplay) Flush(fb *render.FrameBuffer) error {
	b := fb.Bytes()
	if string(b) == string(d.last[:]) {
		return nil
	}
	copy(d.last[:], b)
	os.Stderr.WriteString(ASCII(fb))
	return nil
}
