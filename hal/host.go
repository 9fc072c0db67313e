//go:build !tinygo

package hal

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"hwgauge/render"
)

// ErrRestart is returned by the host runners when the firmware asked for a
// device reset.
var ErrRestart = errors.New("hal: restart requested")

// ErrDisplayInit is what Configure reports when HostOptions.FailDisplay is set.
var ErrDisplayInit = errors.New("hal: display did not respond")

// HostOptions configures the emulated device.
type HostOptions struct {
	// Serial is the host link; nil uses stdin and stdout.
	Serial Serial
	// Log receives device log lines.
	Log zerolog.Logger
	// FailDisplay makes Display().Configure fail.
	FailDisplay bool
}

// Host is the desktop HAL used by the emulator.
type Host struct {
	logger  *hostLogger
	led     *hostLED
	disp    *hostDisplay
	t       *hostTime
	serial  Serial
	restart atomic.Bool
}

// NewHost returns a host HAL implementation.
func NewHost(opts HostOptions) *Host {
	logger := &hostLogger{log: opts.Log}
	serial := opts.Serial
	if serial == nil {
		serial = StdioSerial()
	}
	return &Host{
		logger: logger,
		led:    &hostLED{log: opts.Log},
		disp:   &hostDisplay{fail: opts.FailDisplay},
		t:      newHostTime(),
		serial: serial,
	}
}

func (h *Host) Logger() Logger   { return h.logger }
func (h *Host) LED() LED         { return h.led }
func (h *Host) Display() Display { return h.disp }
func (h *Host) Serial() Serial   { return h.serial }
func (h *Host) Time() Time       { return h.t }

func (h *Host) Restart() {
	h.logger.log.Warn().Msg("device restart requested")
	h.restart.Store(true)
}

// RestartRequested reports whether Restart was called.
func (h *Host) RestartRequested() bool { return h.restart.Load() }

// LEDOn reports the activity LED state.
func (h *Host) LEDOn() bool { return h.led.on.Load() }

// Snapshot copies the last flushed frame into dst and returns the number
// of flushes so far.
func (h *Host) Snapshot(dst *render.FrameBuffer) uint64 { return h.disp.snapshot(dst) }

type hostLogger struct {
	log zerolog.Logger
}

func (l *hostLogger) WriteLineString(s string) {
	l.log.Info().Str("src", "device").Msg(s)
}

func (l *hostLogger) WriteLineBytes(b []byte) {
	l.log.Info().Str("src", "device").Msg(string(b))
}

type hostLED struct {
	on  atomic.Bool
	log zerolog.Logger
}

func (l *hostLED) High() {
	l.on.Store(true)
	l.log.Trace().Msg("led: HIGH")
}

func (l *hostLED) Low() {
	l.on.Store(false)
	l.log.Trace().Msg("led: LOW")
}

type hostDisplay struct {
	mu      sync.Mutex
	fb      render.FrameBuffer
	flushes uint64
	ready   bool
	fail    bool
}

func (d *hostDisplay) Configure() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail {
		return ErrDisplayInit
	}
	d.ready = true
	d.fb.Fill(false)
	return nil
}

func (d *hostDisplay) Flush(fb *render.FrameBuffer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.ready {
		return ErrDisplayInit
	}
	d.fb.CopyFrom(fb)
	d.flushes++
	return nil
}

func (d *hostDisplay) snapshot(dst *render.FrameBuffer) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	dst.CopyFrom(&d.fb)
	return d.flushes
}
