//go:build tinygo && baremetal

package hal

import (
	"machine"
	"time"

	"tinygo.org/x/drivers/ssd1306"

	"hwgauge/render"
)

type uartLogger struct {
	uart *machine.UART
}

func (l *uartLogger) WriteLineString(s string) {
	for i := 0; i < len(s); i++ {
		l.uart.WriteByte(s[i])
	}
	l.uart.WriteByte('\r')
	l.uart.WriteByte('\n')
}

func (l *uartLogger) WriteLineBytes(b []byte) {
	for i := 0; i < len(b); i++ {
		l.uart.WriteByte(b[i])
	}
	l.uart.WriteByte('\r')
	l.uart.WriteByte('\n')
}

// cdcSerial adapts machine.Serialer, which has no Read, to Serial. Read
// never blocks: it returns what the driver has buffered, possibly nothing.
type cdcSerial struct {
	port machine.Serialer
}

func (s *cdcSerial) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) && s.port.Buffered() > 0 {
		b, err := s.port.ReadByte()
		if err != nil {
			return n, err
		}
		p[n] = b
		n++
	}
	return n, nil
}

func (s *cdcSerial) Write(p []byte) (int, error) { return s.port.Write(p) }

type pinLED struct {
	pin machine.Pin
}

func (l *pinLED) High() { l.pin.High() }
func (l *pinLED) Low()  { l.pin.Low() }

// ssd1306Display drives the panel. render.FrameBuffer already uses the
// controller's page layout, so a flush is one buffer copy and one bus
// transfer.
type ssd1306Display struct {
	bus  *machine.I2C
	addr uint16
	dev  *ssd1306.Device
}

func (d *ssd1306Display) Configure() error {
	if err := d.bus.Configure(machine.I2CConfig{Frequency: 400 * machine.KHz}); err != nil {
		return err
	}
	time.Sleep(10 * time.Millisecond)

	d.dev = ssd1306.NewI2C(d.bus)
	d.dev.Configure(ssd1306.Config{
		Address: d.addr,
		Width:   render.Width,
		Height:  render.Height,
	})
	d.dev.ClearBuffer()
	// The driver has no probe; the first transfer is the presence check.
	return d.dev.Display()
}

func (d *ssd1306Display) Flush(fb *render.FrameBuffer) error {
	if d.dev == nil {
		return ErrNotImplemented
	}
	if err := d.dev.SetBuffer(fb.Bytes()); err != nil {
		return err
	}
	return d.dev.Display()
}
