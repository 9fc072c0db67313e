//go:build tinygo && baremetal

package hal

import (
	"device/arm"
	"machine"
)

// I2C address of the SSD1306 panel.
const displayAddress = 0x3C

type tinyGoHAL struct {
	logger *uartLogger
	led    *pinLED
	disp   *ssd1306Display
	t      *tinyGoTime
	serial Serial
}

// New returns the gauge board HAL.
//
// Host link: the USB CDC port (machine.Serial). Log: machine.DefaultUART,
// 115200 8N1. Panel: SSD1306 128x64 on I2C0 at its default pins. The
// activity LED is machine.LED.
func New() HAL {
	uart := machine.DefaultUART
	uart.Configure(machine.UARTConfig{BaudRate: 115200})

	ledPin := machine.LED
	ledPin.Configure(machine.PinConfig{Mode: machine.PinOutput})

	return &tinyGoHAL{
		logger: &uartLogger{uart: uart},
		led:    &pinLED{pin: ledPin},
		disp:   &ssd1306Display{bus: machine.I2C0, addr: displayAddress},
		t:      newTinyGoTime(),
		serial: &cdcSerial{port: machine.Serial},
	}
}

func (h *tinyGoHAL) Logger() Logger   { return h.logger }
func (h *tinyGoHAL) LED() LED         { return h.led }
func (h *tinyGoHAL) Display() Display { return h.disp }
func (h *tinyGoHAL) Serial() Serial   { return h.serial }
func (h *tinyGoHAL) Time() Time       { return h.t }

func (h *tinyGoHAL) Restart() {
	h.logger.WriteLineString("hal: system reset")
	arm.SystemReset()
}
