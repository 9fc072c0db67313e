package hal

import (
	"strings"

	"hwgauge/render"
)

// Panel colors as RGBA bytes: lit pixels are the pale blue of the usual
// SSD1306 modules.
var (
	colorOn  = [4]byte{0xA8, 0xE0, 0xFF, 0xFF}
	colorOff = [4]byte{0x08, 0x0C, 0x10, 0xFF}
)

// monoToRGBA expands fb into dst, which must hold Width*Height*4 bytes.
func monoToRGBA(dst []byte, fb *render.FrameBuffer) {
	for y := 0; y < render.Height; y++ {
		for x := 0; x < render.Width; x++ {
			c := colorOff
			if fb.Pixel(x, y) {
				c = colorOn
			}
			copy(dst[(y*render.Width+x)*4:], c[:])
		}
	}
}

// ASCII renders fb two rows per line using half-block characters.
func ASCII(fb *render.FrameBuffer) string {
	var b strings.Builder
	b.Grow((render.Width + 1) * render.Height / 2 * 3)
	for y := 0; y < render.Height; y += 2 {
		for x := 0; x < render.Width; x++ {
			top, bottom := fb.Pixel(x, y), fb.Pixel(x, y+1)
			switch {
			case top && bottom:
				b.WriteRune('█')
			case top:
				b.WriteRune('▀')
			case bottom:
				b.WriteRune('▄')
			default:
				b.WriteByte(' ')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
