package render

import (
	"image/color"

	"tinygo.org/x/tinyfont"

	"hwgauge/proto"
)

var (
	colorOn  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	colorOff = color.RGBA{A: 255}
)

func colorFor(on bool) color.RGBA {
	if on {
		return colorOn
	}
	return colorOff
}

// appendPercent writes p as " 5.3" / "42.0" with tenths, or " 5" / "42"
// without. Values are capped at 99.9 so the width stays fixed.
func appendPercent(dst []byte, p proto.Percent, tenths bool) []byte {
	v := int(p)
	if v > 999 {
		v = 999
	}
	frac := v % 10
	v /= 10
	ones := v % 10
	tens := v / 10

	if tens == 0 {
		dst = append(dst, ' ')
	} else {
		dst = append(dst, byte('0'+tens))
	}
	dst = append(dst, byte('0'+ones))
	if tenths {
		dst = append(dst, '.', byte('0'+frac))
	}
	return dst
}

// drawText draws s with its glyph tops at y.
func drawText(fb *FrameBuffer, x, y int, s []byte, on bool) {
	c := colorFor(on)
	for _, ch := range s {
		tinyfont.DrawChar(fb, Font, int16(x), int16(y-glyphTop), rune(ch), c)
		x += CharWidth
	}
}

func drawString(fb *FrameBuffer, x, y int, s string, on bool) {
	c := colorFor(on)
	for i := 0; i < len(s); i++ {
		tinyfont.DrawChar(fb, Font, int16(x), int16(y-glyphTop), rune(s[i]), c)
		x += CharWidth
	}
}

func textWidth(n int) int { return n * CharWidth }
