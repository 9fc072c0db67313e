package app

import (
	"image/color"

	"tinygo.org/x/tinyfont"

	"hwgauge/hal"
	"hwgauge/internal/buildinfo"
	"hwgauge/render"
)

// bootScreen shows the firmware version until the first render tick.
// It doubles as a check that the panel accepts a frame.
func bootScreen(disp hal.Display) error {
	var fb render.FrameBuffer
	drawBoot(&fb, buildinfo.Short())
	return disp.Flush(&fb)
}

func drawBoot(fb *render.FrameBuffer, version string) {
	fg := color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
	tinyfont.WriteLine(fb, render.Font, 1, 16+render.Ascent, "HWGAUGE", fg)
	for i, line := range wrap(version, fatalCols) {
		if i == 2 {
			break
		}
		tinyfont.WriteLine(fb, render.Font, 1, int16(32+i*render.CharHeight+render.Ascent), line, fg)
	}
}
