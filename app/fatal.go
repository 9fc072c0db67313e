package app

import (
	"fmt"
	"image/color"
	"strings"

	"tinygo.org/x/tinyfont"

	"hwgauge/hal"
	"hwgauge/render"
)

const fatalCols = render.Width / render.CharWidth

// fatal logs what happened, puts it on the panel when disp is usable and
// restarts the device. There is no way to continue with a half-initialized
// render path.
func fatal(h hal.HAL, disp hal.Display, what string, cause any) {
	if l := h.Logger(); l != nil {
		l.WriteLineString(fmt.Sprintf("hwgauge fatal: %s: %v", what, cause))
	}
	if disp != nil {
		var fb render.FrameBuffer
		drawFatal(&fb, what, cause)
		_ = disp.Flush(&fb)
	}
	h.Restart()
}

func drawFatal(fb *render.FrameBuffer, what string, cause any) {
	fb.Fill(true)
	fg := color.RGBA{A: 255}

	lines := []string{"FATAL"}
	lines = append(lines, wrap(what, fatalCols)...)
	lines = append(lines, wrap(fmt.Sprint(cause), fatalCols)...)

	maxLines := render.Height/render.CharHeight - 1
	if len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	lines = append(lines, "RESTARTING")

	for i, line := range lines {
		y := int16(i*render.CharHeight + render.Ascent)
		tinyfont.WriteLine(fb, render.Font, 1, y, line, fg)
	}
}

// wrap splits s into chunks of at most n bytes, breaking on spaces where
// it can.
func wrap(s string, n int) []string {
	var out []string
	s = strings.TrimSpace(s)
	for len(s) > n {
		cut := strings.LastIndexByte(s[:n+1], ' ')
		if cut <= 0 {
			cut = n
		}
		out = append(out, s[:cut])
		s = strings.TrimLeft(s[cut:], " ")
	}
	if s != "" {
		out = append(out, s)
	}
	return out
}
