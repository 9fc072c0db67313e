package render

import "image/color"

const (
	Width  = 128
	Height = 64
)

// FrameBuffer is a 1bpp 128x64 image in SSD1306 page order: byte
// (y/8)*Width+x holds eight vertical pixels, bit y%8.
//
// It implements drivers.Displayer so tinyfont can draw into it.
type FrameBuffer struct {
	buf [Width * Height / 8]byte
}

func (f *FrameBuffer) Size() (x, y int16) { return Width, Height }

// SetPixel lights the pixel for any non-black color.
func (f *FrameBuffer) SetPixel(x, y int16, c color.RGBA) {
	f.Set(int(x), int(y), c.R|c.G|c.B != 0)
}

// Display is a no-op; flushing is the display capability's job.
func (f *FrameBuffer) Display() error { return nil }

func (f *FrameBuffer) Set(x, y int, on bool) {
	if x < 0 || x >= Width || y < 0 || y >= Height {
		return
	}
	i := (y/8)*Width + x
	bit := byte(1) << (y % 8)
	if on {
		f.buf[i] |= bit
	} else {
		f.buf[i] &^= bit
	}
}

func (f *FrameBuffer) Pixel(x, y int) bool {
	if x < 0 || x >= Width || y < 0 || y >= Height {
		return false
	}
	return f.buf[(y/8)*Width+x]&(1<<(y%8)) != 0
}

func (f *FrameBuffer) Fill(on bool) {
	var v byte
	if on {
		v = 0xFF
	}
	for i := range f.buf {
		f.buf[i] = v
	}
}

func (f *FrameBuffer) FillRect(x, y, w, h int, on bool) {
	for yy := y; yy < y+h; yy++ {
		for xx := x; xx < x+w; xx++ {
			f.Set(xx, yy, on)
		}
	}
}

func (f *FrameBuffer) StrokeRect(x, y, w, h int, on bool) {
	if w <= 0 || h <= 0 {
		return
	}
	for xx := x; xx < x+w; xx++ {
		f.Set(xx, y, on)
		f.Set(xx, y+h-1, on)
	}
	for yy := y; yy < y+h; yy++ {
		f.Set(x, yy, on)
		f.Set(x+w-1, yy, on)
	}
}

// Bytes returns the page-ordered buffer. Callers must not keep it past
// the flush it was handed to.
func (f *FrameBuffer) Bytes() []byte { return f.buf[:] }

// CopyFrom replaces the contents with src.
func (f *FrameBuffer) CopyFrom(src *FrameBuffer) { f.buf = src.buf }
