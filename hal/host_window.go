//go:build !tinygo && (cgo || windows || darwin)

package hal

import (
	"image/color"
	"time"

	"github.com/hajimehoshi/ebiten/v2"

	"hwgauge/internal/buildinfo"
	"hwgauge/render"
)

// statusHeight is the strip under the panel that shows the activity LED.
const statusHeight = 4

// RunWindow starts a desktop window that shows the panel. It blocks until
// the window closes.
func RunWindow(h *Host, step func() error, scale int) error {
	if scale <= 0 {
		scale = 4
	}
	g := &hostGame{
		h:    h,
		step: step,
		pix:  make([]byte, render.Width*render.Height*4),
	}
	ebiten.SetWindowTitle("hwgauge emulator (" + buildinfo.Short() + ")")
	ebiten.SetWindowSize(render.Width*scale, (render.Height+statusHeight)*scale)
	ebiten.SetTPS(60)
	return ebiten.RunGame(g)
}

type hostGame struct {
	h     *Host
	step  func() error
	fb    render.FrameBuffer
	pix   []byte
	panel *ebiten.Image
	led   *ebiten.Image
}

func (g *hostGame) Update() error {
	g.h.t.step(time.Now())
	if g.step != nil {
		if err := g.step(); err != nil {
			return err
		}
	}
	if g.h.RestartRequested() {
		return ErrRestart
	}
	return nil
}

func (g *hostGame) Draw(screen *ebiten.Image) {
	if g.panel == nil {
		g.panel = ebiten.NewImage(render.Width, render.Height)
		g.led = ebiten.NewImage(statusHeight, statusHeight-1)
		g.led.Fill(color.RGBA{G: 0xE0, A: 0xFF})
	}

	g.h.Snapshot(&g.fb)
	monoToRGBA(g.pix, &g.fb)
	g.panel.WritePixels(g.pix)
	screen.DrawImage(g.panel, nil)

	if g.h.LEDOn() {
		op := &ebiten.DrawImageOptions{}
		op.GeoM.Translate(render.Width-statusHeight-1, render.Height+1)
		screen.DrawImage(g.led, op)
	}
}

func (g *hostGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	return render.Width, render.Height + statusHeight
}
