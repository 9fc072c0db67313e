package render

import (
	"time"

	"hwgauge/proto"
	"hwgauge/telemetry"
)

// Config holds the animation tunables.
type Config struct {
	// FPS is the render tick rate.
	FPS int
	// FallRate is how fast a bar drops, in percent per second.
	FallRate int
	// HoldFor keeps the last targets up after a sample; afterwards the bars
	// fall toward zero.
	HoldFor time.Duration
}

func DefaultConfig() Config {
	return Config{
		FPS:      15,
		FallRate: 25,
		HoldFor:  2 * time.Second,
	}
}

// FrameInterval is the time between render ticks.
func (c Config) FrameInterval() time.Duration {
	if c.FPS <= 0 {
		return time.Second
	}
	return time.Second / time.Duration(c.FPS)
}

// Layout, in pixels.
const (
	xPad       = 1
	yPad       = 2
	lineHeight = 14
	barHeight  = 10
	barWidth   = Width - 2*xPad
)

func lineY(line int) int { return yPad + line*(yPad+lineHeight) }

// Engine turns model snapshots into frames. It owns the frame buffer and
// never talks to hardware.
type Engine struct {
	cfg Config

	all  BarState
	peak BarState

	snap    telemetry.Snapshot
	sinceUp time.Duration

	fb   FrameBuffer
	text [16]byte
}

func NewEngine(cfg Config) *Engine {
	if cfg.FPS <= 0 {
		cfg.FPS = DefaultConfig().FPS
	}
	e := &Engine{cfg: cfg}
	v := FixedFromInt(int32(cfg.FallRate))
	e.all.Velocity = v
	e.peak.Velocity = v
	return e
}

func (e *Engine) Config() Config { return e.cfg }

// Seed sets fresh bar targets and restarts the hold timer.
func (e *Engine) Seed(t telemetry.Targets) {
	e.all.SetTarget(FixedFromPercent(t.All))
	e.peak.SetTarget(FixedFromPercent(t.Peak))
	e.sinceUp = 0
}

// Update replaces the snapshot used for digits, memory and daytime.
func (e *Engine) Update(s telemetry.Snapshot) { e.snap = s }

// Advance steps every bar by dt without drawing.
func (e *Engine) Advance(dt time.Duration) {
	e.all.Step(dt)
	e.peak.Step(dt)
	e.sinceUp += dt
	if e.sinceUp >= e.cfg.HoldFor {
		e.all.SetTarget(0)
		e.peak.SetTarget(0)
	}
}

// Tick advances the animation by dt and redraws the gauge.
func (e *Engine) Tick(dt time.Duration) *FrameBuffer {
	e.Advance(dt)
	e.draw()
	return &e.fb
}

// Bars returns the all-core and peak-core bar states.
func (e *Engine) Bars() (all, peak BarState) { return e.all, e.peak }

func (e *Engine) Frame() *FrameBuffer { return &e.fb }

// DrawMessage replaces the frame with a single line of text.
func (e *Engine) DrawMessage(msg string) *FrameBuffer {
	e.fb.Fill(false)
	drawString(&e.fb, xPad, lineY(1), msg, true)
	return &e.fb
}

// Blank clears the frame.
func (e *Engine) Blank() *FrameBuffer {
	e.fb.Fill(false)
	return &e.fb
}

func (e *Engine) draw() {
	fg := !e.snap.Daytime
	bg := !fg
	fb := &e.fb
	fb.Fill(bg)

	drawString(fb, xPad, lineY(0), "CPU", fg)
	t := appendPercent(e.text[:0], e.snap.Fifteen, true)
	t = append(t, "% AVG"...)
	drawText(fb, Width-xPad-textWidth(len(t)), lineY(0), t, fg)

	peakW := e.peak.Current.Scale(barWidth - 1)
	allW := e.all.Current.Scale(barWidth - 1)
	fb.FillRect(xPad, lineY(1), peakW+1, barHeight+1, bg)
	fb.StrokeRect(xPad, lineY(1), peakW+1, barHeight+1, fg)
	fb.FillRect(xPad, lineY(1), allW+1, barHeight+1, fg)

	drawString(fb, xPad, lineY(2), "RAM", fg)
	free := proto.PercentMax - min(e.snap.Memory, proto.PercentMax)
	t = appendPercent(e.text[:0], free, false)
	t = append(t, "% FREE"...)
	drawText(fb, Width-xPad-textWidth(len(t)), lineY(2), t, fg)

	memW := FixedFromPercent(e.snap.Memory).Scale(barWidth - 1)
	fb.FillRect(xPad, lineY(3), memW+1, barHeight+1, fg)
}
