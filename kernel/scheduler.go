package kernel

import (
	"context"
	"io"
	"sync/atomic"
	"time"

	"hwgauge/proto"
	"hwgauge/render"
	"hwgauge/telemetry"
	"hwgauge/transport"
)

// Display receives finished frames. Flush must return within one render
// tick and must not keep fb afterwards.
type Display interface {
	Flush(fb *render.FrameBuffer) error
}

// Indicator is the activity LED.
type Indicator interface {
	High()
	Low()
}

// Logger writes newline-delimited log lines.
type Logger interface {
	WriteLineString(s string)
}

// Config holds the scheduler tunables.
type Config struct {
	Render render.Config
	// NoDataAfter switches to the "no data" screen when no sample arrived
	// for this long.
	NoDataAfter time.Duration
	// BlankAfter blanks the display entirely.
	BlankAfter time.Duration
}

func DefaultConfig() Config {
	return Config{
		Render:      render.DefaultConfig(),
		NoDataAfter: 2 * time.Second,
		BlankAfter:  30 * time.Second,
	}
}

// Deps are the hardware capabilities the scheduler drives. Only Display
// is required.
type Deps struct {
	Display Display
	LED     Indicator
	// Reply carries Heartbeat echoes back to the host.
	Reply io.Writer
	Log   Logger
}

type screen uint8

const (
	screenBlank screen = iota
	screenGauge
	screenNoData
	screenCleared
)

// NoDataMessage is shown when the host has gone quiet.
const NoDataMessage = "NO DATA RECEIVED"

// Scheduler is the firmware core. It owns all mutable gauge state and runs
// two tasks: Receive, which drains the ring through the deframer, decoder
// and model, and RenderTick, which animates and flushes a frame. Receive
// always runs first.
type Scheduler struct {
	cfg      Config
	interval uint64

	rx       *Ring
	deframer transport.Deframer
	decoder  proto.Decoder
	engine   *render.Engine
	display  Display
	led      Indicator
	reply    *transport.Sender
	log      Logger

	now  atomic.Uint64
	wake chan struct{}

	crit critical
	// Guarded by crit.
	model      telemetry.Model
	lastSample uint64
	cleared    bool
	activity   bool
	stats      Stats

	lastRender uint64
	screen     screen
	ledOn      bool
}

// New builds a scheduler reading from rx.
func New(cfg Config, rx *Ring, deps Deps) *Scheduler {
	def := DefaultConfig()
	if cfg.Render.FPS <= 0 {
		cfg.Render.FPS = def.Render.FPS
	}
	if cfg.NoDataAfter <= 0 {
		cfg.NoDataAfter = def.NoDataAfter
	}
	if cfg.BlankAfter <= 0 {
		cfg.BlankAfter = def.BlankAfter
	}
	if rx == nil {
		rx = NewRing()
	}
	s := &Scheduler{
		cfg:      cfg,
		interval: uint64(cfg.Render.FrameInterval() / time.Millisecond),
		rx:       rx,
		engine:   render.NewEngine(cfg.Render),
		display:  deps.Display,
		led:      deps.LED,
		log:      deps.Log,
		wake:     make(chan struct{}, 1),
	}
	if s.interval == 0 {
		s.interval = 1
	}
	if deps.Reply != nil {
		s.reply = transport.NewSender(deps.Reply)
	}
	return s
}

// Ring returns the receive ring for producers.
func (s *Scheduler) Ring() *Ring { return s.rx }

// Tick publishes the current time in milliseconds. It is called from the
// timer context and only touches atomics.
func (s *Scheduler) Tick(nowMillis uint64) {
	s.now.Store(nowMillis)
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Step runs one scheduling pass: Receive, then RenderTick if a frame is
// due, then Receive again for bytes that arrived during the render. It
// reports whether any work was done.
func (s *Scheduler) Step() bool {
	did := s.receive()
	now := s.now.Load()
	if now-s.lastRender >= s.interval {
		s.renderTick(now)
		s.receive()
		did = true
	}
	return did
}

// Run steps until ctx is done, idling between events.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if s.Step() {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.rx.Readable():
		case <-s.wake:
		}
	}
}

func (s *Scheduler) receive() bool {
	did := false
	for {
		b, ok := s.rx.Pop()
		if !ok {
			break
		}
		did = true
		frame, ev := s.deframer.PushByte(b)
		if ev == transport.EventFrame {
			s.handle(frame)
		}
	}
	if did {
		d := s.deframer.Stats()
		s.crit.enter()
		s.stats.Resyncs = d.Resyncs
		s.stats.Discarded = d.Discarded
		s.crit.exit()
	}
	return did
}

func (s *Scheduler) handle(frame []byte) {
	msg, err := s.decoder.Decode(frame)
	if err != nil {
		s.crit.enter()
		if de, ok := err.(proto.DecodeError); ok && int(de) < len(s.stats.DecodeErrors) {
			s.stats.DecodeErrors[de]++
		}
		s.crit.exit()
		return
	}

	switch m := msg.(type) {
	case *proto.Telemetry:
		now := s.now.Load()
		s.crit.enter()
		if s.model.Apply(&m.Sample) {
			s.lastSample = now
			s.cleared = false
			s.stats.Samples++
		}
		s.activity = true
		s.stats.Frames++
		s.crit.exit()
	case *proto.Heartbeat:
		s.crit.enter()
		s.model.BeginSession(m.Session)
		s.activity = true
		s.stats.Frames++
		s.stats.Heartbeats++
		s.crit.exit()
		if s.reply != nil {
			if err := s.reply.Send(m); err != nil {
				s.crit.enter()
				s.stats.ReplyErrors++
				s.crit.exit()
			}
		}
	case *proto.ClearScreen:
		s.crit.enter()
		s.model.Clear()
		s.cleared = true
		s.activity = true
		s.stats.Frames++
		s.stats.Clears++
		s.crit.exit()
	}
}

func (s *Scheduler) renderTick(now uint64) {
	dt := time.Duration(now-s.lastRender) * time.Millisecond
	s.lastRender = now

	s.crit.enter()
	targets, fresh := s.model.TakeTargets()
	snap := s.model.Snapshot()
	quiet := time.Duration(now-s.lastSample) * time.Millisecond
	cleared := s.cleared
	activity := s.activity
	s.activity = false
	s.crit.exit()

	if fresh {
		s.engine.Seed(targets)
	}
	s.engine.Update(snap)

	var fb *render.FrameBuffer
	next := screenGauge
	switch {
	case cleared:
		next = screenCleared
	case quiet >= s.cfg.BlankAfter:
		next = screenBlank
	case quiet >= s.cfg.NoDataAfter:
		next = screenNoData
	case !snap.Valid:
		next = screenBlank
	}
	switch next {
	case screenGauge:
		fb = s.engine.Tick(dt)
	case screenNoData:
		s.engine.Advance(dt)
		fb = s.engine.DrawMessage(NoDataMessage)
	default:
		s.engine.Advance(dt)
		fb = s.engine.Blank()
	}
	s.transition(next)

	var flushErr bool
	if s.display != nil {
		flushErr = s.display.Flush(fb) != nil
	}
	s.pulse(activity)

	s.crit.enter()
	s.stats.Renders++
	if flushErr {
		s.stats.FlushErrors++
	}
	s.crit.exit()
}

func (s *Scheduler) transition(next screen) {
	if next == s.screen {
		return
	}
	prev := s.screen
	s.screen = next
	if s.log == nil {
		return
	}
	switch next {
	case screenGauge:
		if prev == screenNoData || prev == screenCleared {
			s.log.WriteLineString("gauge: data resumed")
		}
	case screenNoData:
		s.log.WriteLineString("gauge: no data received")
	case screenCleared:
		s.log.WriteLineString("gauge: cleared by host")
	case screenBlank:
		if prev == screenNoData {
			s.log.WriteLineString("gauge: blanked after silence")
		}
	}
}

// pulse lights the LED for one tick after any received frame.
func (s *Scheduler) pulse(activity bool) {
	if s.led == nil || activity == s.ledOn {
		return
	}
	s.ledOn = activity
	if activity {
		s.led.High()
	} else {
		s.led.Low()
	}
}

// Stats returns a copy of the counters. It is safe to call from any
// goroutine.
func (s *Scheduler) Stats() Stats {
	s.crit.enter()
	st := s.stats
	s.crit.exit()
	st.Overruns = s.rx.Overruns()
	return st
}

// CurrentAverages reads the model under the critical section.
func (s *Scheduler) CurrentAverages() telemetry.Averages {
	s.crit.enter()
	defer s.crit.exit()
	return s.model.CurrentAverages()
}

// Bars returns the animated all-core and peak-core bars. Like Frame, it
// belongs to the goroutine running Step.
func (s *Scheduler) Bars() (all, peak render.BarState) { return s.engine.Bars() }

// Frame returns the last rendered frame.
func (s *Scheduler) Frame() *render.FrameBuffer { return s.engine.Frame() }
