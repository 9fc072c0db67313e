package app

import (
	"context"
	"errors"
	"time"

	"hwgauge/hal"
	"hwgauge/internal/buildinfo"
	"hwgauge/kernel"
)

// ErrPanic is returned by Step and Run after a task panicked and the
// device was told to restart.
var ErrPanic = errors.New("app: task panic")

// idlePoll is how long the serial pump sleeps when a driver read returns
// nothing.
const idlePoll = time.Millisecond

type Config struct {
	Kernel kernel.Config
}

func DefaultConfig() Config {
	return Config{Kernel: kernel.DefaultConfig()}
}

// System is the running firmware: the scheduler plus the goroutines that
// feed it from the HAL.
type System struct {
	h     hal.HAL
	sched *kernel.Scheduler
}

// New brings the gauge up on h. A display that fails to configure is
// fatal: the device is restarted and the error returned.
func New(h hal.HAL, cfg Config) (*System, error) {
	log := h.Logger()
	if log != nil {
		log.WriteLineString("hwgauge " + buildinfo.Short())
	}

	disp := h.Display()
	if err := disp.Configure(); err != nil {
		fatal(h, nil, "display init failed", err)
		return nil, err
	}
	if err := bootScreen(disp); err != nil {
		fatal(h, nil, "display flush failed", err)
		return nil, err
	}

	serial := h.Serial()
	sched := kernel.New(cfg.Kernel, kernel.NewRing(), kernel.Deps{
		Display: disp,
		LED:     h.LED(),
		Reply:   serial,
		Log:     log,
	})

	if serial != nil {
		go pump(serial, sched.Ring(), log)
	}
	if ht := h.Time(); ht != nil {
		if ch := ht.Ticks(); ch != nil {
			go func() {
				for ms := range ch {
					sched.Tick(ms)
				}
			}()
		}
	}

	return &System{h: h, sched: sched}, nil
}

// Run starts the firmware and blocks forever (TinyGo/native entrypoint).
func Run(h hal.HAL) {
	s, err := New(h, DefaultConfig())
	if err != nil {
		select {}
	}
	_ = s.Run(context.Background())
	select {}
}

// Step runs one scheduler pass. Host runners call it once per frame.
func (s *System) Step() (err error) {
	defer s.recoverTask(&err)
	s.sched.Step()
	return nil
}

// Run drives the scheduler until ctx is done.
func (s *System) Run(ctx context.Context) (err error) {
	defer s.recoverTask(&err)
	return s.sched.Run(ctx)
}

func (s *System) Scheduler() *kernel.Scheduler { return s.sched }

func (s *System) recoverTask(err *error) {
	r := recover()
	if r == nil {
		return
	}
	fatal(s.h, s.h.Display(), "task panic", r)
	*err = ErrPanic
}

func pump(serial hal.Serial, ring *kernel.Ring, log hal.Logger) {
	err := ring.Pump(serial, idlePoll)
	if log != nil && err != nil {
		log.WriteLineString("serial: link closed")
	}
}
