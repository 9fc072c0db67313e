//go:build !tinygo

// Command hwgauge is the desktop emulator for the gauge firmware. It runs
// the same scheduler as the device against a window or a terminal dump.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"go.bug.st/serial"

	"hwgauge/app"
	"hwgauge/hal"
	"hwgauge/internal/buildinfo"
	"hwgauge/internal/config"
	"hwgauge/internal/hostlink"
	"hwgauge/internal/logger"
	"hwgauge/internal/metrics"
	"hwgauge/internal/sampler"
)

type emulatorFlags struct {
	headless    bool
	hz          int
	ticks       uint64
	dumpEvery   uint64
	scale       int
	demo        bool
	device      string
	failDisplay bool
}

func main() {
	os.Exit(run())
}

func run() int {
	var ef emulatorFlags
	cfg, err := config.Load("hwgauge", os.Args[1:], func(fs *pflag.FlagSet) {
		fs.BoolVar(&ef.headless, "headless", false, "run without a window")
		fs.IntVar(&ef.hz, "hz", 60, "runner tick rate in headless mode")
		fs.Uint64Var(&ef.ticks, "ticks", 0, "stop after N runner ticks in headless mode (0 = forever)")
		fs.Uint64Var(&ef.dumpEvery, "dump", 0, "print the panel to stderr every N runner ticks when it changed")
		fs.IntVar(&ef.scale, "scale", 4, "window pixels per panel pixel")
		fs.BoolVar(&ef.demo, "demo", false, "feed the emulator from this machine's own load")
		fs.StringVar(&ef.device, "device", "", "serial port to act as the gauge on (default stdin/stdout)")
		fs.BoolVar(&ef.failDisplay, "fail-display", false, "simulate a display that does not answer")
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	// stdout may be the data link; logs always go to stderr.
	logger.InitWithWriter(os.Stderr, cfg.Log.Debug, cfg.Log.Verbose, false)
	log := logger.Component("emulator")
	log.Info().Str("version", buildinfo.Short()).Str("config", cfg.File).Msg("starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	link, cleanup, err := openLink(ctx, cfg, ef)
	if err != nil {
		log.Error().Err(err).Msg("open link")
		return 1
	}
	defer cleanup()

	h := hal.NewHost(hal.HostOptions{
		Serial:      link,
		Log:         logger.Component("device"),
		FailDisplay: ef.failDisplay,
	})
	sys, err := app.New(h, app.Config{Kernel: cfg.Render.Kernel()})
	if err != nil {
		log.Error().Err(err).Msg("firmware did not start")
		return 3
	}

	if ef.headless {
		hc := hal.HeadlessConfig{Hz: ef.hz, Ticks: ef.ticks, DumpEvery: ef.dumpEvery, Dump: os.Stderr}
		err = hal.RunHeadless(ctx, h, sys.Step, hc)
	} else {
		err = hal.RunWindow(h, sys.Step, ef.scale)
	}
	return exitCode(log, err)
}

// openLink returns the serial stream the emulated device talks over.
func openLink(ctx context.Context, cfg *config.Config, ef emulatorFlags) (hal.Serial, func(), error) {
	switch {
	case ef.demo:
		ctx, cancel := context.WithCancel(ctx)
		link := hostlink.NewLoopbackLink()
		s := sampler.New(sampler.System{}, sampler.Options{
			DayStart: cfg.Sample.DayStart,
			DayEnd:   cfg.Sample.DayEnd,
		})
		m := metrics.NewMetrics(buildinfo.Version, hostlink.HostID())
		d := hostlink.NewDaemon(link.Dial, s, m, logger.Component("daemon"), hostlink.OptionsFrom(cfg))
		done := make(chan struct{})
		go func() {
			defer close(done)
			d.Run(ctx)
		}()
		return link, func() {
			cancel()
			<-done
			link.Close()
		}, nil

	case ef.device != "":
		p, err := serial.Open(ef.device, &serial.Mode{BaudRate: cfg.Link.Baud})
		if err != nil {
			return nil, nil, err
		}
		return p, func() { p.Close() }, nil

	default:
		return hal.StdioSerial(), func() {}, nil
	}
}

// exitCode maps the runner result to the process status. 3 tells a
// supervising script to start the emulator again.
func exitCode(log zerolog.Logger, err error) int {
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		log.Info().Msg("stopped")
		return 0
	case errors.Is(err, hal.ErrRestart):
		log.Warn().Msg("firmware requested a restart")
		return 3
	default:
		log.Error().Err(err).Msg("emulator stopped")
		return 1
	}
}
