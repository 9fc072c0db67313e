// Command gaugehost samples this machine's CPU and memory load and streams
// it to a USB gauge.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"hwgauge/internal/buildinfo"
	"hwgauge/internal/config"
	"hwgauge/internal/errors"
	"hwgauge/internal/hostlink"
	"hwgauge/internal/logger"
	"hwgauge/internal/metrics"
	"hwgauge/internal/sampler"
)

var (
	cfg         *config.Config
	showVersion bool
)

func init() {
	var err error
	cfg, err = config.Load("gaugehost", os.Args[1:], func(fs *pflag.FlagSet) {
		fs.BoolVar(&showVersion, "version", false, "print the version and exit")
	})
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}
	if showVersion {
		fmt.Println("gaugehost", buildinfo.Short())
		os.Exit(0)
	}

	logger.Init(cfg.Log.Debug, cfg.Log.Verbose, logger.IsService())
	logger.Debug().Msg("Config loaded")
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	host := hostlink.HostID()
	if host == hostlink.UnknownHost {
		logger.Warn().Msg("machine id unavailable, metrics are labelled host=unknown")
	}
	logger.Info().Str("version", buildinfo.Short()).Str("host", host).
		Str("config", cfg.File).Msg("gaugehost starting")

	m := metrics.NewMetrics(buildinfo.Version, host)
	if cfg.Metrics.Addr != "" {
		go func() {
			if err := m.Serve(ctx, cfg.Metrics.Addr); err != nil {
				logger.ErrorFrom(err).Msg("metrics endpoint stopped")
			}
		}()
	}

	s := sampler.New(sampler.System{}, sampler.Options{
		DayStart: cfg.Sample.DayStart,
		DayEnd:   cfg.Sample.DayEnd,
	})
	d := hostlink.NewDaemon(hostlink.SerialDialer(cfg.Link), s, m,
		logger.Component("link"), hostlink.OptionsFrom(cfg))

	if err := d.Run(ctx); err != nil {
		logger.FatalWithCode(errors.New().Wrap(errors.ErrMainLoop, err)).Msg("error in main loop")
	}
	logger.Info().Msg("Exiting...")
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}
