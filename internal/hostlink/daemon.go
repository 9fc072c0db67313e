package hostlink

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"hwgauge/internal/config"
	"hwgauge/internal/errors"
	"hwgauge/internal/metrics"
	"hwgauge/internal/sampler"
	"hwgauge/proto"
	"hwgauge/transport"
)

type Options struct {
	Interval         time.Duration
	Retry            time.Duration
	HandshakeTimeout time.Duration
}

// OptionsFrom picks the daemon settings out of a loaded config.
func OptionsFrom(cfg *config.Config) Options {
	return Options{
		Interval:         cfg.Sample.Interval,
		Retry:            cfg.Link.Retry,
		HandshakeTimeout: cfg.Link.HandshakeTimeout,
	}
}

// Daemon keeps one gauge fed: it dials, handshakes, sends a sample every
// interval and starts over after Retry when anything fails.
type Daemon struct {
	dial    Dialer
	sampler *sampler.Sampler
	metrics *metrics.Metrics
	log     zerolog.Logger
	opts    Options

	newSession func() uint32
}

func NewDaemon(dial Dialer, s *sampler.Sampler, m *metrics.Metrics, log zerolog.Logger, opts Options) *Daemon {
	return &Daemon{
		dial:       dial,
		sampler:    s,
		metrics:    m,
		log:        log,
		opts:       opts,
		newSession: func() uint32 { return uuid.New().ID() },
	}
}

// Run loops until ctx is done. It returns nil on cancellation; link
// failures are logged and retried, never returned.
func (d *Daemon) Run(ctx context.Context) error {
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			d.metrics.Reconnect()
		}

		port, name, err := d.dial(ctx)
		if err == nil {
			d.log.Info().Str("port", name).Msg("gauge found")
			err = d.serve(ctx, port)
			port.Close()
		}
		if ctx.Err() != nil {
			return nil
		}
		d.report(err, name)

		t := time.NewTimer(d.opts.Retry)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
	}
}

func (d *Daemon) report(err error, port string) {
	if err == nil {
		return
	}
	level := zerolog.WarnLevel
	switch errors.CodeOf(err) {
	case errors.ErrIncompatible:
		level = zerolog.ErrorLevel
	case errors.ErrPortNotFound:
		level = zerolog.DebugLevel
	}
	d.log.WithLevel(level).Err(err).Str("port", port).Str("error_code", string(errors.CodeOf(err))).
		Dur("retry", d.opts.Retry).Msg("gauge link down")
}

func (d *Daemon) serve(ctx context.Context, port Port) error {
	session := d.newSession()
	if err := Handshake(ctx, port, session, d.opts.HandshakeTimeout); err != nil {
		d.metrics.Handshake(handshakeResult(err))
		return err
	}
	d.metrics.FrameSent(proto.KindHeartbeat)
	d.metrics.Handshake("ok")
	d.metrics.SetConnected(true)
	defer d.metrics.SetConnected(false)
	d.log.Info().Uint32("session", session).Msg("handshake ok")

	d.sampler.Reset()
	sender := transport.NewSender(port)
	errs := errors.New()

	ticker := time.NewTicker(d.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if err := sender.Send(&proto.ClearScreen{}); err != nil {
				d.log.Debug().Err(err).Msg("clear screen on shutdown")
			} else {
				d.metrics.FrameSent(proto.KindClearScreen)
			}
			return nil
		case <-ticker.C:
		}

		s, err := d.sampler.Sample(ctx)
		if err != nil {
			d.log.Warn().Err(err).Msg("sample skipped")
			continue
		}
		msg := proto.Telemetry{Sample: s}
		if err := sender.Send(&msg); err != nil {
			d.metrics.SendError()
			return errs.Wrap(errors.ErrSend, err)
		}
		d.metrics.FrameSent(proto.KindTelemetry)
		d.metrics.ObserveSample(&s)
		d.log.Debug().Uint32("ts", s.Timestamp).Float64("all", s.Aggregate.Float()).
			Float64("memory", s.Memory.Float()).Msg("sample sent")
	}
}

func handshakeResult(err error) string {
	switch errors.CodeOf(err) {
	case errors.ErrIncompatible:
		return "incompatible"
	case errors.ErrHandshake:
		if errors.Unwrap(err) == nil {
			return "timeout"
		}
	}
	return "error"
}
