package metrics

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hwgauge/internal/errors"
	"hwgauge/proto"
)

// Metrics tracks the daemon's link to the gauge. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	reg *prometheus.Registry

	framesSent *prometheus.CounterVec
	sendErrors prometheus.Counter
	reconnects prometheus.Counter
	handshakes *prometheus.CounterVec
	connected  prometheus.Gauge
	load       *prometheus.GaugeVec
	info       *prometheus.GaugeVec
}

func NewMetrics(version, host string) *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		framesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hwgauge_frames_sent_total",
			Help: "Frames written to the gauge by message kind.",
		}, []string{"kind"}),
		sendErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hwgauge_send_errors_total",
			Help: "Frames that failed to reach the gauge.",
		}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hwgauge_reconnects_total",
			Help: "Link attempts after the first.",
		}),
		handshakes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hwgauge_handshakes_total",
			Help: "Handshake attempts by result (ok, timeout, incompatible, error).",
		}, []string{"result"}),
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hwgauge_connected",
			Help: "1 while a handshaken link is up.",
		}),
		load: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hwgauge_load_percent",
			Help: "Last load sent to the gauge (all, peak, memory).",
		}, []string{"kind"}),
		info: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hwgauge_build_info",
			Help: "Constant 1, labelled with build version and protected host id.",
		}, []string{"version", "host"}),
	}

	m.reg.MustRegister(
		m.framesSent,
		m.sendErrors,
		m.reconnects,
		m.handshakes,
		m.connected,
		m.load,
		m.info,
	)

	m.info.WithLabelValues(version, host).Set(1)

	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

func (m *Metrics) FrameSent(k proto.Kind) {
	if m == nil {
		return
	}
	m.framesSent.WithLabelValues(k.String()).Inc()
}

func (m *Metrics) SendError() {
	if m == nil {
		return
	}
	m.sendErrors.Inc()
}

func (m *Metrics) Reconnect() {
	if m == nil {
		return
	}
	m.reconnects.Inc()
}

func (m *Metrics) Handshake(result string) {
	if m == nil {
		return
	}
	m.handshakes.WithLabelValues(result).Inc()
}

func (m *Metrics) SetConnected(up bool) {
	if m == nil {
		return
	}
	if up {
		m.connected.Set(1)
	} else {
		m.connected.Set(0)
	}
}

func (m *Metrics) ObserveSample(s *proto.Sample) {
	if m == nil {
		return
	}
	m.load.WithLabelValues("all").Set(s.Aggregate.Float())
	m.load.WithLabelValues("peak").Set(s.Peak().Float())
	m.load.WithLabelValues("memory").Set(s.Memory.Float())
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.New().Wrap(errors.ErrMetricsUp, err).WithData(addr)
	}
	return m.serve(ctx, ln)
}

func (m *Metrics) serve(ctx context.Context, ln net.Listener) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ln) }()

	select {
	case err := <-done:
		return errors.New().Wrap(errors.ErrMetricsUp, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	}
}
