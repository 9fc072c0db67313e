package metrics

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hwgauge/internal/errors"
	"hwgauge/proto"
)

func TestCounters(t *testing.T) {
	m := NewMetrics("v1.2.3", "abc")

	m.FrameSent(proto.KindTelemetry)
	m.FrameSent(proto.KindTelemetry)
	m.FrameSent(proto.KindHeartbeat)
	m.SendError()
	m.Reconnect()
	m.Handshake("ok")
	m.SetConnected(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.framesSent.WithLabelValues(proto.KindTelemetry.String())))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.framesSent.WithLabelValues(proto.KindHeartbeat.String())))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sendErrors))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reconnects))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.handshakes.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.connected))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.info.WithLabelValues("v1.2.3", "abc")))

	m.SetConnected(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.connected))
}

func TestObserveSample(t *testing.T) {
	m := NewMetrics("dev", "host")
	s := &proto.Sample{Aggregate: 425, Memory: 612}
	s.SetLoads([]proto.Percent{100, 870})
	m.ObserveSample(s)

	assert.InDelta(t, 42.5, testutil.ToFloat64(m.load.WithLabelValues("all")), 1e-9)
	assert.InDelta(t, 87.0, testutil.ToFloat64(m.load.WithLabelValues("peak")), 1e-9)
	assert.InDelta(t, 61.2, testutil.ToFloat64(m.load.WithLabelValues("memory")), 1e-9)
}

func TestNilMetricsIsInert(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.FrameSent(proto.KindClearScreen)
		m.SendError()
		m.Reconnect()
		m.Handshake("timeout")
		m.SetConnected(true)
		m.ObserveSample(&proto.Sample{})
	})
	assert.Nil(t, m.Registry())
}

func TestHandler(t *testing.T) {
	m := NewMetrics("dev", "host")
	m.FrameSent(proto.KindTelemetry)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "hwgauge_frames_sent_total")
	assert.Contains(t, rec.Body.String(), `hwgauge_build_info{host="host",version="dev"} 1`)
}

func TestServe(t *testing.T) {
	m := NewMetrics("dev", "host")
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), "hwgauge_connected")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("serve did not stop")
	}
}

func TestServeBadAddress(t *testing.T) {
	m := NewMetrics("dev", "host")
	err := m.Serve(context.Background(), "not an address")
	assert.True(t, errors.HasCode(err, errors.ErrMetricsUp))
}
