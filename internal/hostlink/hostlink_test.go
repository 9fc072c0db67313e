package hostlink

import (
	"context"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial/enumerator"

	"hwgauge/internal/config"
	"hwgauge/internal/errors"
	"hwgauge/internal/metrics"
	"hwgauge/internal/sampler"
	"hwgauge/kernel"
	"hwgauge/proto"
	"hwgauge/render"
)

type nopDisplay struct{}

func (nopDisplay) Flush(*render.FrameBuffer) error { return nil }

// startDevice runs the firmware core on the device end of a loopback.
func startDevice(t *testing.T, port io.ReadWriteCloser) *kernel.Scheduler {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	s := kernel.New(kernel.DefaultConfig(), nil, kernel.Deps{Display: nopDisplay{}, Reply: port})
	go s.Ring().Pump(port, time.Millisecond)
	go s.Run(ctx)
	t.Cleanup(func() {
		cancel()
		port.Close()
	})
	return s
}

type fixedSource struct{}

func (fixedSource) PerCore(context.Context) ([]float64, error) { return []float64{20, 60}, nil }
func (fixedSource) Memory(context.Context) (uint64, uint64, error) {
	return 100, 40, nil
}

func TestLoopback(t *testing.T) {
	a, b := Loopback()

	n, err := a.Write([]byte("ping"))
	require.NoError(t, err)
	require.Equal(t, 4, n)

	buf := make([]byte, 8)
	n, err = b.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(buf[:n]))

	require.NoError(t, b.SetReadTimeout(10*time.Millisecond))
	n, err = b.Read(buf)
	require.NoError(t, err)
	assert.Zero(t, n)

	a.Write([]byte("x"))
	require.NoError(t, a.Close())
	n, err = b.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = b.Read(buf)
	assert.ErrorIs(t, err, io.EOF)
	_, err = b.Write([]byte("y"))
	assert.ErrorIs(t, err, io.ErrClosedPipe)
}

func TestLoopbackBlockingReadWakes(t *testing.T) {
	a, b := Loopback()
	go func() {
		time.Sleep(10 * time.Millisecond)
		a.Write([]byte{7})
	}()
	buf := make([]byte, 1)
	n, err := b.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, byte(7), buf[0])
}

func TestHandshakeWithDevice(t *testing.T) {
	host, dev := Loopback()
	s := startDevice(t, dev)

	require.NoError(t, Handshake(context.Background(), host, 0xBEEF, time.Second))
	assert.Equal(t, uint32(1), s.Stats().Heartbeats)
}

func TestHandshakeIncompatible(t *testing.T) {
	host, dev := Loopback()
	go func() {
		buf := make([]byte, proto.MaxFrame)
		dev.Read(buf)
		reply, _ := proto.Encode(&proto.Heartbeat{Session: 1})
		reply[1] = proto.Version + 1
		dev.Write(reply)
	}()

	err := Handshake(context.Background(), host, 1, time.Second)
	require.Error(t, err)
	assert.Equal(t, errors.ErrIncompatible, errors.CodeOf(err))
	assert.Equal(t, "incompatible", handshakeResult(err))
}

func TestHandshakeIgnoresNoiseAndOtherSessions(t *testing.T) {
	host, dev := Loopback()
	go func() {
		buf := make([]byte, proto.MaxFrame)
		dev.Read(buf)
		other, _ := proto.Encode(&proto.Heartbeat{Session: 2})
		mine, _ := proto.Encode(&proto.Heartbeat{Session: 3})
		dev.Write([]byte{0x00, 0xFF, 0x13})
		dev.Write(other)
		dev.Write(mine)
	}()

	require.NoError(t, Handshake(context.Background(), host, 3, time.Second))
}

func TestHandshakeTimeout(t *testing.T) {
	host, _ := Loopback()

	err := Handshake(context.Background(), host, 1, 80*time.Millisecond)
	require.Error(t, err)
	assert.Equal(t, errors.ErrHandshake, errors.CodeOf(err))
	assert.Equal(t, "timeout", handshakeResult(err))
}

func TestHandshakeCancelled(t *testing.T) {
	host, _ := Loopback()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Handshake(ctx, host, 1, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDetect(t *testing.T) {
	list := func() ([]*enumerator.PortDetails, error) {
		return []*enumerator.PortDetails{
			{Name: "/dev/ttyS0"},
			{Name: "/dev/ttyACM0", IsUSB: true, VID: "2341", PID: "0043"},
			{Name: "/dev/ttyACM1", IsUSB: true, VID: "1209", PID: "0001"},
		}, nil
	}

	name, err := Detect(list, 0x1209, 0x0001)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyACM1", name)

	_, err = Detect(list, 0x1209, 0x0002)
	assert.Equal(t, errors.ErrPortNotFound, errors.CodeOf(err))

	failing := func() ([]*enumerator.PortDetails, error) { return nil, io.ErrUnexpectedEOF }
	_, err = Detect(failing, 0x1209, 0x0001)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestSerialDialerReportsMissingPort(t *testing.T) {
	empty := func() ([]*enumerator.PortDetails, error) { return nil, nil }
	dial := serialDialer(config.Default().Link, empty)

	_, _, err := dial(context.Background())
	assert.Equal(t, errors.ErrPortNotFound, errors.CodeOf(err))
}

func newTestDaemon(dial Dialer, m *metrics.Metrics) *Daemon {
	s := sampler.New(fixedSource{}, sampler.Options{DayStart: 0, DayEnd: 24})
	return NewDaemon(dial, s, m, zerolog.Nop(), Options{
		Interval:         5 * time.Millisecond,
		Retry:            5 * time.Millisecond,
		HandshakeTimeout: time.Second,
	})
}

func TestDaemonFeedsDeviceAndClearsOnShutdown(t *testing.T) {
	host, dev := Loopback()
	s := startDevice(t, dev)

	var dials atomic.Int32
	dial := func(ctx context.Context) (Port, string, error) {
		if dials.Add(1) > 1 {
			return nil, "", errors.New().New(errors.ErrPortNotFound)
		}
		return host, "loopback", nil
	}

	m := metrics.NewMetrics("test", "host")
	d := newTestDaemon(dial, m)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	require.Eventually(t, func() bool {
		return s.Stats().Samples >= 3
	}, 2*time.Second, time.Millisecond)
	avg := s.CurrentAverages()
	assert.Equal(t, proto.Percent(400), avg.All)
	assert.Equal(t, proto.Percent(600), avg.Peak)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("daemon did not stop")
	}
	require.Eventually(t, func() bool {
		return s.Stats().Clears == 1
	}, time.Second, time.Millisecond)
	assert.Zero(t, s.Stats().Dropped())
}

func TestDaemonRecoversAfterHandshakeTimeout(t *testing.T) {
	link := NewLoopbackLink()
	s := sampler.New(fixedSource{}, sampler.Options{DayStart: 0, DayEnd: 24})
	d := NewDaemon(link.Dial, s, nil, zerolog.Nop(), Options{
		Interval:         5 * time.Millisecond,
		Retry:            20 * time.Millisecond,
		HandshakeTimeout: 30 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	// The gauge comes up only after the first handshake has timed out.
	time.Sleep(80 * time.Millisecond)
	dev := startDevice(t, link)

	require.Eventually(t, func() bool {
		return dev.Stats().Samples >= 3
	}, 2*time.Second, time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestLoopbackLinkFollowsNewSession(t *testing.T) {
	link := NewLoopbackLink()
	first, _, err := link.Dial(context.Background())
	require.NoError(t, err)
	_, err = first.Write([]byte("a"))
	require.NoError(t, err)
	require.NoError(t, first.Close())

	got := make(chan string, 4)
	go func() {
		buf := make([]byte, 8)
		for {
			n, err := link.Read(buf)
			if err != nil {
				close(got)
				return
			}
			got <- string(buf[:n])
		}
	}()
	assert.Equal(t, "a", <-got)

	second, _, err := link.Dial(context.Background())
	require.NoError(t, err)
	_, err = second.Write([]byte("b"))
	require.NoError(t, err)
	assert.Equal(t, "b", <-got)

	_, err = link.Write([]byte("c"))
	require.NoError(t, err)
	buf := make([]byte, 8)
	n, err := second.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "c", string(buf[:n]))

	require.NoError(t, link.Close())
	_, ok := <-got
	assert.False(t, ok)
	_, _, err = link.Dial(context.Background())
	assert.ErrorIs(t, err, io.ErrClosedPipe)
}

func TestDaemonRetriesAfterFailedDial(t *testing.T) {
	var dials atomic.Int32
	dial := func(ctx context.Context) (Port, string, error) {
		dials.Add(1)
		return nil, "", errors.New().New(errors.ErrPortNotFound)
	}

	d := newTestDaemon(dial, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	require.Eventually(t, func() bool { return dials.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

func TestDaemonNeverSendsTelemetryToIncompatibleGauge(t *testing.T) {
	host, dev := Loopback()
	received := make(chan []byte, 16)
	go func() {
		buf := make([]byte, 256)
		for {
			n, err := dev.Read(buf)
			if err != nil {
				close(received)
				return
			}
			received <- append([]byte(nil), buf[:n]...)
			reply, _ := proto.Encode(&proto.Heartbeat{Session: 1})
			reply[1] = proto.Version + 1
			dev.Write(reply)
		}
	}()

	var dials atomic.Int32
	dial := func(ctx context.Context) (Port, string, error) {
		if dials.Add(1) > 1 {
			return nil, "", errors.New().New(errors.ErrPortNotFound)
		}
		return host, "loopback", nil
	}
	d := newTestDaemon(dial, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	require.Eventually(t, func() bool { return dials.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	for chunk := range received {
		msg, err := proto.Decode(chunk)
		require.NoError(t, err)
		assert.Equal(t, proto.KindHeartbeat, msg.Kind())
	}
}

func TestHostID(t *testing.T) {
	assert.NotEmpty(t, HostID())
}
