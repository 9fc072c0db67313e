package sampler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "hwgauge/internal/errors"
	"hwgauge/proto"
)

type fakeSource struct {
	cores        []float64
	total, avail uint64
	cpuErr       error
	memErr       error
}

func (f *fakeSource) PerCore(context.Context) ([]float64, error) { return f.cores, f.cpuErr }

func (f *fakeSource) Memory(context.Context) (uint64, uint64, error) {
	return f.total, f.avail, f.memErr
}

func at(hour int) func() time.Time {
	return func() time.Time { return time.Date(2024, 1, 1, hour, 30, 0, 0, time.Local) }
}

func TestSample(t *testing.T) {
	src := &fakeSource{cores: []float64{10, 90}, total: 1000, avail: 250}
	s := New(src, Options{DayStart: 6, DayEnd: 18, Now: at(12)})

	got, err := s.Sample(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint32(1), got.Timestamp)
	assert.Equal(t, proto.Percent(500), got.Aggregate)
	assert.Equal(t, []proto.Percent{100, 900}, got.Loads())
	assert.Equal(t, proto.Percent(750), got.Memory)
	assert.True(t, got.Daytime)

	got, err = s.Sample(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint32(2), got.Timestamp)

	s.Reset()
	got, err = s.Sample(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint32(1), got.Timestamp)
}

func TestSampleClampsOutOfRangeReadings(t *testing.T) {
	src := &fakeSource{cores: []float64{-3, 140}, total: 10, avail: 20}
	s := New(src, Options{Now: at(0)})

	got, err := s.Sample(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []proto.Percent{0, 1000}, got.Loads())
	assert.Equal(t, proto.Percent(500), got.Aggregate)
	assert.Zero(t, got.Memory)

	frame, err := proto.Encode(&proto.Telemetry{Sample: got})
	require.NoError(t, err)
	assert.NotEmpty(t, frame)
}

func TestSampleFoldsManyCores(t *testing.T) {
	cores := make([]float64, 64)
	cores[63] = 100
	src := &fakeSource{cores: cores, total: 1, avail: 1}
	s := New(src, Options{Now: at(0)})

	got, err := s.Sample(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint8(proto.MaxCores), got.Cores)
	assert.Equal(t, proto.PercentMax, got.Peak())
	// The aggregate is taken over all 64 cores, before folding.
	assert.Equal(t, proto.PercentFromFloat(100.0/64), got.Aggregate)
}

func TestSampleErrors(t *testing.T) {
	boom := errors.New("boom")

	s := New(&fakeSource{cpuErr: boom}, Options{})
	_, err := s.Sample(context.Background())
	assert.True(t, apperr.HasCode(err, apperr.ErrSample))
	assert.ErrorIs(t, err, boom)

	s = New(&fakeSource{memErr: boom}, Options{})
	_, err = s.Sample(context.Background())
	assert.True(t, apperr.HasCode(err, apperr.ErrSample))

	// A failed reading does not consume a timestamp.
	s = New(&fakeSource{total: 1}, Options{})
	got, err := s.Sample(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint32(1), got.Timestamp)
}

func TestFold(t *testing.T) {
	loads := []proto.Percent{1, 5, 2, 8, 3, 3}
	assert.Equal(t, []proto.Percent{5, 8, 3}, Fold(loads, 3))
	assert.Equal(t, loads, Fold(loads, 6))
	assert.Equal(t, loads, Fold(loads, 10))

	uneven := Fold([]proto.Percent{1, 2, 3, 4, 5}, 2)
	assert.Equal(t, []proto.Percent{2, 5}, uneven)
}

func TestMemoryLoad(t *testing.T) {
	assert.Equal(t, proto.Percent(0), MemoryLoad(0, 0))
	assert.Equal(t, proto.Percent(0), MemoryLoad(100, 100))
	assert.Equal(t, proto.PercentMax, MemoryLoad(100, 0))
	assert.Equal(t, proto.Percent(333), MemoryLoad(3, 2))
}

func TestDaytime(t *testing.T) {
	assert.False(t, Daytime(at(5)(), 6, 18))
	assert.True(t, Daytime(at(6)(), 6, 18))
	assert.True(t, Daytime(at(17)(), 6, 18))
	assert.False(t, Daytime(at(18)(), 6, 18))
	assert.False(t, Daytime(at(12)(), 0, 0))
}
