// Package sampler reads host CPU and memory load and turns it into wire
// samples.
package sampler

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"hwgauge/internal/errors"
	"hwgauge/internal/mathx"
	"hwgauge/proto"
)

// Source provides raw load readings.
type Source interface {
	// PerCore returns the busy percentage of every logical core since the
	// previous call.
	PerCore(ctx context.Context) ([]float64, error)
	// Memory returns total and available bytes.
	Memory(ctx context.Context) (total, available uint64, err error)
}

// System reads the local machine through gopsutil.
type System struct{}

func (System) PerCore(ctx context.Context) ([]float64, error) {
	return cpu.PercentWithContext(ctx, 0, true)
}

func (System) Memory(ctx context.Context) (uint64, uint64, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, 0, err
	}
	return vm.Total, vm.Available, nil
}

type Options struct {
	DayStart int
	DayEnd   int
	// Now defaults to time.Now.
	Now func() time.Time
}

// Sampler produces one proto.Sample per call with strictly increasing
// timestamps, starting at 1 for every session.
type Sampler struct {
	src  Source
	opts Options
	ts   uint32
	errs errors.Factory
}

func New(src Source, opts Options) *Sampler {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Sampler{src: src, opts: opts, errs: errors.New()}
}

// Reset restarts the timestamp sequence for a new session.
func (s *Sampler) Reset() { s.ts = 0 }

// Sample takes a reading.
func (s *Sampler) Sample(ctx context.Context) (proto.Sample, error) {
	var out proto.Sample

	cores, err := s.src.PerCore(ctx)
	if err != nil {
		return out, s.errs.Wrap(errors.ErrSample, err).WithMessage("read cpu load")
	}
	total, avail, err := s.src.Memory(ctx)
	if err != nil {
		return out, s.errs.Wrap(errors.ErrSample, err).WithMessage("read memory")
	}

	loads := make([]proto.Percent, len(cores))
	var sum float64
	for i, c := range cores {
		c = mathx.Clamp(c, 0, 100)
		sum += c
		loads[i] = proto.PercentFromFloat(c)
	}
	if len(cores) > 0 {
		out.Aggregate = proto.PercentFromFloat(sum / float64(len(cores)))
	}
	out.SetLoads(Fold(loads, proto.MaxCores))
	out.Memory = MemoryLoad(total, avail)
	out.Daytime = Daytime(s.opts.Now(), s.opts.DayStart, s.opts.DayEnd)

	s.ts++
	out.Timestamp = s.ts
	return out, nil
}

// Fold reduces loads to at most n buckets, each holding the busiest core
// of its contiguous range, so the peak survives.
func Fold(loads []proto.Percent, n int) []proto.Percent {
	if len(loads) <= n || n <= 0 {
		return loads
	}
	out := make([]proto.Percent, n)
	for i := range out {
		lo := i * len(loads) / n
		hi := (i + 1) * len(loads) / n
		for _, l := range loads[lo:hi] {
			out[i] = mathx.Max(out[i], l)
		}
	}
	return out
}

// MemoryLoad is the used share of memory, 100% minus available.
func MemoryLoad(total, available uint64) proto.Percent {
	if total == 0 {
		return 0
	}
	available = mathx.Clamp(available, 0, total)
	return proto.PercentFromFloat(100 - float64(available)*100/float64(total))
}

// Daytime reports whether t's local hour falls in [start, end).
func Daytime(t time.Time, start, end int) bool {
	h := t.Hour()
	return h >= start && h < end
}
