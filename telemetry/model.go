package telemetry

import "hwgauge/proto"

// Averages is the read-only view the render path draws from.
type Averages struct {
	All     proto.Percent
	Peak    proto.Percent
	Fifteen proto.Percent
}

// Targets are fresh bar heights seeded by Apply.
type Targets struct {
	All  proto.Percent
	Peak proto.Percent
}

// Snapshot is a copy of everything the render tick needs.
type Snapshot struct {
	Averages
	Memory  proto.Percent
	Daytime bool
	// Valid is false until the first sample after power-up or Clear.
	Valid bool
	// Seq increments on every accepted sample.
	Seq uint32
}

// Model is the in-memory telemetry state for one link.
type Model struct {
	last    uint32
	have    bool
	session uint32

	avg  RollingAverage
	snap Snapshot

	targets Targets
	pending bool
}

// Apply folds s into the model. Samples whose timestamp is not newer than
// the last applied one are ignored and leave the model unchanged.
func (m *Model) Apply(s *proto.Sample) bool {
	if m.have && s.Timestamp <= m.last {
		return false
	}
	m.last = s.Timestamp
	m.have = true

	m.avg.Push(s.Aggregate)
	m.snap.All = s.Aggregate
	m.snap.Peak = s.Peak()
	m.snap.Fifteen = m.avg.Average()
	m.snap.Memory = s.Memory
	m.snap.Daytime = s.Daytime
	m.snap.Valid = true
	m.snap.Seq++

	m.targets = Targets{All: m.snap.All, Peak: m.snap.Peak}
	m.pending = true
	return true
}

// CurrentAverages returns the latest all-core and peak-core loads and the
// fifteen second average. It has no side effects.
func (m *Model) CurrentAverages() Averages { return m.snap.Averages }

// Snapshot returns a copy of the render-facing state.
func (m *Model) Snapshot() Snapshot { return m.snap }

// TakeTargets returns targets seeded since the previous call.
func (m *Model) TakeTargets() (Targets, bool) {
	if !m.pending {
		return Targets{}, false
	}
	m.pending = false
	return m.targets, true
}

// BeginSession starts a new host session. A different id resets the
// ordering watermark so the host may restart its timestamps.
func (m *Model) BeginSession(id uint32) bool {
	if m.have && id == m.session {
		return false
	}
	m.session = id
	m.have = false
	m.last = 0
	return true
}

func (m *Model) Session() uint32 { return m.session }

// LastTimestamp returns the watermark and whether one is set.
func (m *Model) LastTimestamp() (uint32, bool) { return m.last, m.have }

// Clear drops the displayed values and the averaging window. The ordering
// watermark survives, so a replayed sample is still rejected.
func (m *Model) Clear() {
	m.avg.Reset()
	seq := m.snap.Seq
	m.snap = Snapshot{Seq: seq}
	m.targets = Targets{}
	m.pending = true
}
