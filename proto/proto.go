package proto

// Version is the wire protocol version compiled into this build.
const Version uint8 = 1

// StartMarker opens every frame.
const StartMarker byte = 0xA5

// MaxCores is the largest per-core load count a frame can carry.
const MaxCores = 32

const (
	// HeaderLen covers marker, version, type and payload length.
	HeaderLen   = 4
	ChecksumLen = 4

	telemetryFixedLen = 10
	heartbeatLen      = 4

	// MaxPayload is the largest payload any message encodes to.
	MaxPayload = telemetryFixedLen + 2*MaxCores
	// MaxFrame is the largest frame on the wire.
	MaxFrame = HeaderLen + MaxPayload + ChecksumLen

	// LengthOffset is the index of the payload length byte in a frame.
	LengthOffset = 3
)

// FrameLen returns the full frame size for a payload of n bytes.
func FrameLen(n int) int { return HeaderLen + n + ChecksumLen }

// Kind identifies the message type carried in a frame.
type Kind uint8

const (
	KindTelemetry Kind = iota + 1
	KindHeartbeat
	KindClearScreen
)

func (k Kind) String() string {
	switch k {
	case KindTelemetry:
		return "telemetry"
	case KindHeartbeat:
		return "heartbeat"
	case KindClearScreen:
		return "clear_screen"
	default:
		return "unknown"
	}
}

// Percent is a load value in tenths of a percent (0..1000).
type Percent uint16

// PercentMax is 100.0%.
const PercentMax Percent = 1000

// PercentFromFloat converts a 0..100 float, rounding and clamping.
func PercentFromFloat(f float64) Percent {
	if f != f || f <= 0 {
		return 0
	}
	if f >= 100 {
		return PercentMax
	}
	return Percent(f*10 + 0.5)
}

func (p Percent) Float() float64 { return float64(p) / 10 }

func (p Percent) Valid() bool { return p <= PercentMax }

// Sample is one telemetry reading from the host.
type Sample struct {
	Timestamp uint32
	Aggregate Percent
	Memory    Percent
	Daytime   bool
	Cores     uint8
	PerCore   [MaxCores]Percent
}

// Loads returns the populated per-core values.
func (s *Sample) Loads() []Percent {
	n := int(s.Cores)
	if n > MaxCores {
		n = MaxCores
	}
	return s.PerCore[:n]
}

// SetLoads copies loads into the sample, truncating at MaxCores.
func (s *Sample) SetLoads(loads []Percent) {
	n := copy(s.PerCore[:], loads)
	for i := n; i < MaxCores; i++ {
		s.PerCore[i] = 0
	}
	s.Cores = uint8(n)
}

// Peak returns the busiest core, or the aggregate when no cores are reported.
func (s *Sample) Peak() Percent {
	loads := s.Loads()
	if len(loads) == 0 {
		return s.Aggregate
	}
	peak := loads[0]
	for _, l := range loads[1:] {
		if l > peak {
			peak = l
		}
	}
	return peak
}

// Message is a decoded frame. The variant set is closed: *Telemetry,
// *Heartbeat and *ClearScreen.
type Message interface {
	Kind() Kind
	sealed()
}

// Telemetry carries one Sample.
type Telemetry struct {
	Sample
}

// Heartbeat opens a session. The device echoes it back unchanged.
type Heartbeat struct {
	Session uint32
}

// ClearScreen blanks the display until the next sample.
type ClearScreen struct{}

func (*Telemetry) Kind() Kind   { return KindTelemetry }
func (*Heartbeat) Kind() Kind   { return KindHeartbeat }
func (*ClearScreen) Kind() Kind { return KindClearScreen }

func (*Telemetry) sealed()   {}
func (*Heartbeat) sealed()   {}
func (*ClearScreen) sealed() {}
