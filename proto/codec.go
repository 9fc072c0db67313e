package proto

import (
	"encoding/binary"
	"hash/crc32"
)

const flagDaytime = 1 << 0

// AppendFrame encodes m as a complete frame appended to dst.
//
// Layout (little-endian):
//   - u8: StartMarker
//   - u8: Version
//   - u8: Kind
//   - u8: payload length
//   - payload
//   - u32: CRC-32 (IEEE) over kind, length and payload
//
// No allocation happens when dst has MaxFrame bytes of spare capacity.
func AppendFrame(dst []byte, m Message) ([]byte, error) {
	var n int
	switch v := m.(type) {
	case *Telemetry:
		if v == nil {
			return dst, ErrNilMessage
		}
		if err := validateSample(&v.Sample); err != nil {
			return dst, err
		}
		n = telemetryFixedLen + 2*int(v.Cores)
	case *Heartbeat:
		if v == nil {
			return dst, ErrNilMessage
		}
		n = heartbeatLen
	case *ClearScreen:
		n = 0
	default:
		return dst, ErrNilMessage
	}

	start := len(dst)
	dst = append(dst, StartMarker, Version, byte(m.Kind()), byte(n))
	switch v := m.(type) {
	case *Telemetry:
		dst = appendSample(dst, &v.Sample)
	case *Heartbeat:
		dst = binary.LittleEndian.AppendUint32(dst, v.Session)
	}
	sum := crc32.ChecksumIEEE(dst[start+2:])
	return binary.LittleEndian.AppendUint32(dst, sum), nil
}

// Encode returns m as a freshly allocated frame.
func Encode(m Message) ([]byte, error) {
	return AppendFrame(make([]byte, 0, MaxFrame), m)
}

func validateSample(s *Sample) error {
	if s.Cores > MaxCores {
		return ErrTooManyCores
	}
	if !s.Aggregate.Valid() || !s.Memory.Valid() {
		return ErrPercentRange
	}
	for _, p := range s.Loads() {
		if !p.Valid() {
			return ErrPercentRange
		}
	}
	return nil
}

func appendSample(dst []byte, s *Sample) []byte {
	var flags byte
	if s.Daytime {
		flags |= flagDaytime
	}
	dst = binary.LittleEndian.AppendUint32(dst, s.Timestamp)
	dst = binary.LittleEndian.AppendUint16(dst, uint16(s.Aggregate))
	dst = binary.LittleEndian.AppendUint16(dst, uint16(s.Memory))
	dst = append(dst, flags, s.Cores)
	for _, p := range s.Loads() {
		dst = binary.LittleEndian.AppendUint16(dst, uint16(p))
	}
	return dst
}

// Decoder turns frames into messages without allocating.
//
// The returned message points into the Decoder and is only valid until the
// next call to Decode.
type Decoder struct {
	telemetry Telemetry
	heartbeat Heartbeat
	clear     ClearScreen
}

// Decode validates one complete frame. Any failure returns a DecodeError
// and a nil message.
func (d *Decoder) Decode(frame []byte) (Message, error) {
	if len(frame) < FrameLen(0) || frame[0] != StartMarker {
		return nil, ErrLength
	}
	if frame[1] != Version {
		return nil, ErrVersionMismatch
	}
	n := int(frame[LengthOffset])
	if n > MaxPayload || len(frame) != FrameLen(n) {
		return nil, ErrLength
	}
	want := binary.LittleEndian.Uint32(frame[HeaderLen+n:])
	if crc32.ChecksumIEEE(frame[2:HeaderLen+n]) != want {
		return nil, ErrChecksum
	}

	payload := frame[HeaderLen : HeaderLen+n]
	switch Kind(frame[2]) {
	case KindTelemetry:
		if err := decodeSample(&d.telemetry.Sample, payload); err != nil {
			return nil, err
		}
		return &d.telemetry, nil
	case KindHeartbeat:
		if n != heartbeatLen {
			return nil, ErrMalformed
		}
		d.heartbeat.Session = binary.LittleEndian.Uint32(payload)
		return &d.heartbeat, nil
	case KindClearScreen:
		if n != 0 {
			return nil, ErrMalformed
		}
		return &d.clear, nil
	default:
		return nil, ErrUnknownType
	}
}

// Decode is a convenience wrapper for callers that do not keep a Decoder.
func Decode(frame []byte) (Message, error) {
	var d Decoder
	return d.Decode(frame)
}

func decodeSample(dst *Sample, p []byte) error {
	if len(p) < telemetryFixedLen {
		return ErrMalformed
	}
	var s Sample
	s.Timestamp = binary.LittleEndian.Uint32(p[0:4])
	s.Aggregate = Percent(binary.LittleEndian.Uint16(p[4:6]))
	s.Memory = Percent(binary.LittleEndian.Uint16(p[6:8]))
	flags := p[8]
	s.Cores = p[9]
	if flags&^flagDaytime != 0 || s.Cores > MaxCores {
		return ErrMalformed
	}
	if len(p) != telemetryFixedLen+2*int(s.Cores) {
		return ErrMalformed
	}
	s.Daytime = flags&flagDaytime != 0
	for i := 0; i < int(s.Cores); i++ {
		off := telemetryFixedLen + 2*i
		s.PerCore[i] = Percent(binary.LittleEndian.Uint16(p[off : off+2]))
	}
	if validateSample(&s) != nil {
		return ErrMalformed
	}
	*dst = s
	return nil
}
