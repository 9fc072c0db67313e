package proto

// DecodeError is the reason a frame was rejected.
//
// Values are plain integers so returning one never allocates.
type DecodeError uint8

const (
	ErrLength DecodeError = iota + 1
	ErrVersionMismatch
	ErrChecksum
	ErrUnknownType
	ErrMalformed
)

// NumDecodeErrors sizes per-kind counters indexed by DecodeError.
const NumDecodeErrors = int(ErrMalformed) + 1

func (e DecodeError) Error() string {
	switch e {
	case ErrLength:
		return "proto: bad frame length"
	case ErrVersionMismatch:
		return "proto: version mismatch"
	case ErrChecksum:
		return "proto: checksum failed"
	case ErrUnknownType:
		return "proto: unknown message type"
	case ErrMalformed:
		return "proto: malformed payload"
	default:
		return "proto: decode error"
	}
}

// Legacy reports whether the frame came from another protocol version and
// should be ignored rather than treated as corruption.
func (e DecodeError) Legacy() bool { return e == ErrVersionMismatch }

// EncodeError is returned for messages that cannot be put on the wire.
type EncodeError uint8

const (
	ErrTooManyCores EncodeError = iota + 1
	ErrPercentRange
	ErrNilMessage
)

func (e EncodeError) Error() string {
	switch e {
	case ErrTooManyCores:
		return "proto: too many cores"
	case ErrPercentRange:
		return "proto: percent out of range"
	case ErrNilMessage:
		return "proto: nil message"
	default:
		return "proto: encode error"
	}
}
