package kernel

import "hwgauge/proto"

// Stats counts recoverable faults and work done. Nothing here is ever
// escalated; the counters are for diagnostics only.
type Stats struct {
	Frames       uint32
	Samples      uint32
	Heartbeats   uint32
	Clears       uint32
	DecodeErrors [proto.NumDecodeErrors]uint32
	Resyncs      uint32
	Discarded    uint32
	Overruns     uint32
	Renders      uint32
	FlushErrors  uint32
	ReplyErrors  uint32
}

// DecodeErrorCount returns how many frames failed with e.
func (s Stats) DecodeErrorCount(e proto.DecodeError) uint32 {
	if int(e) >= len(s.DecodeErrors) {
		return 0
	}
	return s.DecodeErrors[e]
}

// Dropped is the total number of frames discarded by the decoder.
func (s Stats) Dropped() uint32 {
	var n uint32
	for _, c := range s.DecodeErrors {
		n += c
	}
	return n
}
