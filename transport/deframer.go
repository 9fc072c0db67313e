package transport

import "hwgauge/proto"

// Event is the outcome of pushing one byte.
type Event uint8

const (
	// EventNone means the byte was consumed and nothing completed.
	EventNone Event = iota
	// EventFrame means a complete frame is available.
	EventFrame
	// EventResync means buffered bytes were discarded to find the next marker.
	EventResync
)

func (e Event) String() string {
	switch e {
	case EventNone:
		return "none"
	case EventFrame:
		return "frame"
	case EventResync:
		return "resync"
	default:
		return "unknown"
	}
}

// Stats counts deframer recovery activity.
type Stats struct {
	Frames    uint32
	Resyncs   uint32
	Discarded uint32
}

// Deframer assembles frames from a byte stream one byte at a time.
//
// It never allocates. A returned frame aliases the internal buffer and is
// only valid until the next PushByte.
type Deframer struct {
	buf     [proto.MaxFrame]byte
	n       int
	want    int
	garbage int
	stats   Stats
}

// PushByte consumes one received byte.
func (d *Deframer) PushByte(b byte) ([]byte, Event) {
	if d.n == 0 {
		return nil, d.hunt(b)
	}

	// A second marker where the version belongs means the first was noise;
	// restart the frame here instead of decoding a bogus version.
	if d.n == 1 && b == proto.StartMarker && b != proto.Version {
		d.stats.Resyncs++
		d.stats.Discarded++
		return nil, EventResync
	}

	d.buf[d.n] = b
	d.n++

	if d.n == proto.HeaderLen {
		plen := int(b)
		if plen > proto.MaxPayload {
			d.overrun()
			return nil, EventResync
		}
		d.want = proto.FrameLen(plen)
		return nil, EventNone
	}
	if d.n < proto.HeaderLen || d.n < d.want {
		return nil, EventNone
	}

	d.stats.Frames++
	frame := d.buf[:d.n]
	d.n, d.want = 0, 0
	return frame, EventFrame
}

func (d *Deframer) hunt(b byte) Event {
	if b != proto.StartMarker {
		d.garbage++
		d.stats.Discarded++
		if d.garbage >= proto.MaxFrame {
			d.garbage = 0
			d.stats.Resyncs++
			return EventResync
		}
		return EventNone
	}
	d.garbage = 0
	d.buf[0] = b
	d.n = 1
	return EventNone
}

// overrun drops the partial frame and replays the header bytes after its
// marker, so a marker hiding inside a bad header is not lost. The replay is
// shorter than a header and cannot overrun again.
func (d *Deframer) overrun() {
	d.stats.Resyncs++
	d.stats.Discarded++
	var pending [proto.HeaderLen - 1]byte
	k := copy(pending[:], d.buf[1:d.n])
	d.n, d.want = 0, 0
	for _, b := range pending[:k] {
		if d.n == 0 {
			d.hunt(b)
			continue
		}
		d.buf[d.n] = b
		d.n++
	}
}

// Reset discards any partial frame.
func (d *Deframer) Reset() {
	d.n, d.want, d.garbage = 0, 0, 0
}

// Buffered reports how many bytes of a partial frame are held.
func (d *Deframer) Buffered() int { return d.n }

func (d *Deframer) Stats() Stats { return d.stats }
