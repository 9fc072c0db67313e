package transport

import (
	"errors"
	"io"

	"hwgauge/proto"
)

// ErrStalled is returned when a writer keeps accepting zero bytes.
var ErrStalled = errors.New("transport: write stalled")

const maxZeroWrites = 8

// WriteFrame writes frame in full, retrying partial writes.
func WriteFrame(w io.Writer, frame []byte) error {
	zero := 0
	for len(frame) > 0 {
		n, err := w.Write(frame)
		if n > 0 {
			frame = frame[n:]
			zero = 0
		}
		if err != nil {
			return err
		}
		if n == 0 {
			zero++
			if zero >= maxZeroWrites {
				return ErrStalled
			}
		}
	}
	return nil
}

// Sender encodes messages into a fixed buffer and writes them as whole frames.
type Sender struct {
	w   io.Writer
	buf [proto.MaxFrame]byte
}

func NewSender(w io.Writer) *Sender {
	return &Sender{w: w}
}

// Send encodes m and writes it. Encoding errors are returned before any
// byte reaches the writer.
func (s *Sender) Send(m proto.Message) error {
	frame, err := proto.AppendFrame(s.buf[:0], m)
	if err != nil {
		return err
	}
	return WriteFrame(s.w, frame)
}
