package hostlink

import (
	"context"
	"time"

	"hwgauge/internal/errors"
	"hwgauge/proto"
	"hwgauge/transport"
)

// pollInterval bounds each Read so the handshake notices ctx and its
// deadline promptly.
const pollInterval = 50 * time.Millisecond

// Handshake sends a Heartbeat carrying session and waits for the gauge to
// echo it. A reply framed with another protocol version fails with
// ErrIncompatible; silence fails with ErrHandshake. Telemetry must not be
// sent on a port until Handshake succeeds.
func Handshake(ctx context.Context, p Port, session uint32, timeout time.Duration) error {
	errs := errors.New()

	if err := transport.NewSender(p).Send(&proto.Heartbeat{Session: session}); err != nil {
		return errs.Wrap(errors.ErrSend, err).WithMessage("send heartbeat")
	}
	if err := p.SetReadTimeout(pollInterval); err != nil {
		return errs.Wrap(errors.ErrHandshake, err)
	}

	var (
		d   transport.Deframer
		dec proto.Decoder
		buf [64]byte
	)
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := p.Read(buf[:])
		if err != nil {
			return errs.Wrap(errors.ErrHandshake, err)
		}
		for _, b := range buf[:n] {
			frame, ev := d.PushByte(b)
			if ev != transport.EventFrame {
				continue
			}
			msg, err := dec.Decode(frame)
			if de, ok := err.(proto.DecodeError); ok && de.Legacy() {
				return errs.Wrap(errors.ErrIncompatible, err)
			}
			if err != nil {
				continue
			}
			if hb, ok := msg.(*proto.Heartbeat); ok && hb.Session == session {
				return nil
			}
		}
	}
	return errs.WithMessage(errors.ErrHandshake, "no heartbeat echo").WithData(timeout)
}
