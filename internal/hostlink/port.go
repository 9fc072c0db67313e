// Package hostlink connects the host daemon to a gauge: port detection,
// the Heartbeat handshake and the telemetry send loop.
package hostlink

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/denisbrodbeck/machineid"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"

	"hwgauge/internal/config"
	"hwgauge/internal/errors"
)

// Port is a serial connection. go.bug.st/serial ports satisfy it, as does
// the in-process Loopback.
type Port interface {
	io.ReadWriteCloser
	// SetReadTimeout bounds Read; a timed out Read returns 0, nil.
	SetReadTimeout(t time.Duration) error
}

// Dialer finds and opens a gauge, returning the port and its name.
type Dialer func(ctx context.Context) (Port, string, error)

type lister func() ([]*enumerator.PortDetails, error)

// SerialDialer opens cfg.Port when set, else the first USB port whose
// vendor and product id match.
func SerialDialer(cfg config.LinkConfig) Dialer {
	return serialDialer(cfg, enumerator.GetDetailedPortsList)
}

func serialDialer(cfg config.LinkConfig, list lister) Dialer {
	errs := errors.New()
	return func(ctx context.Context) (Port, string, error) {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}
		name := cfg.Port
		if name == "" {
			var err error
			if name, err = Detect(list, cfg.VID, cfg.PID); err != nil {
				return nil, "", err
			}
		}
		p, err := serial.Open(name, &serial.Mode{BaudRate: cfg.Baud})
		if err != nil {
			return nil, name, errs.Wrap(errors.ErrOpenPort, err).WithData(name)
		}
		// The CDC ACM firmware only transmits once DTR is asserted.
		if err := p.SetDTR(true); err != nil {
			p.Close()
			return nil, name, errs.Wrap(errors.ErrOpenPort, err).WithData(name)
		}
		return p, name, nil
	}
}

// Detect returns the first USB serial port reporting vid:pid.
func Detect(list lister, vid, pid int) (string, error) {
	errs := errors.New()
	ports, err := list()
	if err != nil {
		return "", errs.Wrap(errors.ErrPortNotFound, err)
	}
	wantVID := fmt.Sprintf("%04x", vid)
	wantPID := fmt.Sprintf("%04x", pid)
	for _, p := range ports {
		if p == nil || !p.IsUSB {
			continue
		}
		if strings.EqualFold(p.VID, wantVID) && strings.EqualFold(p.PID, wantPID) {
			return p.Name, nil
		}
	}
	return "", errs.WithData(errors.ErrPortNotFound, wantVID+":"+wantPID)
}

// UnknownHost is what HostID reports when the machine id cannot be read.
const UnknownHost = "unknown"

// HostID is a stable, app-scoped machine identifier that does not leak the
// raw machine id.
func HostID() string {
	id, err := machineid.ProtectedID("hwgauge")
	if err != nil || id == "" {
		return UnknownHost
	}
	if len(id) > 12 {
		id = id[:12]
	}
	return id
}
