//go:build !tinygo

package hal

import (
	"context"
	"fmt"
	"io"
	"time"

	"hwgauge/render"
)

// HeadlessConfig controls the no-window host runner.
type HeadlessConfig struct {
	Hz    int
	Ticks uint64
	// DumpEvery writes the panel as text to Dump every N runner ticks.
	DumpEvery uint64
	Dump      io.Writer
}

// RunHeadless drives step without opening a window.
func RunHeadless(ctx context.Context, h *Host, step func() error, cfg HeadlessConfig) error {
	if cfg.Hz <= 0 {
		cfg.Hz = 60
	}

	d := time.Second / time.Duration(cfg.Hz)
	if d <= 0 {
		return fmt.Errorf("invalid headless hz: %d", cfg.Hz)
	}
	t := time.NewTicker(d)
	defer t.Stop()

	var (
		tick uint64
		fb   render.FrameBuffer
		seen uint64
	)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-t.C:
			h.t.step(now)
			if step != nil {
				if err := step(); err != nil {
					return err
				}
			}
			if h.RestartRequested() {
				return ErrRestart
			}
			tick++
			if cfg.Dump != nil && cfg.DumpEvery > 0 && tick%cfg.DumpEvery == 0 {
				if n := h.Snapshot(&fb); n != seen {
					seen = n
					fmt.Fprint(cfg.Dump, ASCII(&fb))
				}
			}
			if cfg.Ticks > 0 && tick >= cfg.Ticks {
				return nil
			}
		}
	}
}
