//go:build !tinygo && !cgo && !windows && !darwin

package hal

import "errors"

func RunWindow(_ *Host, _ func() error, _ int) error {
	return errors.New("window mode requires cgo (build/run with CGO_ENABLED=1), or use --headless")
}
