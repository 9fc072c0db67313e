//go:build !tinygo

package hal

import (
	"io"
	"os"
	"sync"
)

type hostSerial struct {
	mu sync.Mutex
	r  io.Reader
	w  io.Writer
}

// StdioSerial reads frames from stdin and writes replies to stdout.
func StdioSerial() Serial {
	return &hostSerial{r: os.Stdin, w: os.Stdout}
}

func (s *hostSerial) Read(p []byte) (int, error) {
	if s.r == nil {
		return 0, ErrNotImplemented
	}
	return s.r.Read(p)
}

func (s *hostSerial) Write(p []byte) (int, error) {
	if s.w == nil {
		return 0, ErrNotImplemented
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
