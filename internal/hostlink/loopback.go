package hostlink

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"hwgauge/internal/errors"
)

// LoopbackPort is one end of an in-memory serial link.
type LoopbackPort struct {
	rx      *pipeBuffer
	tx      *pipeBuffer
	timeout atomic.Int64
}

// Loopback returns two connected ends. Bytes written to one are read from
// the other. Reads block until data arrives unless a timeout is set.
func Loopback() (*LoopbackPort, *LoopbackPort) {
	ab := newPipeBuffer()
	ba := newPipeBuffer()
	a := &LoopbackPort{rx: ba, tx: ab}
	b := &LoopbackPort{rx: ab, tx: ba}
	a.timeout.Store(-1)
	b.timeout.Store(-1)
	return a, b
}

func (p *LoopbackPort) Read(b []byte) (int, error) {
	return p.rx.read(b, time.Duration(p.timeout.Load()))
}

func (p *LoopbackPort) Write(b []byte) (int, error) { return p.tx.write(b) }

// SetReadTimeout sets how long Read waits; negative waits forever.
func (p *LoopbackPort) SetReadTimeout(t time.Duration) error {
	p.timeout.Store(int64(t))
	return nil
}

// Close shuts both directions. The peer reads any buffered bytes, then EOF.
func (p *LoopbackPort) Close() error {
	p.rx.close()
	p.tx.close()
	return nil
}

type pipeBuffer struct {
	mu     sync.Mutex
	data   []byte
	closed bool
	signal chan struct{}
}

func newPipeBuffer() *pipeBuffer {
	return &pipeBuffer{signal: make(chan struct{}, 1)}
}

func (b *pipeBuffer) notify() {
	select {
	case b.signal <- struct{}{}:
	default:
	}
}

func (b *pipeBuffer) write(p []byte) (int, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return 0, io.ErrClosedPipe
	}
	b.data = append(b.data, p...)
	b.mu.Unlock()
	b.notify()
	return len(p), nil
}

func (b *pipeBuffer) read(p []byte, timeout time.Duration) (int, error) {
	var expired <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	}
	for {
		b.mu.Lock()
		if len(b.data) > 0 {
			n := copy(p, b.data)
			b.data = b.data[n:]
			b.mu.Unlock()
			return n, nil
		}
		closed := b.closed
		b.mu.Unlock()
		if closed {
			return 0, io.EOF
		}
		if timeout == 0 {
			return 0, nil
		}
		select {
		case <-b.signal:
		case <-expired:
			return 0, nil
		}
	}
}

func (b *pipeBuffer) close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.notify()
}

// LoopbackLink is an in-memory link that survives reconnects: every Dial
// opens a fresh Loopback pair, and the link's own Read and Write follow
// the newest device end. It lets the emulator stay attached while the
// daemon drops and redials sessions.
type LoopbackLink struct {
	mu      sync.Mutex
	dev     *LoopbackPort
	changed chan struct{}
	done    chan struct{}
	once    sync.Once
}

func NewLoopbackLink() *LoopbackLink {
	return &LoopbackLink{
		changed: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Dial is a Dialer returning the host end of a new session.
func (l *LoopbackLink) Dial(ctx context.Context) (Port, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	select {
	case <-l.done:
		return nil, "", io.ErrClosedPipe
	default:
	}
	host, dev := Loopback()

	l.mu.Lock()
	old := l.dev
	l.dev = dev
	close(l.changed)
	l.changed = make(chan struct{})
	l.mu.Unlock()

	if old != nil {
		old.Close()
	}
	return host, "loopback", nil
}

func (l *LoopbackLink) current() (*LoopbackPort, <-chan struct{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dev, l.changed
}

// Read blocks until a session delivers bytes. The end of one session is
// not the end of the link; only Close is.
func (l *LoopbackLink) Read(p []byte) (int, error) {
	for {
		dev, changed := l.current()
		if dev != nil {
			n, err := dev.Read(p)
			if n > 0 || !errors.Is(err, io.EOF) {
				return n, err
			}
		}
		select {
		case <-changed:
		case <-l.done:
			return 0, io.EOF
		}
	}
}

// Write goes to the current session. Without one the bytes are dropped.
func (l *LoopbackLink) Write(p []byte) (int, error) {
	dev, _ := l.current()
	if dev == nil {
		return 0, io.ErrClosedPipe
	}
	return dev.Write(p)
}

func (l *LoopbackLink) Close() error {
	l.once.Do(func() { close(l.done) })
	dev, _ := l.current()
	if dev != nil {
		dev.Close()
	}
	return nil
}
