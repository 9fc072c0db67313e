package kernel

import (
	"bytes"
	"errors"
	"io"
	"runtime"
	"sync"
	"testing"
	"time"
)

func TestRingPopEmpty(t *testing.T) {
	r := NewRing()

	_, ok := r.Pop()
	if ok {
		t.Fatalf("Pop() ok = true, want false")
	}
}

func TestRingPushFull(t *testing.T) {
	r := NewRing()

	for i := 0; i < RingSize; i++ {
		if ok := r.Push(byte(i)); !ok {
			t.Fatalf("Push() ok = false at slot %d, want true", i)
		}
	}
	if ok := r.Push(0); ok {
		t.Fatalf("Push() ok = true when full, want false")
	}
	if got := r.Overruns(); got != 1 {
		t.Fatalf("Overruns() = %d, want 1", got)
	}

	for i := 0; i < RingSize; i++ {
		b, ok := r.Pop()
		if !ok || b != byte(i) {
			t.Fatalf("Pop() = %d, %v at slot %d, want %d, true", b, ok, i, byte(i))
		}
	}
}

func TestRingWriteDropsOverflow(t *testing.T) {
	r := NewRing()
	r.Push(1)

	n := r.Write(make([]byte, RingSize))
	if n != RingSize-1 {
		t.Fatalf("Write() = %d, want %d", n, RingSize-1)
	}
	if got := r.Overruns(); got != 1 {
		t.Fatalf("Overruns() = %d, want 1", got)
	}
	if got := r.Available(); got != RingSize {
		t.Fatalf("Available() = %d, want %d", got, RingSize)
	}
}

func TestRingWraps(t *testing.T) {
	r := NewRing()
	var want, got []byte
	for round := 0; round < 5; round++ {
		chunk := bytes.Repeat([]byte{byte(round)}, RingSize/2+7)
		r.Write(chunk)
		want = append(want, chunk...)
		for {
			b, ok := r.Pop()
			if !ok {
				break
			}
			got = append(got, b)
		}
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("wrapped ring reordered bytes")
	}
}

func TestRingReadableEdge(t *testing.T) {
	r := NewRing()
	r.Push(1)
	r.Push(2)

	select {
	case <-r.Readable():
	default:
		t.Fatalf("Readable() did not fire on first byte")
	}
	select {
	case <-r.Readable():
		t.Fatalf("Readable() fired without an empty -> non-empty edge")
	default:
	}
}

func TestRingProducerConsumer(t *testing.T) {
	const total = 20_000
	r := NewRing()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < total; {
			if r.Push(byte(i)) {
				i++
			} else {
				runtime.Gosched()
			}
		}
	}()

	for i := 0; i < total; {
		b, ok := r.Pop()
		if !ok {
			runtime.Gosched()
			continue
		}
		if b != byte(i) {
			t.Fatalf("Pop() = %d at %d, want %d", b, i, byte(i))
		}
		i++
	}
	wg.Wait()
}

// A consumer that only wakes on Readable must still see every byte.
func TestRingReadableNeverStrandsData(t *testing.T) {
	const total = 20_000
	r := NewRing()

	go func() {
		for i := 0; i < total; i++ {
			for !r.Push(byte(i)) {
				runtime.Gosched()
			}
			if i%7 == 0 {
				runtime.Gosched()
			}
		}
	}()

	got := 0
	for got < total {
		for {
			if _, ok := r.Pop(); !ok {
				break
			}
			got++
		}
		if got == total {
			break
		}
		select {
		case <-r.Readable():
		case <-time.After(2 * time.Second):
			t.Fatalf("Readable() never fired with %d bytes left, Available() = %d", total-got, r.Available())
		}
	}
}

type stepReader struct {
	chunks [][]byte
}

func (s *stepReader) Read(p []byte) (int, error) {
	if len(s.chunks) == 0 {
		return 0, io.EOF
	}
	c := s.chunks[0]
	s.chunks = s.chunks[1:]
	return copy(p, c), nil
}

func TestRingPump(t *testing.T) {
	r := NewRing()
	src := &stepReader{chunks: [][]byte{{1, 2}, nil, {3}}}

	err := r.Pump(src, time.Microsecond)
	if !errors.Is(err, io.EOF) {
		t.Fatalf("Pump() = %v, want EOF", err)
	}
	if got := r.Available(); got != 3 {
		t.Fatalf("Available() = %d, want 3", got)
	}
}
