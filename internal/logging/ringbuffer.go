package logging

import (
	"os"
	"sync"
)

// RingBuffer is a thread-safe circular byte buffer holding the most
// recent log output. It implements io.Writer and silently overwrites
// the oldest data when full.
type RingBuffer struct {
	mu    sync.Mutex
	buf   []byte
	start int // index of oldest byte
	n     int // bytes stored
}

// NewRingBuffer creates a ring buffer with the given capacity in bytes.
func NewRingBuffer(size int) *RingBuffer {
	if size <= 0 {
		size = 1024 * 1024
	}
	return &RingBuffer{buf: make([]byte, size)}
}

// Write implements io.Writer. Never fails; old data is dropped as
// needed.
func (rb *RingBuffer) Write(p []byte) (int, error) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	written := len(p)
	size := len(rb.buf)
	if len(p) >= size {
		p = p[len(p)-size:]
	}

	end := (rb.start + rb.n) % size
	for _, b := range p {
		rb.buf[end] = b
		end = (end + 1) % size
		if rb.n < size {
			rb.n++
		} else {
			rb.start = (rb.start + 1) % size
		}
	}
	return written, nil
}

// Bytes returns the buffer contents in chronological order.
func (rb *RingBuffer) Bytes() []byte {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	out := make([]byte, rb.n)
	for i := 0; i < rb.n; i++ {
		out[i] = rb.buf[(rb.start+i)%len(rb.buf)]
	}
	return out
}

// DumpToFile writes the buffer contents to path in chronological order.
func (rb *RingBuffer) DumpToFile(path string) error {
	return os.WriteFile(path, rb.Bytes(), 0o644)
}
