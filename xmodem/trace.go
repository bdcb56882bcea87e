package xmodem

import (
	"sync"

	"github.com/armon/circbuf"
)

// DefaultTraceSize is the capacity used by the ttywrite tool and examples for
// trace buffers.
const DefaultTraceSize = 1024

// CaptureBuffer records the first bytes written to it, up to a fixed
// capacity. It is append-only: once full, further writes are silently
// discarded and still report success, so a tracer can never fail a transfer.
//
// CaptureBuffer is safe for concurrent use.
type CaptureBuffer struct {
	mu       sync.Mutex
	data     []byte
	capacity int
}

// NewCaptureBuffer returns a CaptureBuffer holding at most capacity bytes.
func NewCaptureBuffer(capacity int) *CaptureBuffer {
	if capacity < 0 {
		capacity = 0
	}
	return &CaptureBuffer{
		data:     make([]byte, 0, capacity),
		capacity: capacity,
	}
}

func (c *CaptureBuffer) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	room := c.capacity - len(c.data)
	if room > len(p) {
		room = len(p)
	}
	c.data = append(c.data, p[:room]...)
	return len(p), nil
}

// Bytes returns a copy of the captured bytes.
func (c *CaptureBuffer) Bytes() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.data...)
}

// Len returns the number of captured bytes, the buffer's write offset.
func (c *CaptureBuffer) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

// Full reports whether the buffer has saturated.
func (c *CaptureBuffer) Full() bool {
	return c.Len() == c.capacity
}

// RingTracer keeps the most recent bytes written to it, which is usually what
// matters when diagnosing a transfer that failed midway.
//
// RingTracer is safe for concurrent use.
type RingTracer struct {
	mu  sync.Mutex
	buf *circbuf.Buffer
}

// NewRingTracer returns a RingTracer that retains the last size bytes.
func NewRingTracer(size int64) (*RingTracer, error) {
	buf, err := circbuf.NewBuffer(size)
	if err != nil {
		return nil, err
	}
	return &RingTracer{buf: buf}, nil
}

func (r *RingTracer) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.Write(p)
}

// Bytes returns a copy of the retained bytes, oldest first.
func (r *RingTracer) Bytes() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]byte(nil), r.buf.Bytes()...)
}

// TotalWritten returns the number of bytes ever written, including those
// that have been overwritten.
func (r *RingTracer) TotalWritten() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.TotalWritten()
}
