// Package mockport provides in-memory stand-ins for a serial line, used by
// tests and examples in place of real hardware.
package mockport

import (
	"bytes"
	"io"
	"sync"
)

// End is one side of an in-memory duplex link created by Pipe. Writes block
// until the other side reads them, like a line with no buffering.
type End struct {
	r *io.PipeReader
	w *io.PipeWriter
}

// Pipe returns the two connected ends of a duplex link.
func Pipe() (*End, *End) {
	ar, bw := io.Pipe()
	br, aw := io.Pipe()
	return &End{r: ar, w: aw}, &End{r: br, w: bw}
}

func (e *End) Read(p []byte) (int, error) {
	return e.r.Read(p)
}

func (e *End) Write(p []byte) (int, error) {
	return e.w.Write(p)
}

// Close closes both directions. The peer's pending and future reads return
// io.EOF; its writes fail with io.ErrClosedPipe.
func (e *End) Close() error {
	werr := e.w.Close()
	rerr := e.r.Close()
	if werr != nil {
		return werr
	}
	return rerr
}

// Device is a scripted peer: reads are served from bytes queued with Feed,
// and everything written is recorded. Once the script is exhausted, Read
// returns io.EOF.
//
// Device is safe for concurrent use.
type Device struct {
	mu       sync.Mutex
	input    bytes.Buffer
	output   bytes.Buffer
	readErr  error
	writeErr error
	flushes  int
	onWrite  func(p []byte)
}

// NewDevice creates a Device whose script starts with the given chunks.
func NewDevice(script ...[]byte) *Device {
	d := &Device{}
	d.Feed(script...)
	return d
}

// Feed appends chunks to the read script.
func (d *Device) Feed(chunks ...[]byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, c := range chunks {
		d.input.Write(c)
	}
}

func (d *Device) Read(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.readErr != nil {
		return 0, d.readErr
	}
	if d.input.Len() == 0 {
		return 0, io.EOF
	}
	return d.input.Read(p)
}

func (d *Device) Write(p []byte) (int, error) {
	d.mu.Lock()
	if d.writeErr != nil {
		err := d.writeErr
		d.mu.Unlock()
		return 0, err
	}
	n, _ := d.output.Write(p)
	hook := d.onWrite
	d.mu.Unlock()

	if hook != nil {
		hook(p)
	}
	return n, nil
}

// Flush counts flushes so tests can assert on them.
func (d *Device) Flush() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.flushes++
	return nil
}

// Written returns a copy of every byte written so far.
func (d *Device) Written() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]byte(nil), d.output.Bytes()...)
}

// Flushes returns the number of Flush calls.
func (d *Device) Flushes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.flushes
}

// Remaining returns the number of scripted bytes not yet read.
func (d *Device) Remaining() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.input.Len()
}

// OnWrite registers a hook called after every successful Write, outside the
// device lock, so the hook may Feed a reply.
func (d *Device) OnWrite(fn func(p []byte)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onWrite = fn
}

// SetReadError makes every subsequent Read fail with err.
func (d *Device) SetReadError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.readErr = err
}

// SetWriteError makes every subsequent Write fail with err.
func (d *Device) SetWriteError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writeErr = err
}

// Reset clears the script, the recorded output and any injected errors.
func (d *Device) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.input.Reset()
	d.output.Reset()
	d.readErr = nil
	d.writeErr = nil
	d.flushes = 0
	d.onWrite = nil
}
