package xmodem

import (
	"io"

	"github.com/moffa90/go-xmodem/protocol"
)

// Reader exposes the receiving side of an Xmodem as an io.Reader, so a
// transfer can be consumed with io.Copy like any other stream. One decoded
// packet is buffered between Read calls. Read returns io.EOF once the sender
// ends the transmission.
type Reader struct {
	x   *Xmodem
	buf [protocol.PacketSize]byte
	off int
	n   int
	err error
}

// NewReader returns a Reader that receives packets through x, applying the
// same per-packet retry policy as Receive.
//
// Example:
//
//	r := xmodem.NewReader(xmodem.New(port))
//	_, err := io.Copy(file, r)
func NewReader(x *Xmodem) *Reader {
	return &Reader{x: x}
}

func (r *Reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	for r.off == r.n {
		if r.err != nil {
			return 0, r.err
		}

		n, err := r.x.withRetries("read packet", func() (int, error) {
			return r.x.ReadPacket(r.buf[:])
		})
		if err != nil {
			r.err = err
			return 0, err
		}
		if n == 0 {
			r.err = io.EOF
			return 0, io.EOF
		}
		r.off, r.n = 0, n
	}

	n := copy(p, r.buf[r.off:r.n])
	r.off += n
	return n, nil
}

// Writer exposes the sending side of an Xmodem as an io.WriteCloser.
// Written bytes are collected into 128-byte packets; Close pads and sends the
// final partial packet and ends the transmission. Close must be called.
type Writer struct {
	x       *Xmodem
	buf     [protocol.PacketSize]byte
	n       int
	written int
	closed  bool
	err     error
}

// NewWriter returns a Writer that sends packets through x, applying the same
// per-packet retry policy as Send.
//
// Example:
//
//	w := xmodem.NewWriter(xmodem.New(port))
//	if _, err := io.Copy(w, file); err != nil {
//	    return err
//	}
//	return w.Close()
func NewWriter(x *Xmodem) *Writer {
	return &Writer{x: x}
}

// Write buffers p and sends every packet it completes. It returns the number
// of bytes accepted from p.
func (w *Writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, io.ErrClosedPipe
	}
	if w.err != nil {
		return 0, w.err
	}

	accepted := 0
	for len(p) > 0 {
		c := copy(w.buf[w.n:], p)
		w.n += c
		p = p[c:]
		accepted += c

		if w.n == protocol.PacketSize {
			if err := w.sendBuffered(); err != nil {
				return accepted, err
			}
		}
	}
	return accepted, nil
}

// Close sends any buffered bytes as a zero-padded packet, then ends the
// transmission. Closing an already closed Writer is a no-op.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if w.err != nil {
		return w.err
	}

	if w.n > 0 {
		clear(w.buf[w.n:])
		if err := w.sendBuffered(); err != nil {
			return err
		}
	}

	if _, err := w.x.WritePacket(nil); err != nil {
		w.err = err
		return err
	}
	return nil
}

// Written returns the number of payload bytes acknowledged by the receiver,
// excluding padding.
func (w *Writer) Written() int {
	return w.written
}

func (w *Writer) sendBuffered() error {
	if _, err := w.x.withRetries("write packet", func() (int, error) {
		return w.x.WritePacket(w.buf[:])
	}); err != nil {
		w.err = err
		return err
	}
	w.written += w.n
	w.n = 0
	return nil
}
