package xmodem

import (
	"errors"
	"io"
	"syscall"
)

// flusher is implemented by streams that buffer writes.
type flusher interface {
	Flush() error
}

// flush flushes w if it buffers writes.
func flush(w io.Writer) error {
	if f, ok := w.(flusher); ok {
		return f.Flush()
	}
	return nil
}

// isInterrupted reports whether a stream error only means "try again".
func isInterrupted(err error) bool {
	return errors.Is(err, syscall.EINTR)
}

// readFull reads from r until buf is full, r reports end of data (a
// zero-length read or io.EOF), or r fails with an error that is not an
// interruption. Interrupted reads are retried.
//
// Returns the number of bytes placed into buf. A short count with a nil
// error means end of stream.
func readFull(r io.Reader, buf []byte) (int, error) {
	read := 0
	for read < len(buf) {
		n, err := r.Read(buf[read:])
		read += n
		if err != nil {
			if isInterrupted(err) {
				continue
			}
			if errors.Is(err, io.EOF) {
				break
			}
			return read, err
		}
		if n == 0 {
			break
		}
	}
	return read, nil
}

// writeFull writes buf to w, retrying interrupted writes, and stops early if
// w accepts zero bytes. w is flushed once all bytes have been handed over.
//
// Returns the number of bytes written.
func writeFull(w io.Writer, buf []byte) (int, error) {
	written := 0
	for written < len(buf) {
		n, err := w.Write(buf[written:])
		written += n
		if err != nil {
			if isInterrupted(err) {
				continue
			}
			return written, err
		}
		if n == 0 {
			break
		}
	}

	if err := flush(w); err != nil {
		return written, err
	}
	return written, nil
}
