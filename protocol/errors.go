package protocol

import (
	"errors"
	"fmt"
	"io"
)

// Failure kinds. Every error produced by the engine matches exactly one of
// these with errors.Is, except errors from the underlying stream, which are
// passed through unchanged.
var (
	// ErrInterrupted is the only retriable kind: the peer rejected a packet
	// (NAK) or the local checksum did not match.
	ErrInterrupted = errors.New("interrupted")

	// ErrInvalidData reports a protocol violation: bad marker, bad sequence
	// or complement, or an unexpected reply byte.
	ErrInvalidData = errors.New("invalid data")

	// ErrAborted reports that the peer sent CAN.
	ErrAborted = errors.New("connection aborted")

	// ErrBrokenPipe reports that the retry budget for a packet was exhausted
	// or the stream stopped accepting bytes.
	ErrBrokenPipe = errors.New("broken pipe")

	// ErrUnexpectedEOF reports a short read inside a packet or a packet
	// buffer of the wrong size.
	ErrUnexpectedEOF = io.ErrUnexpectedEOF
)

// ProtocolError describes a failed protocol step.
type ProtocolError struct {
	// Operation is the step that failed, e.g. "read packet"
	Operation string

	// Kind is one of the Err* sentinels above
	Kind error

	// Reason is a short description of what was observed
	Reason string
}

func (e *ProtocolError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s failed: %v", e.Operation, e.Kind)
	}
	return fmt.Sprintf("%s failed: %v: %s", e.Operation, e.Kind, e.Reason)
}

// Unwrap returns the failure kind so errors.Is matches the sentinels.
func (e *ProtocolError) Unwrap() error {
	return e.Kind
}

// IsProtocolError returns true if err is or wraps a ProtocolError.
func IsProtocolError(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}

// IsRetriable reports whether the same packet may be attempted again.
func IsRetriable(err error) bool {
	return errors.Is(err, ErrInterrupted)
}

// KindName returns a short name for the failure kind of err, or "" if err
// does not match any kind.
func KindName(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInterrupted):
		return "interrupted"
	case errors.Is(err, ErrInvalidData):
		return "invalid data"
	case errors.Is(err, ErrAborted):
		return "aborted"
	case errors.Is(err, ErrBrokenPipe):
		return "broken pipe"
	case errors.Is(err, ErrUnexpectedEOF):
		return "unexpected end"
	default:
		return ""
	}
}
