package xmodem

import (
	"fmt"

	"github.com/moffa90/go-xmodem/protocol"
)

// PacketSizeError indicates a packet buffer of the wrong size was passed to
// ReadPacket or WritePacket. No bytes are exchanged with the peer.
type PacketSizeError struct {
	Operation string
	Size      int
}

func (e *PacketSizeError) Error() string {
	return fmt.Sprintf("%s: invalid packet buffer length %d, expected %d",
		e.Operation, e.Size, protocol.PacketSize)
}

// Unwrap reports the failure kind, protocol.ErrUnexpectedEOF.
func (e *PacketSizeError) Unwrap() error {
	return protocol.ErrUnexpectedEOF
}

// SequenceError indicates that a packet header carried the wrong sequence
// number or complement.
type SequenceError struct {
	// Field is "sequence" or "complement"
	Field    string
	Expected byte
	Actual   byte
}

func (e *SequenceError) Error() string {
	return fmt.Sprintf("invalid packet %s: expected 0x%02X, got 0x%02X",
		e.Field, e.Expected, e.Actual)
}

// Unwrap reports the failure kind, protocol.ErrInvalidData.
func (e *SequenceError) Unwrap() error {
	return protocol.ErrInvalidData
}

// RetriesExhaustedError indicates that one packet was rejected on every
// attempt. It matches protocol.ErrBrokenPipe; the last rejection is kept in
// Last but deliberately not unwrapped, so the error is not retriable.
type RetriesExhaustedError struct {
	Operation string
	Sequence  byte
	Attempts  int
	Last      error
}

func (e *RetriesExhaustedError) Error() string {
	msg := fmt.Sprintf("%s: packet %d failed after %d attempts: %v",
		e.Operation, e.Sequence, e.Attempts, protocol.ErrBrokenPipe)
	if e.Last != nil {
		msg += fmt.Sprintf(" (last error: %v)", e.Last)
	}
	return msg
}

// Unwrap reports the failure kind, protocol.ErrBrokenPipe.
func (e *RetriesExhaustedError) Unwrap() error {
	return protocol.ErrBrokenPipe
}
