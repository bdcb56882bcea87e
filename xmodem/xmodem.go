package xmodem

import (
	"errors"
	"fmt"
	"io"

	"github.com/moffa90/go-xmodem/protocol"
)

// Xmodem is one end of an XMODEM transfer. The same type serves both roles:
// call ReadPacket to receive (download) or WritePacket to send (upload).
//
// An Xmodem owns its stream for the duration of one transfer in one
// direction. It is not safe for concurrent use, and it is not meant to be
// reused for a second transfer: the sequence counter never resets.
type Xmodem struct {
	inner   io.ReadWriter
	packet  byte
	started bool
	config  Config
}

// New creates an engine around a configured duplex stream, such as an opened
// serial port.
//
// Example:
//
//	port, _ := serial.Open("/dev/ttyUSB0", mode)
//	x := xmodem.New(port,
//	    xmodem.WithProgress(progressFunc),
//	    xmodem.WithTracer(trace),
//	)
func New(inner io.ReadWriter, opts ...Option) *Xmodem {
	if inner == nil {
		panic("stream cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Xmodem{
		inner:  inner,
		packet: protocol.InitialSequence,
		config: cfg,
	}
}

// Sequence returns the sequence number of the next packet.
func (x *Xmodem) Sequence() byte {
	return x.packet
}

// Started reports whether the initial handshake has completed.
func (x *Xmodem) Started() bool {
	return x.started
}

// ReadPacket reads (downloads) a single packet from the stream. buf must be
// exactly protocol.PacketSize bytes long. On success it returns 128, or 0
// when the sender ended the transmission.
//
// The progress callback is called with EventStarted when the first packet
// begins and with EventPacket after each packet is accepted.
//
// Errors match the protocol kinds:
//   - ErrUnexpectedEOF: len(buf) != 128 (no I/O is performed) or the stream
//     ended inside a packet
//   - ErrInvalidData: the first byte is not SOH or EOT, the sequence or its
//     complement is wrong, or the second EOT is missing; CAN is sent first
//   - ErrInterrupted: checksum mismatch; NAK has been sent and the sender is
//     expected to repeat the packet
//   - ErrAborted: the sender sent CAN
func (x *Xmodem) ReadPacket(buf []byte) (int, error) {
	const op = "read packet"

	if len(buf) != protocol.PacketSize {
		return 0, &PacketSizeError{Operation: op, Size: len(buf)}
	}

	if !x.started {
		if err := x.writeControl(protocol.NAK); err != nil {
			return 0, err
		}
	}

	marker, err := x.readByte(true)
	if err != nil {
		return 0, err
	}

	switch marker {
	case protocol.EOT:
		if err := x.receiveEOT(); err != nil {
			return 0, err
		}
		x.logDebug("end of transmission received", "next_packet", x.packet)
		return 0, nil
	case protocol.SOH:
		if !x.started {
			x.reportProgress(Progress{Kind: EventStarted})
			x.started = true
		}
	default:
		if err := x.writeControl(protocol.CAN); err != nil {
			return 0, err
		}
		return 0, &protocol.ProtocolError{
			Operation: op,
			Kind:      protocol.ErrInvalidData,
			Reason:    "expected SOH or EOT, got " + protocol.ControlName(marker),
		}
	}

	if err := x.expectHeader("sequence", x.packet); err != nil {
		return 0, err
	}
	if err := x.expectHeader("complement", protocol.Complement(x.packet)); err != nil {
		return 0, err
	}

	var payload [protocol.PacketSize]byte
	n, err := readFull(x.inner, payload[:])
	x.trace(payload[:n])
	if err != nil {
		return 0, err
	}
	if n != protocol.PacketSize {
		return 0, &protocol.ProtocolError{
			Operation: op,
			Kind:      protocol.ErrUnexpectedEOF,
			Reason:    fmt.Sprintf("short read: got %d of %d payload bytes", n, protocol.PacketSize),
		}
	}

	checksum, err := x.readByte(false)
	if err != nil {
		return 0, err
	}

	if want := protocol.Checksum(payload[:]); checksum != want {
		if err := x.writeControl(protocol.NAK); err != nil {
			return 0, err
		}
		x.logDebug("packet checksum mismatch",
			"packet", x.packet,
			"checksum", fmt.Sprintf("0x%02X", checksum),
			"expected", fmt.Sprintf("0x%02X", want),
		)
		return 0, &protocol.ProtocolError{
			Operation: op,
			Kind:      protocol.ErrInterrupted,
			Reason:    "invalid checksum",
		}
	}

	if err := x.writeControl(protocol.ACK); err != nil {
		return 0, err
	}
	copy(buf, payload[:])
	x.packet = protocol.NextSequence(x.packet)
	x.reportProgress(Progress{Kind: EventPacket, Packet: x.packet})

	return protocol.PacketSize, nil
}

// WritePacket sends (uploads) a single packet. buf must be exactly
// protocol.PacketSize bytes, or empty to end the transmission. Callers must
// finish every transfer with WritePacket(nil). On success it returns the
// number of payload bytes sent.
//
// The progress callback is called with EventWaiting before blocking on the
// receiver's initial NAK, EventStarted once it arrives, and EventPacket after
// each acknowledged packet.
//
// Errors match the protocol kinds:
//   - ErrUnexpectedEOF: len(buf) is neither 0 nor 128 (no I/O is performed)
//   - ErrInvalidData: the receiver did not start with NAK, answered the EOT
//     handshake incorrectly, or replied with something other than ACK/NAK
//   - ErrInterrupted: the receiver rejected the packet with NAK
//   - ErrAborted: the receiver sent CAN
func (x *Xmodem) WritePacket(buf []byte) (int, error) {
	const op = "write packet"

	if len(buf) != 0 && len(buf) != protocol.PacketSize {
		return 0, &PacketSizeError{Operation: op, Size: len(buf)}
	}

	if !x.started {
		x.reportProgress(Progress{Kind: EventWaiting})
		if err := x.expectOrCancel(op, protocol.NAK); err != nil {
			return 0, err
		}
		x.reportProgress(Progress{Kind: EventStarted})
		x.started = true
	}

	if len(buf) == 0 {
		if err := x.sendEOT(); err != nil {
			return 0, err
		}
		x.logDebug("end of transmission acknowledged", "next_packet", x.packet)
		return 0, nil
	}

	if err := x.writeByte(protocol.SOH); err != nil {
		return 0, err
	}
	if err := x.Flush(); err != nil {
		return 0, err
	}

	if err := x.writeByte(x.packet); err != nil {
		return 0, err
	}
	if err := x.writeByte(protocol.Complement(x.packet)); err != nil {
		return 0, err
	}

	n, err := writeFull(x.inner, buf)
	if err != nil {
		return 0, err
	}
	if n != len(buf) {
		return 0, &protocol.ProtocolError{
			Operation: op,
			Kind:      protocol.ErrBrokenPipe,
			Reason:    fmt.Sprintf("short write: %d of %d payload bytes", n, len(buf)),
		}
	}

	if err := x.writeControl(protocol.Checksum(buf)); err != nil {
		return 0, err
	}

	reply, err := x.readByte(true)
	if err != nil {
		return 0, err
	}

	switch reply {
	case protocol.ACK:
		x.reportProgress(Progress{Kind: EventPacket, Packet: x.packet})
		x.packet = protocol.NextSequence(x.packet)
		return protocol.PacketSize, nil
	case protocol.NAK:
		x.logDebug("packet rejected by receiver", "packet", x.packet)
		return 0, &protocol.ProtocolError{
			Operation: op,
			Kind:      protocol.ErrInterrupted,
			Reason:    "receiver rejected checksum",
		}
	default:
		if err := x.writeControl(protocol.CAN); err != nil {
			return 0, err
		}
		return 0, &protocol.ProtocolError{
			Operation: op,
			Kind:      protocol.ErrInvalidData,
			Reason:    "expected ACK or NAK, got " + protocol.ControlName(reply),
		}
	}
}

// Flush flushes the underlying stream if it buffers writes.
func (x *Xmodem) Flush() error {
	return flush(x.inner)
}

// Cancel tells the peer to abandon the transfer by sending CAN.
func (x *Xmodem) Cancel() error {
	x.logInfo("cancelling transfer", "packet", x.packet)
	return x.writeControl(protocol.CAN)
}

// receiveEOT completes the receiver side of the end-of-transmission
// handshake after the first EOT: NAK, second EOT, ACK.
func (x *Xmodem) receiveEOT() error {
	if err := x.writeControl(protocol.NAK); err != nil {
		return err
	}
	if err := x.expectOrCancel("read packet", protocol.EOT); err != nil {
		return err
	}
	return x.writeControl(protocol.ACK)
}

// sendEOT performs the sender side of the end-of-transmission handshake:
// EOT, NAK, EOT, ACK.
func (x *Xmodem) sendEOT() error {
	if err := x.writeControl(protocol.EOT); err != nil {
		return err
	}
	if err := x.expectOrCancel("write packet", protocol.NAK); err != nil {
		return err
	}
	if err := x.writeControl(protocol.EOT); err != nil {
		return err
	}
	return x.expectOrCancel("write packet", protocol.ACK)
}

// expectHeader reads one header byte and compares it to want. A mismatch
// cancels the transfer.
func (x *Xmodem) expectHeader(field string, want byte) error {
	got, err := x.readByte(want != protocol.CAN)
	if err != nil {
		return err
	}
	if got == want {
		return nil
	}
	return x.cancelWith(&SequenceError{Field: field, Expected: want, Actual: got})
}

// expectOrCancel reads one byte and compares it to want. CAN aborts unless
// CAN is what was expected. Any other mismatch sends CAN to the peer and
// fails with ErrInvalidData.
func (x *Xmodem) expectOrCancel(op string, want byte) error {
	got, err := x.readByte(want != protocol.CAN)
	if err != nil {
		return err
	}
	if got == want {
		return nil
	}
	return x.cancelWith(&protocol.ProtocolError{
		Operation: op,
		Kind:      protocol.ErrInvalidData,
		Reason:    fmt.Sprintf("expected %s, got %s", protocol.ControlName(want), protocol.ControlName(got)),
	})
}

// cancelWith sends CAN and returns cause, or both errors if CAN could not
// be sent.
func (x *Xmodem) cancelWith(cause error) error {
	if err := x.writeControl(protocol.CAN); err != nil {
		return errors.Join(cause, fmt.Errorf("send CAN: %w", err))
	}
	return cause
}

// readByte reads a single byte. With abortOnCAN set, a CAN byte fails with
// ErrAborted.
func (x *Xmodem) readByte(abortOnCAN bool) (byte, error) {
	var buf [1]byte
	n, err := readFull(x.inner, buf[:])
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, &protocol.ProtocolError{
			Operation: "read byte",
			Kind:      protocol.ErrUnexpectedEOF,
			Reason:    "stream ended",
		}
	}

	b := buf[0]
	x.trace(buf[:])

	if abortOnCAN && b == protocol.CAN {
		x.logInfo("transfer cancelled by peer", "packet", x.packet)
		return b, &protocol.ProtocolError{
			Operation: "read byte",
			Kind:      protocol.ErrAborted,
			Reason:    "received CAN",
		}
	}

	return b, nil
}

// writeByte writes a single byte without flushing.
func (x *Xmodem) writeByte(b byte) error {
	for {
		n, err := x.inner.Write([]byte{b})
		if err != nil {
			if isInterrupted(err) {
				continue
			}
			return err
		}
		if n == 0 {
			return &protocol.ProtocolError{
				Operation: "write byte",
				Kind:      protocol.ErrBrokenPipe,
				Reason:    "stream accepted no bytes",
			}
		}
		return nil
	}
}

// writeControl writes a byte the peer is waiting for and flushes it.
func (x *Xmodem) writeControl(b byte) error {
	if err := x.writeByte(b); err != nil {
		return err
	}
	return x.Flush()
}

// trace records raw bytes read from the stream if a tracer is configured.
func (x *Xmodem) trace(p []byte) {
	if x.config.Tracer != nil && len(p) > 0 {
		_, _ = x.config.Tracer.Write(p)
	}
}

// reportProgress calls the progress callback.
func (x *Xmodem) reportProgress(p Progress) {
	if x.config.Progress != nil {
		x.config.Progress(p)
	}
}

// logDebug logs a debug message if a logger is configured.
func (x *Xmodem) logDebug(msg string, keysAndValues ...interface{}) {
	if x.config.Logger != nil {
		x.config.Logger.Debug(msg, keysAndValues...)
	}
}

// logInfo logs an info message if a logger is configured.
func (x *Xmodem) logInfo(msg string, keysAndValues ...interface{}) {
	if x.config.Logger != nil {
		x.config.Logger.Info(msg, keysAndValues...)
	}
}

// logError logs an error message if a logger is configured.
func (x *Xmodem) logError(msg string, keysAndValues ...interface{}) {
	if x.config.Logger != nil {
		x.config.Logger.Error(msg, keysAndValues...)
	}
}
