// Package protocol implements the XMODEM wire format (128-byte packets,
// 8-bit additive checksum).
//
// This package provides the control bytes, packet encoder/decoder and the
// failure kinds shared by the engine. It performs no I/O.
//
// # Protocol Overview
//
// A data packet on the wire is:
//
//	[SOH][SEQ][255-SEQ][DATA(128)][CHECKSUM]
//
// Where:
//   - SOH = Start of Header (0x01)
//   - SEQ = sequence number, starting at 1 and wrapping 255 -> 0
//   - CHECKSUM = sum of the 128 data bytes modulo 256
//
// End of transmission is signalled with EOT (0x04). Replies are single
// control bytes: ACK (0x06), NAK (0x15), or CAN (0x18) to abort.
//
// # Encoding and Decoding
//
//	frame, err := protocol.EncodePacket(seq, data)
//	pkt, err := protocol.DecodePacket(frame)
//
// # Error Handling
//
// Failures are classified by kind. Use errors.Is against the sentinels:
//
//	if errors.Is(err, protocol.ErrInterrupted) {
//	    // retriable: NAK'd or checksum mismatch
//	}
//
// Only ErrInterrupted is retriable; IsRetriable reports that directly.
package protocol
