package protocol

import "fmt"

// Control bytes.
const (
	// SOH marks the start of a data packet (0x01)
	SOH = 0x01

	// EOT marks the end of transmission (0x04)
	EOT = 0x04

	// ACK acknowledges a packet or the final EOT (0x06)
	ACK = 0x06

	// NAK requests transmission start or rejects a packet (0x15)
	NAK = 0x15

	// CAN cancels the transfer (0x18)
	CAN = 0x18
)

// Packet layout constants.
const (
	// PacketSize is the fixed payload size of a data packet
	PacketSize = 128

	// HeaderSize is SOH(1) + SEQ(1) + ~SEQ(1)
	HeaderSize = 3

	// FrameSize is the size of a complete packet on the wire:
	// SOH(1) + SEQ(1) + ~SEQ(1) + DATA(128) + CHECKSUM(1)
	FrameSize = HeaderSize + PacketSize + 1

	// InitialSequence is the sequence number of the first packet
	InitialSequence = 1
)

// PadByte fills the unused tail of the final packet.
const PadByte = 0x00

// ControlName returns a human-readable name for a control byte.
func ControlName(b byte) string {
	switch b {
	case SOH:
		return "SOH"
	case EOT:
		return "EOT"
	case ACK:
		return "ACK"
	case NAK:
		return "NAK"
	case CAN:
		return "CAN"
	default:
		return fmt.Sprintf("0x%02X", b)
	}
}
