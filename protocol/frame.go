package protocol

import (
	"fmt"
)

// Packet is one decoded data packet.
type Packet struct {
	// Sequence is the wrapping packet number
	Sequence byte

	// Payload is always exactly PacketSize bytes
	Payload [PacketSize]byte
}

// EncodePacket constructs a data packet frame.
// Payloads shorter than PacketSize are padded with PadByte.
//
// Frame structure:
//
//	[SOH][SEQ][255-SEQ][DATA(128)][CHECKSUM]
func EncodePacket(seq byte, payload []byte) ([]byte, error) {
	if len(payload) > PacketSize {
		return nil, fmt.Errorf("payload length %d exceeds packet size %d", len(payload), PacketSize)
	}

	frame := make([]byte, FrameSize)
	frame[0] = SOH
	frame[1] = seq
	frame[2] = Complement(seq)
	data := frame[HeaderSize : HeaderSize+PacketSize]
	n := copy(data, payload)
	for i := n; i < PacketSize; i++ {
		data[i] = PadByte
	}
	frame[FrameSize-1] = Checksum(frame[HeaderSize : HeaderSize+PacketSize])

	return frame, nil
}

// DecodePacket validates a complete packet frame and extracts its contents.
// A checksum mismatch is reported as ErrInterrupted so the caller can NAK
// and wait for a resend; every other defect is ErrInvalidData.
func DecodePacket(frame []byte) (*Packet, error) {
	if len(frame) != FrameSize {
		return nil, &ProtocolError{
			Operation: "decode packet",
			Kind:      ErrUnexpectedEOF,
			Reason:    fmt.Sprintf("got %d bytes, expected %d", len(frame), FrameSize),
		}
	}

	if frame[0] != SOH {
		return nil, &ProtocolError{
			Operation: "decode packet",
			Kind:      ErrInvalidData,
			Reason:    fmt.Sprintf("expected SOH, got %s", ControlName(frame[0])),
		}
	}

	if frame[2] != Complement(frame[1]) {
		return nil, &ProtocolError{
			Operation: "decode packet",
			Kind:      ErrInvalidData,
			Reason:    fmt.Sprintf("invalid 1s complement 0x%02X for sequence 0x%02X", frame[2], frame[1]),
		}
	}

	pkt := &Packet{Sequence: frame[1]}
	copy(pkt.Payload[:], frame[HeaderSize:HeaderSize+PacketSize])

	want := Checksum(pkt.Payload[:])
	if got := frame[FrameSize-1]; got != want {
		return nil, &ProtocolError{
			Operation: "decode packet",
			Kind:      ErrInterrupted,
			Reason:    fmt.Sprintf("checksum mismatch: got 0x%02X, expected 0x%02X", got, want),
		}
	}

	return pkt, nil
}
