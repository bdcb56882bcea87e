package protocol

// Checksum computes the 8-bit additive checksum of a packet payload.
// The sum wraps modulo 256.
func Checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return sum
}

// Complement returns the one's complement of a sequence number (255 - seq),
// sent after the sequence byte so the receiver can validate the header.
func Complement(seq byte) byte {
	return 0xFF - seq
}

// NextSequence advances a sequence number, wrapping 255 to 0.
func NextSequence(seq byte) byte {
	return seq + 1
}
