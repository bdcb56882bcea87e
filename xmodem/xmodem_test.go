package xmodem

import (
	"bytes"
	"errors"
	"testing"

	"github.com/moffa90/go-xmodem/internal/mockport"
	"github.com/moffa90/go-xmodem/protocol"
)

// Mock logger for testing
type MockLogger struct {
	debugMsgs []string
	infoMsgs  []string
	errorMsgs []string
}

func (l *MockLogger) Debug(msg string, kv ...interface{}) {
	l.debugMsgs = append(l.debugMsgs, msg)
}

func (l *MockLogger) Info(msg string, kv ...interface{}) {
	l.infoMsgs = append(l.infoMsgs, msg)
}

func (l *MockLogger) Error(msg string, kv ...interface{}) {
	l.errorMsgs = append(l.errorMsgs, msg)
}

// Helper function to build a packet frame
func buildFrame(t *testing.T, seq byte, payload []byte) []byte {
	t.Helper()
	frame, err := protocol.EncodePacket(seq, payload)
	if err != nil {
		t.Fatalf("EncodePacket() error = %v", err)
	}
	return frame
}

// Helper function to corrupt the checksum of a frame
func corruptChecksum(frame []byte) []byte {
	f := append([]byte(nil), frame...)
	f[len(f)-1]++
	return f
}

// progressRecorder collects progress events
type progressRecorder struct {
	events []Progress
}

func (r *progressRecorder) record(p Progress) {
	r.events = append(r.events, p)
}

func (r *progressRecorder) strings() []string {
	out := make([]string, len(r.events))
	for i, p := range r.events {
		out[i] = p.String()
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func abcPayload() []byte {
	p := make([]byte, protocol.PacketSize)
	copy(p, []byte{0x41, 0x42, 0x43})
	return p
}

func TestNew(t *testing.T) {
	device := mockport.NewDevice()

	x := New(device)
	if x.Sequence() != 1 {
		t.Errorf("Sequence() = %d, want 1", x.Sequence())
	}
	if x.Started() {
		t.Error("Started() should be false before the handshake")
	}
	if x.config.Retries != DefaultRetries {
		t.Errorf("Retries = %d, want %d", x.config.Retries, DefaultRetries)
	}
	if x.config.Progress == nil {
		t.Error("Progress should default to NoProgress, not nil")
	}
}

func TestNewNilStreamPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("New(nil) should panic")
		}
	}()
	New(nil)
}

func TestReadPacket(t *testing.T) {
	device := mockport.NewDevice(buildFrame(t, 1, []byte{0x41, 0x42, 0x43}))
	rec := &progressRecorder{}
	x := New(device, WithProgress(rec.record))

	buf := make([]byte, protocol.PacketSize)
	n, err := x.ReadPacket(buf)
	if err != nil {
		t.Fatalf("ReadPacket() error = %v", err)
	}
	if n != protocol.PacketSize {
		t.Errorf("ReadPacket() = %d, want %d", n, protocol.PacketSize)
	}
	if !bytes.Equal(buf, abcPayload()) {
		t.Errorf("payload = % X", buf[:8])
	}
	if got := device.Written(); !bytes.Equal(got, []byte{protocol.NAK, protocol.ACK}) {
		t.Errorf("written = % X, want NAK ACK", got)
	}
	if x.Sequence() != 2 {
		t.Errorf("Sequence() = %d, want 2", x.Sequence())
	}
	if want := []string{"Started", "Packet(2)"}; !equalStrings(rec.strings(), want) {
		t.Errorf("progress = %v, want %v", rec.strings(), want)
	}
}

func TestReadPacketEndOfTransmission(t *testing.T) {
	device := mockport.NewDevice([]byte{protocol.EOT, protocol.EOT})
	x := New(device)

	n, err := x.ReadPacket(make([]byte, protocol.PacketSize))
	if err != nil {
		t.Fatalf("ReadPacket() error = %v", err)
	}
	if n != 0 {
		t.Errorf("ReadPacket() = %d, want 0", n)
	}

	want := []byte{protocol.NAK, protocol.NAK, protocol.ACK}
	if got := device.Written(); !bytes.Equal(got, want) {
		t.Errorf("written = % X, want % X", got, want)
	}
}

func TestReadPacketChecksumMismatch(t *testing.T) {
	device := mockport.NewDevice(corruptChecksum(buildFrame(t, 1, []byte{0x01})))
	x := New(device)

	_, err := x.ReadPacket(make([]byte, protocol.PacketSize))
	if !errors.Is(err, protocol.ErrInterrupted) {
		t.Fatalf("ReadPacket() error = %v, want ErrInterrupted", err)
	}
	if !protocol.IsRetriable(err) {
		t.Error("checksum mismatch should be retriable")
	}
	if got := device.Written(); !bytes.Equal(got, []byte{protocol.NAK, protocol.NAK}) {
		t.Errorf("written = % X, want NAK NAK", got)
	}
	if x.Sequence() != 1 {
		t.Errorf("Sequence() = %d, should not advance on rejected packet", x.Sequence())
	}
	if !x.Started() {
		t.Error("handshake should be marked started after SOH")
	}
}

func TestReadPacketErrors(t *testing.T) {
	valid := func() []byte { return buildFrame(t, 1, []byte{0x01}) }

	tests := []struct {
		name        string
		script      []byte
		wantErr     error
		wantWritten []byte
	}{
		{
			name:        "invalid marker",
			script:      []byte{0x55},
			wantErr:     protocol.ErrInvalidData,
			wantWritten: []byte{protocol.NAK, protocol.CAN},
		},
		{
			name: "wrong sequence",
			script: func() []byte {
				f := valid()
				f[1], f[2] = 2, 253
				return f
			}(),
			wantErr:     protocol.ErrInvalidData,
			wantWritten: []byte{protocol.NAK, protocol.CAN},
		},
		{
			name: "wrong complement",
			script: func() []byte {
				f := valid()
				f[2] = 0
				return f
			}(),
			wantErr:     protocol.ErrInvalidData,
			wantWritten: []byte{protocol.NAK, protocol.CAN},
		},
		{
			name:        "cancel instead of marker",
			script:      []byte{protocol.CAN},
			wantErr:     protocol.ErrAborted,
			wantWritten: []byte{protocol.NAK},
		},
		{
			name:        "cancel instead of sequence",
			script:      []byte{protocol.SOH, protocol.CAN},
			wantErr:     protocol.ErrAborted,
			wantWritten: []byte{protocol.NAK},
		},
		{
			name:        "cancel instead of second EOT",
			script:      []byte{protocol.EOT, protocol.CAN},
			wantErr:     protocol.ErrAborted,
			wantWritten: []byte{protocol.NAK, protocol.NAK},
		},
		{
			name:        "second EOT missing",
			script:      []byte{protocol.EOT, protocol.SOH},
			wantErr:     protocol.ErrInvalidData,
			wantWritten: []byte{protocol.NAK, protocol.NAK, protocol.CAN},
		},
		{
			name:        "short payload",
			script:      valid()[:protocol.HeaderSize+10],
			wantErr:     protocol.ErrUnexpectedEOF,
			wantWritten: []byte{protocol.NAK},
		},
		{
			name:        "stream ends before marker",
			script:      nil,
			wantErr:     protocol.ErrUnexpectedEOF,
			wantWritten: []byte{protocol.NAK},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			device := mockport.NewDevice(tt.script)
			x := New(device)

			n, err := x.ReadPacket(make([]byte, protocol.PacketSize))
			if n != 0 {
				t.Errorf("ReadPacket() = %d, want 0", n)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ReadPacket() error = %v, want %v", err, tt.wantErr)
			}
			if got := device.Written(); !bytes.Equal(got, tt.wantWritten) {
				t.Errorf("written = % X, want % X", got, tt.wantWritten)
			}
		})
	}
}

func TestReadPacketSequenceError(t *testing.T) {
	f := buildFrame(t, 9, nil)
	device := mockport.NewDevice(f)
	x := New(device)

	_, err := x.ReadPacket(make([]byte, protocol.PacketSize))

	var seqErr *SequenceError
	if !errors.As(err, &seqErr) {
		t.Fatalf("ReadPacket() error = %v, want *SequenceError", err)
	}
	if seqErr.Field != "sequence" || seqErr.Expected != 1 || seqErr.Actual != 9 {
		t.Errorf("SequenceError = %+v", seqErr)
	}
}

func TestReadPacketBufferSize(t *testing.T) {
	for _, size := range []int{0, 1, 127, 129, 256} {
		device := mockport.NewDevice([]byte{protocol.SOH})
		x := New(device)

		_, err := x.ReadPacket(make([]byte, size))

		var sizeErr *PacketSizeError
		if !errors.As(err, &sizeErr) || sizeErr.Size != size {
			t.Errorf("size %d: error = %v, want *PacketSizeError", size, err)
		}
		if len(device.Written()) != 0 || device.Remaining() != 1 {
			t.Errorf("size %d: stream I/O happened before the size check", size)
		}
	}
}

func TestWritePacket(t *testing.T) {
	device := mockport.NewDevice([]byte{protocol.NAK, protocol.ACK})
	rec := &progressRecorder{}
	x := New(device, WithProgress(rec.record))

	n, err := x.WritePacket(abcPayload())
	if err != nil {
		t.Fatalf("WritePacket() error = %v", err)
	}
	if n != protocol.PacketSize {
		t.Errorf("WritePacket() = %d, want %d", n, protocol.PacketSize)
	}

	written := device.Written()
	if !bytes.Equal(written, buildFrame(t, 1, []byte{0x41, 0x42, 0x43})) {
		t.Errorf("written frame = % X", written)
	}
	if written[1] != 1 || written[2] != 254 || written[131] != 0xC6 {
		t.Errorf("header/checksum = %d/%d/0x%02X, want 1/254/0xC6", written[1], written[2], written[131])
	}
	if x.Sequence() != 2 {
		t.Errorf("Sequence() = %d, want 2", x.Sequence())
	}
	if want := []string{"Waiting", "Started", "Packet(1)"}; !equalStrings(rec.strings(), want) {
		t.Errorf("progress = %v, want %v", rec.strings(), want)
	}
	if device.Flushes() == 0 {
		t.Error("WritePacket should flush the stream")
	}
}

func TestWritePacketEndOfTransmission(t *testing.T) {
	device := mockport.NewDevice([]byte{protocol.NAK, protocol.NAK, protocol.ACK})
	x := New(device)

	n, err := x.WritePacket(nil)
	if err != nil {
		t.Fatalf("WritePacket(nil) error = %v", err)
	}
	if n != 0 {
		t.Errorf("WritePacket(nil) = %d, want 0", n)
	}
	if got := device.Written(); !bytes.Equal(got, []byte{protocol.EOT, protocol.EOT}) {
		t.Errorf("written = % X, want EOT EOT", got)
	}
}

func TestWritePacketRejected(t *testing.T) {
	device := mockport.NewDevice([]byte{protocol.NAK, protocol.NAK})
	x := New(device)

	_, err := x.WritePacket(abcPayload())
	if !errors.Is(err, protocol.ErrInterrupted) {
		t.Fatalf("WritePacket() error = %v, want ErrInterrupted", err)
	}
	if x.Sequence() != 1 {
		t.Errorf("Sequence() = %d, should not advance on NAK", x.Sequence())
	}
}

func TestWritePacketErrors(t *testing.T) {
	frame := func() []byte { return buildFrame(t, 1, []byte{0x41, 0x42, 0x43}) }

	tests := []struct {
		name        string
		script      []byte
		payload     []byte
		wantErr     error
		wantWritten []byte
	}{
		{
			name:        "receiver does not start with NAK",
			script:      []byte{protocol.ACK},
			payload:     abcPayload(),
			wantErr:     protocol.ErrInvalidData,
			wantWritten: []byte{protocol.CAN},
		},
		{
			name:        "receiver cancels before start",
			script:      []byte{protocol.CAN},
			payload:     abcPayload(),
			wantErr:     protocol.ErrAborted,
			wantWritten: nil,
		},
		{
			name:        "receiver cancels packet",
			script:      []byte{protocol.NAK, protocol.CAN},
			payload:     abcPayload(),
			wantErr:     protocol.ErrAborted,
			wantWritten: frame(),
		},
		{
			name:        "unexpected reply",
			script:      []byte{protocol.NAK, 0x42},
			payload:     abcPayload(),
			wantErr:     protocol.ErrInvalidData,
			wantWritten: append(frame(), protocol.CAN),
		},
		{
			name:        "EOT answered with ACK instead of NAK",
			script:      []byte{protocol.NAK, protocol.ACK},
			payload:     nil,
			wantErr:     protocol.ErrInvalidData,
			wantWritten: []byte{protocol.EOT, protocol.CAN},
		},
		{
			name:        "EOT cancelled",
			script:      []byte{protocol.NAK, protocol.NAK, protocol.CAN},
			payload:     nil,
			wantErr:     protocol.ErrAborted,
			wantWritten: []byte{protocol.EOT, protocol.EOT},
		},
		{
			name:        "stream ends while waiting for reply",
			script:      []byte{protocol.NAK},
			payload:     abcPayload(),
			wantErr:     protocol.ErrUnexpectedEOF,
			wantWritten: frame(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			device := mockport.NewDevice(tt.script)
			x := New(device)

			_, err := x.WritePacket(tt.payload)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("WritePacket() error = %v, want %v", err, tt.wantErr)
			}
			if got := device.Written(); !bytes.Equal(got, tt.wantWritten) {
				t.Errorf("written = % X, want % X", got, tt.wantWritten)
			}
		})
	}
}

func TestWritePacketLength(t *testing.T) {
	for _, size := range []int{1, 3, 127, 129} {
		device := mockport.NewDevice([]byte{protocol.NAK})
		x := New(device)

		_, err := x.WritePacket(make([]byte, size))
		if !errors.Is(err, protocol.ErrUnexpectedEOF) {
			t.Errorf("size %d: error = %v, want ErrUnexpectedEOF", size, err)
		}
		if len(device.Written()) != 0 || device.Remaining() != 1 {
			t.Errorf("size %d: stream I/O happened before the length check", size)
		}
	}
}

func TestSequenceWraparound(t *testing.T) {
	var script []byte
	for i := 0; i < 300; i++ {
		seq := byte(i + 1)
		script = append(script, buildFrame(t, seq, []byte{seq})...)
	}

	device := mockport.NewDevice(script)
	x := New(device)
	buf := make([]byte, protocol.PacketSize)

	for i := 0; i < 300; i++ {
		if i == 255 && x.Sequence() != 0 {
			t.Fatalf("packet 256 should use sequence 0, got %d", x.Sequence())
		}
		if _, err := x.ReadPacket(buf); err != nil {
			t.Fatalf("packet %d: ReadPacket() error = %v", i+1, err)
		}
		if buf[0] != byte(i+1) {
			t.Fatalf("packet %d: payload[0] = %d", i+1, buf[0])
		}
	}

	if x.Sequence() != byte(301%256) {
		t.Errorf("Sequence() = %d, want %d", x.Sequence(), 301%256)
	}
}

func TestTracerRecordsRawBytes(t *testing.T) {
	script := append(buildFrame(t, 1, []byte{0x41}), protocol.EOT, protocol.EOT)
	device := mockport.NewDevice(script)
	trace := NewCaptureBuffer(DefaultTraceSize)
	x := New(device, WithTracer(trace))

	buf := make([]byte, protocol.PacketSize)
	if _, err := x.ReadPacket(buf); err != nil {
		t.Fatalf("ReadPacket() error = %v", err)
	}
	if _, err := x.ReadPacket(buf); err != nil {
		t.Fatalf("ReadPacket() error = %v", err)
	}

	if !bytes.Equal(trace.Bytes(), script) {
		t.Errorf("trace has %d bytes, want the %d bytes read", trace.Len(), len(script))
	}
}

func TestLogger(t *testing.T) {
	device := mockport.NewDevice([]byte{protocol.CAN})
	logger := &MockLogger{}
	x := New(device, WithLogger(logger))

	if _, err := x.ReadPacket(make([]byte, protocol.PacketSize)); err == nil {
		t.Fatal("expected error")
	}
	if len(logger.infoMsgs) == 0 {
		t.Error("cancellation by the peer should be logged")
	}
}

func TestCancel(t *testing.T) {
	device := mockport.NewDevice()
	x := New(device)

	if err := x.Cancel(); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if got := device.Written(); !bytes.Equal(got, []byte{protocol.CAN}) {
		t.Errorf("written = % X, want CAN", got)
	}
}

func TestWriteErrorPassesThrough(t *testing.T) {
	boom := errors.New("device unplugged")
	device := mockport.NewDevice()
	device.SetWriteError(boom)
	x := New(device)

	_, err := x.ReadPacket(make([]byte, protocol.PacketSize))
	if !errors.Is(err, boom) {
		t.Errorf("ReadPacket() error = %v, want %v", err, boom)
	}
	if protocol.IsProtocolError(err) {
		t.Error("stream errors should not be wrapped in ProtocolError")
	}
}
