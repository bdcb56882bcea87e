package xmodem

import "fmt"

// EventKind identifies a transfer lifecycle event.
type EventKind int

const (
	// EventWaiting is reported by the sender before it blocks on the
	// receiver's initial NAK.
	EventWaiting EventKind = iota + 1

	// EventStarted is reported once per transfer, when the handshake
	// completes.
	EventStarted

	// EventPacket is reported after each packet is acknowledged.
	EventPacket
)

// Progress is a single transfer lifecycle event.
// Passed to ProgressFunc during transfers.
type Progress struct {
	// Kind is the event type
	Kind EventKind

	// Packet is the sequence number carried by EventPacket. The sender
	// reports the number of the packet just acknowledged; the receiver
	// reports the number it expects next.
	Packet byte
}

func (p Progress) String() string {
	switch p.Kind {
	case EventWaiting:
		return "Waiting"
	case EventStarted:
		return "Started"
	case EventPacket:
		return fmt.Sprintf("Packet(%d)", p.Packet)
	default:
		return fmt.Sprintf("Progress(%d)", int(p.Kind))
	}
}

// ProgressFunc is called synchronously, on the transferring goroutine, before
// the operation that triggered the event returns. Implementations must return
// quickly: a slow callback stalls the transfer and can trip the peer's
// timeouts.
//
// Example:
//
//	xmodem.Send(ctx, file, port,
//	    xmodem.WithProgress(func(p xmodem.Progress) {
//	        fmt.Println("progress:", p)
//	    }),
//	)
type ProgressFunc func(Progress)

// NoProgress is the default ProgressFunc. It ignores every event.
func NoProgress(Progress) {}

// ChannelProgress returns a ProgressFunc that forwards events to ch, for
// callers that prefer to observe the transfer from another goroutine.
// Delivery blocks while ch is full, so ch should be buffered and drained.
func ChannelProgress(ch chan<- Progress) ProgressFunc {
	return func(p Progress) {
		ch <- p
	}
}

// Logger is an optional logging interface that can be provided to the engine.
// This allows integration with any logging framework.
//
// Example with standard log package:
//
//	type StdLogger struct{}
//	func (l *StdLogger) Debug(msg string, kv ...interface{}) { log.Println(msg, kv) }
//	func (l *StdLogger) Info(msg string, kv ...interface{})  { log.Println(msg, kv) }
//	func (l *StdLogger) Error(msg string, kv ...interface{}) { log.Println(msg, kv) }
//
//	x := xmodem.New(port, xmodem.WithLogger(&StdLogger{}))
type Logger interface {
	// Debug logs a debug message with optional key-value pairs
	Debug(msg string, keysAndValues ...interface{})

	// Info logs an info message with optional key-value pairs
	Info(msg string, keysAndValues ...interface{})

	// Error logs an error message with optional key-value pairs
	Error(msg string, keysAndValues ...interface{})
}
