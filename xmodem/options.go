package xmodem

import "io"

// DefaultRetries is the number of attempts made for each packet before a
// transfer is abandoned.
const DefaultRetries = 10

// Config holds the engine configuration.
type Config struct {
	// Progress is called with lifecycle events (default NoProgress)
	Progress ProgressFunc

	// Logger is used for logging operations (optional)
	Logger Logger

	// Tracer receives every raw byte the engine reads (optional)
	Tracer io.Writer

	// Retries is the number of attempts per packet used by Send, Receive,
	// Reader and Writer
	Retries int
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		Progress: NoProgress,
		Retries:  DefaultRetries,
	}
}

// Option is a functional option for configuring the engine.
type Option func(*Config)

// WithProgress sets a callback function to track transfer progress.
// A nil callback restores NoProgress.
//
// Example:
//
//	x := xmodem.New(port,
//	    xmodem.WithProgress(func(p xmodem.Progress) {
//	        fmt.Println("progress:", p)
//	    }),
//	)
func WithProgress(fn ProgressFunc) Option {
	return func(c *Config) {
		if fn == nil {
			fn = NoProgress
		}
		c.Progress = fn
	}
}

// WithLogger sets a logger for engine operations.
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithTracer records every raw byte read from the stream into w.
// See CaptureBuffer and NewRingTracer.
//
// Example:
//
//	trace := xmodem.NewCaptureBuffer(xmodem.DefaultTraceSize)
//	n, err := xmodem.Receive(ctx, port, out, xmodem.WithTracer(trace))
//	fmt.Printf("% X\n", trace.Bytes())
func WithTracer(w io.Writer) Option {
	return func(c *Config) {
		c.Tracer = w
	}
}

// WithRetries sets the number of attempts per packet. Values below 1 are
// ignored.
//
// Example:
//
//	n, err := xmodem.Send(ctx, file, port, xmodem.WithRetries(3))
func WithRetries(retries int) Option {
	return func(c *Config) {
		if retries > 0 {
			c.Retries = retries
		}
	}
}
