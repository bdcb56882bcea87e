package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"go.bug.st/serial"

	"github.com/moffa90/go-xmodem/internal/logging"
	"github.com/moffa90/go-xmodem/protocol"
	"github.com/moffa90/go-xmodem/xmodem"
)

// serialPort adapts a serial.Port to the stream contract the engine expects:
// a read that times out ends the stream, and Flush waits for the output to
// be transmitted.
type serialPort struct {
	serial.Port
}

func (p serialPort) Read(b []byte) (int, error) {
	n, err := p.Port.Read(b)
	if n == 0 && err == nil && len(b) > 0 {
		return 0, io.EOF
	}
	return n, err
}

func (p serialPort) Flush() error {
	return p.Drain()
}

// openPort opens and configures the TTY at opts.Path.
func openPort(opts options) (serialPort, error) {
	mode := &serial.Mode{
		BaudRate: opts.Baud,
		DataBits: opts.Width,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	if opts.StopBits == 2 {
		mode.StopBits = serial.TwoStopBits
	}
	if opts.FlowControl == flowHardware {
		mode.InitialStatusBits = &serial.ModemOutputBits{RTS: true, DTR: true}
	}

	port, err := serial.Open(opts.Path, mode)
	if err != nil {
		return serialPort{}, fmt.Errorf("open %s: %w", opts.Path, err)
	}
	if err := port.SetReadTimeout(opts.Timeout); err != nil {
		port.Close()
		return serialPort{}, fmt.Errorf("set timeout on %s: %w", opts.Path, err)
	}
	return serialPort{Port: port}, nil
}

func listPorts(w io.Writer) error {
	ports, err := serial.GetPortsList()
	if err != nil {
		return fmt.Errorf("list ports: %w", err)
	}
	if len(ports) == 0 {
		fmt.Fprintln(w, "no serial ports found")
		return nil
	}
	for _, p := range ports {
		fmt.Fprintln(w, p)
	}
	return nil
}

// tty moves data between the local side and a configured line, framed with
// XMODEM unless raw is set.
type tty struct {
	port   io.ReadWriter
	raw    bool
	quiet  bool
	tracer io.Writer
	logger zerolog.Logger

	// progress is where the progress display is rendered
	progress io.Writer
}

// receive copies a transmission from the line into dst.
func (t *tty) receive(ctx context.Context, dst io.Writer) (int64, error) {
	if t.raw {
		n, err := io.Copy(dst, t.port)
		if err != nil {
			return n, fmt.Errorf("raw read: %w", err)
		}
		return n, nil
	}

	fn, done := xmodem.ProgressFunc(xmodem.NoProgress), func(int, error) {}
	if !t.quiet {
		fn, done = newReceiveProgress(t.progress)
	}

	n, err := xmodem.Receive(ctx, t.port, dst, t.engineOptions(fn)...)
	done(n, err)
	return int64(n), err
}

// send transmits everything src yields over the line.
func (t *tty) send(ctx context.Context, src io.Reader) (int64, error) {
	if t.raw {
		n, err := io.Copy(t.port, src)
		if err != nil {
			return n, fmt.Errorf("raw write: %w", err)
		}
		return n, nil
	}

	data, err := io.ReadAll(src)
	if err != nil {
		return 0, fmt.Errorf("read input: %w", err)
	}

	fn, done := xmodem.ProgressFunc(xmodem.NoProgress), func(int, error) {}
	if !t.quiet {
		packets := (len(data) + protocol.PacketSize - 1) / protocol.PacketSize
		fn, done = newSendProgress(t.progress, packets)
	}

	n, err := xmodem.Send(ctx, bytes.NewReader(data), t.port, t.engineOptions(fn)...)
	done(n, err)
	return int64(n), err
}

func (t *tty) engineOptions(fn xmodem.ProgressFunc) []xmodem.Option {
	opts := []xmodem.Option{
		xmodem.WithProgress(fn),
		xmodem.WithLogger(logging.NewAdapter(t.logger)),
	}
	if t.tracer != nil {
		opts = append(opts, xmodem.WithTracer(t.tracer))
	}
	return opts
}

// openInput returns the file named by path, or stdin.
func openInput(path string) (io.ReadCloser, error) {
	if path == "" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	return f, nil
}

// createOutput returns a new file named by path, or stdout.
func createOutput(path string) (io.WriteCloser, error) {
	if path == "" {
		return nopWriteCloser{os.Stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output: %w", err)
	}
	return f, nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
