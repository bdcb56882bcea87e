// Command ttywrite writes to (or reads from) a TTY using the XMODEM protocol,
// or copies raw bytes with -r.
//
//	ttywrite -i kernel.img /dev/ttyUSB0
//	ttywrite -m read -o dump.bin -b 9600 /dev/ttyUSB0
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/rs/zerolog/log"

	"github.com/moffa90/go-xmodem/internal/logging"
	"github.com/moffa90/go-xmodem/xmodem"
)

func main() {
	logging.ConfigureRuntime()

	opts, err := parseArgs(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "ttywrite: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, opts); err != nil {
		log.Error().Err(err).Str("tty", opts.Path).Str("mode", opts.Mode).Msg("ttywrite failed")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	if opts.ListPorts {
		return listPorts(os.Stdout)
	}

	port, err := openPort(opts)
	if err != nil {
		return err
	}
	defer port.Close()

	log.Info().
		Str("tty", opts.Path).
		Int("baud", opts.Baud).
		Int("width", opts.Width).
		Int("stop_bits", opts.StopBits).
		Str("flow_control", opts.FlowControl).
		Bool("raw", opts.Raw).
		Msg("port opened")

	t := &tty{
		port:     port,
		raw:      opts.Raw,
		quiet:    opts.Quiet,
		logger:   log.Logger,
		progress: os.Stderr,
	}

	var ring *xmodem.RingTracer
	if opts.Trace != "" {
		ring, err = xmodem.NewRingTracer(xmodem.DefaultTraceSize)
		if err != nil {
			return err
		}
		t.tracer = ring
		defer dumpTrace(opts.Trace, ring)
	}

	switch opts.Mode {
	case modeRead:
		return runRead(ctx, t, opts.Output)
	default:
		return runWrite(ctx, t, opts.Input)
	}
}

func runRead(ctx context.Context, t *tty, path string) error {
	out, err := createOutput(path)
	if err != nil {
		return err
	}

	n, err := t.receive(ctx, out)
	if cerr := out.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close output: %w", cerr)
	}
	if err != nil {
		return err
	}
	log.Info().Int64("bytes", n).Msg("read complete")
	return nil
}

func runWrite(ctx context.Context, t *tty, path string) error {
	in, err := openInput(path)
	if err != nil {
		return err
	}
	defer in.Close()

	n, err := t.send(ctx, in)
	if err != nil {
		return err
	}
	log.Info().Int64("bytes", n).Msg("write complete")
	return nil
}

// dumpTrace writes the bytes retained by ring to path.
func dumpTrace(path string, ring *xmodem.RingTracer) {
	if err := os.WriteFile(path, ring.Bytes(), 0o644); err != nil {
		log.Error().Err(err).Str("path", path).Msg("write trace")
		return
	}
	log.Debug().
		Str("path", path).
		Int64("total_read", ring.TotalWritten()).
		Msg("trace written")
}
