package xmodem

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/moffa90/go-xmodem/protocol"
)

// Send transmits everything src yields to the receiver on dst using the
// XMODEM protocol:
//  1. Wait for the receiver's NAK
//  2. Send src in 128-byte packets, zero-padding the last one
//  3. Retry a rejected packet up to Config.Retries times
//  4. End the transmission with the EOT handshake
//
// Returns the number of bytes taken from src, excluding padding zeroes.
//
// The context is checked before every packet, including the final EOT. On
// cancellation CAN is sent to the peer and the context error is returned.
//
// Example:
//
//	f, _ := os.Open("kernel.img")
//	n, err := xmodem.Send(context.Background(), f, port,
//	    xmodem.WithProgress(progressFunc),
//	)
func Send(ctx context.Context, src io.Reader, dst io.ReadWriter, opts ...Option) (int, error) {
	return New(dst, opts...).Send(ctx, src)
}

// Receive reads a transmission from src using the XMODEM protocol and writes
// every packet into dst. Padding cannot be told apart from data, so the
// result is always a multiple of 128 bytes.
//
// Returns the number of bytes written to dst.
//
// Example:
//
//	var buf bytes.Buffer
//	n, err := xmodem.Receive(context.Background(), port, &buf)
func Receive(ctx context.Context, src io.ReadWriter, dst io.Writer, opts ...Option) (int, error) {
	return New(src, opts...).Receive(ctx, dst)
}

// Send drives a whole transmission from src through x. See the package
// level Send.
func (x *Xmodem) Send(ctx context.Context, src io.Reader) (int, error) {
	var packet [protocol.PacketSize]byte
	written := 0

	for {
		n, err := readFull(src, packet[:])
		if err != nil {
			return written, fmt.Errorf("read source: %w", err)
		}
		clear(packet[n:])

		if err := x.checkContext(ctx); err != nil {
			return written, err
		}

		if n == 0 {
			if _, err := x.WritePacket(nil); err != nil {
				x.logError("end of transmission failed", "error", err)
				return written, fmt.Errorf("end transmission: %w", err)
			}
			x.logInfo("transmission complete", "bytes", written)
			return written, nil
		}

		if _, err := x.withRetries("write packet", func() (int, error) {
			return x.WritePacket(packet[:])
		}); err != nil {
			x.logError("send failed", "packet", x.packet, "error", err)
			return written, fmt.Errorf("send packet %d: %w", x.packet, err)
		}

		written += n
	}
}

// Receive drives a whole reception through x into dst. See the package
// level Receive.
func (x *Xmodem) Receive(ctx context.Context, dst io.Writer) (int, error) {
	var packet [protocol.PacketSize]byte
	received := 0

	for {
		if err := x.checkContext(ctx); err != nil {
			return received, err
		}

		n, err := x.withRetries("read packet", func() (int, error) {
			return x.ReadPacket(packet[:])
		})
		if err != nil {
			x.logError("receive failed", "packet", x.packet, "error", err)
			return received, fmt.Errorf("receive packet %d: %w", x.packet, err)
		}

		if n == 0 {
			x.logInfo("reception complete", "bytes", received)
			return received, nil
		}

		received += n
		if _, err := dst.Write(packet[:]); err != nil {
			return received, fmt.Errorf("write destination: %w", err)
		}
	}
}

// withRetries runs one packet operation until it succeeds, fails with a
// non-retriable error, or has been attempted Config.Retries times.
func (x *Xmodem) withRetries(op string, fn func() (int, error)) (int, error) {
	var last error
	for attempt := 1; attempt <= x.config.Retries; attempt++ {
		n, err := fn()
		if err == nil {
			return n, nil
		}
		if !protocol.IsRetriable(err) {
			return 0, err
		}
		last = err
		x.logDebug("retrying packet",
			"operation", op,
			"packet", x.packet,
			"attempt", attempt,
			"max_attempts", x.config.Retries,
		)
	}

	return 0, &RetriesExhaustedError{
		Operation: op,
		Sequence:  x.packet,
		Attempts:  x.config.Retries,
		Last:      last,
	}
}

// checkContext cancels the transfer if ctx is done.
func (x *Xmodem) checkContext(ctx context.Context) error {
	err := ctx.Err()
	if err == nil {
		return nil
	}
	if cerr := x.Cancel(); cerr != nil {
		return errors.Join(fmt.Errorf("cancelled: %w", err), cerr)
	}
	return fmt.Errorf("cancelled: %w", err)
}
