// Package xmodem transfers files over a byte stream using the classic XMODEM
// protocol (128-byte packets, 8-bit checksum).
//
// # Overview
//
// This package drives both ends of a transfer:
//   - Waiting for the receiver's NAK before the first packet
//   - Sending and receiving sequenced, checksummed packets
//   - Retrying packets the peer rejected
//   - Cancelling with CAN on protocol violations
//   - Ending the transmission with the EOT handshake
//
// # Basic Usage
//
// The simplest way to send a file:
//
//	// User provides the stream (io.ReadWriter), usually a serial port
//	port, err := serial.Open("/dev/ttyUSB0", &serial.Mode{BaudRate: 115200})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	f, err := os.Open("kernel.img")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	n, err := xmodem.Send(context.Background(), f, port)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// And to receive one:
//
//	n, err := xmodem.Receive(context.Background(), port, out)
//
// The received length is always a multiple of 128: the last packet carries
// zero padding that cannot be told apart from data.
//
// # Packet Level
//
// Drivers are built on Xmodem, which exchanges one packet per call:
//
//	x := xmodem.New(port)
//	buf := make([]byte, protocol.PacketSize)
//	for {
//	    n, err := x.ReadPacket(buf)
//	    if errors.Is(err, protocol.ErrInterrupted) {
//	        continue // NAK has been sent, the sender repeats the packet
//	    }
//	    if err != nil || n == 0 {
//	        break
//	    }
//	    out.Write(buf)
//	}
//
// # Streams
//
// Reader and Writer adapt an Xmodem to io.Reader and io.WriteCloser:
//
//	w := xmodem.NewWriter(xmodem.New(port))
//	io.Copy(w, f)
//	w.Close()
//
// # Progress Tracking
//
// Track the transfer with a callback:
//
//	xmodem.Send(ctx, f, port,
//	    xmodem.WithProgress(func(p xmodem.Progress) {
//	        fmt.Println("progress:", p)
//	    }),
//	)
//
// Or from another goroutine with ChannelProgress.
//
// # Configuration Options
//
// Customize behavior with functional options:
//
//	x := xmodem.New(port,
//	    xmodem.WithProgress(progressFunc),
//	    xmodem.WithLogger(myLogger),
//	    xmodem.WithTracer(xmodem.NewCaptureBuffer(xmodem.DefaultTraceSize)),
//	    xmodem.WithRetries(5),
//	)
//
// # Context Support
//
// Send and Receive check the context between packets. When it is done, CAN
// is sent to the peer and the context error is returned:
//
//	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
//	defer cancel()
//
//	n, err := xmodem.Send(ctx, f, port)
//
// # Error Handling
//
// Failures carry one of the protocol kinds (see package protocol), matched
// with errors.Is. The package adds structured error types:
//   - PacketSizeError: buffer is not one packet long (ErrUnexpectedEOF)
//   - SequenceError: wrong sequence number or complement (ErrInvalidData)
//   - RetriesExhaustedError: packet rejected too many times (ErrBrokenPipe)
//   - protocol.ProtocolError: every other protocol failure
//
// Errors from the stream itself are returned unchanged.
//
// # Timeouts
//
// The engine never times out on its own. Blocking reads return when the
// stream does, so configure read timeouts on the port.
package xmodem
