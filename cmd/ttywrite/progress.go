package main

import (
	"fmt"
	"io"

	"github.com/pterm/pterm"

	"github.com/moffa90/go-xmodem/xmodem"
)

// newSendProgress renders a progress bar over the packets of a transmission.
// The returned func stops the display and reports the outcome.
func newSendProgress(out io.Writer, packets int) (xmodem.ProgressFunc, func(int, error)) {
	bar, err := pterm.DefaultProgressbar.
		WithTotal(max(packets, 1)).
		WithTitle("Waiting for receiver").
		WithWriter(out).
		Start()
	if err != nil {
		return xmodem.NoProgress, func(int, error) {}
	}

	fn := func(p xmodem.Progress) {
		switch p.Kind {
		case xmodem.EventStarted:
			bar.UpdateTitle("Sending")
		case xmodem.EventPacket:
			bar.Increment()
		}
	}

	done := func(n int, err error) {
		bar.Stop()
		if err != nil {
			pterm.Error.WithWriter(out).Printfln("transfer failed after %d bytes", n)
			return
		}
		pterm.Success.WithWriter(out).Printfln("sent %d bytes", n)
	}
	return fn, done
}

// newReceiveProgress renders a spinner counting received packets. The total
// is not known in advance.
func newReceiveProgress(out io.Writer) (xmodem.ProgressFunc, func(int, error)) {
	spinner, err := pterm.DefaultSpinner.WithWriter(out).Start("Waiting for sender")
	if err != nil {
		return xmodem.NoProgress, func(int, error) {}
	}

	received := 0
	fn := func(p xmodem.Progress) {
		switch p.Kind {
		case xmodem.EventStarted:
			spinner.UpdateText("Receiving")
		case xmodem.EventPacket:
			received++
			spinner.UpdateText(fmt.Sprintf("Received %d packets", received))
		}
	}

	done := func(n int, err error) {
		if err != nil {
			spinner.Fail(fmt.Sprintf("transfer failed after %d bytes", n))
			return
		}
		spinner.Success(fmt.Sprintf("received %d bytes", n))
	}
	return fn, done
}
