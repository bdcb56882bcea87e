package main

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	modeRead  = "read"
	modeWrite = "write"

	flowNone     = "none"
	flowHardware = "hardware"
	flowSoftware = "software"
)

// baudRates are the line speeds a TTY can be set to.
var baudRates = map[int]bool{
	110: true, 300: true, 600: true, 1200: true, 2400: true, 4800: true,
	9600: true, 19200: true, 38400: true, 57600: true, 115200: true,
}

// options is the resolved ttywrite configuration.
type options struct {
	Mode        string
	Input       string
	Output      string
	Baud        int
	Timeout     time.Duration
	Width       int
	StopBits    int
	FlowControl string
	Raw         bool
	Quiet       bool
	Trace       string
	ListPorts   bool
	Path        string
}

func defaultOptions() options {
	return options{
		Mode:        modeWrite,
		Baud:        115200,
		Timeout:     10 * time.Second,
		Width:       8,
		StopBits:    1,
		FlowControl: flowNone,
	}
}

// ttywrite config.toml key mapping to options.
type fileConfig struct {
	Mode        string `toml:"mode"`
	Input       string `toml:"input"`
	Output      string `toml:"output"`
	Baud        int    `toml:"baud"`
	Timeout     int    `toml:"timeout"`
	Width       int    `toml:"width"`
	StopBits    int    `toml:"stop_bits"`
	FlowControl string `toml:"flow_control"`
	Raw         bool   `toml:"raw"`
	Quiet       bool   `toml:"quiet"`
	Trace       string `toml:"trace"`
	TTY         string `toml:"tty"`
}

// loadConfigFile overlays the keys present in the TOML file at path onto opts.
func loadConfigFile(path string, opts *options) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("load config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("mode") {
		opts.Mode = strings.TrimSpace(raw.Mode)
	}
	if meta.IsDefined("input") {
		opts.Input = strings.TrimSpace(raw.Input)
	}
	if meta.IsDefined("output") {
		opts.Output = strings.TrimSpace(raw.Output)
	}
	if meta.IsDefined("baud") {
		opts.Baud = raw.Baud
	}
	if meta.IsDefined("timeout") {
		opts.Timeout = time.Duration(raw.Timeout) * time.Second
	}
	if meta.IsDefined("width") {
		opts.Width = raw.Width
	}
	if meta.IsDefined("stop_bits") {
		opts.StopBits = raw.StopBits
	}
	if meta.IsDefined("flow_control") {
		opts.FlowControl = strings.TrimSpace(raw.FlowControl)
	}
	if meta.IsDefined("raw") {
		opts.Raw = raw.Raw
	}
	if meta.IsDefined("quiet") {
		opts.Quiet = raw.Quiet
	}
	if meta.IsDefined("trace") {
		opts.Trace = strings.TrimSpace(raw.Trace)
	}
	if meta.IsDefined("tty") {
		opts.Path = strings.TrimSpace(raw.TTY)
	}
	return nil
}

// parseArgs resolves options from defaults, then the config file named by
// -c, then the flags that were set explicitly.
func parseArgs(args []string, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("ttywrite", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Write to TTY using the XMODEM protocol by default.")
		fmt.Fprintln(fs.Output())
		fmt.Fprintln(fs.Output(), "usage: ttywrite [flags] <tty path>")
		fs.PrintDefaults()
	}

	def := defaultOptions()
	var (
		mode     = fs.String("m", def.Mode, "Read or write mode: read|write")
		input    = fs.String("i", "", "Input file (defaults to stdin if not set)")
		output   = fs.String("o", "", "Output file in read mode (defaults to stdout if not set)")
		baud     = fs.Int("b", def.Baud, "Set baud rate")
		timeout  = fs.Int("t", int(def.Timeout/time.Second), "Set timeout in seconds")
		width    = fs.Int("w", def.Width, "Set data character width in bits: 5..8")
		stopBits = fs.Int("s", def.StopBits, "Set number of stop bits: 1|2")
		flow     = fs.String("f", def.FlowControl, "Flow control: none|hardware|software")
		raw      = fs.Bool("r", false, "Disable XMODEM")
		quiet    = fs.Bool("q", false, "Disable progress output")
		config   = fs.String("c", "", "Path to a TOML config file")
		trace    = fs.String("trace", "", "Write the last raw bytes read from the TTY to this file")
		list     = fs.Bool("l", false, "List serial ports and exit")
	)
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	opts := def
	if *config != "" {
		if err := loadConfigFile(*config, &opts); err != nil {
			return options{}, err
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "m":
			opts.Mode = strings.TrimSpace(*mode)
		case "i":
			opts.Input = *input
		case "o":
			opts.Output = *output
		case "b":
			opts.Baud = *baud
		case "t":
			opts.Timeout = time.Duration(*timeout) * time.Second
		case "w":
			opts.Width = *width
		case "s":
			opts.StopBits = *stopBits
		case "f":
			opts.FlowControl = strings.TrimSpace(*flow)
		case "r":
			opts.Raw = *raw
		case "q":
			opts.Quiet = *quiet
		case "trace":
			opts.Trace = *trace
		case "l":
			opts.ListPorts = *list
		}
	})

	switch fs.NArg() {
	case 0:
	case 1:
		opts.Path = fs.Arg(0)
	default:
		return options{}, fmt.Errorf("expected one tty path, got %d arguments", fs.NArg())
	}

	if err := opts.validate(); err != nil {
		return options{}, err
	}
	return opts, nil
}

func (o options) validate() error {
	if o.ListPorts {
		return nil
	}
	if o.Path == "" {
		return fmt.Errorf("missing tty path")
	}
	if o.Mode != modeRead && o.Mode != modeWrite {
		return fmt.Errorf("invalid mode %q (expected read or write)", o.Mode)
	}
	if !baudRates[o.Baud] {
		return fmt.Errorf("unsupported baud rate %d", o.Baud)
	}
	if o.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", o.Timeout)
	}
	if o.Width < 5 || o.Width > 8 {
		return fmt.Errorf("invalid width %d (expected 5..8)", o.Width)
	}
	if o.StopBits != 1 && o.StopBits != 2 {
		return fmt.Errorf("invalid stop bits %d (expected 1 or 2)", o.StopBits)
	}
	switch o.FlowControl {
	case flowNone, flowHardware:
	case flowSoftware:
		return fmt.Errorf("software flow control is not supported by the serial backend")
	default:
		return fmt.Errorf("invalid flow control %q (expected none, hardware or software)", o.FlowControl)
	}
	return nil
}
