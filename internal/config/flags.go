package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
)

var (
	ErrUsage              = errors.New("invalid command line")
	ErrUnexpectedArgument = errors.New("unexpected argument")
)

// Flags holds the command line of the daemon.
type Flags struct {
	// Debug keeps the daemon in the foreground, binds the loopback debug
	// address, skips the sandbox and prints diagnostics.
	Debug bool
}

// ParseFlags parses args (without the program name). On any malformed
// input the usage line is written to out and ErrUsage is returned.
func ParseFlags(name string, args []string, out io.Writer) (Flags, error) {
	var f Flags

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.BoolVar(&f.Debug, "d", false, "debug mode")

	err := fs.Parse(args)
	if err == nil && fs.NArg() > 0 {
		err = fmt.Errorf("%w: %q", ErrUnexpectedArgument, fs.Arg(0))
	}

	if err != nil {
		_, _ = fmt.Fprintf(out, "usage: %s [-d]\n", name)
		return Flags{}, fmt.Errorf("%w: %w", ErrUsage, err)
	}

	return f, nil
}
