// Package daytime renders the RFC 867 time string.
package daytime

import (
	"errors"
	"fmt"
	"time"
)

// Layout is the ctime(3) style template "%a %b %e %H:%M:%S %Z %Y".
const Layout = "Mon Jan _2 15:04:05 MST 2006"

// Mode selects where the time string is delivered.
type Mode string

const (
	// ModeNetwork writes the time string to the client connection.
	ModeNetwork Mode = "network"
	// ModeConsole prints the time string on the server console and sends nothing.
	ModeConsole Mode = "console"
)

var ErrYearOutOfRange = errors.New("year does not fit the four digit template")

// Valid reports whether m is a known delivery mode.
func (m Mode) Valid() bool {
	return m == ModeNetwork || m == ModeConsole
}

// Clock provides the current wall clock time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the local wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	return f()
}

// Format renders t in its own location without a trailing newline.
func Format(t time.Time) (string, error) {
	if y := t.Year(); y < 0 || y > 9999 {
		return "", fmt.Errorf("%w: %d", ErrYearOutOfRange, y)
	}

	return t.Format(Layout), nil
}

// Line renders t as a single protocol line terminated by a newline.
func Line(t time.Time) (string, error) {
	s, err := Format(t)
	if err != nil {
		return "", err
	}

	return s + "\n", nil
}
