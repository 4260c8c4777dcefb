package service

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

const ErrDomainService = "service"

const (
	FormatErrMsg  = "could not format the current time"
	SendErrMsg    = "could not send the time to the client"
	ConsoleErrMsg = "could not print the time on the console"
)

const (
	ErrKindFormat  = "format"
	ErrKindSend    = "send"
	ErrKindTimeout = "timeout"
	ErrKindConsole = "console"
	ErrKindPanic   = "panic"
	ErrKindUnknown = "unknown"
)

var (
	ErrFormat      = errors.New(FormatErrMsg)
	ErrSend        = errors.New(SendErrMsg)
	ErrSendTimeout = errors.New("client did not accept the time before the write deadline")
	ErrConsole     = errors.New(ConsoleErrMsg)
	ErrPanic       = errors.New("an unexpected error occurred on the server")
)

// ErrorKind classifies a responder error for metrics and logs.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPanic):
		return ErrKindPanic
	case errors.Is(err, ErrFormat):
		return ErrKindFormat
	case errors.Is(err, ErrSendTimeout):
		return ErrKindTimeout
	case errors.Is(err, ErrSend):
		return ErrKindSend
	case errors.Is(err, ErrConsole):
		return ErrKindConsole
	default:
		return ErrKindUnknown
	}
}

// ErrorWithParams will return an error with new message,
// where params get appended at end of the error message.
func ErrorWithParams(err error, params ...any) error {
	var sb strings.Builder

	if len(params) == 0 {
		return err
	}

	for index, param := range params {
		if (index+1)%2 == 0 {
			sb.WriteString(fmt.Sprintf("=%v", param))
		} else {
			if index != 0 {
				sb.WriteString(" ")
			}

			sb.WriteString(fmt.Sprintf("%v", param))
		}
	}

	return fmt.Errorf("%w (%s)", err, sb.String())
}

// mapSendError maps a write error to the sentinel the caller can match.
// A missed write deadline becomes ErrSendTimeout, anything else ErrSend.
func mapSendError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, os.ErrDeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrSendTimeout, err)
	default:
		return fmt.Errorf("%w: %w", ErrSend, err)
	}
}
