package device

import (
	"errors"
	"fmt"
)

// Error kinds. Every failure returned by this package matches exactly one of
// these with errors.Is.
var (
	ErrFraming              = errors.New("line cannot be framed as a write statement")
	ErrLineTooLong          = errors.New("line exceeds device input buffer")
	ErrTimeout              = errors.New("no prompt from device")
	ErrMismatch             = errors.New("device echo mismatch")
	ErrInterpreter          = errors.New("error from Lua interpreter")
	ErrTransportUnavailable = errors.New("transport unavailable")
)

// MismatchError reports a reply line that is neither the echo of the sent
// command nor an interpreter diagnostic.
type MismatchError struct {
	Sent     string
	Received string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%v: sent %q, expected echo %q, got %q", ErrMismatch, e.Sent, e.Sent, e.Received)
}

func (e *MismatchError) Unwrap() error { return ErrMismatch }

// InterpreterError carries the device's diagnostic line verbatim.
type InterpreterError struct {
	Sent   string
	Line   string
	Reason string
}

func (e *InterpreterError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%v: %s (%s)", ErrInterpreter, e.Line, e.Reason)
	}
	return fmt.Sprintf("%v: %s", ErrInterpreter, e.Line)
}

func (e *InterpreterError) Unwrap() error { return ErrInterpreter }

// TimeoutError records what was sent and what had arrived when the channel
// gave up waiting for the prompt.
type TimeoutError struct {
	Sent     string
	Received string
}

func (e *TimeoutError) Error() string {
	if e.Received == "" {
		return fmt.Sprintf("%v after %q", ErrTimeout, e.Sent)
	}
	return fmt.Sprintf("%v after %q (partial reply %q)", ErrTimeout, e.Sent, e.Received)
}

func (e *TimeoutError) Unwrap() error { return ErrTimeout }

// LineTooLongError is raised by pre-flight before anything is sent.
type LineTooLongError struct {
	Source string
	Line   int // 1-based
	Length int
}

func (e *LineTooLongError) Error() string {
	return fmt.Sprintf("%v: %s line %d is %d bytes (limit %d)", ErrLineTooLong, e.Source, e.Line, e.Length, MaxLineLength)
}

func (e *LineTooLongError) Unwrap() error { return ErrLineTooLong }

// FramingError reports a source line or file name that cannot be embedded in
// a device command without breaking out of its quoting.
type FramingError struct {
	Text   string
	Reason string
}

func (e *FramingError) Error() string {
	return fmt.Sprintf("%v: %q: %s", ErrFraming, e.Text, e.Reason)
}

func (e *FramingError) Unwrap() error { return ErrFraming }
