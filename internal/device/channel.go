package device

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// Transport is the byte channel the device is reached through. Read returns
// 0 bytes and a nil error when its per-read timeout expires.
type Transport interface {
	io.Reader
	io.Writer
}

// InputDiscarder is implemented by transports that can drop unread input.
type InputDiscarder interface {
	ResetInputBuffer() error
}

// WaitPolicy bounds how long one exchange waits for the prompt.
type WaitPolicy struct {
	// Settle is slept after writing a command and before reading the reply.
	Settle time.Duration
	// Attempts is how many consecutive empty reads are tolerated.
	Attempts int
	// Backoff grows the pause before retry i to i*Backoff.
	Backoff time.Duration
}

// SerialWait matches a port opened with a multi-second read timeout: a
// single empty read means the device has gone quiet.
var SerialWait = WaitPolicy{Settle: 300 * time.Millisecond, Attempts: 1}

// TelnetWait retries with growing pauses since a TCP bridge gives no reliable
// byte-ready signal.
var TelnetWait = WaitPolicy{Attempts: 7, Backoff: 100 * time.Millisecond}

// Status is the successful outcome of one exchange.
type Status int

const (
	Confirmed Status = iota
	Unsent
)

func (s Status) String() string {
	switch s {
	case Confirmed:
		return "ok"
	case Unsent:
		return "sent without check"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Result is what a successful exchange produced. Raw holds everything that
// arrived before the prompt.
type Result struct {
	Status Status
	Raw    []byte
}

// Channel turns command lines into checked exchanges with the interpreter.
// It is not safe for concurrent use.
type Channel struct {
	t        Transport
	wait     WaitPolicy
	progress Progress
}

// NewChannel creates a Channel over t.
func NewChannel(t Transport, wait WaitPolicy) *Channel {
	return &Channel{t: t, wait: wait, progress: nopProgress{}}
}

// SetProgress installs an observer for sent commands. nil disables it.
func (c *Channel) SetProgress(p Progress) {
	if p == nil {
		p = nopProgress{}
	}
	c.progress = p
}

// Execute sends line and, when expectEcho is set, waits for the prompt and
// verifies that every reply line is the echo of line.
func (c *Channel) Execute(line string, expectEcho bool) (Result, error) {
	if err := c.send(line); err != nil {
		return Result{}, err
	}
	if !expectEcho {
		res := Result{Status: Unsent}
		c.progress.CommandDone(line, res, nil)
		return res, nil
	}

	raw, err := c.readReply(line)
	if err == nil {
		err = CheckEcho(line, raw)
	}
	if err != nil {
		c.progress.CommandDone(line, Result{}, err)
		return Result{}, err
	}
	res := Result{Status: Confirmed, Raw: raw}
	c.progress.CommandDone(line, res, nil)
	return res, nil
}

// Capture sends line and returns the reply, failing only on interpreter
// diagnostics. Used for commands whose output is data rather than an echo.
func (c *Channel) Capture(line string) ([]byte, error) {
	if err := c.send(line); err != nil {
		return nil, err
	}
	raw, err := c.readReply(line)
	if err == nil {
		err = checkDiagnostics(line, raw)
	}
	if err != nil {
		c.progress.CommandDone(line, Result{}, err)
		return nil, err
	}
	c.progress.CommandDone(line, Result{Status: Confirmed, Raw: raw}, nil)
	return raw, nil
}

func (c *Channel) send(line string) error {
	if d, ok := c.t.(InputDiscarder); ok {
		if err := d.ResetInputBuffer(); err != nil {
			log.WithError(err).Debug("discarding pending input failed")
		}
	}

	c.progress.CommandSent(line)
	log.WithField("cmd", line).Debug("sent")

	if _, err := io.WriteString(c.t, line+Terminator); err != nil {
		return fmt.Errorf("write %q: %w", line, err)
	}
	if c.wait.Settle > 0 {
		time.Sleep(c.wait.Settle)
	}
	return nil
}

func (c *Channel) readReply(line string) ([]byte, error) {
	raw, err := ReadUntilPrompt(c.t, c.wait)
	log.WithField("reply", string(raw)).Debug("received")
	if errors.Is(err, ErrTimeout) {
		return nil, &TimeoutError{Sent: line, Received: string(raw)}
	}
	if err != nil {
		return nil, fmt.Errorf("read reply to %q: %w", line, err)
	}
	return raw, nil
}

// ReadUntilPrompt reads r one byte at a time until the prompt byte appears at
// the start of a line and returns what came before it. An empty read counts
// as one stalled attempt; the pause before retry i is i*wait.Backoff. After
// wait.Attempts consecutive stalls the partial reply is returned together
// with ErrTimeout.
func ReadUntilPrompt(r io.Reader, wait WaitPolicy) ([]byte, error) {
	attempts := wait.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var buf bytes.Buffer
	b := make([]byte, 1)
	lineStart := true
	stalls := 0
	for {
		n, err := r.Read(b)
		if n == 0 {
			if errors.Is(err, io.EOF) {
				return buf.Bytes(), fmt.Errorf("%w: connection closed", ErrTransportUnavailable)
			}
			if err != nil {
				return buf.Bytes(), err
			}
			stalls++
			if stalls >= attempts {
				return buf.Bytes(), ErrTimeout
			}
			if wait.Backoff > 0 {
				time.Sleep(time.Duration(stalls) * wait.Backoff)
			}
			continue
		}
		stalls = 0

		ch := b[0]
		if ch == Prompt && lineStart {
			return buf.Bytes(), nil
		}
		buf.WriteByte(ch)
		switch ch {
		case '\r', '\n':
			lineStart = true
		case ' ', '\t':
			// leftover padding from the previous prompt
		default:
			lineStart = false
		}
	}
}

// SplitLines splits a reply on CR and LF, trims each line, and drops empty
// ones, so CRLF pairs and repeated separators never produce data lines.
func SplitLines(raw []byte) []string {
	fields := strings.FieldsFunc(string(raw), func(r rune) bool {
		return r == '\r' || r == '\n'
	})
	lines := fields[:0]
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			lines = append(lines, f)
		}
	}
	return lines
}

// CheckEcho classifies the reply to sent. Each reply line must be the echo
// of sent; the first diagnostic line aborts with an InterpreterError, any
// other line with a MismatchError. A reply without any line is a mismatch:
// telnet never discards pending input, so a stale prompt from the previous
// exchange must not confirm a command the device did not echo.
func CheckEcho(sent string, raw []byte) error {
	want := strings.TrimSpace(sent)
	lines := SplitLines(raw)
	if len(lines) == 0 {
		return &MismatchError{Sent: want}
	}
	for _, line := range lines {
		switch {
		case line == want:
		case strings.HasPrefix(line, ErrorPrefix):
			return &InterpreterError{Sent: want, Line: line}
		default:
			return &MismatchError{Sent: want, Received: line}
		}
	}
	return nil
}

func checkDiagnostics(sent string, raw []byte) error {
	for _, line := range SplitLines(raw) {
		if strings.HasPrefix(line, ErrorPrefix) {
			return &InterpreterError{Sent: strings.TrimSpace(sent), Line: line}
		}
	}
	return nil
}
