package transport

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/buckleypaul/luatool/internal/device"
)

// Telnet protocol bytes (RFC 854).
const (
	iac  byte = 255
	dont byte = 254
	do   byte = 253
	wont byte = 252
	will byte = 251
	sb   byte = 250
	se   byte = 240
)

// Parser states between reads.
const (
	stateData = iota
	stateIAC
	stateOption
	stateSub
	stateSubIAC
)

const dialTimeout = 10 * time.Second

// bannerWait is how long the bridge gets to print its greeting after connect.
var bannerWait = time.Second

// Telnet is a device connection through a telnet-to-UART bridge. Option
// negotiation is refused and filtered out of the data stream.
type Telnet struct {
	conn    net.Conn
	r       *bufio.Reader
	timeout time.Duration
	addr    string
	state   int
	verb    byte
}

// DialTelnet connects to host:port and discards the bridge's banner. Every
// Read gives up after timeout.
func DialTelnet(host string, port int, timeout time.Duration) (*Telnet, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	log.WithField("addr", addr).Debug("connecting")
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("%w: connect %s: %v", device.ErrTransportUnavailable, addr, err)
	}
	t := &Telnet{conn: conn, r: bufio.NewReader(conn), timeout: timeout, addr: addr}

	log.Debug("waiting for prompt")
	time.Sleep(bannerWait)
	banner, err := t.drain()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: read banner from %s: %v", device.ErrTransportUnavailable, addr, err)
	}
	log.Debugf("Banner '%s'", banner)
	log.Info("connection ready")
	return t, nil
}

// drain reads whatever has already arrived.
func (t *Telnet) drain() ([]byte, error) {
	saved := t.timeout
	t.timeout = 50 * time.Millisecond
	defer func() { t.timeout = saved }()

	var out []byte
	buf := make([]byte, 256)
	for {
		n, err := t.Read(buf)
		out = append(out, buf[:n]...)
		if err != nil || n == 0 {
			return out, err
		}
	}
}

// Read returns data bytes with telnet commands removed. It returns 0 bytes
// and a nil error when nothing arrives within the read timeout. A command
// cut off by the timeout is finished by the next Read.
func (t *Telnet) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if err := t.conn.SetReadDeadline(time.Now().Add(t.timeout)); err != nil {
		return 0, err
	}
	n := 0
	for n < len(p) {
		if n > 0 && t.r.Buffered() == 0 {
			break
		}
		b, err := t.r.ReadByte()
		if err != nil {
			return n, timeoutIsNil(err)
		}
		data, ok, err := t.filter(b)
		if err != nil {
			return n, err
		}
		if ok {
			p[n] = data
			n++
		}
	}
	return n, nil
}

// filter advances the command parser by one byte and reports whether b
// yields a data byte.
func (t *Telnet) filter(b byte) (byte, bool, error) {
	switch t.state {
	case stateIAC:
		switch b {
		case iac:
			t.state = stateData
			return iac, true, nil
		case do, dont, will, wont:
			t.verb = b
			t.state = stateOption
		case sb:
			t.state = stateSub
		default:
			t.state = stateData
		}
	case stateOption:
		t.state = stateData
		return 0, false, t.refuse(t.verb, b)
	case stateSub:
		if b == iac {
			t.state = stateSubIAC
		}
	case stateSubIAC:
		t.state = stateSub
		if b == se {
			t.state = stateData
		}
	default:
		if b == iac {
			t.state = stateIAC
			return 0, false, nil
		}
		return b, true, nil
	}
	return 0, false, nil
}

func (t *Telnet) refuse(cmd, opt byte) error {
	var reply byte
	switch cmd {
	case do:
		reply = wont
	case will:
		reply = dont
	default:
		return nil
	}
	_, err := t.conn.Write([]byte{iac, reply, opt})
	return err
}

// Write sends p, doubling any 0xff byte so it is not taken as a command.
func (t *Telnet) Write(p []byte) (int, error) {
	out := make([]byte, 0, len(p))
	for _, b := range p {
		out = append(out, b)
		if b == iac {
			out = append(out, iac)
		}
	}
	if _, err := t.conn.Write(out); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Wait returns the exchange policy suited to a telnet bridge.
func (t *Telnet) Wait() device.WaitPolicy { return device.TelnetWait }

func (t *Telnet) Close() error { return t.conn.Close() }

func (t *Telnet) String() string { return "telnet://" + t.addr }

func timeoutIsNil(err error) error {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return nil
	}
	return err
}
