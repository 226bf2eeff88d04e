// Package transport opens the byte channels a device can be reached through.
package transport

import (
	"io"
	"time"

	"github.com/buckleypaul/luatool/internal/device"
)

// Conn is an open device connection.
type Conn interface {
	device.Transport
	io.Closer
	// Wait is the exchange policy that fits the connection's timing.
	Wait() device.WaitPolicy
	String() string
}

// Options selects and configures a connection. A non-empty TelnetHost wins
// over the serial port. ReadTimeout bounds one serial read, TelnetTimeout
// one telnet read.
type Options struct {
	Port          string
	BaudRate      int
	TelnetHost    string
	TelnetPort    int
	ReadTimeout   time.Duration
	TelnetTimeout time.Duration
}

// Open connects according to opts.
func Open(opts Options) (Conn, error) {
	if opts.TelnetHost != "" {
		return DialTelnet(opts.TelnetHost, opts.TelnetPort, opts.TelnetTimeout)
	}
	return OpenSerial(opts.Port, opts.BaudRate, opts.ReadTimeout)
}

var (
	_ Conn                  = (*Serial)(nil)
	_ Conn                  = (*Telnet)(nil)
	_ device.InputDiscarder = (*Serial)(nil)
)
