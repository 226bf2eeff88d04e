package transport

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"go.bug.st/serial"

	"github.com/buckleypaul/luatool/internal/device"
)

// Serial is a device connection over a serial port.
type Serial struct {
	port     serial.Port
	portName string
	baudRate int
}

func newMode(baudRate int) *serial.Mode {
	return &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
}

// OpenSerial opens portName at baudRate. Every Read gives up after timeout.
func OpenSerial(portName string, baudRate int, timeout time.Duration) (*Serial, error) {
	port, err := serial.Open(portName, newMode(baudRate))
	if err != nil {
		return nil, fmt.Errorf("%w: could not open port %s: %v", device.ErrTransportUnavailable, portName, err)
	}
	if err := port.SetReadTimeout(timeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("%w: set read timeout on %s: %v", device.ErrTransportUnavailable, portName, err)
	}
	log.WithFields(log.Fields{"port": portName, "baud": baudRate}).Debug("serial port open")
	return &Serial{port: port, portName: portName, baudRate: baudRate}, nil
}

func (s *Serial) Read(p []byte) (int, error)  { return s.port.Read(p) }
func (s *Serial) Write(p []byte) (int, error) { return s.port.Write(p) }

// ResetInputBuffer drops bytes received but not yet read.
func (s *Serial) ResetInputBuffer() error { return s.port.ResetInputBuffer() }

// Wait returns the exchange policy suited to a serial port.
func (s *Serial) Wait() device.WaitPolicy { return device.SerialWait }

// Close waits for pending output to be sent and closes the port.
func (s *Serial) Close() error {
	if err := s.port.Drain(); err != nil {
		log.WithError(err).Debug("drain before close failed")
	}
	return s.port.Close()
}

func (s *Serial) String() string {
	return fmt.Sprintf("%s @ %d", s.portName, s.baudRate)
}
