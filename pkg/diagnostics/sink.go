package diagnostics

import (
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"
	"go.bug.st/serial"
	"k8s.io/klog/v2"
)

var ErrSamePort = errors.New("debug port must differ from the modbus port")

const DefaultBaudRate = 115200

// Sink is a dedicated serial line for diagnostic text. It is opened once at
// start-up and never shares a device with the modbus transport.
type Sink struct {
	mux  sync.Mutex
	port io.WriteCloser
	name string
}

func Open(name string, baudRate int) (*Sink, error) {
	if baudRate <= 0 {
		baudRate = DefaultBaudRate
	}
	port, err := serial.Open(name, &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "open debug port %s", name)
	}
	return &Sink{port: port, name: name}, nil
}

func (s *Sink) Write(p []byte) (int, error) {
	s.mux.Lock()
	defer s.mux.Unlock()
	if s.port == nil {
		return len(p), nil
	}
	return s.port.Write(p)
}

func (s *Sink) Close() error {
	s.mux.Lock()
	defer s.mux.Unlock()
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	return err
}

// Mirror routes klog output to stderr and the sink.
func (s *Sink) Mirror() {
	klog.LogToStderr(false)
	klog.SetOutput(io.MultiWriter(os.Stderr, s))
	klog.V(1).InfoS("Mirroring diagnostics to serial port", "port", s.name)
}

// Ports lists the serial devices present on the host.
func Ports() ([]string, error) {
	return serial.GetPortsList()
}
