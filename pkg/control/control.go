package control

import (
	"context"
	"errors"
	"os"
	"strconv"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"k8s.io/klog/v2"
	"solarbridge/pkg/metrics"
	"solarbridge/pkg/renogy"
)

var ErrUnknownOutput = errors.New("unknown control output")

const (
	OutputLog  = "log"
	OutputLED  = "led"
	OutputLoad = "load"
)

const DefaultWriteTimeout = 3 * time.Second

// Output is the digital output driven by the control topic.
type Output interface {
	Set(on bool) error
}

// Parse reads a control payload: '1' as the first byte means on, anything
// else, including an empty payload, means off.
func Parse(payload []byte) bool {
	return len(payload) > 0 && payload[0] == '1'
}

// NewHandler returns the subscription callback for the control topic. It runs
// on paho's goroutines and touches nothing but the output.
func NewHandler(output Output, m *metrics.Metrics) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		on := Parse(msg.Payload())
		if m != nil {
			m.ControlCommands.WithLabelValues(strconv.FormatBool(on)).Inc()
		}
		if err := output.Set(on); err != nil {
			klog.V(1).InfoS("Failed to apply control command", "topic", msg.Topic(), "on", on, "err", err)
			return
		}
		klog.V(2).InfoS("Applied control command", "topic", msg.Topic(), "on", on)
	}
}

var _ Output = (*LogOutput)(nil)
var _ Output = (*LEDOutput)(nil)
var _ Output = (*LoadOutput)(nil)

type LogOutput struct {
	mux sync.Mutex
	on  bool
}

func (l *LogOutput) Set(on bool) error {
	l.mux.Lock()
	defer l.mux.Unlock()
	l.on = on
	klog.InfoS("Control output", "on", on)
	return nil
}

func (l *LogOutput) On() bool {
	l.mux.Lock()
	defer l.mux.Unlock()
	return l.on
}

// LEDOutput drives a LED through its sysfs brightness attribute, e.g.
// /sys/class/leds/led0/brightness.
type LEDOutput struct {
	Path      string
	ActiveLow bool
}

func (l *LEDOutput) Set(on bool) error {
	level := on != l.ActiveLow
	value := []byte("0")
	if level {
		value = []byte("1")
	}
	return os.WriteFile(l.Path, value, 0o644)
}

type RegisterWriter interface {
	WriteRegister(ctx context.Context, address uint16, value uint16) error
}

// LoadOutput switches the controller's load terminals through LOAD_CONTROL.
// Writes share the reader with polling and are serialized by it.
type LoadOutput struct {
	Writer  RegisterWriter
	Timeout time.Duration
}

func (l *LoadOutput) Set(on bool) error {
	timeout := l.Timeout
	if timeout <= 0 {
		timeout = DefaultWriteTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	var value uint16
	if on {
		value = 1
	}
	return l.Writer.WriteRegister(ctx, renogy.LoadControl, value)
}

// NewOutput builds the output named by kind. path is the sysfs file for the
// led output and is ignored otherwise.
func NewOutput(kind string, path string, activeLow bool, writer RegisterWriter) (Output, error) {
	switch kind {
	case OutputLog, "":
		return &LogOutput{}, nil
	case OutputLED:
		return &LEDOutput{Path: path, ActiveLow: activeLow}, nil
	case OutputLoad:
		return &LoadOutput{Writer: writer}, nil
	}
	return nil, ErrUnknownOutput
}
