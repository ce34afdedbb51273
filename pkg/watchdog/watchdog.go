package watchdog

import (
	"errors"

	"go.uber.org/atomic"
)

var ErrUnsupported = errors.New("hardware watchdog not supported on this platform")

// Feeder services a hardware watchdog. Feed must be cheap: it is called
// between every register read and every link attempt.
type Feeder interface {
	Feed()
	Feeds() uint64
	Close() error
}

var _ Feeder = (*NopFeeder)(nil)
var _ Feeder = (*DeviceFeeder)(nil)

type counter struct {
	feeds atomic.Uint64
}

func (c *counter) Feeds() uint64 {
	return c.feeds.Load()
}

// NopFeeder is used when no watchdog device is configured. Feeds are still
// counted so the status endpoint shows the loop is alive.
type NopFeeder struct {
	counter
}

func NewNopFeeder() *NopFeeder {
	return &NopFeeder{}
}

func (n *NopFeeder) Feed() {
	n.feeds.Inc()
}

func (n *NopFeeder) Close() error {
	return nil
}
