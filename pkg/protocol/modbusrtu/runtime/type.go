package runtime

import "time"

type Address struct {
	Location string  `json:"location"` // serial device, or host for the tcp models
	Option   *Option `json:"option"`
}

type Option struct {
	Port     int      `json:"port,omitempty"`
	BaudRate int      `json:"baudRate,omitempty"`
	DataBits int      `json:"dataBits,omitempty"`
	Parity   Parity   `json:"parity,omitempty"`
	StopBits StopBits `json:"stopBits,omitempty"`
}

// Transport issues single-register transactions against one slave. Errors
// returned wrap ErrTransport, ErrException or ErrShortResponse.
type Transport interface {
	ReadHoldingRegister(address uint16) (uint16, error)
	WriteSingleRegister(address uint16, value uint16) error
	Close() error
}

type TransportConfig struct {
	Address *Address
	Slave   uint8
	Timeout time.Duration
}
