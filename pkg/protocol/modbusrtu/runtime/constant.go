package runtime

import (
	"errors"
	"time"
)

var ErrTransport = errors.New("modbus transport failure")
var ErrException = errors.New("modbus exception response")
var ErrShortResponse = errors.New("modbus response data length not enough")
var ErrUnknownModel = errors.New("unknown modbus model")
var ErrReaderClosed = errors.New("modbus reader closed")

const (
	ModelRtu        = "modbusRtu"
	ModelTcp        = "modbusTcp"
	ModelRtuOverTcp = "modbusRtuOverTcp"
)

const (
	DefaultLocation = "/dev/ttyUSB0"
	DefaultBaudRate = 9600
	DefaultDataBits = 8
	DefaultSlave    = 1
	DefaultPort     = 502
	DefaultTimeout  = time.Second
)

type StopBits int

const (
	OneStopBit StopBits = iota
	TwoStopBits
)

var StopBitsToString = map[StopBits]string{
	OneStopBit:  "1",
	TwoStopBits: "2",
}

var StringToStopBits = map[string]StopBits{
	"1": OneStopBit,
	"2": TwoStopBits,
}

var StopBitsToInt = map[StopBits]int{
	OneStopBit:  1,
	TwoStopBits: 2,
}

type Parity int

const (
	NoParity Parity = iota
	OddParity
	EvenParity
)

var ParityToString = map[Parity]string{
	NoParity:   "noParity",
	OddParity:  "oddParity",
	EvenParity: "evenParity",
}

var StringToParity = map[string]Parity{
	"noParity":   NoParity,
	"oddParity":  OddParity,
	"evenParity": EvenParity,
}
