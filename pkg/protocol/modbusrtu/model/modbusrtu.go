package model

import (
	"github.com/goburrow/modbus"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
	modbusrturuntime "solarbridge/pkg/protocol/modbusrtu/runtime"
	"solarbridge/pkg/utils/binutil"
)

var goburrowParity = map[modbusrturuntime.Parity]string{
	modbusrturuntime.NoParity:   "N",
	modbusrturuntime.OddParity:  "O",
	modbusrturuntime.EvenParity: "E",
}

type ModbusRtu struct {
}

func (m *ModbusRtu) NewTransport(config *modbusrturuntime.TransportConfig) (modbusrturuntime.Transport, error) {
	handler := modbus.NewRTUClientHandler(config.Address.Location)
	handler.BaudRate = config.Address.Option.BaudRate
	handler.DataBits = config.Address.Option.DataBits
	handler.Parity = goburrowParity[config.Address.Option.Parity]
	handler.StopBits = modbusrturuntime.StopBitsToInt[config.Address.Option.StopBits]
	handler.SlaveId = config.Slave
	handler.Timeout = config.Timeout

	if err := handler.Connect(); err != nil {
		klog.V(2).InfoS("Failed to connect serial port", "address", config.Address.Location, "error", err)
		return nil, errors.Wrapf(modbusrturuntime.ErrTransport, "open %s: %v", config.Address.Location, err)
	}
	return &rtuTransport{handler: handler, client: modbus.NewClient(handler)}, nil
}

type rtuTransport struct {
	handler *modbus.RTUClientHandler
	client  modbus.Client
}

func (t *rtuTransport) ReadHoldingRegister(address uint16) (uint16, error) {
	results, err := t.client.ReadHoldingRegisters(address, 1)
	if err != nil {
		return 0, classifyGoburrowError(err)
	}
	if len(results) < 2 {
		return 0, errors.Wrapf(modbusrturuntime.ErrShortResponse, "got %d bytes", len(results))
	}
	return binutil.ParseUint16BigEndian(results), nil
}

func (t *rtuTransport) WriteSingleRegister(address uint16, value uint16) error {
	if _, err := t.client.WriteSingleRegister(address, value); err != nil {
		return classifyGoburrowError(err)
	}
	return nil
}

func (t *rtuTransport) Close() error {
	return t.handler.Close()
}

func classifyGoburrowError(err error) error {
	var exception *modbus.ModbusError
	if errors.As(err, &exception) {
		return errors.Wrapf(modbusrturuntime.ErrException, "function %#x exception %#x", exception.FunctionCode, exception.ExceptionCode)
	}
	return errors.Wrap(modbusrturuntime.ErrTransport, err.Error())
}
