package model

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/simonvetter/modbus"
	"k8s.io/klog/v2"
	modbusrturuntime "solarbridge/pkg/protocol/modbusrtu/runtime"
)

var exceptionErrors = map[error]struct{}{
	modbus.ErrIllegalFunction:         {},
	modbus.ErrIllegalDataAddress:      {},
	modbus.ErrIllegalDataValue:        {},
	modbus.ErrServerDeviceFailure:     {},
	modbus.ErrAcknowledge:             {},
	modbus.ErrServerDeviceBusy:        {},
	modbus.ErrMemoryParityError:       {},
	modbus.ErrGWPathUnavailable:       {},
	modbus.ErrGWTargetFailedToRespond: {},
}

type ModbusTcp struct {
}

func (m *ModbusTcp) NewTransport(config *modbusrturuntime.TransportConfig) (modbusrturuntime.Transport, error) {
	return openNetTransport("tcp", config)
}

// openNetTransport dials the slave through simonvetter/modbus, which owns
// both the MBAP and the RTU-over-TCP framing.
func openNetTransport(scheme string, config *modbusrturuntime.TransportConfig) (modbusrturuntime.Transport, error) {
	port := modbusrturuntime.DefaultPort
	if config.Address.Option != nil && config.Address.Option.Port > 0 {
		port = config.Address.Option.Port
	}
	url := fmt.Sprintf("%s://%s:%d", scheme, config.Address.Location, port)
	client, err := modbus.NewClient(&modbus.ClientConfiguration{
		URL:     url,
		Timeout: config.Timeout,
	})
	if err != nil {
		return nil, errors.Wrapf(modbusrturuntime.ErrTransport, "configure %s: %v", url, err)
	}
	if err = client.Open(); err != nil {
		klog.V(2).InfoS("Failed to connect modbus server", "url", url, "error", err)
		return nil, errors.Wrapf(modbusrturuntime.ErrTransport, "open %s: %v", url, err)
	}
	if err = client.SetUnitId(config.Slave); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(modbusrturuntime.ErrTransport, "unit id %d: %v", config.Slave, err)
	}
	return &netTransport{client: client}, nil
}

type netTransport struct {
	client *modbus.ModbusClient
}

func (t *netTransport) ReadHoldingRegister(address uint16) (uint16, error) {
	value, err := t.client.ReadRegister(address, modbus.HOLDING_REGISTER)
	if err != nil {
		return 0, classifySimonvetterError(err)
	}
	return value, nil
}

func (t *netTransport) WriteSingleRegister(address uint16, value uint16) error {
	if err := t.client.WriteRegister(address, value); err != nil {
		return classifySimonvetterError(err)
	}
	return nil
}

func (t *netTransport) Close() error {
	return t.client.Close()
}

func classifySimonvetterError(err error) error {
	if _, ok := exceptionErrors[err]; ok {
		return errors.Wrap(modbusrturuntime.ErrException, err.Error())
	}
	if err == modbus.ErrShortFrame {
		return errors.Wrap(modbusrturuntime.ErrShortResponse, err.Error())
	}
	return errors.Wrap(modbusrturuntime.ErrTransport, err.Error())
}
