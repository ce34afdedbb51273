package model

import (
	modbusrturuntime "solarbridge/pkg/protocol/modbusrtu/runtime"
)

var _ ModbusModeler = (*ModbusRtu)(nil)
var _ ModbusModeler = (*ModbusTcp)(nil)
var _ ModbusModeler = (*ModbusRtuOverTcp)(nil)

var ModbusModelers = map[string]ModbusModeler{
	modbusrturuntime.ModelRtu:        &ModbusRtu{},
	modbusrturuntime.ModelTcp:        &ModbusTcp{},
	modbusrturuntime.ModelRtuOverTcp: &ModbusRtuOverTcp{},
}

type ModbusModeler interface {
	NewTransport(config *modbusrturuntime.TransportConfig) (modbusrturuntime.Transport, error)
}
