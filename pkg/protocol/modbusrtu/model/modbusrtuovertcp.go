package model

import (
	modbusrturuntime "solarbridge/pkg/protocol/modbusrtu/runtime"
)

// ModbusRtuOverTcp reaches a serial slave through a transparent serial-to-ethernet
// gateway: RTU frames with CRC carried over a plain TCP stream.
type ModbusRtuOverTcp struct {
}

func (m *ModbusRtuOverTcp) NewTransport(config *modbusrturuntime.TransportConfig) (modbusrturuntime.Transport, error) {
	return openNetTransport("rtuovertcp", config)
}
