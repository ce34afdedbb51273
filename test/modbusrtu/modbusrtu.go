// Command modbusrtu reads every catalogued register of a charge controller
// once and prints it. It is a bench tool for checking wiring and slave id.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"solarbridge/pkg/protocol/modbusrtu"
	modbusrturuntime "solarbridge/pkg/protocol/modbusrtu/runtime"
	"solarbridge/pkg/renogy"
	"solarbridge/pkg/utils/binutil"
)

func main() {
	model := pflag.String("model", modbusrturuntime.ModelRtu, "modbusRtu, modbusTcp or modbusRtuOverTcp")
	location := pflag.String("location", modbusrturuntime.DefaultLocation, "serial device or host")
	port := pflag.Int("port", modbusrturuntime.DefaultPort, "tcp port")
	baudRate := pflag.Int("baud-rate", modbusrturuntime.DefaultBaudRate, "serial baud rate")
	slave := pflag.Uint8("slave", modbusrturuntime.DefaultSlave, "slave address")
	timeout := pflag.Duration("timeout", modbusrturuntime.DefaultTimeout, "per transaction timeout")
	pflag.Parse()

	reader, err := modbusrtu.NewReader(*model, &modbusrturuntime.TransportConfig{
		Address: &modbusrturuntime.Address{
			Location: *location,
			Option: &modbusrturuntime.Option{
				Port:     *port,
				BaudRate: *baudRate,
				DataBits: modbusrturuntime.DefaultDataBits,
				Parity:   modbusrturuntime.NoParity,
				StopBits: modbusrturuntime.OneStopBit,
			},
		},
		Slave:   *slave,
		Timeout: *timeout,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	failures := 0
	for _, d := range renogy.Registers() {
		result := reader.Read(context.Background(), d.Address)
		if !result.Ok() {
			failures++
			fmt.Printf("0x%04X %-18s error: %v\n", d.Address, d.Name, result.Err)
			continue
		}
		fmt.Printf("0x%04X %-18s %6d  [% X]  %s\n", d.Address, d.Name, result.Value, binutil.Uint16ToBytes(result.Value), d.Scale)
		if d.Address == renogy.Temperature {
			controller, battery := renogy.DecodeTemperature(result.Value)
			fmt.Printf("       controller %d °C, battery %d °C\n", controller, battery)
		}
	}
	_ = reader.Close()
	if failures != 0 {
		os.Exit(2)
	}
}
