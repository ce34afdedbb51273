package renogy

import "solarbridge/pkg/utils/binutil"

// DecodeTemperature unpacks the TEMPERATURE register. Each byte carries a sign
// in bit 7 and the magnitude in °C in bits 0-6.
func DecodeTemperature(raw uint16) (controller, battery int) {
	high, low := binutil.HighLowBytes(raw)
	return signMagnitude(high), signMagnitude(low)
}

func signMagnitude(b uint8) int {
	v := int(b & 0x7F)
	if b&0x80 != 0 {
		return -v
	}
	return v
}
