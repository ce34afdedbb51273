package binutil

// ParseUint16BigEndian decodes a register word as sent on the wire (AB).
func ParseUint16BigEndian(buf []byte) uint16 {
	return uint16(buf[0])<<8 + uint16(buf[1])
}

// Uint16ToBytes encodes a register word in wire order.
func Uint16ToBytes(value uint16) []byte {
	buf := make([]byte, 2)
	buf[0] = byte(value >> 8)
	buf[1] = byte(value)
	return buf
}

// HighLowBytes splits a register into its two packed bytes.
func HighLowBytes(value uint16) (high, low uint8) {
	return uint8(value >> 8), uint8(value)
}
