package binutil

import "math"

// The THZ wire format is big-endian throughout.

func ParseUint16(b []byte) uint16 {
	return uint16(b[0])<<8 + uint16(b[1])
}

func ParseUint32(b []byte) uint32 {
	return uint32(b[0])<<24 +
		uint32(b[1])<<16 +
		uint32(b[2])<<8 +
		uint32(b[3])
}

func ParseUint64(b []byte) uint64 {
	return (uint64(b[0]) << 56) |
		(uint64(b[1]) << 48) |
		(uint64(b[2]) << 40) |
		(uint64(b[3]) << 32) |
		(uint64(b[4]) << 24) |
		(uint64(b[5]) << 16) |
		(uint64(b[6]) << 8) |
		uint64(b[7])
}

// ParseUintVarBigEndian reads an unsigned big-endian integer of any
// length. Input longer than 8 bytes keeps the low 64 bits.
func ParseUintVarBigEndian(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}

// ParseIntVarBigEndian reads a signed (two's complement) big-endian
// integer of any length up to 8 bytes.
func ParseIntVarBigEndian(b []byte) int64 {
	v := ParseUintVarBigEndian(b)
	bits := uint(len(b)) * 8
	if bits < 64 && v&(1<<(bits-1)) != 0 {
		v |= ^uint64(0) << bits
	}
	return int64(v)
}

func ParseFloat32BigEndian(b []byte) float32 {
	return math.Float32frombits(ParseUint32(b))
}

func ParseFloat64BigEndian(b []byte) float64 {
	return math.Float64frombits(ParseUint64(b))
}

func Uint16ToBytes(value uint16) []byte {
	buf := make([]byte, 2)
	buf[0] = byte(value >> 8)
	buf[1] = byte(value)
	return buf
}

func Int16ToBytes(value int16) []byte {
	return Uint16ToBytes(uint16(value))
}

func Uint32ToBytes(value uint32) []byte {
	buf := make([]byte, 4)
	buf[0] = byte(value >> 24)
	buf[1] = byte(value >> 16)
	buf[2] = byte(value >> 8)
	buf[3] = byte(value)
	return buf
}

func WriteUint16BigEndian(buf []byte, value uint16) {
	buf[0] = byte(value >> 8)
	buf[1] = byte(value)
}
