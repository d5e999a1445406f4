package fxplc

import (
	"encoding/binary"
	"math"
)

// NumberEncoding is the closed set of numeric wire encodings (spec.md §3).
// All encodings are little-endian on the wire.
type NumberEncoding byte

const (
	WordSigned NumberEncoding = iota
	WordUnsigned
	DoubleWordSigned
	DoubleWordUnsigned
	Float
)

// Size returns the number of wire bytes an encoding occupies.
func (e NumberEncoding) Size() int {
	switch e {
	case WordSigned, WordUnsigned:
		return 2
	case DoubleWordSigned, DoubleWordUnsigned, Float:
		return 4
	}
	return 0
}

// decodeNumber converts wire bytes into a Go number per the encoding.
// The caller must ensure len(data) == e.Size().
func decodeNumber(e NumberEncoding, data []byte) interface{} {
	switch e {
	case WordSigned:
		return int16(binary.LittleEndian.Uint16(data))
	case WordUnsigned:
		return binary.LittleEndian.Uint16(data)
	case DoubleWordSigned:
		return int32(binary.LittleEndian.Uint32(data))
	case DoubleWordUnsigned:
		return binary.LittleEndian.Uint32(data)
	case Float:
		return math.Float32frombits(binary.LittleEndian.Uint32(data))
	}
	return nil
}

// encodeNumber converts a Go number into wire bytes per the encoding.
func encodeNumber(e NumberEncoding, value float64) []byte {
	buf := make([]byte, e.Size())
	switch e {
	case WordSigned:
		binary.LittleEndian.PutUint16(buf, uint16(int16(value)))
	case WordUnsigned:
		binary.LittleEndian.PutUint16(buf, uint16(value))
	case DoubleWordSigned:
		binary.LittleEndian.PutUint32(buf, uint32(int32(value)))
	case DoubleWordUnsigned:
		binary.LittleEndian.PutUint32(buf, uint32(value))
	case Float:
		binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(value)))
	}
	return buf
}
