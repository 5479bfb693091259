package numeric

import (
	"encoding/binary"
	"math"
)

// SortableFloat32Bits maps f to an int32 whose signed order matches the
// order of f, with -0 before +0 and NaN after +Inf. The mapping is its own
// inverse on the bit pattern.
func SortableFloat32Bits(f float32) int32 {
	bits := int32(math.Float32bits(f))
	return bits ^ (bits >> 31 & 0x7fffffff)
}

// SortableFloat32 reverses SortableFloat32Bits.
func SortableFloat32(bits int32) float32 {
	return math.Float32frombits(uint32(bits ^ (bits >> 31 & 0x7fffffff)))
}

// SortableFloat64Bits is the float64 variant of SortableFloat32Bits.
func SortableFloat64Bits(f float64) int64 {
	bits := int64(math.Float64bits(f))
	return bits ^ (bits >> 63 & 0x7fffffffffffffff)
}

// SortableFloat64 reverses SortableFloat64Bits.
func SortableFloat64(bits int64) float64 {
	return math.Float64frombits(uint64(bits ^ (bits >> 63 & 0x7fffffffffffffff)))
}

// Points are big endian with the sign bit flipped, so that unsigned byte
// comparison matches signed integer order.

func encodeInt32Point(v int32) []byte {
	return binary.BigEndian.AppendUint32(make([]byte, 0, 4), uint32(v)^(1<<31))
}

func decodeInt32Point(b []byte) int32 {
	return int32(binary.BigEndian.Uint32(b) ^ (1 << 31))
}

func encodeInt64Point(v int64) []byte {
	return binary.BigEndian.AppendUint64(make([]byte, 0, 8), uint64(v)^(1<<63))
}

func decodeInt64Point(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b) ^ (1 << 63))
}
