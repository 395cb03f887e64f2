package device

import (
	"encoding/binary"
	"math"
)

// Buffer is a device-resident value: a flat byte payload tagged with the
// DType/Shape needed to reinterpret it. Host code never reaches into Bytes
// directly; it goes through FromFloat64/AsFloat64 so the stand-in CPU
// "device" can evaluate graphs uniformly in float64 regardless of the
// declared element type, matching how a real accelerator buffer is opaque
// to its caller until transferred back.
type Buffer struct {
	Shape Shape
	DType DType
	Bytes []byte
}

// FromFloat64 builds a Buffer of the given shape/dtype from row-major
// float64 values, narrowing to the target element width.
func FromFloat64(shape Shape, dtype DType, values []float64) *Buffer {
	buf := make([]byte, shape.Elems()*dtype.Size())
	for i, v := range values {
		off := i * dtype.Size()
		switch dtype {
		case F64:
			binary.LittleEndian.PutUint64(buf[off:], math.Float64bits(v))
		case F32:
			binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(float32(v)))
		case I64:
			binary.LittleEndian.PutUint64(buf[off:], uint64(int64(v)))
		case U64:
			binary.LittleEndian.PutUint64(buf[off:], uint64(v))
		case I32:
			binary.LittleEndian.PutUint32(buf[off:], uint32(int32(v)))
		case U32:
			binary.LittleEndian.PutUint32(buf[off:], uint32(v))
		case I16:
			binary.LittleEndian.PutUint16(buf[off:], uint16(int16(v)))
		case U16:
			binary.LittleEndian.PutUint16(buf[off:], uint16(v))
		case I8, U8:
			buf[off] = byte(int8(v))
		case Bool:
			if v != 0 {
				buf[off] = 1
			}
		}
	}
	return &Buffer{Shape: shape, DType: dtype, Bytes: buf}
}

// asFloat64 widens Bytes back to row-major float64 for graph evaluation.
func (b *Buffer) asFloat64() []float64 {
	n := b.Shape.Elems()
	out := make([]float64, n)
	size := b.DType.Size()
	for i := range out {
		off := i * size
		switch b.DType {
		case F64:
			out[i] = math.Float64frombits(binary.LittleEndian.Uint64(b.Bytes[off:]))
		case F32:
			out[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(b.Bytes[off:])))
		case I64:
			out[i] = float64(int64(binary.LittleEndian.Uint64(b.Bytes[off:])))
		case U64:
			out[i] = float64(binary.LittleEndian.Uint64(b.Bytes[off:]))
		case I32:
			out[i] = float64(int32(binary.LittleEndian.Uint32(b.Bytes[off:])))
		case U32:
			out[i] = float64(binary.LittleEndian.Uint32(b.Bytes[off:]))
		case I16:
			out[i] = float64(int16(binary.LittleEndian.Uint16(b.Bytes[off:])))
		case U16:
			out[i] = float64(binary.LittleEndian.Uint16(b.Bytes[off:]))
		case I8:
			out[i] = float64(int8(b.Bytes[off]))
		case U8:
			out[i] = float64(b.Bytes[off])
		case Bool:
			out[i] = 0
			if b.Bytes[off] != 0 {
				out[i] = 1
			}
		}
	}
	return out
}

// AsFloat64 is the exported form of asFloat64, used once a Buffer has been
// transferred back to the host (device.Client.TransferToHost).
func (b *Buffer) AsFloat64() []float64 { return b.asFloat64() }

// Clone makes an independent copy of b.
func (b *Buffer) Clone() *Buffer {
	cp := make([]byte, len(b.Bytes))
	copy(cp, b.Bytes)
	return &Buffer{Shape: b.Shape, DType: b.DType, Bytes: cp}
}
