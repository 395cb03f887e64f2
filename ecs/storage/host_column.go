// Package storage holds the two leaf storage primitives of the ECS data
// model: the type-erased HostColumn (C2) and the content-addressed asset
// store (C3). It is adapted from DangerosoDavo-ecs's ecs/storage package,
// which held per-component-type stores (dense.go, shared.go); those stored
// arbitrary `any` values per entity, whereas spec.md's columns are
// contiguous byte buffers shared with an accelerator, so both files are
// rewritten around a row_size/byte-buffer model instead.
package storage

import (
	"encoding/binary"
	"fmt"

	"github.com/vectorframe/conduit/ecs"
)

// HostColumn is a type-erased, contiguous byte buffer with a fixed row size
// derived from its Metadata, plus a row count. Invariant:
// len(Buf) == Len*Metadata.Type.RowSize().
type HostColumn struct {
	Metadata ecs.Metadata
	Buf      []byte
	Len      int
}

// NewHostColumn constructs an empty column for the given metadata.
func NewHostColumn(meta ecs.Metadata) *HostColumn {
	return &HostColumn{Metadata: meta}
}

// RowSize returns the byte size of a single row.
func (c *HostColumn) RowSize() int {
	return c.Metadata.Type.RowSize()
}

// PushRaw appends one row's raw bytes, validating their length against the
// column's row size. Append-only; used during world construction.
func (c *HostColumn) PushRaw(row []byte) error {
	rowSize := c.RowSize()
	if len(row) != rowSize {
		return fmt.Errorf("%w: push expected %d bytes, got %d", ecs.ErrValueSizeMismatch, rowSize, len(row))
	}
	c.Buf = append(c.Buf, row...)
	c.Len++
	return nil
}

// UpdateRow overwrites row i in place with the supplied bytes.
func (c *HostColumn) UpdateRow(i int, row []byte) error {
	rowSize := c.RowSize()
	if len(row) != rowSize {
		return fmt.Errorf("%w: update expected %d bytes, got %d", ecs.ErrValueSizeMismatch, rowSize, len(row))
	}
	if i < 0 || i >= c.Len {
		return fmt.Errorf("%w: row %d out of range [0,%d)", ecs.ErrEntityNotFound, i, c.Len)
	}
	copy(c.Buf[i*rowSize:(i+1)*rowSize], row)
	return nil
}

// Row returns a view (not a copy) of row i's raw bytes.
func (c *HostColumn) Row(i int) ([]byte, error) {
	rowSize := c.RowSize()
	if i < 0 || i >= c.Len {
		return nil, fmt.Errorf("%w: row %d out of range [0,%d)", ecs.ErrEntityNotFound, i, c.Len)
	}
	return c.Buf[i*rowSize : (i+1)*rowSize], nil
}

// Clone returns a deep copy of the column, used by History snapshots.
func (c *HostColumn) Clone() *HostColumn {
	buf := make([]byte, len(c.Buf))
	copy(buf, c.Buf)
	return &HostColumn{Metadata: c.Metadata, Buf: buf, Len: c.Len}
}

// Float64View reinterprets the buffer as []float64 rows flattened, failing
// (returns false) if the column's primitive kind is not F64.
func (c *HostColumn) Float64View() ([]float64, bool) {
	if c.Metadata.Type.Primitive != ecs.F64 {
		return nil, false
	}
	return bytesToFloat64(c.Buf), true
}

// Float32View reinterprets the buffer as []float32, failing if the column's
// primitive kind is not F32.
func (c *HostColumn) Float32View() ([]float32, bool) {
	if c.Metadata.Type.Primitive != ecs.F32 {
		return nil, false
	}
	return bytesToFloat32(c.Buf), true
}

// Uint64View reinterprets the buffer as []uint64 (used for entity-id and
// asset-handle columns), failing if the primitive kind is not U64.
func (c *HostColumn) Uint64View() ([]uint64, bool) {
	if c.Metadata.Type.Primitive != ecs.U64 {
		return nil, false
	}
	return bytesToUint64(c.Buf), true
}

func bytesToFloat64(buf []byte) []float64 {
	n := len(buf) / 8
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		bits := binary.LittleEndian.Uint64(buf[i*8 : i*8+8])
		out[i] = float64FromBits(bits)
	}
	return out
}

func bytesToFloat32(buf []byte) []float32 {
	n := len(buf) / 4
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		bits := binary.LittleEndian.Uint32(buf[i*4 : i*4+4])
		out[i] = float32FromBits(bits)
	}
	return out
}

func bytesToUint64(buf []byte) []uint64 {
	n := len(buf) / 8
	out := make([]uint64, n)
	for i := 0; i < n; i++ {
		out[i] = binary.LittleEndian.Uint64(buf[i*8 : i*8+8])
	}
	return out
}

// Float64ToBytes serializes a flattened row-major float64 slice
// little-endian, matching the wire format in spec.md §6.
func Float64ToBytes(values []float64) []byte {
	out := make([]byte, len(values)*8)
	for i, v := range values {
		binary.LittleEndian.PutUint64(out[i*8:i*8+8], float64Bits(v))
	}
	return out
}

// Uint64ToBytes serializes a uint64 slice little-endian.
func Uint64ToBytes(values []uint64) []byte {
	out := make([]byte, len(values)*8)
	for i, v := range values {
		binary.LittleEndian.PutUint64(out[i*8:i*8+8], v)
	}
	return out
}

// Float32ToBytes serializes a flattened row-major float32 slice
// little-endian.
func Float32ToBytes(values []float32) []byte {
	out := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[i*4:i*4+4], float32Bits(v))
	}
	return out
}
