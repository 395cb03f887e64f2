// Package pipeline implements Conduit's trace-once/compile-many system
// compiler: a System's Go function body runs exactly once, against
// symbolic device.Expr placeholders, to produce a device.Module; every
// subsequent tick re-executes the already-compiled device.Executable
// against that tick's bound column buffers instead of re-running Go code.
package pipeline

import (
	"fmt"

	"github.com/vectorframe/conduit/device"
	"github.com/vectorframe/conduit/ecs"
)

// Var is one traced value flowing through a system body: the component
// metadata it is ultimately bound to (or will be written back to) paired
// with the symbolic expression that produces it.
type Var struct {
	Meta ecs.Metadata
	Expr device.Expr
}

// Builder accumulates the Parameter nodes a system body references, in
// first-reference order, mirroring spec.md §4.4's param_ids/param_ops
// bookkeeping. One Builder traces exactly one System.
type Builder struct {
	params []ecs.Metadata
	shapes []device.Shape
	dtypes []device.DType
}

func newBuilder() *Builder {
	return &Builder{}
}

// Param returns a symbolic placeholder bound to meta, reusing the same
// device.Parameter index if meta was already referenced earlier in this
// trace (same ComponentId), and bound to len rows.
func (b *Builder) Param(meta ecs.Metadata, rows int) Var {
	for i, m := range b.params {
		if m.ID() == meta.ID() {
			return Var{Meta: meta, Expr: device.Parameter(i, b.shapes[i], b.dtypes[i])}
		}
	}
	shape := ToDeviceShape(meta.Type, rows)
	dtype := ToDeviceDType(meta.Type.Primitive)
	idx := len(b.params)
	b.params = append(b.params, meta)
	b.shapes = append(b.shapes, shape)
	b.dtypes = append(b.dtypes, dtype)
	return Var{Meta: meta, Expr: device.Parameter(idx, shape, dtype)}
}

// Module freezes the Builder's accumulated parameters alongside ret into a
// device.Module ready for device.Client.Compile.
func (b *Builder) Module(ret device.Expr) (*device.Module, error) {
	specs := make([]device.ParamSpec, len(b.params))
	for i := range b.params {
		specs[i] = device.ParamSpec{Shape: b.shapes[i], DType: b.dtypes[i]}
	}
	return device.NewModule(specs, ret)
}

// ParamOrder returns the component metadata bound to each parameter index,
// in the order Exec must supply argument buffers.
func (b *Builder) ParamOrder() []ecs.Metadata {
	out := make([]ecs.Metadata, len(b.params))
	copy(out, b.params)
	return out
}

// ToDeviceShape prepends a row count to a component's per-entity shape,
// producing the device.Shape a column's device.Buffer is bound under.
// Exported for sim.SharedWorld, which performs the same host<->device
// translation outside of a trace.
func ToDeviceShape(t ecs.ComponentType, rows int) device.Shape {
	shape := make(device.Shape, 0, len(t.Shape)+1)
	shape = append(shape, rows)
	shape = append(shape, t.Shape...)
	return shape
}

// ToDeviceDType maps an ecs.Primitive to its device.DType counterpart.
func ToDeviceDType(p ecs.Primitive) device.DType {
	switch p {
	case ecs.I8:
		return device.I8
	case ecs.I16:
		return device.I16
	case ecs.I32:
		return device.I32
	case ecs.I64:
		return device.I64
	case ecs.U8:
		return device.U8
	case ecs.U16:
		return device.U16
	case ecs.U32:
		return device.U32
	case ecs.U64:
		return device.U64
	case ecs.F32:
		return device.F32
	case ecs.F64:
		return device.F64
	case ecs.Bool:
		return device.Bool
	default:
		panic(fmt.Sprintf("pipeline: unhandled primitive %v", p))
	}
}
