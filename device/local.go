package device

import (
	"context"
	"fmt"
)

// Local is a pure-Go CPU stand-in for the accelerator client: Compile does
// no lowering work (it only rejects a nil module), and the returned
// Executable checks argument count and shapes, then calls Expr.eval
// directly against the bound buffers. It exists so
// the rest of the module can be written and tested against the real
// Client interface without a native accelerator dependency.
type Local struct{}

// NewLocal returns the CPU stand-in Client.
func NewLocal() *Local { return &Local{} }

func (Local) Compile(ctx context.Context, mod *Module) (Executable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if mod == nil {
		return nil, fmt.Errorf("device: cannot compile a nil module")
	}
	return &localExecutable{mod: mod}, nil
}

func (Local) TransferToDevice(buf *Buffer) *Buffer { return buf.Clone() }

func (Local) TransferToHost(buf *Buffer) *Buffer { return buf.Clone() }

type localExecutable struct {
	mod *Module
}

func (e *localExecutable) NumParams() int { return len(e.mod.Params) }

func (e *localExecutable) ExecuteBuffers(ctx context.Context, args []*Buffer) ([]*Buffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(args) != len(e.mod.Params) {
		return nil, fmt.Errorf("device: executable expects %d arguments, got %d", len(e.mod.Params), len(args))
	}
	for i, p := range e.mod.Params {
		if !args[i].Shape.Equal(p.Shape) {
			return nil, fmt.Errorf("device: argument %d shape %v does not match param shape %v", i, args[i].Shape, p.Shape)
		}
	}
	outs := e.mod.ReturnValues()
	results := make([]*Buffer, len(outs))
	for i, out := range outs {
		vals, err := out.eval(args)
		if err != nil {
			return nil, err
		}
		results[i] = FromFloat64(out.Shape(), out.DType(), vals)
	}
	return results, nil
}
