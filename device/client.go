package device

import "context"

// Client is the accelerator client boundary: compile a traced Module into
// an Executable, and move values across the host/device line. spec.md §1
// treats the real client as an opaque external collaborator; Local is the
// only Client implementation this module ships, but pipeline/sim code
// against this interface so a real accelerator binding can be dropped in
// without touching either package.
type Client interface {
	Compile(ctx context.Context, mod *Module) (Executable, error)
	TransferToDevice(buf *Buffer) *Buffer
	TransferToHost(buf *Buffer) *Buffer
}

// Executable is a compiled Module, ready to run repeatedly against
// differently-bound argument buffers without re-tracing (the "compile
// once, execute many times" discipline of spec.md's trace-once system
// pipeline).
type Executable interface {
	ExecuteBuffers(ctx context.Context, args []*Buffer) ([]*Buffer, error)
	NumParams() int
}
