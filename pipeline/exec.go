package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/vectorframe/conduit/device"
	"github.com/vectorframe/conduit/ecs"
)

// RowsFor resolves how many rows (entities) a component's device parameter
// should be shaped with while tracing a System. It is called once per
// System.Inputs() entry rather than once per System, because a system's
// inputs can come from differently-sized archetypes — spec.md §8's
// "indexed get" scenario binds a one-row Seed against a per-entity Value
// column, and baking one shared row count into every parameter would bind
// Seed's shape to Value's row count instead of its own.
type RowsFor func(meta ecs.Metadata) (int, error)

// ConstRows returns a RowsFor answering n for every component, for the
// common case of a system whose inputs all share one archetype.
func ConstRows(n int) RowsFor {
	return func(ecs.Metadata) (int, error) { return n, nil }
}

// CompileState is the tri-state lifecycle of an Exec's compiled form
// (spec.md's ExecMetadata): a system can run before its background
// compilation is ready (Run then compiles the module inline for that call),
// switching over transparently once compilation finishes in the background.
type CompileState uint8

const (
	NotCompiled CompileState = iota
	Compiling
	Compiled
)

func (s CompileState) String() string {
	switch s {
	case NotCompiled:
		return "not_compiled"
	case Compiling:
		return "compiling"
	case Compiled:
		return "compiled"
	default:
		return "unknown"
	}
}

// Exec binds a traced System to a device.Client, managing the
// not-compiled/compiling/compiled state machine across ticks. One Exec
// exists per System registered with a pipeline (spec.md's C8).
type Exec struct {
	mu      sync.Mutex
	sys     System // nil for an Exec rebuilt by ReadFromDir, which has no System to trace
	name    string
	client  device.Client
	pool    *device.CompilePool
	module  *device.Module
	params  []ecs.Metadata
	outputs []ecs.Metadata

	state  CompileState
	handle *device.CompileHandle
	exec   device.Executable
}

// NewExec traces sys immediately (tracing is cheap — it only builds a
// symbolic graph) and returns an Exec that can already Run (compiling
// inline per call) while compilation is kicked off separately via
// StartCompiling.
func NewExec(sys System, client device.Client, pool *device.CompilePool, rows RowsFor) (*Exec, error) {
	b := newBuilder()
	ins := make([]Var, len(sys.Inputs()))
	for i, meta := range sys.Inputs() {
		n, err := rows(meta)
		if err != nil {
			return nil, fmt.Errorf("pipeline: rows for system %q input %q: %w", sys.Name(), meta.Name, err)
		}
		ins[i] = b.Param(meta, n)
	}
	outs := sys.Trace(ins)

	retExprs := make([]device.Expr, len(outs))
	for i, v := range outs {
		retExprs[i] = v.Expr
	}
	mod, err := b.Module(device.Tuple(retExprs...))
	if err != nil {
		return nil, err
	}

	return &Exec{
		sys:     sys,
		name:    sys.Name(),
		client:  client,
		pool:    pool,
		module:  mod,
		params:  b.ParamOrder(),
		outputs: sys.Outputs(),
		state:   NotCompiled,
	}, nil
}

// Params returns component metadata in the order Run expects argument
// buffers.
func (e *Exec) Params() []ecs.Metadata { return e.params }

// Outputs returns component metadata in the order Run returns result
// buffers.
func (e *Exec) Outputs() []ecs.Metadata { return e.outputs }

// State reports the current compile state, polling the in-flight compile
// handle if one exists.
func (e *Exec) State() CompileState {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pollLocked()
	return e.state
}

func (e *Exec) pollLocked() {
	if e.state != Compiling || e.handle == nil {
		return
	}
	if exec, err, done := e.handle.Poll(); done {
		if err == nil {
			e.exec = exec
			e.state = Compiled
		} else {
			e.state = NotCompiled
		}
		e.handle = nil
	}
}

// StartCompiling kicks off asynchronous compilation if none is already in
// flight and the module isn't compiled yet. It never blocks.
func (e *Exec) StartCompiling(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pollLocked()
	if e.state != NotCompiled {
		return
	}
	e.state = Compiling
	mod := e.module
	client := e.client
	e.handle = e.pool.Submit(ctx, func(ctx context.Context) (device.Executable, error) {
		return client.Compile(ctx, mod)
	})
}

// Run executes the system for this tick: if the compiled executable is
// ready it runs that directly, otherwise it compiles synchronously inline
// (spec.md's fallback for a system whose first few ticks must still make
// progress while compilation proceeds in the background).
func (e *Exec) Run(ctx context.Context, args []*device.Buffer) ([]*device.Buffer, error) {
	e.mu.Lock()
	e.pollLocked()
	state := e.state
	compiled := e.exec
	e.mu.Unlock()

	if state == Compiled {
		return compiled.ExecuteBuffers(ctx, args)
	}

	exec, err := e.client.Compile(ctx, e.module)
	if err != nil {
		return nil, err
	}
	return exec.ExecuteBuffers(ctx, args)
}

// Name forwards to the underlying System, or the name recorded in a
// manifest for an Exec rebuilt by ReadFromDir.
func (e *Exec) Name() string { return e.name }
