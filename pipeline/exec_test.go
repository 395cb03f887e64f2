package pipeline_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vectorframe/conduit/device"
	"github.com/vectorframe/conduit/pipeline"
)

const (
	timeoutForCompile = 2 * time.Second
	pollInterval       = time.Millisecond
)

// TestExecRunsBeforeCompiled covers the tri-state lifecycle spec.md's
// ExecMetadata describes: Run must still produce a correct result via the
// synchronous inline fallback while the compiled executable is not ready
// (here, because StartCompiling is never called).
func TestExecRunsBeforeCompiled(t *testing.T) {
	a, b, c := scalar("a"), scalar("b"), scalar("c")
	sys := pipeline.FromFn2("add", a, b, c, func(av, bv pipeline.Var) pipeline.Var {
		return pipeline.Var{Meta: c, Expr: device.Add(av.Expr, bv.Expr)}
	})

	client := device.NewLocal()
	exec, err := pipeline.NewExec(sys, client, nil, pipeline.ConstRows(2))
	require.NoError(t, err)
	require.Equal(t, pipeline.NotCompiled, exec.State())

	args := []*device.Buffer{
		device.FromFloat64(device.Shape{2}, device.F64, []float64{1, 2}),
		device.FromFloat64(device.Shape{2}, device.F64, []float64{10, 20}),
	}
	out, err := exec.Run(context.Background(), args)
	require.NoError(t, err)
	require.Equal(t, []float64{11, 22}, out[0].AsFloat64())
}

// TestExecStartCompilingTransitionsToCompiled drives a real CompilePool and
// waits for the background compile to finish, then confirms Run uses the
// compiled path for the same result.
func TestExecStartCompilingTransitionsToCompiled(t *testing.T) {
	a, c := scalar("a"), scalar("c")
	sys := pipeline.FromFn1("double", a, c, func(av pipeline.Var) pipeline.Var {
		return pipeline.Var{Meta: c, Expr: device.Add(av.Expr, av.Expr)}
	})

	pool := device.NewCompilePool(1)
	defer pool.Close()

	client := device.NewLocal()
	exec, err := pipeline.NewExec(sys, client, pool, pipeline.ConstRows(1))
	require.NoError(t, err)

	exec.StartCompiling(context.Background())
	require.Eventually(t, func() bool {
		return exec.State() == pipeline.Compiled
	}, timeoutForCompile, pollInterval)

	out, err := exec.Run(context.Background(), []*device.Buffer{
		device.FromFloat64(device.Shape{1}, device.F64, []float64{4}),
	})
	require.NoError(t, err)
	require.Equal(t, []float64{8}, out[0].AsFloat64())
}
