package pipeline_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vectorframe/conduit/device"
	"github.com/vectorframe/conduit/pipeline"
)

// TestReadFromDirRoundTrip covers spec.md §8's write_to_dir/read_from_dir
// round-trip property and the "startup + tick" scenario together: tracing
// a startup and a tick system, writing both to disk, reading them back
// without re-tracing, and running them must produce the same result as
// running the originals never touched disk.
func TestReadFromDirRoundTrip(t *testing.T) {
	a := scalar("a")
	startupSys := pipeline.FromFn1("triple", a, a, func(av pipeline.Var) pipeline.Var {
		three := device.Const(device.Shape{1}, device.F64, []float64{3})
		return pipeline.Var{Meta: a, Expr: device.Mul(av.Expr, three)}
	})
	tickSys := pipeline.FromFn1("increment", a, a, func(av pipeline.Var) pipeline.Var {
		one := device.Const(device.Shape{1}, device.F64, []float64{1})
		return pipeline.Var{Meta: a, Expr: device.Add(av.Expr, one)}
	})

	client := device.NewLocal()
	startupExec, err := pipeline.NewExec(startupSys, client, nil, pipeline.ConstRows(1))
	require.NoError(t, err)
	tickExec, err := pipeline.NewExec(tickSys, client, nil, pipeline.ConstRows(1))
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, pipeline.WriteSetToDir(dir, []*pipeline.Exec{startupExec}, []*pipeline.Exec{tickExec}))

	gotStartup, gotTick, err := pipeline.ReadSetFromDir(dir, client, nil)
	require.NoError(t, err)
	require.Len(t, gotStartup, 1)
	require.Len(t, gotTick, 1)
	require.Equal(t, "triple", gotStartup[0].Name())
	require.Equal(t, "increment", gotTick[0].Name())

	run := func(exec *pipeline.Exec, value float64) float64 {
		out, err := exec.Run(context.Background(), []*device.Buffer{
			device.FromFloat64(device.Shape{1}, device.F64, []float64{value}),
		})
		require.NoError(t, err)
		return out[0].AsFloat64()[0]
	}

	want := run(tickExec, run(startupExec, 1))
	got := run(gotTick[0], run(gotStartup[0], 1))
	require.Equal(t, 4.0, want)
	require.Equal(t, want, got)
}
