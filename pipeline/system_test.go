package pipeline_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vectorframe/conduit/device"
	"github.com/vectorframe/conduit/ecs"
	"github.com/vectorframe/conduit/pipeline"
)

func scalar(name string) ecs.Metadata {
	return ecs.Metadata{Name: name, Type: ecs.ComponentType{Primitive: ecs.F64}}
}

func runTraced(t *testing.T, sys pipeline.System, args map[string][]float64, rows int) map[string][]float64 {
	t.Helper()
	client := device.NewLocal()
	exec, err := pipeline.NewExec(sys, client, nil, pipeline.ConstRows(rows))
	require.NoError(t, err)

	bufs := make([]*device.Buffer, len(exec.Params()))
	for i, meta := range exec.Params() {
		vals, ok := args[meta.Name]
		require.True(t, ok, "missing arg %q", meta.Name)
		bufs[i] = device.FromFloat64(device.Shape{rows}, device.F64, vals)
	}

	outs, err := exec.Run(context.Background(), bufs)
	require.NoError(t, err)

	result := make(map[string][]float64, len(outs))
	for i, meta := range exec.Outputs() {
		result[meta.Name] = outs[i].AsFloat64()
	}
	return result
}

// TestPipeComposesTwoSystems verifies Pipe's component-name matching: sum's
// output c feeds scale's input of the same name directly, and scale's other
// input d is traced as a fresh parameter alongside sum's inputs.
func TestPipeComposesTwoSystems(t *testing.T) {
	a, b, c, d := scalar("a"), scalar("b"), scalar("c"), scalar("d")

	sum := pipeline.FromFn2("sum", a, b, c, func(av, bv pipeline.Var) pipeline.Var {
		return pipeline.Var{Meta: c, Expr: device.Add(av.Expr, bv.Expr)}
	})
	scale := pipeline.FromFn2("scale", c, d, c, func(cv, dv pipeline.Var) pipeline.Var {
		return pipeline.Var{Meta: c, Expr: device.Mul(cv.Expr, dv.Expr)}
	})

	combined := sum.Pipe(scale)
	require.ElementsMatch(t, []string{"a", "b", "d"}, namesOf(combined.Inputs()))
	require.Equal(t, []string{"c"}, namesOf(combined.Outputs()))

	out := runTraced(t, combined, map[string][]float64{
		"a": {1, 2},
		"b": {10, 20},
		"d": {2, 2},
	}, 2)
	require.Equal(t, []float64{22, 44}, out["c"])
}

func namesOf(metas []ecs.Metadata) []string {
	out := make([]string, len(metas))
	for i, m := range metas {
		out[i] = m.Name
	}
	return out
}

// TestRowPairsInOrderSkipsUnknownIDs covers spec.md §4.4.1's scatter
// ordering: pairs come back in ascending existing-row order, and update
// ids absent from the existing set are dropped rather than erroring.
func TestRowPairsInOrderSkipsUnknownIDs(t *testing.T) {
	existing := []ecs.EntityID{10, 11, 12}
	updates := []ecs.EntityID{12, 99, 10}

	pairs := pipeline.RowPairsInOrder(existing, updates)
	require.Equal(t, []device.RowPair{
		{Existing: 0, Update: 2},
		{Existing: 2, Update: 0},
	}, pairs)
}
