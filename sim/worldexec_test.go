package sim_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vectorframe/conduit/device"
	"github.com/vectorframe/conduit/ecs"
	"github.com/vectorframe/conduit/ecs/storage"
	"github.com/vectorframe/conduit/pipeline"
	"github.com/vectorframe/conduit/sim"
)

func scalarF64(name string) ecs.Metadata {
	return ecs.Metadata{Name: name, Type: ecs.ComponentType{Primitive: ecs.F64}}
}

// TestWorldExecSimpleAdd is spec.md §8's "simple add system" scenario:
// C = A + B traced once and re-run across ticks without re-tracing.
func TestWorldExecSimpleAdd(t *testing.T) {
	a, b, c := scalarF64("a"), scalarF64("b"), scalarF64("c")

	world := ecs.NewWorld()
	_, err := world.Spawn("entities", []ecs.ComponentValue{
		{Meta: a, Bytes: storage.Float64ToBytes([]float64{1})},
		{Meta: b, Bytes: storage.Float64ToBytes([]float64{10})},
		{Meta: c, Bytes: storage.Float64ToBytes([]float64{0})},
	})
	require.NoError(t, err)
	_, err = world.Spawn("entities", []ecs.ComponentValue{
		{Meta: a, Bytes: storage.Float64ToBytes([]float64{2})},
		{Meta: b, Bytes: storage.Float64ToBytes([]float64{20})},
		{Meta: c, Bytes: storage.Float64ToBytes([]float64{0})},
	})
	require.NoError(t, err)

	addSystem := pipeline.FromFn2("add", a, b, c, func(av, bv pipeline.Var) pipeline.Var {
		return pipeline.Var{Meta: c, Expr: device.Add(av.Expr, bv.Expr)}
	})

	client := device.NewLocal()
	we, err := sim.NewWorldExec(world, client, nil, nil, []pipeline.System{addSystem}, 8)
	require.NoError(t, err)

	require.NoError(t, we.Run(context.Background()))

	col, err := world.Column(c.ID())
	require.NoError(t, err)
	values, ok := col.Float64View()
	require.True(t, ok)
	require.Equal(t, []float64{11, 22}, values)
	require.Equal(t, uint64(1), world.Tick())
}

// TestWorldExecIndexedGet covers spec.md §8's indexed-get scenario:
// V = V + Seed[0], broadcasting a single scalar row across every entity.
func TestWorldExecIndexedGet(t *testing.T) {
	v, seed := scalarF64("v"), ecs.WellKnownSeed

	world := ecs.NewWorld()
	_, err := world.Spawn("entities", []ecs.ComponentValue{
		{Meta: v, Bytes: storage.Float64ToBytes([]float64{1})},
		{Meta: seed, Bytes: storage.Float64ToBytes([]float64{100})},
	})
	require.NoError(t, err)
	_, err = world.Spawn("entities", []ecs.ComponentValue{
		{Meta: v, Bytes: storage.Float64ToBytes([]float64{2})},
		{Meta: seed, Bytes: storage.Float64ToBytes([]float64{999})},
	})
	require.NoError(t, err)

	sys := pipeline.FromFn2("indexed_get", v, seed, v, func(vv, sv pipeline.Var) pipeline.Var {
		first := device.Slice(sv.Expr, 0, 1)
		return pipeline.Var{Meta: v, Expr: device.Add(vv.Expr, first)}
	})

	client := device.NewLocal()
	we, err := sim.NewWorldExec(world, client, nil, nil, []pipeline.System{sys}, 8)
	require.NoError(t, err)
	require.NoError(t, we.Run(context.Background()))

	col, err := world.Column(v.ID())
	require.NoError(t, err)
	values, ok := col.Float64View()
	require.True(t, ok)
	require.Equal(t, []float64{101, 102}, values)
}

// TestWorldExecIndexedGetAcrossArchetypes is TestWorldExecIndexedGet's
// scenario with Seed and Value placed in genuinely different archetypes of
// different sizes (Seed on one entity, Value on two), the case a single
// shared row count can't express: each Param call must size its parameter
// from its own component's archetype, not from whichever input happens to
// be traced first.
func TestWorldExecIndexedGetAcrossArchetypes(t *testing.T) {
	v, seed := scalarF64("v"), ecs.WellKnownSeed

	world := ecs.NewWorld()
	_, err := world.Spawn("seeds", []ecs.ComponentValue{
		{Meta: seed, Bytes: storage.Float64ToBytes([]float64{5})},
	})
	require.NoError(t, err)
	_, err = world.Spawn("values", []ecs.ComponentValue{
		{Meta: v, Bytes: storage.Float64ToBytes([]float64{-1})},
	})
	require.NoError(t, err)
	_, err = world.Spawn("values", []ecs.ComponentValue{
		{Meta: v, Bytes: storage.Float64ToBytes([]float64{7})},
	})
	require.NoError(t, err)

	sys := pipeline.FromFn2("indexed_get_cross_archetype", v, seed, v, func(vv, sv pipeline.Var) pipeline.Var {
		first := device.Slice(sv.Expr, 0, 1)
		return pipeline.Var{Meta: v, Expr: device.Add(vv.Expr, first)}
	})

	client := device.NewLocal()
	we, err := sim.NewWorldExec(world, client, nil, nil, []pipeline.System{sys}, 8)
	require.NoError(t, err)
	require.NoError(t, we.Run(context.Background()))

	col, err := world.Column(v.ID())
	require.NoError(t, err)
	values, ok := col.Float64View()
	require.True(t, ok)
	require.Equal(t, []float64{4, 12}, values)
}

// TestWorldExecScatterSystemMatchingUpdate covers spec.md §8's update_var
// property through an actual WorldExec tick (not just RowPairsInOrder in
// isolation): scattering an update whose entity map equals the target's
// leaves the buffer byte-identical to the update buffer.
func TestWorldExecScatterSystemMatchingUpdate(t *testing.T) {
	value, patch := scalarF64("value"), scalarF64("patch")

	world := ecs.NewWorld()
	e1, err := world.Spawn("targets", []ecs.ComponentValue{
		{Meta: value, Bytes: storage.Float64ToBytes([]float64{1})},
	})
	require.NoError(t, err)
	e2, err := world.Spawn("targets", []ecs.ComponentValue{
		{Meta: value, Bytes: storage.Float64ToBytes([]float64{2})},
	})
	require.NoError(t, err)
	_, err = world.Spawn("patches", []ecs.ComponentValue{
		{Meta: patch, Bytes: storage.Float64ToBytes([]float64{100})},
	})
	require.NoError(t, err)
	_, err = world.Spawn("patches", []ecs.ComponentValue{
		{Meta: patch, Bytes: storage.Float64ToBytes([]float64{200})},
	})
	require.NoError(t, err)

	sys := pipeline.ScatterSystem("scatter_all", value, patch, []ecs.EntityID{e1, e2}, []ecs.EntityID{e1, e2})

	we, err := sim.NewWorldExec(world, device.NewLocal(), nil, nil, []pipeline.System{sys}, 8)
	require.NoError(t, err)
	require.NoError(t, we.Run(context.Background()))

	col, err := world.Column(value.ID())
	require.NoError(t, err)
	values, ok := col.Float64View()
	require.True(t, ok)
	require.Equal(t, []float64{100, 200}, values)
}

// TestWorldExecScatterSystemDisjointUpdate covers the other half of the
// same property: scattering an update whose entity map is disjoint from
// the target's leaves the buffer byte-identical to the original.
func TestWorldExecScatterSystemDisjointUpdate(t *testing.T) {
	value, patch := scalarF64("value"), scalarF64("patch")

	world := ecs.NewWorld()
	e1, err := world.Spawn("targets", []ecs.ComponentValue{
		{Meta: value, Bytes: storage.Float64ToBytes([]float64{1})},
	})
	require.NoError(t, err)
	e2, err := world.Spawn("targets", []ecs.ComponentValue{
		{Meta: value, Bytes: storage.Float64ToBytes([]float64{2})},
	})
	require.NoError(t, err)
	eOther, err := world.Spawn("patches", []ecs.ComponentValue{
		{Meta: patch, Bytes: storage.Float64ToBytes([]float64{999})},
	})
	require.NoError(t, err)

	sys := pipeline.ScatterSystem("scatter_none", value, patch, []ecs.EntityID{e1, e2}, []ecs.EntityID{eOther})

	we, err := sim.NewWorldExec(world, device.NewLocal(), nil, nil, []pipeline.System{sys}, 8)
	require.NoError(t, err)
	require.NoError(t, we.Run(context.Background()))

	col, err := world.Column(value.ID())
	require.NoError(t, err)
	values, ok := col.Float64View()
	require.True(t, ok)
	require.Equal(t, []float64{1, 2}, values)
}

// TestWorldExecVectorBroadcast covers spec.md §8's vector broadcast
// scenario: a shape-[3] component added to a scalar-seed broadcast across
// every row and every lane.
func TestWorldExecVectorBroadcast(t *testing.T) {
	pos := ecs.Metadata{Name: "pos", Type: ecs.ComponentType{Primitive: ecs.F64, Shape: []int{3}}}
	seed := scalarF64("seed")

	world := ecs.NewWorld()
	_, err := world.Spawn("entities", []ecs.ComponentValue{
		{Meta: pos, Bytes: storage.Float64ToBytes([]float64{1, 2, 3})},
		{Meta: seed, Bytes: storage.Float64ToBytes([]float64{10})},
	})
	require.NoError(t, err)
	_, err = world.Spawn("entities", []ecs.ComponentValue{
		{Meta: pos, Bytes: storage.Float64ToBytes([]float64{4, 5, 6})},
		{Meta: seed, Bytes: storage.Float64ToBytes([]float64{10})},
	})
	require.NoError(t, err)

	sys := pipeline.FromFn2("vector_broadcast", pos, seed, pos, func(pv, sv pipeline.Var) pipeline.Var {
		return pipeline.Var{Meta: pos, Expr: device.Add(pv.Expr, sv.Expr)}
	})

	we, err := sim.NewWorldExec(world, device.NewLocal(), nil, nil, []pipeline.System{sys}, 8)
	require.NoError(t, err)
	require.NoError(t, we.Run(context.Background()))

	col, err := world.Column(pos.ID())
	require.NoError(t, err)
	values, ok := col.Float64View()
	require.True(t, ok)
	require.Equal(t, []float64{11, 12, 13, 14, 15, 16}, values)
}
