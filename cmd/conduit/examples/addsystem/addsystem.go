// Package addsystem is the "simple add system" scenario from spec.md §8:
// two entities each carrying scalar components a and b, one traced system
// computing c = a + b. It is the scenario cmd/conduit's run subcommand
// traces when no --dir is given (build uses startuptick), and exists
// purely as a runnable demonstration — not part of the core module.
package addsystem

import (
	"github.com/vectorframe/conduit/device"
	"github.com/vectorframe/conduit/ecs"
	"github.com/vectorframe/conduit/ecs/storage"
	"github.com/vectorframe/conduit/pipeline"
)

// Metadata for the scenario's three components.
var (
	A = ecs.Metadata{Name: "a", Type: ecs.ComponentType{Primitive: ecs.F64}}
	B = ecs.Metadata{Name: "b", Type: ecs.ComponentType{Primitive: ecs.F64}}
	C = ecs.Metadata{Name: "c", Type: ecs.ComponentType{Primitive: ecs.F64}}
)

// System returns the traced add system, c = a + b.
func System() pipeline.System {
	return pipeline.FromFn2("add", A, B, C, func(av, bv pipeline.Var) pipeline.Var {
		return pipeline.Var{Meta: C, Expr: device.Add(av.Expr, bv.Expr)}
	})
}

// Build populates a fresh World with two entities and returns it alongside
// the scenario's system list, ready to be handed to sim.NewWorldExec.
func Build() (*ecs.World, []pipeline.System) {
	world := ecs.NewWorld()
	_, _ = world.Spawn("entities", []ecs.ComponentValue{
		{Meta: A, Bytes: storage.Float64ToBytes([]float64{1})},
		{Meta: B, Bytes: storage.Float64ToBytes([]float64{10})},
		{Meta: C, Bytes: storage.Float64ToBytes([]float64{0})},
	})
	_, _ = world.Spawn("entities", []ecs.ComponentValue{
		{Meta: A, Bytes: storage.Float64ToBytes([]float64{2})},
		{Meta: B, Bytes: storage.Float64ToBytes([]float64{20})},
		{Meta: C, Bytes: storage.Float64ToBytes([]float64{0})},
	})
	return world, []pipeline.System{System()}
}
