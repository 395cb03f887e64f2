// Package startuptick is spec.md §8's "startup + tick" scenario: a single
// scalar component A, a startup system that triples it (run exactly once)
// and a tick system that increments it by one (run every call). Spawning
// A=1 and running once must leave A at 4.0 (1*3, then +1). Not part of the
// core module.
package startuptick

import (
	"github.com/vectorframe/conduit/device"
	"github.com/vectorframe/conduit/ecs"
	"github.com/vectorframe/conduit/ecs/storage"
	"github.com/vectorframe/conduit/pipeline"
)

// A is the scenario's sole component.
var A = ecs.Metadata{Name: "a", Type: ecs.ComponentType{Primitive: ecs.F64}}

// Startup returns the once-only system A := A * 3.
func Startup() pipeline.System {
	return pipeline.FromFn1("triple", A, A, func(av pipeline.Var) pipeline.Var {
		three := device.Const(device.Shape{1}, device.F64, []float64{3})
		return pipeline.Var{Meta: A, Expr: device.Mul(av.Expr, three)}
	})
}

// Tick returns the every-tick system A := A + 1.
func Tick() pipeline.System {
	return pipeline.FromFn1("increment", A, A, func(av pipeline.Var) pipeline.Var {
		one := device.Const(device.Shape{1}, device.F64, []float64{1})
		return pipeline.Var{Meta: A, Expr: device.Add(av.Expr, one)}
	})
}

// Build populates a fresh World with A=1 on a single entity and returns it
// alongside the scenario's startup and tick system lists, ready to be
// handed to sim.NewWorldExec.
func Build() (*ecs.World, []pipeline.System, []pipeline.System) {
	world := ecs.NewWorld()
	_, _ = world.Spawn("entities", []ecs.ComponentValue{
		{Meta: A, Bytes: storage.Float64ToBytes([]float64{1})},
	})
	return world, []pipeline.System{Startup()}, []pipeline.System{Tick()}
}
