// Package motion is a small worked example using the well-known
// world_pos/world_vel components from ecs.WellKnown*: one system
// integrates position by velocity each tick, exercising shape-[3] vector
// components (both operands have the same shape, so nothing is
// broadcast). Not part of the core module.
package motion

import (
	"github.com/vectorframe/conduit/device"
	"github.com/vectorframe/conduit/ecs"
	"github.com/vectorframe/conduit/ecs/storage"
	"github.com/vectorframe/conduit/pipeline"
)

// Integrate returns the traced system world_pos += world_vel.
func Integrate() pipeline.System {
	pos, vel := ecs.WellKnownWorldPos, ecs.WellKnownWorldVel
	return pipeline.FromFn2("integrate_position", pos, vel, pos, func(pv, vv pipeline.Var) pipeline.Var {
		return pipeline.Var{Meta: pos, Expr: device.Add(pv.Expr, vv.Expr)}
	})
}

// Build populates a fresh World with two moving entities.
func Build() (*ecs.World, []pipeline.System) {
	pos, vel := ecs.WellKnownWorldPos, ecs.WellKnownWorldVel
	world := ecs.NewWorld()
	_, _ = world.Spawn("movers", []ecs.ComponentValue{
		{Meta: pos, Bytes: storage.Float64ToBytes([]float64{0, 0, 0})},
		{Meta: vel, Bytes: storage.Float64ToBytes([]float64{1, 0, 0})},
	})
	_, _ = world.Spawn("movers", []ecs.ComponentValue{
		{Meta: pos, Bytes: storage.Float64ToBytes([]float64{10, 10, 10})},
		{Meta: vel, Bytes: storage.Float64ToBytes([]float64{0, -1, 2})},
	})
	return world, []pipeline.System{Integrate()}
}
