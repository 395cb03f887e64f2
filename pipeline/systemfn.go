package pipeline

import "github.com/vectorframe/conduit/ecs"

// FromFn1 builds a single-input, single-output System from a plain Go
// function over symbolic Vars. spec.md's design notes allow "a small set
// of system_from_fn{N} constructors up to some N (≥ 12)"; this module
// implements N = 1..4, which covers every scenario in spec.md §8 (none
// needs more than two inputs) — see DESIGN.md for the scope decision.
func FromFn1(name string, in ecs.Metadata, out ecs.Metadata, fn func(Var) Var) System {
	return NewErasedSystem(name, []ecs.Metadata{in}, []ecs.Metadata{out}, func(ins []Var) []Var {
		return []Var{fn(ins[0])}
	})
}

// FromFn2 builds a two-input, single-output System.
func FromFn2(name string, in1, in2 ecs.Metadata, out ecs.Metadata, fn func(Var, Var) Var) System {
	return NewErasedSystem(name, []ecs.Metadata{in1, in2}, []ecs.Metadata{out}, func(ins []Var) []Var {
		return []Var{fn(ins[0], ins[1])}
	})
}

// FromFn3 builds a three-input, single-output System.
func FromFn3(name string, in1, in2, in3 ecs.Metadata, out ecs.Metadata, fn func(Var, Var, Var) Var) System {
	return NewErasedSystem(name, []ecs.Metadata{in1, in2, in3}, []ecs.Metadata{out}, func(ins []Var) []Var {
		return []Var{fn(ins[0], ins[1], ins[2])}
	})
}

// FromFn4 builds a four-input, single-output System.
func FromFn4(name string, in1, in2, in3, in4 ecs.Metadata, out ecs.Metadata, fn func(Var, Var, Var, Var) Var) System {
	return NewErasedSystem(name, []ecs.Metadata{in1, in2, in3, in4}, []ecs.Metadata{out}, func(ins []Var) []Var {
		return []Var{fn(ins[0], ins[1], ins[2], ins[3])}
	})
}

// FromFn1Multi builds a single-input, multi-output System — used when one
// query feeds several independently-written components (e.g. a system
// that both reads and rewrites world_pos and world_vel together).
func FromFn1Multi(name string, in ecs.Metadata, outs []ecs.Metadata, fn func(Var) []Var) System {
	return NewErasedSystem(name, []ecs.Metadata{in}, outs, func(ins []Var) []Var {
		return fn(ins[0])
	})
}

// FromFn2Multi builds a two-input, multi-output System.
func FromFn2Multi(name string, in1, in2 ecs.Metadata, outs []ecs.Metadata, fn func(Var, Var) []Var) System {
	return NewErasedSystem(name, []ecs.Metadata{in1, in2}, outs, func(ins []Var) []Var {
		return fn(ins[0], ins[1])
	})
}
