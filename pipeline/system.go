package pipeline

import (
	"fmt"

	"github.com/vectorframe/conduit/device"
	"github.com/vectorframe/conduit/ecs"
)

// System is one traceable unit of simulation logic: a pure function over a
// fixed set of input components that produces a fixed set of output
// components, traced exactly once into a device.Module (spec.md §4.1's
// "systems are pure functions over component arrays").
type System interface {
	Name() string
	Inputs() []ecs.Metadata
	Outputs() []ecs.Metadata
	// Trace runs the system body against symbolic placeholders, one per
	// Inputs() entry and in the same order, and returns one Var per
	// Outputs() entry, in the same order.
	Trace(ins []Var) []Var

	// Pipe returns a System equivalent to running this system and then
	// next, feeding this system's outputs into any of next's inputs that
	// share a component name; any of next's inputs left unmatched are
	// traced as fresh parameters alongside this system's own inputs.
	Pipe(next System) System
}

// ErasedSystem wraps a System and satisfies System itself, giving callers
// a concrete type to hold onto without caring how the system was built —
// mirrors the teacher's boxed System interface value (api.go's System),
// generalized from the work-group scheduler to the trace-once pipeline.
type ErasedSystem struct {
	name    string
	inputs  []ecs.Metadata
	outputs []ecs.Metadata
	trace   func(ins []Var) []Var
}

func NewErasedSystem(name string, inputs, outputs []ecs.Metadata, trace func(ins []Var) []Var) *ErasedSystem {
	return &ErasedSystem{name: name, inputs: inputs, outputs: outputs, trace: trace}
}

func (s *ErasedSystem) Name() string           { return s.name }
func (s *ErasedSystem) Inputs() []ecs.Metadata  { return s.inputs }
func (s *ErasedSystem) Outputs() []ecs.Metadata { return s.outputs }
func (s *ErasedSystem) Trace(ins []Var) []Var   { return s.trace(ins) }
func (s *ErasedSystem) Pipe(next System) System { return pipe(s, next) }

func pipe(a, b System) System {
	aOut := a.Outputs()
	bIn := b.Inputs()

	byName := map[string]int{}
	for i, m := range aOut {
		byName[m.Name] = i
	}

	var extraIns []ecs.Metadata
	for _, m := range bIn {
		if _, ok := byName[m.Name]; !ok {
			extraIns = append(extraIns, m)
		}
	}

	inputs := append(append([]ecs.Metadata{}, a.Inputs()...), extraIns...)
	name := fmt.Sprintf("%s|%s", a.Name(), b.Name())

	trace := func(ins []Var) []Var {
		aIns := ins[:len(a.Inputs())]
		extra := ins[len(a.Inputs()):]

		aOuts := a.Trace(aIns)
		aByName := map[string]Var{}
		for _, v := range aOuts {
			aByName[v.Meta.Name] = v
		}
		extraByName := map[string]Var{}
		for i, m := range extraIns {
			extraByName[m.Name] = extra[i]
		}

		bIns := make([]Var, len(bIn))
		for i, m := range bIn {
			if v, ok := aByName[m.Name]; ok {
				bIns[i] = v
				continue
			}
			bIns[i] = extraByName[m.Name]
		}
		return b.Trace(bIns)
	}

	return NewErasedSystem(name, inputs, b.Outputs(), trace)
}

// RowPairsInOrder builds device.RowPair entries matching existing entity
// ids against a (possibly smaller) set of update entity ids, in ascending
// order of the existing id's row position — the deterministic scatter
// order spec.md §4.4.1 calls for when a system's query returns fewer rows
// than the full archetype.
func RowPairsInOrder(existingIDs, updateIDs []ecs.EntityID) []device.RowPair {
	updRowOf := make(map[ecs.EntityID]int, len(updateIDs))
	for i, id := range updateIDs {
		updRowOf[id] = i
	}
	pairs := make([]device.RowPair, 0, len(updateIDs))
	for er, id := range existingIDs {
		if ui, ok := updRowOf[id]; ok {
			pairs = append(pairs, device.RowPair{Existing: er, Update: ui})
		}
	}
	return pairs
}

// UpdateVar scatters the rows update produced back into target, following
// entity-aligned correspondence: rows of target not touched by update are
// left unchanged. This is update_var's dynamic_update_slice composition
// (spec.md §4.4.1).
func UpdateVar(target, update Var, existingIDs, updateIDs []ecs.EntityID) Var {
	pairs := RowPairsInOrder(existingIDs, updateIDs)
	return Var{Meta: target.Meta, Expr: device.Scatter(target.Expr, update.Expr, pairs)}
}

// ScatterSystem builds a System whose sole output is target, spliced via
// UpdateVar from update's traced value at the rows updateIDs names, every
// other row of target passing through unchanged. existingIDs and updateIDs
// are target's and update's archetype entity orders at trace time — fixed
// at construction because a traced Exec is only valid for the archetype
// shapes it was traced against. This is the entity-aligned scatter of
// spec.md §4.4.1 wired into an actual system body, rather than left as a
// standalone helper only exercised by RowPairsInOrder's own tests.
func ScatterSystem(name string, target, update ecs.Metadata, existingIDs, updateIDs []ecs.EntityID) System {
	return NewErasedSystem(name, []ecs.Metadata{target, update}, []ecs.Metadata{target}, func(ins []Var) []Var {
		return []Var{UpdateVar(ins[0], ins[1], existingIDs, updateIDs)}
	})
}
