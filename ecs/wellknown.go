package ecs

// WellKnown mirrors the original implementation's "well known" component
// schemas (libs/conduit/src/well_known/camera.rs and friends) that ship
// alongside the core so host applications don't have to redefine common
// component shapes. Rendering- and physics-specific well-knowns (camera,
// material) are out of scope per spec.md's Non-goals ("built-in physics
// integrators and demo scenes"); the handful kept here are the
// structural/example ones exercised by cmd/conduit/examples and by tests.
var (
	WellKnownWorldPos = Metadata{Name: "world_pos", Type: ComponentType{Primitive: F64, Shape: []int{3}}}
	WellKnownWorldVel = Metadata{Name: "world_vel", Type: ComponentType{Primitive: F64, Shape: []int{3}}}
	WellKnownSeed     = Metadata{Name: "seed", Type: ComponentType{Primitive: F64}}
)
