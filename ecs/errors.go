// Package ecs implements the columnar entity-component-system data model:
// component metadata, archetype tables, and the host-resident World.
package ecs

import (
	stderrors "errors"

	pkgerrors "github.com/pkg/errors"
)

// Sentinel error kinds. Callers compare with errors.Is; every wrapping layer
// (pipeline, sim, conduit) wraps these with pkgerrors.Wrap so the origin
// keeps a stack trace without changing the sentinel identity.
var (
	ErrComponentNotFound  = stderrors.New("ecs: component not found")
	ErrValueSizeMismatch  = stderrors.New("ecs: value size mismatch")
	ErrAssetNotFound      = stderrors.New("ecs: asset not found")
	ErrEntityNotFound     = stderrors.New("ecs: entity not found")
	ErrInvalidQuery       = stderrors.New("ecs: invalid query")
	ErrInvalidComponentID = stderrors.New("ecs: invalid component id")
	ErrInvalidTimeStep    = stderrors.New("ecs: invalid time step")
	ErrChannelClosed      = stderrors.New("ecs: channel closed")
	ErrWorldNotFound      = stderrors.New("ecs: world not found")

	// ErrArchetypeMismatch signals a component id already lives in a
	// different archetype than the one being spawned into.
	ErrArchetypeMismatch = stderrors.New("ecs: component already owned by another archetype")
	// ErrDuplicateComponentName signals a ComponentId collision between two
	// distinct component names. Spec.md treats this as a programming error.
	ErrDuplicateComponentName = stderrors.New("ecs: component id collision")
)

// Wrap annotates err with msg using pkg/errors, preserving errors.Is/As
// against the sentinel values above.
func Wrap(err error, msg string) error {
	return pkgerrors.Wrap(err, msg)
}

// Wrapf is the formatted form of Wrap.
func Wrapf(err error, format string, args ...any) error {
	return pkgerrors.Wrapf(err, format, args...)
}
