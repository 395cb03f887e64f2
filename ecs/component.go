package ecs

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// ComponentId is a 64-bit identifier derived deterministically from a
// component name. Collisions between distinct names are a programming error
// (ErrDuplicateComponentName), caught at registration time rather than left
// to surface later as silent data corruption.
type ComponentId uint64

// ComponentIdFromName derives the stable id for a component name.
func ComponentIdFromName(name string) ComponentId {
	return ComponentId(xxhash.Sum64String(name))
}

// Primitive is the scalar element kind backing a component's column.
type Primitive uint8

const (
	I8 Primitive = iota
	I16
	I32
	I64
	U8
	U16
	U32
	U64
	F32
	F64
	Bool
)

// Size returns the primitive's element size in bytes.
func (p Primitive) Size() int {
	switch p {
	case I8, U8, Bool:
		return 1
	case I16, U16:
		return 2
	case I32, U32, F32:
		return 4
	case I64, U64, F64:
		return 8
	default:
		return 0
	}
}

func (p Primitive) String() string {
	switch p {
	case I8:
		return "i8"
	case I16:
		return "i16"
	case I32:
		return "i32"
	case I64:
		return "i64"
	case U8:
		return "u8"
	case U16:
		return "u16"
	case U32:
		return "u32"
	case U64:
		return "u64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	case Bool:
		return "bool"
	default:
		return "unknown"
	}
}

// ParsePrimitive is String's inverse, used when reconstructing component
// metadata from a serialized manifest (pipeline.ReadFromDir).
func ParsePrimitive(s string) (Primitive, bool) {
	switch s {
	case "i8":
		return I8, true
	case "i16":
		return I16, true
	case "i32":
		return I32, true
	case "i64":
		return I64, true
	case "u8":
		return U8, true
	case "u16":
		return U16, true
	case "u32":
		return U32, true
	case "u64":
		return U64, true
	case "f32":
		return F32, true
	case "f64":
		return F64, true
	case "bool":
		return Bool, true
	default:
		return 0, false
	}
}

// ComponentType describes a component's wire/host shape: a primitive element
// kind plus an ordered list of non-negative dimensions. A scalar component
// has an empty Shape.
type ComponentType struct {
	Primitive Primitive
	Shape     []int
}

// Elems returns the number of scalar elements per row (product of Shape,
// 1 for a scalar).
func (t ComponentType) Elems() int {
	n := 1
	for _, d := range t.Shape {
		n *= d
	}
	return n
}

// RowSize returns the number of bytes occupied by one entity's value.
func (t ComponentType) RowSize() int {
	return t.Elems() * t.Primitive.Size()
}

// TagKind discriminates the value carried by a Tag.
type TagKind uint8

const (
	TagString TagKind = iota
	TagBool
	TagInt
	TagUnit
)

// Tag is a small tagged union: {String, Bool, Int, Unit}.
type Tag struct {
	Kind TagKind
	Str  string
	B    bool
	I    int64
}

// Metadata describes a component: its stable name, its wire type, whether it
// is an asset handle, and free-form tags (e.g. "replicate", "debug-only").
type Metadata struct {
	Name  string
	Type  ComponentType
	Asset bool
	Tags  map[string]Tag
}

// ID derives this metadata's ComponentId from its Name.
func (m Metadata) ID() ComponentId {
	return ComponentIdFromName(m.Name)
}

// MetadataRegistry maps a stable ComponentId to its type descriptor. It is
// the C1 component of spec.md: a name -> id -> descriptor table shared by
// every archetype in a World.
type MetadataRegistry struct {
	mu   sync.RWMutex
	byID map[ComponentId]Metadata
}

// NewMetadataRegistry constructs an empty registry.
func NewMetadataRegistry() *MetadataRegistry {
	return &MetadataRegistry{byID: make(map[ComponentId]Metadata)}
}

// Register records meta under its derived ComponentId. Re-registering the
// same name with identical metadata is a no-op; a different name hashing to
// the same id is ErrDuplicateComponentName.
func (r *MetadataRegistry) Register(meta Metadata) (ComponentId, error) {
	id := meta.ID()

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byID[id]; ok {
		if existing.Name != meta.Name {
			return 0, Wrapf(ErrDuplicateComponentName, "name %q and %q both hash to %d", existing.Name, meta.Name, id)
		}
		return id, nil
	}
	r.byID[id] = meta
	return id, nil
}

// Get looks up metadata by id.
func (r *MetadataRegistry) Get(id ComponentId) (Metadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byID[id]
	return m, ok
}

// Resolve looks up a component id by name, registering nothing.
func (r *MetadataRegistry) Resolve(name string) (ComponentId, bool) {
	id := ComponentIdFromName(name)
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byID[id]
	if !ok {
		return 0, false
	}
	return id, true
}

// All returns a snapshot of every registered (id, metadata) pair.
func (r *MetadataRegistry) All() map[ComponentId]Metadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[ComponentId]Metadata, len(r.byID))
	for k, v := range r.byID {
		out[k] = v
	}
	return out
}
