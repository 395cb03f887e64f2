package ecs

import "github.com/vectorframe/conduit/ecs/storage"

// entityColumnMetadata is the metadata for the per-archetype entity-id
// column: a U64 scalar, never tagged as an asset.
var entityColumnMetadata = Metadata{Name: "__entity_id", Type: ComponentType{Primitive: U64}}

// ArchetypeTable is a fixed set of component columns plus the entity-id
// column: row i of every data column corresponds to the entity at row i of
// Entities. Invariant: every data column has the same Len as Entities.
type ArchetypeTable struct {
	Name     string
	Entities *storage.HostColumn
	// Order is the component insertion order; Columns is keyed the same way
	// but map iteration order is not guaranteed, so anything that must be
	// deterministic (build-time tracing, serialization) walks Order.
	Order   []ComponentId
	Columns map[ComponentId]*storage.HostColumn
}

func newArchetypeTable(name string) *ArchetypeTable {
	return &ArchetypeTable{
		Name:     name,
		Entities: storage.NewHostColumn(entityColumnMetadata),
		Columns:  make(map[ComponentId]*storage.HostColumn),
	}
}

// Len returns the table's row count (== Entities.Len).
func (t *ArchetypeTable) Len() int {
	return t.Entities.Len
}

// EntityIDs returns the table's entity ids in row order.
func (t *ArchetypeTable) EntityIDs() []EntityID {
	raw, ok := t.Entities.Uint64View()
	if !ok {
		return nil
	}
	out := make([]EntityID, len(raw))
	for i, v := range raw {
		out[i] = EntityID(v)
	}
	return out
}

// RowOf returns the row index of id within this table, or -1.
func (t *ArchetypeTable) RowOf(id EntityID) int {
	ids, ok := t.Entities.Uint64View()
	if !ok {
		return -1
	}
	target := uint64(id)
	for i, v := range ids {
		if v == target {
			return i
		}
	}
	return -1
}

// clone deep-copies the table for History snapshots.
func (t *ArchetypeTable) clone() *ArchetypeTable {
	out := &ArchetypeTable{
		Name:     t.Name,
		Entities: t.Entities.Clone(),
		Order:    append([]ComponentId(nil), t.Order...),
		Columns:  make(map[ComponentId]*storage.HostColumn, len(t.Columns)),
	}
	for id, col := range t.Columns {
		out.Columns[id] = col.Clone()
	}
	return out
}
