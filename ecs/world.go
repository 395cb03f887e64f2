package ecs

import (
	"fmt"
	"sort"
	"sync"

	"github.com/vectorframe/conduit/ecs/storage"
)

// ComponentValue is one component's value supplied to Spawn/SpawnWithID: its
// metadata (registered if not already known) plus its raw row bytes.
type ComponentValue struct {
	Meta  Metadata
	Bytes []byte
}

// World is the host-resident canonical simulation state: archetype tables
// keyed by name, a ComponentId -> archetype-name index enforcing that each
// component lives in exactly one archetype, an asset store, and the global
// tick counter. It replaces the teacher's World (world.go, api.go), which
// held a flat StorageProvider of per-component-type `any` stores rather
// than columnar archetype tables.
type World struct {
	mu sync.RWMutex

	Metadata *MetadataRegistry
	registry *EntityRegistry
	assets   *storage.AssetStore

	archetypes   map[string]*ArchetypeTable
	componentMap map[ComponentId]string

	tick      uint64
	entityLen int
}

// NewWorld constructs an empty world with fresh registries.
func NewWorld() *World {
	return &World{
		Metadata:     NewMetadataRegistry(),
		registry:     NewEntityRegistry(),
		assets:       storage.NewAssetStore(),
		archetypes:   make(map[string]*ArchetypeTable),
		componentMap: make(map[ComponentId]string),
	}
}

// Assets exposes the world's asset store.
func (w *World) Assets() *storage.AssetStore { return w.assets }

// Registry exposes the entity id allocator.
func (w *World) Registry() *EntityRegistry { return w.registry }

// Tick returns the current tick counter.
func (w *World) Tick() uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.tick
}

// AdvanceTick increments the tick counter by one, called once per
// WorldExec.run (spec.md §4.6).
func (w *World) AdvanceTick() {
	w.mu.Lock()
	w.tick++
	w.mu.Unlock()
}

// EntityLen returns the total number of live entities across all
// archetypes.
func (w *World) EntityLen() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.entityLen
}

// ArchetypeNames returns a snapshot of the archetype name set, sorted for
// deterministic iteration.
func (w *World) ArchetypeNames() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	names := make([]string, 0, len(w.archetypes))
	for name := range w.archetypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Archetype returns the named table, or nil.
func (w *World) Archetype(name string) *ArchetypeTable {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.archetypes[name]
}

// ArchetypeOf returns the table owning id, or (nil, false) if unregistered.
func (w *World) ArchetypeOf(id ComponentId) (*ArchetypeTable, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	name, ok := w.componentMap[id]
	if !ok {
		return nil, false
	}
	return w.archetypes[name], true
}

// Spawn creates a new entity in the named archetype with the given ordered
// component values, allocating a fresh EntityID. The first spawn into a
// previously-unseen archetype name fixes that archetype's schema (component
// id set and order); subsequent spawns into the same archetype must supply
// the identical ordered id set.
func (w *World) Spawn(archetype string, values []ComponentValue) (EntityID, error) {
	id := w.registry.Create()
	if err := w.spawnInto(archetype, id, values); err != nil {
		return 0, err
	}
	return id, nil
}

// SpawnWithID forces a caller-chosen entity id. It is the caller's
// obligation to keep ids unique (spec.md §4.1).
func (w *World) SpawnWithID(id EntityID, archetype string, values []ComponentValue) error {
	w.registry.Observe(id)
	return w.spawnInto(archetype, id, values)
}

func (w *World) spawnInto(archetype string, id EntityID, values []ComponentValue) error {
	if len(values) == 0 {
		return fmt.Errorf("ecs: spawn requires at least one component")
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	table, ok := w.archetypes[archetype]
	if !ok {
		table = newArchetypeTable(archetype)
		for _, v := range values {
			cid, err := w.Metadata.Register(v.Meta)
			if err != nil {
				return err
			}
			if owner, exists := w.componentMap[cid]; exists && owner != archetype {
				return Wrapf(ErrArchetypeMismatch, "component %q already owned by archetype %q", v.Meta.Name, owner)
			}
			w.componentMap[cid] = archetype
			table.Order = append(table.Order, cid)
			table.Columns[cid] = storage.NewHostColumn(v.Meta)
		}
		w.archetypes[archetype] = table
	} else {
		if len(values) != len(table.Order) {
			return fmt.Errorf("ecs: archetype %q expects %d components, got %d", archetype, len(table.Order), len(values))
		}
		for i, v := range values {
			cid := v.Meta.ID()
			if cid != table.Order[i] {
				return fmt.Errorf("ecs: archetype %q component order mismatch at index %d", archetype, i)
			}
		}
	}

	if err := table.Entities.PushRaw(storage.Uint64ToBytes([]uint64{uint64(id)})); err != nil {
		return err
	}
	for i, v := range values {
		cid := table.Order[i]
		if err := table.Columns[cid].PushRaw(v.Bytes); err != nil {
			return err
		}
	}
	w.entityLen++
	return nil
}

// Column returns the column holding id, or ErrComponentNotFound.
func (w *World) Column(id ComponentId) (*storage.HostColumn, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	name, ok := w.componentMap[id]
	if !ok {
		return nil, Wrapf(ErrComponentNotFound, "component id %d", id)
	}
	table := w.archetypes[name]
	return table.Columns[id], nil
}

// UpdateRow applies an in-place row update to the column holding id.
func (w *World) UpdateRow(id ComponentId, row int, bytes []byte) error {
	col, err := w.Column(id)
	if err != nil {
		return err
	}
	return col.UpdateRow(row, bytes)
}

// Clone deep-copies every archetype table (not the asset store, which is
// shared across snapshots per spec.md §4.8) for History.
func (w *World) Clone() *World {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := &World{
		Metadata:     w.Metadata,
		registry:     w.registry,
		assets:       w.assets,
		archetypes:   make(map[string]*ArchetypeTable, len(w.archetypes)),
		componentMap: make(map[ComponentId]string, len(w.componentMap)),
		tick:         w.tick,
		entityLen:    w.entityLen,
	}
	for name, table := range w.archetypes {
		out.archetypes[name] = table.clone()
	}
	for id, name := range w.componentMap {
		out.componentMap[id] = name
	}
	return out
}
