package ecs_test

import (
	"testing"

	"github.com/vectorframe/conduit/ecs"
	"github.com/vectorframe/conduit/ecs/storage"
)

func scalarF64(name string) ecs.Metadata {
	return ecs.Metadata{Name: name, Type: ecs.ComponentType{Primitive: ecs.F64}}
}

func TestWorldSpawnAndInvariants(t *testing.T) {
	w := ecs.NewWorld()

	a := scalarF64("a")
	b := scalarF64("b")

	id1, err := w.Spawn("scalars", []ecs.ComponentValue{
		{Meta: a, Bytes: storage.Float64ToBytes([]float64{1})},
		{Meta: b, Bytes: storage.Float64ToBytes([]float64{2})},
	})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	if id1.IsZero() {
		t.Fatalf("expected non-zero entity id")
	}

	if _, err := w.Spawn("scalars", []ecs.ComponentValue{
		{Meta: a, Bytes: storage.Float64ToBytes([]float64{3})},
		{Meta: b, Bytes: storage.Float64ToBytes([]float64{4})},
	}); err != nil {
		t.Fatalf("second spawn: %v", err)
	}

	table := w.Archetype("scalars")
	if table == nil {
		t.Fatalf("expected archetype to exist")
	}
	if table.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", table.Len())
	}
	for _, col := range table.Columns {
		if col.Len != table.Entities.Len {
			t.Fatalf("column length %d != entity column length %d", col.Len, table.Entities.Len)
		}
	}
	if w.EntityLen() != table.Len() {
		t.Fatalf("world entity_len %d != sum of table lengths %d", w.EntityLen(), table.Len())
	}
}

func TestWorldSpawnArchetypeMismatchOnSharedComponent(t *testing.T) {
	w := ecs.NewWorld()
	a := scalarF64("a")

	if _, err := w.Spawn("one", []ecs.ComponentValue{{Meta: a, Bytes: storage.Float64ToBytes([]float64{1})}}); err != nil {
		t.Fatalf("spawn: %v", err)
	}
	if _, err := w.Spawn("two", []ecs.ComponentValue{{Meta: a, Bytes: storage.Float64ToBytes([]float64{1})}}); err == nil {
		t.Fatalf("expected archetype mismatch error for component reused across archetypes")
	}
}

func TestColumnUpdateRow(t *testing.T) {
	w := ecs.NewWorld()
	a := scalarF64("a")
	id, err := w.Spawn("scalars", []ecs.ComponentValue{{Meta: a, Bytes: storage.Float64ToBytes([]float64{1})}})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}

	table := w.Archetype("scalars")
	row := table.RowOf(id)
	if row < 0 {
		t.Fatalf("expected entity to be found")
	}

	if err := w.UpdateRow(a.ID(), row, storage.Float64ToBytes([]float64{42})); err != nil {
		t.Fatalf("update row: %v", err)
	}

	col, err := w.Column(a.ID())
	if err != nil {
		t.Fatalf("column: %v", err)
	}
	values, ok := col.Float64View()
	if !ok || values[row] != 42 {
		t.Fatalf("expected updated value 42, got %v (ok=%v)", values, ok)
	}
}

func TestHistoryPushAndGet(t *testing.T) {
	w := ecs.NewWorld()
	a := scalarF64("a")
	if _, err := w.Spawn("scalars", []ecs.ComponentValue{{Meta: a, Bytes: storage.Float64ToBytes([]float64{1})}}); err != nil {
		t.Fatalf("spawn: %v", err)
	}

	h := ecs.NewHistory()
	h.PushWorld(w)
	w.AdvanceTick()
	h.PushWorld(w)

	if h.Len() != 2 {
		t.Fatalf("expected history length 2, got %d", h.Len())
	}
	snap0, ok := h.Get(0)
	if !ok || snap0.Tick() != 0 {
		t.Fatalf("expected snapshot 0 at tick 0")
	}
	snap1, ok := h.Get(1)
	if !ok || snap1.Tick() != 1 {
		t.Fatalf("expected snapshot 1 at tick 1")
	}
}
