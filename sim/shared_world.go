// Package sim ties the host-resident ecs.World to the device package's
// accelerator stand-in: SharedWorld mirrors component columns across the
// host/device boundary (spec.md §4.3's C5), and WorldExec drives one tick
// of a compiled pipeline.System against it (C9). It exists to keep device
// free of any ecs import (device is deliberately ECS-agnostic, see
// device/dtype.go) while ecs stays free of any device import — the
// translation lives here instead, one layer up.
package sim

import (
	"sync"

	"github.com/vectorframe/conduit/device"
	"github.com/vectorframe/conduit/ecs"
	"github.com/vectorframe/conduit/pipeline"
)

// ColumnLocation tracks where the authoritative copy of a component's
// column currently lives, mirroring spec.md's host/device mirroring
// design note: a column is Host-only until first copied to the device (or
// after MarkDirty/ClearCache), and Both once host and device agree.
// LocationDevice is declared but never set: system outputs are pulled back
// to the host in the same step (LoadColumnFromDevice), so a column goes
// straight to Both.
type ColumnLocation uint8

const (
	LocationHost ColumnLocation = iota
	LocationDevice
	LocationBoth
)

// SharedWorld mirrors ecs.World component columns onto a device.Client,
// tracking per-component dirty/loaded state so a tick only moves the
// columns that actually changed (spec.md §4.3).
type SharedWorld struct {
	mu       sync.Mutex
	Host     *ecs.World
	Client   device.Client
	location map[ecs.ComponentId]ColumnLocation
	cache    map[ecs.ComponentId]*device.Buffer
	dirty    map[ecs.ComponentId]bool
}

// NewSharedWorld wraps host with client, starting with nothing copied over
// yet: every column reads as host-resident, and none is marked dirty.
func NewSharedWorld(host *ecs.World, client device.Client) *SharedWorld {
	return &SharedWorld{
		Host:     host,
		Client:   client,
		location: make(map[ecs.ComponentId]ColumnLocation),
		cache:    make(map[ecs.ComponentId]*device.Buffer),
		dirty:    make(map[ecs.ComponentId]bool),
	}
}

// MarkDirty flags a component's column as changed on the host since it was
// last mirrored — called whenever something writes to the host column
// outside of a device round trip (e.g. conduit applying an inbound peer
// mutation).
func (s *SharedWorld) MarkDirty(id ecs.ComponentId) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty[id] = true
	s.location[id] = LocationHost
}

// CopyToDevice copies one component's current host column to the device,
// caching the resulting buffer and clearing its dirty flag.
func (s *SharedWorld) CopyToDevice(id ecs.ComponentId) (*device.Buffer, error) {
	col, err := s.Host.Column(id)
	if err != nil {
		return nil, err
	}
	meta := col.Metadata
	buf := &device.Buffer{
		Shape: pipeline.ToDeviceShape(meta.Type, col.Len),
		DType: pipeline.ToDeviceDType(meta.Type.Primitive),
		Bytes: append([]byte(nil), col.Buf...),
	}
	dbuf := s.Client.TransferToDevice(buf)

	s.mu.Lock()
	s.cache[id] = dbuf
	s.location[id] = LocationBoth
	delete(s.dirty, id)
	s.mu.Unlock()

	return dbuf, nil
}

// LoadDirtyComponents copies every column currently marked dirty to the
// device, in ascending ComponentId order for determinism.
func (s *SharedWorld) LoadDirtyComponents() error {
	s.mu.Lock()
	ids := make([]ecs.ComponentId, 0, len(s.dirty))
	for id := range s.dirty {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	sortComponentIDs(ids)
	for _, id := range ids {
		if _, err := s.CopyToDevice(id); err != nil {
			return err
		}
	}
	return nil
}

// CopyAllColumns force-copies every component currently registered in the
// host world to the device, regardless of dirty state. Nothing in this
// module calls it; WorldExec.Fork builds a fresh SharedWorld instead.
func (s *SharedWorld) CopyAllColumns() error {
	for id := range s.Host.Metadata.All() {
		if _, err := s.Host.Column(id); err != nil {
			continue // not every registered component necessarily has a live column yet
		}
		if _, err := s.CopyToDevice(id); err != nil {
			return err
		}
	}
	return nil
}

// LoadColumnFromDevice pulls buf back to the host, writing it into the
// named component's column row-by-row. existingIDs is the full archetype's
// current row order; buf must hold exactly that many rows
// (ErrValueSizeMismatch otherwise), and row i of buf is written to row i
// of the column.
func (s *SharedWorld) LoadColumnFromDevice(id ecs.ComponentId, buf *device.Buffer, existingIDs []ecs.EntityID) error {
	host := s.Client.TransferToHost(buf)

	col, err := s.Host.Column(id)
	if err != nil {
		return err
	}
	rowSize := col.RowSize()
	if len(host.Bytes) != len(existingIDs)*rowSize {
		return ecs.Wrapf(ecs.ErrValueSizeMismatch, "device column %d: have %d bytes, want %d rows * %d", id, len(host.Bytes), len(existingIDs), rowSize)
	}
	for row := range existingIDs {
		if err := col.UpdateRow(row, host.Bytes[row*rowSize:(row+1)*rowSize]); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.cache[id] = buf
	s.location[id] = LocationBoth
	delete(s.dirty, id)
	s.mu.Unlock()
	return nil
}

// IsDirty reports whether id's host column has changed since it was last
// mirrored to the device.
func (s *SharedWorld) IsDirty(id ecs.ComponentId) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty[id]
}

// Cached returns the last device.Buffer mirrored for id, if any.
func (s *SharedWorld) Cached(id ecs.ComponentId) (*device.Buffer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.cache[id]
	return b, ok
}

// Location reports where id's authoritative data currently lives.
func (s *SharedWorld) Location(id ecs.ComponentId) ColumnLocation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.location[id]
}

// ClearCache drops every cached device buffer and resets every tracked
// column back to host-resident and dirty. Nothing in this module calls it;
// WorldExec.Fork builds a fresh SharedWorld instead.
func (s *SharedWorld) ClearCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.location {
		s.location[id] = LocationHost
		s.dirty[id] = true
	}
	s.cache = make(map[ecs.ComponentId]*device.Buffer)
}

func sortComponentIDs(ids []ecs.ComponentId) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
}
