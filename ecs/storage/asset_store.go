package storage

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// AssetId identifies an asset *kind* (e.g. "mesh", "texture"); AssetHandle
// indexes a specific slot within that kind's dense vector.
type AssetId uint64

// AssetHandle is a dense index into an asset kind's vector, stable for the
// lifetime of the store. Components of "asset" kind store a handle's Id per
// entity (see Metadata.Asset).
type AssetHandle struct {
	AssetID AssetId
	ID      uint32
}

type assetSlot struct {
	bytes      []byte
	generation uint64
	hash       uint64
}

type assetKind struct {
	slots   []assetSlot
	byHash  map[uint64]uint32 // content hash -> slot index, for dedup
}

// AssetStore interns opaque byte blobs keyed by (AssetId, handle), deduping
// identical payloads within the same kind by content hash the way the
// teacher's sharedStore (ecs/storage/shared.go) deduped component values by
// reflect.DeepEqual — here the equality check is a content hash
// (github.com/cespare/xxhash/v2) instead of a deep-equal scan, since assets
// are raw bytes rather than arbitrary Go values and a hash lookup avoids an
// O(n) scan per insert.
type AssetStore struct {
	mu    sync.RWMutex
	kinds map[AssetId]*assetKind
}

// NewAssetStore constructs an empty store.
func NewAssetStore() *AssetStore {
	return &AssetStore{kinds: make(map[AssetId]*assetKind)}
}

// InsertBytes interns data under assetID, returning a handle. Re-inserting
// byte-identical content under the same assetID returns the existing
// handle rather than allocating a new slot.
func (s *AssetStore) InsertBytes(assetID AssetId, data []byte) AssetHandle {
	s.mu.Lock()
	defer s.mu.Unlock()

	kind, ok := s.kinds[assetID]
	if !ok {
		kind = &assetKind{byHash: make(map[uint64]uint32)}
		s.kinds[assetID] = kind
	}

	h := xxhash.Sum64(data)
	if idx, ok := kind.byHash[h]; ok {
		return AssetHandle{AssetID: assetID, ID: idx}
	}

	buf := make([]byte, len(data))
	copy(buf, data)
	idx := uint32(len(kind.slots))
	kind.slots = append(kind.slots, assetSlot{bytes: buf, generation: 1, hash: h})
	kind.byHash[h] = idx
	return AssetHandle{AssetID: assetID, ID: idx}
}

// Value returns the current bytes for handle.
func (s *AssetStore) Value(h AssetHandle) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	slot, ok := s.slot(h)
	if !ok {
		return nil, false
	}
	return slot.bytes, true
}

// Gen returns the current generation for handle's slot.
func (s *AssetStore) Gen(h AssetHandle) (uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	slot, ok := s.slot(h)
	if !ok {
		return 0, false
	}
	return slot.generation, true
}

// Replace swaps the bytes held by handle's slot and bumps its generation.
// Subscribers compare their last-sent generation against Gen to decide
// whether to re-stream (spec.md §4.2/§4.7).
func (s *AssetStore) Replace(h AssetHandle, data []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	kind, ok := s.kinds[h.AssetID]
	if !ok || int(h.ID) >= len(kind.slots) {
		return false
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	slot := &kind.slots[h.ID]
	delete(kind.byHash, slot.hash)
	slot.bytes = buf
	slot.hash = xxhash.Sum64(data)
	slot.generation++
	kind.byHash[slot.hash] = h.ID
	return true
}

func (s *AssetStore) slot(h AssetHandle) (assetSlot, bool) {
	kind, ok := s.kinds[h.AssetID]
	if !ok || int(h.ID) >= len(kind.slots) {
		return assetSlot{}, false
	}
	return kind.slots[h.ID], true
}
