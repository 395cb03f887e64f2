package storage_test

import (
	"testing"

	"github.com/vectorframe/conduit/ecs/storage"
)

func TestAssetStoreDedupByContent(t *testing.T) {
	s := storage.NewAssetStore()

	h1 := s.InsertBytes(1, []byte("mesh-bytes"))
	h2 := s.InsertBytes(1, []byte("mesh-bytes"))
	if h1 != h2 {
		t.Fatalf("expected identical payloads to dedup to the same handle, got %v and %v", h1, h2)
	}

	h3 := s.InsertBytes(1, []byte("other-bytes"))
	if h3 == h1 {
		t.Fatalf("expected distinct payloads to get distinct handles")
	}

	gen, ok := s.Gen(h1)
	if !ok || gen != 1 {
		t.Fatalf("expected initial generation 1, got %d (ok=%v)", gen, ok)
	}

	if !s.Replace(h1, []byte("mesh-bytes-v2")) {
		t.Fatalf("expected replace to succeed")
	}
	gen2, _ := s.Gen(h1)
	if gen2 != 2 {
		t.Fatalf("expected generation bump to 2, got %d", gen2)
	}
	value, ok := s.Value(h1)
	if !ok || string(value) != "mesh-bytes-v2" {
		t.Fatalf("expected updated bytes, got %q (ok=%v)", value, ok)
	}
}

func TestAssetStoreUnknownHandle(t *testing.T) {
	s := storage.NewAssetStore()
	if _, ok := s.Value(storage.AssetHandle{AssetID: 9, ID: 9}); ok {
		t.Fatalf("expected unknown handle lookup to fail")
	}
}
