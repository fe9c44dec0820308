package memdb_test

import (
	"context"
	"testing"

	"github.com/versatus/integral-db/storage"
	"github.com/versatus/integral-db/storage/memdb"
	"github.com/versatus/integral-db/storage/storagetest"
)

func TestBackendConformance(t *testing.T) {
	storagetest.RunBackendConformance(t, func() storage.Backend {
		return memdb.New()
	})
}

func TestGetRightmostLeaf(t *testing.T) {
	ctx := context.Background()
	b := memdb.New()

	_, _, ok, err := b.GetRightmostLeaf(ctx)
	if err != nil {
		t.Fatalf("GetRightmostLeaf on empty backend: %v", err)
	}
	if ok {
		t.Fatalf("GetRightmostLeaf on empty backend reported ok=true")
	}

	small := storage.KeyHash{0x01}
	large := storage.KeyHash{0xff}
	nb := storage.NodeBatch{
		storage.NodeKey{Version: 1, Path: "\x00"}: storage.LeafNode(small, storage.RootHash{1}),
		storage.NodeKey{Version: 1, Path: "\x0f"}: storage.LeafNode(large, storage.RootHash{2}),
	}
	vh := map[storage.KeyHash][]storage.ValueHistoryEntry{
		small: {{Version: 1, Value: storage.OwnedValue("a"), Present: true}},
		large: {{Version: 1, Value: storage.OwnedValue("b"), Present: true}},
	}
	if err := b.UpdateBatch(ctx, storage.TreeUpdateBatch{Version: 1, NodeBatch: nb, ValueHistory: vh}); err != nil {
		t.Fatalf("UpdateBatch: %v", err)
	}

	key, node, ok, err := b.GetRightmostLeaf(ctx)
	if err != nil || !ok {
		t.Fatalf("GetRightmostLeaf: ok=%v err=%v", ok, err)
	}
	if node.LeafKeyHash != large {
		t.Fatalf("GetRightmostLeaf returned %+v at %+v, want keyHash %v", node, key, large)
	}

	// Tombstoning the rightmost key must make GetRightmostLeaf fall back
	// to the next-greatest live key, not the stale leaf node still
	// sitting in raw node storage.
	if err := b.UpdateBatch(ctx, storage.TreeUpdateBatch{
		Version: 2,
		ValueHistory: map[storage.KeyHash][]storage.ValueHistoryEntry{
			large: {{Version: 2, Present: false}},
		},
	}); err != nil {
		t.Fatalf("UpdateBatch (tombstone): %v", err)
	}

	key, node, ok, err = b.GetRightmostLeaf(ctx)
	if err != nil || !ok {
		t.Fatalf("GetRightmostLeaf after tombstone: ok=%v err=%v", ok, err)
	}
	if node.LeafKeyHash != small {
		t.Fatalf("GetRightmostLeaf after tombstoning %v returned %+v at %+v, want keyHash %v", large, node, key, small)
	}

	// Tombstoning every live key must make GetRightmostLeaf report empty,
	// even though both leaf nodes remain in raw node storage.
	if err := b.UpdateBatch(ctx, storage.TreeUpdateBatch{
		Version: 3,
		ValueHistory: map[storage.KeyHash][]storage.ValueHistoryEntry{
			small: {{Version: 3, Present: false}},
		},
	}); err != nil {
		t.Fatalf("UpdateBatch (tombstone remaining): %v", err)
	}
	if _, _, ok, err := b.GetRightmostLeaf(ctx); err != nil || ok {
		t.Fatalf("GetRightmostLeaf after tombstoning every key: ok=%v err=%v, want ok=false", ok, err)
	}
}

func TestRawStoreColumnFamilies(t *testing.T) {
	s := memdb.NewRawStore()

	if !s.ColumnFamilyExists("default") {
		t.Fatalf("default column family should exist on construction")
	}

	s.Insert("claims", []byte("node_id1"), []byte("claim1"))
	if !s.ColumnFamilyExists("claims") {
		t.Fatalf("claims column family should exist after insert")
	}
	s.Insert("claims", []byte("node_id2"), []byte("claim2"))

	n, ok := s.ColumnFamilyLen("claims")
	if !ok || n != 2 {
		t.Fatalf("ColumnFamilyLen(claims) = (%d, %v), want (2, true)", n, ok)
	}

	s.Insert("state", []byte("address1"), []byte("account1"))
	if n, ok := s.ColumnFamilyLen("state"); !ok || n != 1 {
		t.Fatalf("ColumnFamilyLen(state) = (%d, %v), want (1, true)", n, ok)
	}

	// cfs().len() == 2: only families holding data count, so the
	// always-present but still-empty "default" family is excluded.
	if cfs := s.ColumnFamilies(); len(cfs) != 2 {
		t.Fatalf("ColumnFamilies() = %v (len %d), want 2 entries", cfs, len(cfs))
	}

	v, ok := s.Get("claims", []byte("node_id1"))
	if !ok || string(v) != "claim1" {
		t.Fatalf("Get(claims, node_id1) = (%q, %v), want (claim1, true)", v, ok)
	}

	// Re-inserting an existing key updates the value without growing the
	// column family or moving it in iteration order.
	s.Insert("claims", []byte("node_id1"), []byte("claim1-updated"))
	if n, _ := s.ColumnFamilyLen("claims"); n != 2 {
		t.Fatalf("ColumnFamilyLen(claims) after update = %d, want 2", n)
	}
	v, _ = s.Get("claims", []byte("node_id1"))
	if string(v) != "claim1-updated" {
		t.Fatalf("Get(claims, node_id1) after update = %q, want claim1-updated", v)
	}

	entries := s.Iter()
	if len(entries) != 3 {
		t.Fatalf("Iter() returned %d entries, want 3", len(entries))
	}

	if removed := s.Remove("claims", []byte("node_id2")); !removed {
		t.Fatalf("Remove(claims, node_id2) = false, want true")
	}
	if n, _ := s.ColumnFamilyLen("claims"); n != 1 {
		t.Fatalf("ColumnFamilyLen(claims) after remove = %d, want 1", n)
	}
}
