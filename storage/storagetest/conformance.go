package storagetest

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/versatus/integral-db/storage"
)

// RunBackendConformance exercises the behavioral guarantees every
// storage.Backend must uphold, regardless of concrete implementation:
// idempotent node writes, atomic batch commits, and greatest-version-<=
// lookups. newBackend must return a fresh, empty Backend each call.
func RunBackendConformance(t *testing.T, newBackend func() storage.Backend) {
	t.Helper()

	t.Run("WriteNodeBatchIsIdempotent", func(t *testing.T) {
		b := newBackend()
		ctx := context.Background()
		key := storage.NodeKey{Version: 1, Path: ""}
		leaf := storage.LeafNode(storage.KeyHash{1}, storage.RootHash{2})
		batch := storage.NodeBatch{key: leaf}

		if err := b.WriteNodeBatch(ctx, batch); err != nil {
			t.Fatalf("first WriteNodeBatch: %v", err)
		}
		if err := b.WriteNodeBatch(ctx, batch); err != nil {
			t.Fatalf("second WriteNodeBatch: %v", err)
		}

		got, ok, err := b.GetNode(ctx, key)
		if err != nil || !ok {
			t.Fatalf("GetNode after double write: got=%v ok=%v err=%v", got, ok, err)
		}
		if diff := cmp.Diff(leaf, got); diff != "" {
			t.Fatalf("GetNode after double write mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("GetNodeMissingIsNotAnError", func(t *testing.T) {
		b := newBackend()
		ctx := context.Background()
		_, ok, err := b.GetNode(ctx, storage.NodeKey{Version: 99, Path: "x"})
		if err != nil {
			t.Fatalf("GetNode on missing key returned error: %v", err)
		}
		if ok {
			t.Fatalf("GetNode on missing key reported ok=true")
		}
	})

	t.Run("UpdateBatchPersistsValueHistoryAndNodesTogether", func(t *testing.T) {
		b := newBackend()
		ctx := context.Background()

		kh := storage.KeyHash{7}
		rootKey := storage.NodeKey{Version: 1, Path: ""}
		leaf := storage.LeafNode(kh, storage.RootHash{9})

		batch := storage.TreeUpdateBatch{
			Version:   1,
			RootHash:  storage.RootHash{9},
			NodeBatch: storage.NodeBatch{rootKey: leaf},
			ValueHistory: map[storage.KeyHash][]storage.ValueHistoryEntry{
				kh: {{Version: 1, Value: storage.OwnedValue("v1"), Present: true}},
			},
		}
		if err := b.UpdateBatch(ctx, batch); err != nil {
			t.Fatalf("UpdateBatch: %v", err)
		}

		n, ok, err := b.GetNode(ctx, rootKey)
		if err != nil || !ok {
			t.Fatalf("GetNode after UpdateBatch: ok=%v err=%v", ok, err)
		}
		if diff := cmp.Diff(leaf, n); diff != "" {
			t.Fatalf("GetNode returned wrong leaf (-want +got):\n%s", diff)
		}

		v, ok, err := b.GetValue(ctx, 1, kh)
		if err != nil || !ok {
			t.Fatalf("GetValue after UpdateBatch: ok=%v err=%v", ok, err)
		}
		if string(v) != "v1" {
			t.Fatalf("GetValue = %q, want v1", v)
		}
	})

	t.Run("GetValueReturnsGreatestVersionAtOrBeforeMax", func(t *testing.T) {
		b := newBackend()
		ctx := context.Background()
		kh := storage.KeyHash{3}

		for v, val := range map[storage.Version]string{1: "a", 2: "b", 4: "d"} {
			err := b.UpdateBatch(ctx, storage.TreeUpdateBatch{
				Version: v,
				ValueHistory: map[storage.KeyHash][]storage.ValueHistoryEntry{
					kh: {{Version: v, Value: storage.OwnedValue(val), Present: true}},
				},
			})
			if err != nil {
				t.Fatalf("UpdateBatch(%d): %v", v, err)
			}
		}

		got, ok, err := b.GetValue(ctx, 3, kh)
		if err != nil || !ok {
			t.Fatalf("GetValue(3): ok=%v err=%v", ok, err)
		}
		if string(got) != "b" {
			t.Fatalf("GetValue(3) = %q, want b (greatest version <= 3)", got)
		}

		_, ok, err = b.GetValue(ctx, 0, kh)
		if err != nil {
			t.Fatalf("GetValue(0): %v", err)
		}
		if ok {
			t.Fatalf("GetValue(0) unexpectedly found a value")
		}
	})

	t.Run("TombstoneHidesValueAtLaterVersions", func(t *testing.T) {
		b := newBackend()
		ctx := context.Background()
		kh := storage.KeyHash{5}

		if err := b.UpdateBatch(ctx, storage.TreeUpdateBatch{
			Version: 1,
			ValueHistory: map[storage.KeyHash][]storage.ValueHistoryEntry{
				kh: {{Version: 1, Value: storage.OwnedValue("x"), Present: true}},
			},
		}); err != nil {
			t.Fatalf("UpdateBatch(1): %v", err)
		}
		if err := b.UpdateBatch(ctx, storage.TreeUpdateBatch{
			Version: 2,
			ValueHistory: map[storage.KeyHash][]storage.ValueHistoryEntry{
				kh: {{Version: 2, Present: false}},
			},
		}); err != nil {
			t.Fatalf("UpdateBatch(2): %v", err)
		}

		_, ok, err := b.GetValue(ctx, 2, kh)
		if err != nil {
			t.Fatalf("GetValue(2): %v", err)
		}
		if ok {
			t.Fatalf("GetValue(2) found a value after tombstone")
		}

		v, ok, err := b.GetValue(ctx, 1, kh)
		if err != nil || !ok {
			t.Fatalf("GetValue(1): ok=%v err=%v", ok, err)
		}
		if string(v) != "x" {
			t.Fatalf("GetValue(1) = %q, want x", v)
		}
	})

	t.Run("NodesAndValueHistoryIterateEverything", func(t *testing.T) {
		b := newBackend()
		ctx := context.Background()

		keys := []storage.KeyHash{{1}, {2}, {3}}
		nb := storage.NodeBatch{}
		vh := map[storage.KeyHash][]storage.ValueHistoryEntry{}
		for i, kh := range keys {
			nb[storage.NodeKey{Version: 1, Path: storage.NibblePath([]byte{byte(i)})}] = storage.LeafNode(kh, storage.RootHash{byte(i)})
			vh[kh] = []storage.ValueHistoryEntry{{Version: 1, Value: storage.OwnedValue{byte(i)}, Present: true}}
		}
		if err := b.UpdateBatch(ctx, storage.TreeUpdateBatch{Version: 1, NodeBatch: nb, ValueHistory: vh}); err != nil {
			t.Fatalf("UpdateBatch: %v", err)
		}

		nodeCount := 0
		ni := b.Nodes()
		for ni.Next() {
			nodeCount++
		}
		if err := ni.Err(); err != nil {
			t.Fatalf("Nodes iteration: %v", err)
		}
		if nodeCount != len(keys) {
			t.Fatalf("Nodes iterated %d entries, want %d", nodeCount, len(keys))
		}

		histCount := 0
		hi := b.ValueHistory()
		for hi.Next() {
			histCount++
		}
		if err := hi.Err(); err != nil {
			t.Fatalf("ValueHistory iteration: %v", err)
		}
		if histCount != len(keys) {
			t.Fatalf("ValueHistory iterated %d entries, want %d", histCount, len(keys))
		}
	})
}
