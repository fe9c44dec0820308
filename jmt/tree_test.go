package jmt_test

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"testing"

	"github.com/versatus/integral-db/hash"
	"github.com/versatus/integral-db/jmt"
	"github.com/versatus/integral-db/storage"
	"github.com/versatus/integral-db/storage/memdb"
)

func keyHash(s string) storage.KeyHash {
	return storage.KeyHash(sha256.Sum256([]byte(s)))
}

func newTree() *jmt.Tree {
	return jmt.New(memdb.New(), hash.SHA256{})
}

// TestAdaLovelaceScenario is the literal end-to-end scenario: insert,
// confirm presence, remove, confirm absence, check the final version.
func TestAdaLovelaceScenario(t *testing.T) {
	ctx := context.Background()
	tr := newTree()

	k := keyHash("Ada Lovelace")
	_, _, err := tr.PutValueSet(ctx, []jmt.KeyValue{
		{KeyHash: k, Value: storage.OwnedValue("Analytical Engine"), Present: true},
	}, 1)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	ok, err := tr.Contains(ctx, 1, k)
	if err != nil || !ok {
		t.Fatalf("contains after insert: ok=%v err=%v", ok, err)
	}

	_, _, err = tr.PutValueSet(ctx, []jmt.KeyValue{
		{KeyHash: k, Present: false},
	}, 2)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}

	ok, err = tr.Contains(ctx, 2, k)
	if err != nil || ok {
		t.Fatalf("contains after remove: ok=%v err=%v", ok, err)
	}

	if got := tr.Version(); got != 2 {
		t.Fatalf("Version() = %d, want 2", got)
	}
}

// TestRemovalVisibility is P2: removal hides the key going forward but
// leaves its pre-removal value visible at the prior version.
func TestRemovalVisibility(t *testing.T) {
	ctx := context.Background()
	tr := newTree()
	k := keyHash("k")

	if _, _, err := tr.PutValueSet(ctx, []jmt.KeyValue{{KeyHash: k, Value: storage.OwnedValue("v"), Present: true}}, 1); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, _, err := tr.PutValueSet(ctx, []jmt.KeyValue{{KeyHash: k, Present: false}}, 2); err != nil {
		t.Fatalf("remove: %v", err)
	}

	if ok, _ := tr.Contains(ctx, 2, k); ok {
		t.Fatalf("contains(k, 2) = true, want false")
	}
	v, ok, err := tr.Get(ctx, 1, k)
	if err != nil || !ok || string(v) != "v" {
		t.Fatalf("Get(k, 1) = (%q, %v), want (v, true)", v, ok)
	}
}

// TestIsEmptyAfterRemovingLastKey confirms IsEmpty reflects the tree's
// live key set, not raw node storage — stale leaf nodes for a removed key
// are retained by the backend (see storage.StaleNodeIndex) and must not
// make an otherwise-empty tree report non-empty.
func TestIsEmptyAfterRemovingLastKey(t *testing.T) {
	ctx := context.Background()
	tr := newTree()
	k := keyHash("only-key")

	if _, _, err := tr.PutValueSet(ctx, []jmt.KeyValue{{KeyHash: k, Value: storage.OwnedValue("v"), Present: true}}, 1); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if empty, err := tr.IsEmpty(ctx); err != nil || empty {
		t.Fatalf("IsEmpty() after insert = (%v, %v), want (false, nil)", empty, err)
	}

	if _, _, err := tr.PutValueSet(ctx, []jmt.KeyValue{{KeyHash: k, Present: false}}, 2); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if empty, err := tr.IsEmpty(ctx); err != nil || !empty {
		t.Fatalf("IsEmpty() after removing the only key = (%v, %v), want (true, nil)", empty, err)
	}
}

// TestRootDeterminism is P4: two trees built from the same value-set
// sequence produce identical root hashes at every intermediate version.
func TestRootDeterminism(t *testing.T) {
	ctx := context.Background()
	ops := []struct {
		key     string
		value   string
		present bool
	}{
		{"alpha", "1", true},
		{"beta", "2", true},
		{"gamma", "3", true},
		{"alpha", "", false},
	}

	build := func() []storage.RootHash {
		tr := newTree()
		var roots []storage.RootHash
		for i, op := range ops {
			root, _, err := tr.PutValueSet(ctx, []jmt.KeyValue{
				{KeyHash: keyHash(op.key), Value: storage.OwnedValue(op.value), Present: op.present},
			}, storage.Version(i+1))
			if err != nil {
				t.Fatalf("PutValueSet(%d): %v", i, err)
			}
			roots = append(roots, root)
		}
		return roots
	}

	a := build()
	b := build()
	if len(a) != len(b) {
		t.Fatalf("root slice length mismatch: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("roots diverge at step %d: %x vs %x", i, a[i], b[i])
		}
	}
}

// TestVersionMustBeMonotone checks the VersionNotMonotone error path.
func TestVersionMustBeMonotone(t *testing.T) {
	ctx := context.Background()
	tr := newTree()
	if _, _, err := tr.PutValueSet(ctx, []jmt.KeyValue{{KeyHash: keyHash("a"), Value: storage.OwnedValue("1"), Present: true}}, 5); err != nil {
		t.Fatalf("insert at 5: %v", err)
	}
	_, _, err := tr.PutValueSet(ctx, []jmt.KeyValue{{KeyHash: keyHash("b"), Value: storage.OwnedValue("2"), Present: true}}, 5)
	if err == nil {
		t.Fatalf("expected VersionNotMonotone error, got nil")
	}
	var jerr *jmt.Error
	if !bytesAsJMTError(err, &jerr) || jerr.Kind != jmt.KindVersionNotMonotone {
		t.Fatalf("expected KindVersionNotMonotone, got %v", err)
	}
}

func bytesAsJMTError(err error, target **jmt.Error) bool {
	e, ok := err.(*jmt.Error)
	if !ok {
		return false
	}
	*target = e
	return true
}

// TestLenAndIsEmpty exercises a batch of many insertions in one value-set,
// echoing scenario 2's "insert test-0..test-17, len == 18".
func TestLenAndIsEmpty(t *testing.T) {
	ctx := context.Background()
	tr := newTree()

	empty, err := tr.IsEmpty(ctx)
	if err != nil || !empty {
		t.Fatalf("IsEmpty() before any insert = (%v, %v), want (true, nil)", empty, err)
	}

	values := make([]jmt.KeyValue, 0, 18)
	for i := 0; i < 18; i++ {
		values = append(values, jmt.KeyValue{
			KeyHash: keyHash(testKeyName(i)),
			Value:   storage.OwnedValue("12345"),
			Present: true,
		})
	}
	if _, _, err := tr.PutValueSet(ctx, values, 1); err != nil {
		t.Fatalf("PutValueSet: %v", err)
	}

	n, err := tr.Len(ctx)
	if err != nil {
		t.Fatalf("Len: %v", err)
	}
	if n != 18 {
		t.Fatalf("Len() = %d, want 18", n)
	}

	for i := 0; i < 18; i++ {
		v, ok, err := tr.Get(ctx, 1, keyHash(testKeyName(i)))
		if err != nil || !ok || string(v) != "12345" {
			t.Fatalf("Get(test-%d) = (%q, %v), want (12345, true)", i, v, ok)
		}
	}
}

func testKeyName(i int) string {
	return fmt.Sprintf("test-%d", i)
}

// TestProofInclusionAndExclusion is P5 and P6.
func TestProofInclusionAndExclusion(t *testing.T) {
	ctx := context.Background()
	tr := newTree()
	h := hash.SHA256{}

	present := keyHash("present")
	root, _, err := tr.PutValueSet(ctx, []jmt.KeyValue{
		{KeyHash: present, Value: storage.OwnedValue("value"), Present: true},
	}, 1)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	proof, err := tr.GetProof(ctx, 1, present)
	if err != nil {
		t.Fatalf("GetProof(present): %v", err)
	}
	if proof.Leaf == nil || proof.Leaf.KeyHash != present {
		t.Fatalf("inclusion proof for present key has wrong/nil leaf: %+v", proof.Leaf)
	}
	if err := jmt.VerifyProof(h, present, root, proof); err != nil {
		t.Fatalf("VerifyProof(present): %v", err)
	}

	ghost := keyHash("ghost")
	exclProof, err := tr.GetProof(ctx, 1, ghost)
	if err != nil {
		t.Fatalf("GetProof(ghost): %v", err)
	}
	if exclProof.Leaf != nil && exclProof.Leaf.KeyHash == ghost {
		t.Fatalf("exclusion proof unexpectedly claims ghost is present")
	}
	if err := jmt.VerifyProof(h, ghost, root, exclProof); err != nil {
		t.Fatalf("VerifyProof(ghost) exclusion: %v", err)
	}
}

// TestProofMismatchOnWrongRoot confirms verification fails against an
// unrelated root.
func TestProofMismatchOnWrongRoot(t *testing.T) {
	ctx := context.Background()
	tr := newTree()
	h := hash.SHA256{}

	k := keyHash("x")
	_, _, err := tr.PutValueSet(ctx, []jmt.KeyValue{{KeyHash: k, Value: storage.OwnedValue("v"), Present: true}}, 1)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	proof, err := tr.GetProof(ctx, 1, k)
	if err != nil {
		t.Fatalf("GetProof: %v", err)
	}

	wrongRoot := storage.RootHash(sha256.Sum256([]byte("not the real root")))
	if err := jmt.VerifyProof(h, k, wrongRoot, proof); err == nil {
		t.Fatalf("VerifyProof against wrong root unexpectedly succeeded")
	}
}

// TestIterAscendingOrder covers the iterator's ascending ordering when
// starting from the zero KeyHash.
func TestIterAscendingOrder(t *testing.T) {
	ctx := context.Background()
	tr := newTree()

	names := []string{"delta", "alpha", "charlie", "bravo"}
	values := make([]jmt.KeyValue, 0, len(names))
	for _, n := range names {
		values = append(values, jmt.KeyValue{KeyHash: keyHash(n), Value: storage.OwnedValue(n), Present: true})
	}
	if _, _, err := tr.PutValueSet(ctx, values, 1); err != nil {
		t.Fatalf("PutValueSet: %v", err)
	}

	it, err := tr.Iter(ctx, 1, storage.KeyHash{})
	if err != nil {
		t.Fatalf("Iter: %v", err)
	}
	var got []storage.KeyHash
	for it.Next() {
		got = append(got, it.KeyHash())
	}
	if err := it.Err(); err != nil {
		t.Fatalf("iteration error: %v", err)
	}
	if len(got) != len(names) {
		t.Fatalf("iterated %d keys, want %d", len(got), len(names))
	}
	for i := 1; i < len(got); i++ {
		if !bytes.Equal(got[i-1][:], got[i][:]) && !(got[i-1].Less(got[i])) {
			t.Fatalf("iteration not ascending at index %d: %x then %x", i, got[i-1], got[i])
		}
	}
}
