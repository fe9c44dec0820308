package columnfamily_test

import (
	"testing"

	"github.com/versatus/integral-db/columnfamily"
)

func TestKeyIsStableAcrossCalls(t *testing.T) {
	a := columnfamily.Key("claims")
	b := columnfamily.Key("claims")
	if a != b {
		t.Fatalf("Key(%q) not stable: %x != %x", "claims", a, b)
	}
	if columnfamily.Key("claims") == columnfamily.Key("state") {
		t.Fatalf("distinct family names hashed to the same ColumnKey")
	}
}

func TestPrefixConcatenatesKeyAndUserKey(t *testing.T) {
	ck := columnfamily.Key("claims")
	pk := columnfamily.Prefix(ck, []byte("node_id1"))
	if len(pk) != len(ck)+len("node_id1") {
		t.Fatalf("Prefix length = %d, want %d", len(pk), len(ck)+len("node_id1"))
	}
	for i := range ck {
		if pk[i] != ck[i] {
			t.Fatalf("Prefix does not begin with ColumnKey at byte %d", i)
		}
	}
}

func TestNameFromBytesValidUTF8(t *testing.T) {
	if got := columnfamily.NameFromBytes([]byte("claims")); got != "claims" {
		t.Fatalf("NameFromBytes(valid) = %q, want claims", got)
	}
}

// TestNameFromBytesInvalidUTF8FallsBackToDefault is never fatal per the
// column-family index's documented failure taxonomy.
func TestNameFromBytesInvalidUTF8FallsBackToDefault(t *testing.T) {
	invalid := []byte{0xff, 0xfe, 0xfd}
	if got := columnfamily.NameFromBytes(invalid); got != columnfamily.Default {
		t.Fatalf("NameFromBytes(invalid) = %q, want %q", got, columnfamily.Default)
	}
}

func TestIndexDefaultFamilyAlwaysPresent(t *testing.T) {
	idx := columnfamily.NewIndex()
	if !idx.Exists(columnfamily.Default) {
		t.Fatalf("default family missing from a fresh Index")
	}
	if idx.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 for a fresh Index", idx.Len())
	}
}

func TestIndexNewIsIdempotent(t *testing.T) {
	idx := columnfamily.NewIndex()
	k1 := idx.New("claims")
	k2 := idx.New("claims")
	if k1 != k2 {
		t.Fatalf("New(\"claims\") returned different keys on repeat registration: %x != %x", k1, k2)
	}
	if idx.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 (default + claims)", idx.Len())
	}
}

func TestIndexNames(t *testing.T) {
	idx := columnfamily.NewIndex()
	idx.New("claims")
	idx.New("state")

	names := idx.Names()
	want := map[string]bool{columnfamily.Default: true, "claims": true, "state": true}
	if len(names) != len(want) {
		t.Fatalf("Names() returned %d entries, want %d", len(names), len(want))
	}
	for _, n := range names {
		if !want[n] {
			t.Fatalf("Names() returned unexpected entry %q", n)
		}
	}
}
