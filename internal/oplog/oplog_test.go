package oplog_test

import (
	"bytes"
	"testing"

	"github.com/versatus/integral-db/internal/oplog"
	"github.com/versatus/integral-db/storage"
)

// TestAddWireLayout pins down the exact byte layout for an Add operation:
// 1 tag byte + 8 LE version bytes + 32 key-hash bytes + 1 presence byte + 4
// LE length bytes + value bytes.
func TestAddWireLayout(t *testing.T) {
	var kh storage.KeyHash
	kh[0] = 0xAB

	op := oplog.Operation{
		Tag:     oplog.TagAdd,
		Version: 0x0102030405060708,
		Add:     oplog.Entry{KeyHash: kh, Value: storage.OwnedValue("hi"), Present: true},
	}

	var buf bytes.Buffer
	if err := oplog.Encode(&buf, op); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	got := buf.Bytes()
	wantLen := 1 + 8 + 32 + 1 + 4 + 2
	if len(got) != wantLen {
		t.Fatalf("encoded length = %d, want %d", len(got), wantLen)
	}
	if got[0] != byte(oplog.TagAdd) {
		t.Fatalf("tag byte = %d, want %d", got[0], oplog.TagAdd)
	}
	wantVer := []byte{0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01}
	if !bytes.Equal(got[1:9], wantVer) {
		t.Fatalf("version bytes = %x, want %x (little-endian)", got[1:9], wantVer)
	}
	if got[9] != 0xAB {
		t.Fatalf("key hash first byte = %x, want ab", got[9])
	}
	presentByte := got[9+32]
	if presentByte != 1 {
		t.Fatalf("presence byte = %d, want 1", presentByte)
	}
	valLen := got[9+32+1 : 9+32+1+4]
	if !bytes.Equal(valLen, []byte{2, 0, 0, 0}) {
		t.Fatalf("value length bytes = %x, want 02000000", valLen)
	}
	if string(got[9+32+1+4:]) != "hi" {
		t.Fatalf("value bytes = %q, want hi", got[9+32+1+4:])
	}
}

// TestRemoveWireLayout confirms Remove carries no presence/value body at
// all, just the key hash.
func TestRemoveWireLayout(t *testing.T) {
	var kh storage.KeyHash
	kh[31] = 0xFF

	op := oplog.Operation{Tag: oplog.TagRemove, Version: 7, Remove: oplog.Entry{KeyHash: kh}}
	var buf bytes.Buffer
	if err := oplog.Encode(&buf, op); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if got, want := len(buf.Bytes()), 1+8+32; got != want {
		t.Fatalf("encoded length = %d, want %d", got, want)
	}
}

// TestRoundTrip exercises Encode/Decode across all three tags, including a
// tombstone entry inside an Extend batch.
func TestRoundTrip(t *testing.T) {
	kh1 := storage.KeyHash{1}
	kh2 := storage.KeyHash{2}
	kh3 := storage.KeyHash{3}

	cases := []oplog.Operation{
		{Tag: oplog.TagAdd, Version: 1, Add: oplog.Entry{KeyHash: kh1, Value: storage.OwnedValue("v"), Present: true}},
		{Tag: oplog.TagRemove, Version: 2, Remove: oplog.Entry{KeyHash: kh2}},
		{Tag: oplog.TagExtend, Version: 3, Extend: []oplog.Entry{
			{KeyHash: kh1, Value: storage.OwnedValue("a"), Present: true},
			{KeyHash: kh2, Present: false},
			{KeyHash: kh3, Value: storage.OwnedValue("c"), Present: true},
		}},
	}

	for i, want := range cases {
		var buf bytes.Buffer
		if err := oplog.Encode(&buf, want); err != nil {
			t.Fatalf("case %d: Encode: %v", i, err)
		}
		got, err := oplog.Decode(&buf)
		if err != nil {
			t.Fatalf("case %d: Decode: %v", i, err)
		}
		if got.Tag != want.Tag || got.Version != want.Version {
			t.Fatalf("case %d: tag/version mismatch: got %+v, want %+v", i, got, want)
		}
		switch want.Tag {
		case oplog.TagAdd:
			if got.Add.KeyHash != want.Add.KeyHash || string(got.Add.Value) != string(want.Add.Value) || got.Add.Present != want.Add.Present {
				t.Fatalf("case %d: Add mismatch: got %+v, want %+v", i, got.Add, want.Add)
			}
		case oplog.TagRemove:
			if got.Remove.KeyHash != want.Remove.KeyHash {
				t.Fatalf("case %d: Remove mismatch: got %+v, want %+v", i, got.Remove, want.Remove)
			}
		case oplog.TagExtend:
			if len(got.Extend) != len(want.Extend) {
				t.Fatalf("case %d: Extend length = %d, want %d", i, len(got.Extend), len(want.Extend))
			}
			for j := range want.Extend {
				g, w := got.Extend[j], want.Extend[j]
				if g.KeyHash != w.KeyHash || g.Present != w.Present || string(g.Value) != string(w.Value) {
					t.Fatalf("case %d entry %d: got %+v, want %+v", i, j, g, w)
				}
			}
		}
	}
}
