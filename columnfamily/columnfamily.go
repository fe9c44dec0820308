// Package columnfamily implements the Column-Family Index: hashing a
// family name to an 8-byte prefix and tracking membership, used by the
// in-memory storage backend to partition a single flat keyspace into named
// logical sections.
package columnfamily

import (
	"encoding/binary"
	"hash/fnv"
	"unicode/utf8"

	"github.com/golang/glog"
)

// Default is the column family that always exists and is never removable.
const Default = "default"

// ColumnKey is the 8-byte big-endian FNV-1a hash of a column family name.
// Two processes computing ColumnKey for the same name, using the same
// hash/fnv constants, always agree.
type ColumnKey [8]byte

// PrefixedKey is ColumnKey concatenated with a serialized user key; it is
// the key space the in-memory backend actually stores.
type PrefixedKey []byte

// Key hashes name into its ColumnKey.
func Key(name string) ColumnKey {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name)) // fnv.Write never errors
	var out ColumnKey
	binary.BigEndian.PutUint64(out[:], h.Sum64())
	return out
}

// Prefix returns key ‖ serializedUserKey.
func Prefix(key ColumnKey, serializedUserKey []byte) PrefixedKey {
	out := make(PrefixedKey, 0, len(key)+len(serializedUserKey))
	out = append(out, key[:]...)
	out = append(out, serializedUserKey...)
	return out
}

// NameFromBytes recovers a family name from an externally supplied byte
// blob. A blob that is not valid UTF-8 is never fatal: it falls back to
// Default with a logged warning, per the column-family index's documented
// failure taxonomy.
func NameFromBytes(b []byte) string {
	if !utf8.Valid(b) {
		glog.Warningf("columnfamily: %q is not valid UTF-8, falling back to %q", b, Default)
		return Default
	}
	return string(b)
}

// Index tracks which column families exist, independent of the key/value
// data stored in them. A concrete storage backend embeds Index and
// consults it on every insert/lookup.
type Index struct {
	members map[string]ColumnKey
}

// NewIndex returns an Index with the Default family already present.
func NewIndex() *Index {
	idx := &Index{members: make(map[string]ColumnKey)}
	idx.members[Default] = Key(Default)
	return idx
}

// New registers name, idempotently: a duplicate name is a no-op success.
func (idx *Index) New(name string) ColumnKey {
	if k, ok := idx.members[name]; ok {
		return k
	}
	k := Key(name)
	idx.members[name] = k
	return k
}

// Exists reports whether name has been registered.
func (idx *Index) Exists(name string) bool {
	_, ok := idx.members[name]
	return ok
}

// Names returns every registered column family name. Order is unspecified.
func (idx *Index) Names() []string {
	names := make([]string, 0, len(idx.members))
	for name := range idx.members {
		names = append(names, name)
	}
	return names
}

// Len reports how many column families are registered.
func (idx *Index) Len() int {
	return len(idx.members)
}
