package memdb

import (
	"sync"

	"github.com/versatus/integral-db/columnfamily"
)

// RawStore is a flat, column-family-partitioned key/value store — the
// in-memory backend's non-tree surface, for callers storing arbitrary
// bytes alongside a jmt.Tree rather than through it. Keys within a family
// are served back in insertion order: a re-insert of an existing key
// updates its value in place without moving it to the end, the same
// guarantee an IndexMap-backed store gives.
type RawStore struct {
	mu sync.RWMutex

	index *columnfamily.Index

	values map[string][]byte
	order  []columnfamily.PrefixedKey

	cfKeys map[string][]columnfamily.PrefixedKey
}

// NewRawStore returns an empty RawStore with the default column family
// already present.
func NewRawStore() *RawStore {
	return &RawStore{
		index:  columnfamily.NewIndex(),
		values: make(map[string][]byte),
		cfKeys: make(map[string][]columnfamily.PrefixedKey),
	}
}

// NewColumnFamily registers cf, idempotently.
func (s *RawStore) NewColumnFamily(cf string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index.New(cf)
}

// ColumnFamilyExists reports whether cf has been registered, either
// explicitly via NewColumnFamily or implicitly by a prior Insert.
func (s *RawStore) ColumnFamilyExists(cf string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Exists(cf)
}

// Insert stores value under rawKey in cf, registering cf if it doesn't
// already exist. A re-insert of an existing key updates its value without
// disturbing iteration order.
func (s *RawStore) Insert(cf string, rawKey, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ck := s.index.New(cf)
	pk := columnfamily.Prefix(ck, rawKey)
	mapKey := string(pk)

	if _, exists := s.values[mapKey]; !exists {
		s.order = append(s.order, pk)
		keys := s.cfKeys[cf]
		found := false
		for _, k := range keys {
			if string(k) == mapKey {
				found = true
				break
			}
		}
		if !found {
			s.cfKeys[cf] = append(keys, pk)
		}
	}

	stored := make([]byte, len(value))
	copy(stored, value)
	s.values[mapKey] = stored
}

// Get returns the value stored under rawKey in cf, if any.
func (s *RawStore) Get(cf string, rawKey []byte) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.index.Exists(cf) {
		return nil, false
	}
	ck := s.index.New(cf)
	pk := columnfamily.Prefix(ck, rawKey)
	v, ok := s.values[string(pk)]
	if !ok {
		return nil, false
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true
}

// Remove deletes rawKey from cf, reporting whether it was present.
func (s *RawStore) Remove(cf string, rawKey []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.index.Exists(cf) {
		return false
	}
	ck := s.index.New(cf)
	pk := columnfamily.Prefix(ck, rawKey)
	mapKey := string(pk)
	if _, ok := s.values[mapKey]; !ok {
		return false
	}
	delete(s.values, mapKey)

	for i, k := range s.order {
		if string(k) == mapKey {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	keys := s.cfKeys[cf]
	for i, k := range keys {
		if string(k) == mapKey {
			s.cfKeys[cf] = append(keys[:i], keys[i+1:]...)
			break
		}
	}
	return true
}

// ColumnFamilyLen returns the number of keys stored in cf, and false if cf
// has never been registered.
func (s *RawStore) ColumnFamilyLen(cf string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.index.Exists(cf) {
		return 0, false
	}
	return len(s.cfKeys[cf]), true
}

// ColumnFamilies returns the names of every column family currently
// holding at least one entry — the always-present "default" family is
// included only if something has actually been inserted into it.
func (s *RawStore) ColumnFamilies() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var names []string
	for _, cf := range s.index.Names() {
		if len(s.cfKeys[cf]) > 0 {
			names = append(names, cf)
		}
	}
	return names
}

// RawEntry is one (key, value) pair as stored, prefixed key included.
type RawEntry struct {
	Key   columnfamily.PrefixedKey
	Value []byte
}

// Iter returns every stored entry across every column family, in insertion
// order.
func (s *RawStore) Iter() []RawEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]RawEntry, 0, len(s.order))
	for _, k := range s.order {
		v := s.values[string(k)]
		cp := make([]byte, len(v))
		copy(cp, v)
		out = append(out, RawEntry{Key: k, Value: cp})
	}
	return out
}
