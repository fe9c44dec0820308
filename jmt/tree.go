// Package jmt implements a versioned, radix-16 Jellyfish Merkle Tree over a
// pluggable storage.Backend and hash.Hasher. It is the authenticated data
// structure the rest of this module builds on: a typed facade
// (jmt/treewrapper) and a concurrent trie (lrtrie) both drive a Tree rather
// than reimplementing tree logic themselves.
package jmt

import (
	"context"
	"sync"

	"github.com/versatus/integral-db/hash"
	"github.com/versatus/integral-db/storage"
)

// KeyValue is one entry of a put_value_set call: a KeyHash paired with
// either a value to store (Present == true) or a tombstone (Present ==
// false, Value ignored).
type KeyValue struct {
	KeyHash storage.KeyHash
	Value   storage.OwnedValue
	Present bool
}

// Tree is a versioned Jellyfish Merkle Tree. A Tree is safe for concurrent
// use: reads take a read lock against the version watermarks, and
// PutValueSet serializes writers against each other with a single mutex —
// callers needing many concurrent writers should instead drive a Tree from
// behind a single-writer handle, as lrtrie does.
type Tree struct {
	mu sync.RWMutex

	db     storage.Backend
	hasher hash.Hasher

	hasCommitted bool
	latest       storage.Version
	oldest       storage.Version
}

// New returns an empty Tree backed by db, hashing with hasher.
func New(db storage.Backend, hasher hash.Hasher) *Tree {
	return &Tree{db: db, hasher: hasher}
}

// Version returns the latest version this Tree has committed. Before the
// first PutValueSet it returns 0, indistinguishable from an empty tree
// committed at version 0; IsEmpty reports true in both cases as well.
func (t *Tree) Version() storage.Version {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.latest
}

// IsEmpty reports whether the tree holds no live keys at its latest
// version.
func (t *Tree) IsEmpty(ctx context.Context) (bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if !t.hasCommitted {
		return true, nil
	}
	_, _, ok, err := t.db.GetRightmostLeaf(ctx)
	if err != nil {
		return false, backendError(err)
	}
	return !ok, nil
}

// Len returns the number of live (non-tombstoned) keys at the tree's latest
// version.
func (t *Tree) Len(ctx context.Context) (int, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if !t.hasCommitted {
		return 0, nil
	}
	it := t.db.ValueHistory()
	n := 0
	for it.Next() {
		hist := it.History()
		if len(hist) == 0 {
			continue
		}
		last := hist[0]
		for _, e := range hist {
			if e.Version <= t.latest && e.Version >= last.Version {
				last = e
			}
		}
		if last.Version <= t.latest && last.Present {
			n++
		}
	}
	if err := it.Err(); err != nil {
		return 0, backendError(err)
	}
	return n, nil
}

func (t *Tree) checkReadVersion(version storage.Version) error {
	if t.hasCommitted && version < t.oldest {
		return wrapErr(KindStaleRead, "version older than oldest retained history", nil)
	}
	return nil
}

// Get returns the value stored for keyHash at the greatest version <=
// maxVersion, or ok == false if no such value exists (never existed, or was
// tombstoned by then).
func (t *Tree) Get(ctx context.Context, maxVersion storage.Version, keyHash storage.KeyHash) (storage.OwnedValue, bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if err := t.checkReadVersion(maxVersion); err != nil {
		return nil, false, err
	}
	v, ok, err := t.db.GetValue(ctx, maxVersion, keyHash)
	if err != nil {
		return nil, false, backendError(err)
	}
	return v, ok, nil
}

// Contains reports whether keyHash has a live value at maxVersion.
func (t *Tree) Contains(ctx context.Context, maxVersion storage.Version, keyHash storage.KeyHash) (bool, error) {
	_, ok, err := t.Get(ctx, maxVersion, keyHash)
	return ok, err
}

// GetRootHash returns the tree's authenticated root hash at version.
func (t *Tree) GetRootHash(ctx context.Context, version storage.Version) (storage.RootHash, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if err := t.checkReadVersion(version); err != nil {
		return storage.RootHash{}, err
	}
	root, ok, err := t.db.GetNode(ctx, storage.NodeKey{Version: version, Path: ""})
	if err != nil {
		return storage.RootHash{}, backendError(err)
	}
	if !ok {
		return storage.RootHash{}, wrapErr(KindNotFound, "no root committed at this version", nil)
	}
	b := newBuilder(ctx, t.db, t.hasher, version)
	return b.nodeHash(root), nil
}

// PutValueSet applies values as one atomic value-set, creating version. It
// is the tree's sole mutation entry point: readers never observe a
// partially-applied version. values applied more than once to the same
// KeyHash within a single call resolve last-writer-wins, as listed.
//
// On success it returns the new RootHash and the TreeUpdateBatch describing
// exactly what changed, already durably committed via the backend's
// VersionedDatabase.UpdateBatch.
func (t *Tree) PutValueSet(ctx context.Context, values []KeyValue, version storage.Version) (storage.RootHash, storage.TreeUpdateBatch, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.hasCommitted && version <= t.latest {
		return storage.RootHash{}, storage.TreeUpdateBatch{}, wrapErr(KindVersionNotMonotone, "version must be strictly greater than the tree's latest version", nil)
	}

	dedup := make(map[storage.KeyHash]KeyValue, len(values))
	order := make([]storage.KeyHash, 0, len(values))
	for _, v := range values {
		if _, seen := dedup[v.KeyHash]; !seen {
			order = append(order, v.KeyHash)
		}
		dedup[v.KeyHash] = v
	}

	items := make([]leafItem, 0, len(order))
	for _, kh := range order {
		v := dedup[kh]
		items = append(items, leafItem{keyHash: kh, present: v.Present, value: v.Value})
	}

	b := newBuilder(ctx, t.db, t.hasher, version)

	var existingRoot *storage.Child
	if t.hasCommitted {
		rootNode, ok, err := t.db.GetNode(ctx, storage.NodeKey{Version: t.latest, Path: ""})
		if err != nil {
			return storage.RootHash{}, storage.TreeUpdateBatch{}, backendError(err)
		}
		if ok && rootNode.Type != storage.NodeNull {
			existingRoot = &storage.Child{Hash: b.nodeHash(rootNode), Version: t.latest, IsLeaf: rootNode.Type == storage.NodeLeaf}
		}
	}

	res, err := b.apply("", existingRoot, items)
	if err != nil {
		return storage.RootHash{}, storage.TreeUpdateBatch{}, err
	}

	var rootNode storage.Node
	var rootHash storage.RootHash
	if res.child == nil {
		rootNode = storage.NullNode()
		rootHash = storage.RootHash{}
	} else {
		rootNode = *res.content
		rootHash = res.child.Hash
	}
	b.nodeBatch[storage.NodeKey{Version: version, Path: ""}] = rootNode

	valueHistory := make(map[storage.KeyHash][]storage.ValueHistoryEntry, len(items))
	for _, it := range items {
		valueHistory[it.keyHash] = []storage.ValueHistoryEntry{{
			Version: version,
			Value:   it.value,
			Present: it.present,
		}}
	}

	batch := storage.TreeUpdateBatch{
		Version:          version,
		RootHash:         rootHash,
		NodeBatch:        b.nodeBatch,
		StaleNodeIndexes: b.stale,
		ValueHistory:     valueHistory,
	}

	if err := t.db.UpdateBatch(ctx, batch); err != nil {
		return storage.RootHash{}, storage.TreeUpdateBatch{}, wrapErr(KindBackend, "update_batch failed", err)
	}

	t.hasCommitted = true
	t.latest = version

	return rootHash, batch, nil
}
