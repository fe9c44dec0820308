// Package memdb is the in-memory reference storage.Backend: everything
// lives in Go maps, with google/btree indices layered on top to give
// VersionedDatabase's Nodes/ValueHistory snapshot iterators a deterministic
// order and GetRightmostLeaf an ordered index of live keys. It is meant for
// tests, examples and anyone prototyping against the
// tree who doesn't yet need a durable backend.
package memdb

import (
	"bytes"
	"context"
	"sync"

	"github.com/google/btree"

	"github.com/versatus/integral-db/storage"
)

const btreeDegree = 16

// nodeItem orders NodeKeys first by Version, then by Path, matching how a
// real on-disk backend would naturally prefix-scan them.
type nodeItem storage.NodeKey

func (a nodeItem) Less(than btree.Item) bool {
	b := than.(nodeItem)
	if a.Version != b.Version {
		return a.Version < b.Version
	}
	return a.Path < b.Path
}

// historyItem orders by KeyHash for ValueHistory's snapshot walk.
type historyItem storage.KeyHash

func (a historyItem) Less(than btree.Item) bool {
	b := than.(historyItem)
	return bytes.Compare(a[:], b[:]) < 0
}

// Backend is an in-memory storage.Backend.
type Backend struct {
	mu sync.RWMutex

	nodes     map[storage.NodeKey]storage.Node
	nodeIndex *btree.BTree

	history      map[storage.KeyHash][]storage.ValueHistoryEntry
	historyIndex *btree.BTree

	// liveIndex holds exactly the KeyHashes whose most recent history
	// entry is Present, ordered so GetRightmostLeaf never has to scan
	// raw node storage (which retains stale, tombstoned leaves
	// indefinitely — see UpdateBatch's doc comment).
	liveIndex *btree.BTree
	// leafNodeKey is the NodeKey a KeyHash's leaf was last written at;
	// kept for every KeyHash ever inserted, consulted only when
	// liveIndex says the key is still live.
	leafNodeKey map[storage.KeyHash]storage.NodeKey

	// staleIndexes accumulates every committed batch's stale-node markers.
	staleIndexes []storage.StaleNodeIndex
}

// New returns an empty Backend.
func New() *Backend {
	return &Backend{
		nodes:        make(map[storage.NodeKey]storage.Node),
		nodeIndex:    btree.New(btreeDegree),
		history:      make(map[storage.KeyHash][]storage.ValueHistoryEntry),
		historyIndex: btree.New(btreeDegree),
		liveIndex:    btree.New(btreeDegree),
		leafNodeKey:  make(map[storage.KeyHash]storage.NodeKey),
	}
}

// GetNode implements storage.TreeReader.
func (b *Backend) GetNode(_ context.Context, key storage.NodeKey) (storage.Node, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n, ok := b.nodes[key]
	return n, ok, nil
}

// GetValue implements storage.TreeReader.
func (b *Backend) GetValue(_ context.Context, maxVersion storage.Version, keyHash storage.KeyHash) (storage.OwnedValue, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	hist, ok := b.history[keyHash]
	if !ok {
		return nil, false, nil
	}
	var best *storage.ValueHistoryEntry
	for i := range hist {
		e := &hist[i]
		if e.Version > maxVersion {
			continue
		}
		if best == nil || e.Version > best.Version {
			best = e
		}
	}
	if best == nil || !best.Present {
		return nil, false, nil
	}
	return best.Value.Clone(), true, nil
}

// GetRightmostLeaf implements storage.TreeReader. It consults liveIndex
// rather than raw node storage: a tombstoned key's leaf node is still
// present in b.nodes (stale nodes are retained, never deleted), so scanning
// nodes directly would resurrect removed keys.
func (b *Backend) GetRightmostLeaf(_ context.Context) (storage.NodeKey, storage.Node, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var found storage.NodeKey
	var foundNode storage.Node
	ok := false
	b.liveIndex.Descend(func(i btree.Item) bool {
		kh := storage.KeyHash(i.(historyItem))
		nk, exists := b.leafNodeKey[kh]
		if !exists {
			return true
		}
		n, exists := b.nodes[nk]
		if !exists {
			return true
		}
		found = nk
		foundNode = n
		ok = true
		return false
	})
	return found, foundNode, ok, nil
}

// WriteNodeBatch implements storage.TreeWriter. It is idempotent: writing
// the same (key, node) pair twice is a no-op the second time.
func (b *Backend) WriteNodeBatch(_ context.Context, batch storage.NodeBatch) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for k, n := range batch {
		b.writeNodeLocked(k, n)
	}
	return nil
}

func (b *Backend) writeNodeLocked(k storage.NodeKey, n storage.Node) {
	if _, exists := b.nodes[k]; exists {
		return
	}
	b.nodes[k] = n
	b.nodeIndex.ReplaceOrInsert(nodeItem(k))
	if n.Type == storage.NodeLeaf {
		b.leafNodeKey[n.LeafKeyHash] = k
	}
}

// UpdateBatch implements storage.VersionedDatabase, persisting a
// TreeUpdateBatch's nodes, stale markers and value-history deltas as one
// critical section. memdb retains stale nodes indefinitely; pruning them
// is out of scope.
func (b *Backend) UpdateBatch(_ context.Context, batch storage.TreeUpdateBatch) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for k, n := range batch.NodeBatch {
		b.writeNodeLocked(k, n)
	}
	b.staleIndexes = append(b.staleIndexes, batch.StaleNodeIndexes...)

	for kh, deltas := range batch.ValueHistory {
		existing, ok := b.history[kh]
		if !ok {
			b.historyIndex.ReplaceOrInsert(historyItem(kh))
		}
		b.history[kh] = append(existing, deltas...)

		for _, d := range deltas {
			if d.Present {
				b.liveIndex.ReplaceOrInsert(historyItem(kh))
			} else {
				b.liveIndex.Delete(historyItem(kh))
			}
		}
	}

	return nil
}

// nodeIteratorImpl is a snapshot NodeIterator over a copied slice: taking
// the copy under the backend's lock up front is what makes it a consistent
// snapshot, immune to concurrent UpdateBatch calls.
type nodeIteratorImpl struct {
	items []nodeSnapshot
	idx   int
}

type nodeSnapshot struct {
	key  storage.NodeKey
	node storage.Node
}

func (it *nodeIteratorImpl) Next() bool {
	if it.idx >= len(it.items) {
		return false
	}
	it.idx++
	return true
}

func (it *nodeIteratorImpl) NodeKey() storage.NodeKey { return it.items[it.idx-1].key }
func (it *nodeIteratorImpl) Node() storage.Node       { return it.items[it.idx-1].node }
func (it *nodeIteratorImpl) Err() error               { return nil }

// Nodes implements storage.VersionedDatabase.
func (b *Backend) Nodes() storage.NodeIterator {
	b.mu.RLock()
	defer b.mu.RUnlock()

	items := make([]nodeSnapshot, 0, b.nodeIndex.Len())
	b.nodeIndex.Ascend(func(i btree.Item) bool {
		ni := i.(nodeItem)
		key := storage.NodeKey(ni)
		items = append(items, nodeSnapshot{key: key, node: b.nodes[key]})
		return true
	})
	return &nodeIteratorImpl{items: items}
}

type historyIteratorImpl struct {
	items []historySnapshot
	idx   int
}

type historySnapshot struct {
	keyHash storage.KeyHash
	history []storage.ValueHistoryEntry
}

func (it *historyIteratorImpl) Next() bool {
	if it.idx >= len(it.items) {
		return false
	}
	it.idx++
	return true
}

func (it *historyIteratorImpl) KeyHash() storage.KeyHash              { return it.items[it.idx-1].keyHash }
func (it *historyIteratorImpl) History() []storage.ValueHistoryEntry { return it.items[it.idx-1].history }
func (it *historyIteratorImpl) Err() error                           { return nil }

// ValueHistory implements storage.VersionedDatabase.
func (b *Backend) ValueHistory() storage.HistoryIterator {
	b.mu.RLock()
	defer b.mu.RUnlock()

	items := make([]historySnapshot, 0, b.historyIndex.Len())
	b.historyIndex.Ascend(func(i btree.Item) bool {
		kh := storage.KeyHash(i.(historyItem))
		hist := b.history[kh]
		cp := make([]storage.ValueHistoryEntry, len(hist))
		copy(cp, hist)
		items = append(items, historySnapshot{keyHash: kh, history: cp})
		return true
	})
	return &historyIteratorImpl{items: items}
}

var _ storage.Backend = (*Backend)(nil)
