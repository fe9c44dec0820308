package jmt

import (
	"context"
	"fmt"

	"github.com/versatus/integral-db/hash"
	"github.com/versatus/integral-db/storage"
)

// leafItem is one pending change to a KeyHash within a single put_value_set
// call: either a fresh value to hash and store, or (during a node split) an
// already-hashed value being carried forward to a new position.
type leafItem struct {
	keyHash storage.KeyHash
	present bool

	value        storage.OwnedValue
	valueHash    storage.RootHash
	hasValueHash bool
}

func (it leafItem) resolveValueHash(h hash.Hasher) storage.RootHash {
	if it.hasValueHash {
		return it.valueHash
	}
	return storage.RootHash(h.Hash(it.value))
}

// applyResult is what one step of the recursive descent hands back to its
// caller: the (possibly nil) Child now occupying this position, and — when
// non-nil — the Node content backing it, so a caller one level up can
// promote a surviving leaf without a storage round trip.
type applyResult struct {
	child   *storage.Child
	content *storage.Node
}

// builder accumulates the new nodes and stale-node markers produced by one
// put_value_set call, then hands the finished sets to the caller.
type builder struct {
	ctx       context.Context
	db        storage.TreeReader
	hasher    hash.Hasher
	version   storage.Version
	nodeBatch storage.NodeBatch
	stale     []storage.StaleNodeIndex
}

func newBuilder(ctx context.Context, db storage.TreeReader, h hash.Hasher, version storage.Version) *builder {
	return &builder{
		ctx:       ctx,
		db:        db,
		hasher:    h,
		version:   version,
		nodeBatch: storage.NodeBatch{},
	}
}

func (b *builder) markStale(existing *storage.Child, path storage.NibblePath) {
	if existing == nil {
		return
	}
	if existing.Version == b.version {
		// Already part of this same value-set's writes; nothing to mark.
		return
	}
	b.stale = append(b.stale, storage.StaleNodeIndex{
		StaleSinceVersion: b.version,
		NodeKey:           storage.NodeKey{Version: existing.Version, Path: path},
	})
}

// nodeHash computes a Node's own content hash. For an Internal node this is
// purely a function of its 16 children's (already-known) hashes, so
// re-deriving a RootHash never requires reading more than one stored node.
func (b *builder) nodeHash(n storage.Node) storage.RootHash {
	switch n.Type {
	case storage.NodeNull:
		return storage.RootHash{}
	case storage.NodeLeaf:
		return storage.RootHash(hash.HashChildren(b.hasher, n.LeafKeyHash[:], n.LeafValueHash[:]))
	case storage.NodeInternal:
		buf := make([]byte, 0, 16*32)
		for _, c := range n.Children {
			if c != nil {
				buf = append(buf, c.Hash[:]...)
			} else {
				buf = append(buf, make([]byte, 32)...)
			}
		}
		return storage.RootHash(b.hasher.Hash(buf))
	default:
		return storage.RootHash{}
	}
}

func (b *builder) writeNode(path storage.NibblePath, n storage.Node) storage.Child {
	h := b.nodeHash(n)
	b.nodeBatch[storage.NodeKey{Version: b.version, Path: path}] = n
	return storage.Child{Hash: h, Version: b.version, IsLeaf: n.Type == storage.NodeLeaf}
}

func nibbleAt(k storage.KeyHash, depth int) byte {
	byteIdx := depth / 2
	if depth%2 == 0 {
		return k[byteIdx] >> 4
	}
	return k[byteIdx] & 0x0f
}

// apply descends into the subtree rooted at path (whose current occupant,
// if any, is existing), applying items — every one of which shares path as
// a KeyHash prefix — and returns the Child now occupying that position.
func (b *builder) apply(path storage.NibblePath, existing *storage.Child, items []leafItem) (applyResult, error) {
	if len(items) == 0 {
		if existing == nil {
			return applyResult{}, nil
		}
		return applyResult{child: existing}, nil
	}
	if existing == nil {
		return b.applyEmpty(path, items)
	}
	if existing.IsLeaf {
		return b.applyLeaf(path, existing, items)
	}
	return b.applyInternal(path, existing, items)
}

func (b *builder) applyEmpty(path storage.NibblePath, items []leafItem) (applyResult, error) {
	if len(items) == 1 {
		it := items[0]
		if !it.present {
			return applyResult{}, nil
		}
		n := storage.LeafNode(it.keyHash, it.resolveValueHash(b.hasher))
		c := b.writeNode(path, n)
		return applyResult{child: &c, content: &n}, nil
	}
	res, _, err := b.branch(path, nil, items)
	return res, err
}

func (b *builder) applyLeaf(path storage.NibblePath, existing *storage.Child, items []leafItem) (applyResult, error) {
	leaf, ok, err := b.db.GetNode(b.ctx, storage.NodeKey{Version: existing.Version, Path: path})
	if err != nil {
		return applyResult{}, backendError(err)
	}
	if !ok || leaf.Type != storage.NodeLeaf {
		return applyResult{}, newErr(KindCorruptNode, fmt.Sprintf("expected leaf at %x@%d", []byte(path), existing.Version))
	}

	var same *leafItem
	var diff []leafItem
	for i := range items {
		if items[i].keyHash == leaf.LeafKeyHash {
			it := items[i]
			same = &it
		} else {
			diff = append(diff, items[i])
		}
	}

	if len(diff) == 0 {
		if same == nil {
			return applyResult{child: existing, content: &leaf}, nil
		}
		b.markStale(existing, path)
		if !same.present {
			return applyResult{}, nil
		}
		n := storage.LeafNode(same.keyHash, same.resolveValueHash(b.hasher))
		c := b.writeNode(path, n)
		return applyResult{child: &c, content: &n}, nil
	}

	// Collision: another key shares this prefix, so the position must
	// become (or stay) an internal node. Carry the old leaf's key/value
	// forward unless `same` tombstones it.
	combined := diff
	if same == nil || same.present {
		carried := leafItem{keyHash: leaf.LeafKeyHash, present: true, valueHash: leaf.LeafValueHash, hasValueHash: true}
		if same != nil {
			carried = *same
		}
		combined = append(combined, carried)
	}

	b.markStale(existing, path)
	res, _, err := b.branch(path, nil, combined)
	return res, err
}

func (b *builder) applyInternal(path storage.NibblePath, existing *storage.Child, items []leafItem) (applyResult, error) {
	node, ok, err := b.db.GetNode(b.ctx, storage.NodeKey{Version: existing.Version, Path: path})
	if err != nil {
		return applyResult{}, backendError(err)
	}
	if !ok || node.Type != storage.NodeInternal {
		return applyResult{}, newErr(KindCorruptNode, fmt.Sprintf("expected internal node at %x@%d", []byte(path), existing.Version))
	}

	res, changed, err := b.branch(path, &node, items)
	if err != nil {
		return applyResult{}, err
	}
	if !changed {
		return applyResult{child: existing, content: &node}, nil
	}
	b.markStale(existing, path)
	return res, nil
}

// branch groups items by the nibble at path's depth, recurses into each
// affected child, and decides whether the result is an internal node, a
// single promoted leaf, or empty. existingInternal is nil when building a
// brand new branch (no prior internal node occupied this position).
func (b *builder) branch(path storage.NibblePath, existingInternal *storage.Node, items []leafItem) (applyResult, bool, error) {
	depth := path.Len()
	groups := make(map[byte][]leafItem)
	for _, it := range items {
		nib := nibbleAt(it.keyHash, depth)
		groups[nib] = append(groups[nib], it)
	}

	var newChildren [16]*storage.Child
	var newContents [16]*storage.Node
	changed := existingInternal == nil

	for nib := 0; nib < 16; nib++ {
		var existingChild *storage.Child
		if existingInternal != nil {
			existingChild = existingInternal.Children[nib]
		}
		grp := groups[byte(nib)]
		if len(grp) == 0 {
			newChildren[nib] = existingChild
			continue
		}
		childPath := path.AppendNibble(byte(nib))
		res, err := b.apply(childPath, existingChild, grp)
		if err != nil {
			return applyResult{}, false, err
		}
		newChildren[nib] = res.child
		newContents[nib] = res.content
		changed = true
	}

	if !changed {
		return applyResult{}, false, nil
	}

	count := 0
	onlyIdx := -1
	for i, c := range newChildren {
		if c != nil {
			count++
			onlyIdx = i
		}
	}

	if count == 0 {
		return applyResult{}, true, nil
	}

	if count == 1 && newChildren[onlyIdx].IsLeaf {
		childPath := path.AppendNibble(byte(onlyIdx))
		content := newContents[onlyIdx]
		if content != nil {
			// Freshly written this call; its entry at the deeper path is
			// superseded by the promoted position, so drop it.
			delete(b.nodeBatch, storage.NodeKey{Version: b.version, Path: childPath})
		} else {
			n, ok, err := b.db.GetNode(b.ctx, storage.NodeKey{Version: newChildren[onlyIdx].Version, Path: childPath})
			if err != nil {
				return applyResult{}, false, backendError(err)
			}
			if !ok {
				return applyResult{}, false, newErr(KindCorruptNode, "missing leaf during promotion")
			}
			content = &n
			b.stale = append(b.stale, storage.StaleNodeIndex{
				StaleSinceVersion: b.version,
				NodeKey:           storage.NodeKey{Version: newChildren[onlyIdx].Version, Path: childPath},
			})
		}
		leaf := *content
		c := b.writeNode(path, leaf)
		return applyResult{child: &c, content: &leaf}, true, nil
	}

	internal := storage.InternalNode(newChildren)
	c := b.writeNode(path, internal)
	return applyResult{child: &c, content: &internal}, true, nil
}
