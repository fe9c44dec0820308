package jmt

import (
	"bytes"
	"context"

	"github.com/google/btree"

	"github.com/versatus/integral-db/storage"
)

const iteratorBtreeDegree = 16

// keyHashItem adapts storage.KeyHash to google/btree's Item interface so
// collectKeys can hand back an ascending, startingKey-filtered cursor
// instead of a hand-rolled sorted slice.
type keyHashItem storage.KeyHash

func (a keyHashItem) Less(than btree.Item) bool {
	b := than.(keyHashItem)
	return bytes.Compare(a[:], b[:]) < 0
}

// Iterator walks a tree's live keys in ascending KeyHash order, starting at
// a given KeyHash, as of one version.
type Iterator struct {
	tree    *Tree
	ctx     context.Context
	version storage.Version
	keys    []storage.KeyHash
	idx     int

	curKey storage.KeyHash
	curVal storage.OwnedValue
	err    error
}

// Next advances the iterator, returning false once exhausted or on error.
func (it *Iterator) Next() bool {
	if it.err != nil {
		return false
	}
	for it.idx < len(it.keys) {
		kh := it.keys[it.idx]
		it.idx++
		val, ok, err := it.tree.db.GetValue(it.ctx, it.version, kh)
		if err != nil {
			it.err = backendError(err)
			return false
		}
		if !ok {
			// Defensive: every key collected by the tree walk is live by
			// construction, but a concurrent pruner is out of scope here
			// rather than assumed impossible.
			continue
		}
		it.curKey = kh
		it.curVal = val
		return true
	}
	return false
}

// KeyHash returns the current entry's key.
func (it *Iterator) KeyHash() storage.KeyHash { return it.curKey }

// Value returns the current entry's value.
func (it *Iterator) Value() storage.OwnedValue { return it.curVal }

// Err returns the first error encountered, if any.
func (it *Iterator) Err() error { return it.err }

// Iter returns an Iterator over every live key >= startingKey at version,
// in ascending KeyHash order.
func (t *Tree) Iter(ctx context.Context, version storage.Version, startingKey storage.KeyHash) (*Iterator, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if err := t.checkReadVersion(version); err != nil {
		return nil, err
	}

	keys, err := t.collectKeys(ctx, version, startingKey)
	if err != nil {
		return nil, err
	}
	return &Iterator{tree: t, ctx: ctx, version: version, keys: keys}, nil
}

// collectKeys walks the tree at version, collecting every live KeyHash into
// a btree, then returns an ascending cursor starting at startingKey. The
// walk itself doesn't need to track order (nibble order already matches
// ascending KeyHash order); routing the result through a btree is what
// gives AscendGreaterOrEqual its O(log n) seek instead of a linear scan
// every call.
func (t *Tree) collectKeys(ctx context.Context, version storage.Version, startingKey storage.KeyHash) ([]storage.KeyHash, error) {
	root, ok, err := t.db.GetNode(ctx, storage.NodeKey{Version: version, Path: ""})
	if err != nil {
		return nil, backendError(err)
	}
	if !ok {
		return nil, nil
	}

	bt := btree.New(iteratorBtreeDegree)
	var walk func(node storage.Node, path storage.NibblePath) error
	walk = func(node storage.Node, path storage.NibblePath) error {
		switch node.Type {
		case storage.NodeNull:
			return nil
		case storage.NodeLeaf:
			bt.ReplaceOrInsert(keyHashItem(node.LeafKeyHash))
			return nil
		case storage.NodeInternal:
			for nib := 0; nib < 16; nib++ {
				c := node.Children[nib]
				if c == nil {
					continue
				}
				childPath := path.AppendNibble(byte(nib))
				childNode, ok, err := t.db.GetNode(ctx, storage.NodeKey{Version: c.Version, Path: childPath})
				if err != nil {
					return backendError(err)
				}
				if !ok {
					return wrapErr(KindCorruptNode, "missing child during iteration", nil)
				}
				if err := walk(childNode, childPath); err != nil {
					return err
				}
			}
			return nil
		default:
			return wrapErr(KindCorruptNode, "unknown node type during iteration", nil)
		}
	}

	if err := walk(root, ""); err != nil {
		return nil, err
	}

	out := make([]storage.KeyHash, 0, bt.Len())
	bt.AscendGreaterOrEqual(keyHashItem(startingKey), func(i btree.Item) bool {
		out = append(out, storage.KeyHash(i.(keyHashItem)))
		return true
	})
	return out, nil
}
