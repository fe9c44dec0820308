// Package storage defines the backend contract the JMT core runs against —
// TreeReader, TreeWriter and VersionedDatabase — and the content-addressed
// node types they exchange. It is deliberately free of any tree-building
// logic: that lives in package jmt, which depends on storage, never the
// other way around.
package storage

import (
	"bytes"
	"fmt"
)

// KeyHash is the 32-byte digest of a user key. It is the tree's sole
// indexing key: user keys, however large, are never stored verbatim.
type KeyHash [32]byte

// String renders k as hex, for logging.
func (k KeyHash) String() string { return fmt.Sprintf("%x", [32]byte(k)) }

// Less reports whether k sorts before other in ascending KeyHash order.
func (k KeyHash) Less(other KeyHash) bool {
	return bytes.Compare(k[:], other[:]) < 0
}

// Version is a monotonically non-decreasing counter assigned at mutation
// time. A reader may query any Version <= the latest committed version.
type Version uint64

// OwnedValue is an opaque byte sequence. Whether it is present or
// tombstoned at a given Version is carried alongside it (see
// ValueHistoryEntry), never encoded into OwnedValue itself.
type OwnedValue []byte

// Clone returns a copy of v, so callers can hold onto it past the storage
// backend's own buffer lifetime.
func (v OwnedValue) Clone() OwnedValue {
	if v == nil {
		return nil
	}
	out := make(OwnedValue, len(v))
	copy(out, v)
	return out
}

// RootHash is the 32-byte authenticated digest of the tree at one version.
type RootHash [32]byte

// String renders r as hex, for logging.
func (r RootHash) String() string { return fmt.Sprintf("%x", [32]byte(r)) }

// NodeKey content-addresses a Node: the version it was created at, plus its
// nibble-path position from the root (root is the empty path).
type NodeKey struct {
	Version Version
	Path    NibblePath
}

// NibblePath is a sequence of 4-bit nibbles (each in [0,16)), the radix-16
// tree's branching path from the root to a node.
type NibblePath string

// AppendNibble returns a new NibblePath with n appended.
func (p NibblePath) AppendNibble(n byte) NibblePath {
	return p + NibblePath([]byte{n})
}

// Len reports the number of nibbles in p.
func (p NibblePath) Len() int { return len(p) }

// At returns the nibble at position i.
func (p NibblePath) At(i int) byte { return p[i] }

// NodeType discriminates the three kinds of JMT node.
type NodeType int

const (
	// NodeNull represents an empty subtree.
	NodeNull NodeType = iota
	// NodeLeaf stores a single KeyHash and the hash of its current value.
	NodeLeaf
	// NodeInternal stores up to 16 children, indexed by nibble.
	NodeInternal
)

func (t NodeType) String() string {
	switch t {
	case NodeNull:
		return "null"
	case NodeLeaf:
		return "leaf"
	case NodeInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Child is one populated slot of an InternalNode.
type Child struct {
	Hash    RootHash
	Version Version
	IsLeaf  bool
}

// Node is a JMT node. Exactly one of the field groups below is meaningful,
// selected by Type.
type Node struct {
	Type NodeType

	// Children is indexed by nibble value [0,16); a nil entry means no
	// child at that position. Meaningful only when Type == NodeInternal.
	Children [16]*Child

	// LeafKeyHash and LeafValueHash are meaningful only when
	// Type == NodeLeaf.
	LeafKeyHash   KeyHash
	LeafValueHash RootHash
}

// NullNode returns the canonical empty node.
func NullNode() Node { return Node{Type: NodeNull} }

// LeafNode returns a leaf node for keyHash with the given value hash.
func LeafNode(keyHash KeyHash, valueHash RootHash) Node {
	return Node{Type: NodeLeaf, LeafKeyHash: keyHash, LeafValueHash: valueHash}
}

// InternalNode returns an internal node with the given children.
func InternalNode(children [16]*Child) Node {
	return Node{Type: NodeInternal, Children: children}
}

// NodeBatch is the set of new nodes produced by applying a value-set at a
// version; it is what TreeWriter.WriteNodeBatch persists.
type NodeBatch map[NodeKey]Node

// StaleNodeIndex marks a node superseded by a later version. It is
// retained for proof/time-travel reads until an out-of-scope pruner
// removes it.
type StaleNodeIndex struct {
	StaleSinceVersion Version
	NodeKey           NodeKey
}

// ValueHistoryEntry is one (version, value-or-tombstone) event in a
// KeyHash's value history.
type ValueHistoryEntry struct {
	Version Version
	Value   OwnedValue // nil when Present is false
	Present bool
}

// TreeUpdateBatch is everything produced by one put_value_set call: the new
// nodes, the nodes they supersede, the root hash at Version, and the
// value-history deltas — persisted atomically by
// VersionedDatabase.UpdateBatch.
type TreeUpdateBatch struct {
	Version          Version
	RootHash         RootHash
	NodeBatch        NodeBatch
	StaleNodeIndexes []StaleNodeIndex
	ValueHistory     map[KeyHash][]ValueHistoryEntry
}
