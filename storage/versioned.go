package storage

import "context"

// NodeIterator walks a consistent snapshot of every (NodeKey, Node) pair a
// VersionedDatabase holds. Call Next before the first Node/NodeKey access;
// Next returns false once exhausted or on error (check Err to tell which).
type NodeIterator interface {
	Next() bool
	NodeKey() NodeKey
	Node() Node
	Err() error
}

// HistoryIterator walks a consistent snapshot of every KeyHash's value
// history a VersionedDatabase holds.
type HistoryIterator interface {
	Next() bool
	KeyHash() KeyHash
	History() []ValueHistoryEntry
	Err() error
}

// VersionedDatabase is the transactional half of the storage backend
// contract: it persists a TreeUpdateBatch atomically and offers consistent
// snapshot iteration over nodes and value history.
type VersionedDatabase interface {
	// UpdateBatch atomically persists batch's nodes, stale-node indexes,
	// and value-history deltas.
	UpdateBatch(ctx context.Context, batch TreeUpdateBatch) error

	// Nodes returns a consistent snapshot iterator over every stored
	// node.
	Nodes() NodeIterator

	// ValueHistory returns a consistent snapshot iterator over every
	// KeyHash's value history. It must reflect the same logical version
	// as a Nodes call made without an intervening UpdateBatch.
	ValueHistory() HistoryIterator
}

// Backend is the full capability set a storage implementation must offer
// to back a jmt.Tree: tree reads, tree-node writes, and versioned
// transactional commits.
type Backend interface {
	TreeReader
	TreeWriter
	VersionedDatabase
}
