package lrtrie

import (
	"github.com/versatus/integral-db/jmt"
	"github.com/versatus/integral-db/storage"
)

// opKind tags an Operation's variant. Apply logic lives in one place
// (Operation.keyValues, called by WriteHandle.Publish) rather than behind
// per-variant methods; every variant reduces to its entries, so the tag is
// not consulted there.
type opKind int

const (
	opAdd opKind = iota
	opRemove
	opExtend
)

// Operation is one pending mutation, logged by a WriteHandle call and
// applied to the shared tree at Publish time. Its shape mirrors the trie's
// three mutating calls directly: Add carries one optional value, Remove
// carries none, Extend carries many.
type Operation struct {
	kind    opKind
	version storage.Version
	entries []jmt.KeyValue // one entry for Add/Remove, many for Extend
}

// addOp logs the insertion (or, if present is false, the tombstoning) of a
// single key at version.
func addOp(keyHash storage.KeyHash, value storage.OwnedValue, present bool, version storage.Version) Operation {
	return Operation{
		kind:    opAdd,
		version: version,
		entries: []jmt.KeyValue{{KeyHash: keyHash, Value: value, Present: present}},
	}
}

// removeOp logs the tombstoning of a single key at version.
func removeOp(keyHash storage.KeyHash, version storage.Version) Operation {
	return Operation{
		kind:    opRemove,
		version: version,
		entries: []jmt.KeyValue{{KeyHash: keyHash, Present: false}},
	}
}

// extendOp logs a batch of entries applied as a single value-set at
// version.
func extendOp(entries []jmt.KeyValue, version storage.Version) Operation {
	return Operation{kind: opExtend, version: version, entries: entries}
}

// keyValues returns the KeyValue set this Operation applies. Add, Remove
// and Extend all reduce to "apply this value-set at this version" —
// put_value_set already handles single- and multi-entry sets uniformly, so
// there is nothing variant-specific left to do once entries is built.
func (op Operation) keyValues() []jmt.KeyValue { return op.entries }
