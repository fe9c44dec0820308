package storage

import "errors"

// ErrCorruptNode is returned by a TreeReader when a persisted node cannot
// be decoded, or fails a self-check on read. It is fatal to the read that
// triggered it; the tree itself is not mutated and the writer may
// continue.
var ErrCorruptNode = errors.New("storage: node is corrupt")
