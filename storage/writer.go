package storage

import "context"

// TreeWriter is the write half of the storage backend contract used to
// persist freshly created nodes ahead of (or as part of) a full
// VersionedDatabase.UpdateBatch commit.
type TreeWriter interface {
	// WriteNodeBatch persists every (NodeKey, Node) pair in batch. It is
	// idempotent: writing the same batch twice succeeds and is
	// equivalent to writing it once.
	WriteNodeBatch(ctx context.Context, batch NodeBatch) error
}
