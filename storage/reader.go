package storage

import "context"

// TreeReader is the read half of the storage backend contract. Every
// method is safe to call concurrently with every other TreeReader and
// TreeWriter method; backends must provide their own internal
// synchronization.
type TreeReader interface {
	// GetNode returns the node stored at key. A missing node is reported
	// as (zero, false, nil), never an error: callers distinguish "absent"
	// from "corrupt" by the error return alone.
	GetNode(ctx context.Context, key NodeKey) (Node, bool, error)

	// GetValue returns the value from the greatest version <= maxVersion
	// at which keyHash has a history entry. A key with no history entry
	// at or before maxVersion is reported as (nil, false, nil); a
	// tombstoned entry is reported as (nil, false, nil) as well — callers
	// needing to distinguish "never existed" from "deleted" must consult
	// ValueHistory via VersionedDatabase.
	GetValue(ctx context.Context, maxVersion Version, keyHash KeyHash) (OwnedValue, bool, error)

	// GetRightmostLeaf returns the rightmost (greatest KeyHash) leaf in
	// the tree, used to detect emptiness and to seed iteration. An empty
	// tree reports (zero, zero, false, nil).
	GetRightmostLeaf(ctx context.Context) (NodeKey, Node, bool, error)
}
