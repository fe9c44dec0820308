// Package treewrapper provides a typed facade over a jmt.Tree: callers work
// in their own key/value types, and a Codec pair handles the encoding to
// and from the opaque bytes the tree core stores.
package treewrapper

import (
	"context"

	"github.com/versatus/integral-db/codec"
	"github.com/versatus/integral-db/hash"
	"github.com/versatus/integral-db/jmt"
	"github.com/versatus/integral-db/storage"
)

// Wrapper binds a jmt.Tree to a concrete (K, V) pair via a Hasher (to turn
// K into a storage.KeyHash) and a pair of Codecs. It owns no mutable state
// beyond the tree handle; calling it from multiple goroutines concurrently
// is undefined — the lrtrie package is the concurrency front-end.
type Wrapper[K any, V any] struct {
	tree   *jmt.Tree
	db     storage.Backend
	hasher hash.Hasher

	keyCodec   codec.Codec[K]
	valueCodec codec.Codec[V]
}

// New returns a Wrapper over a freshly constructed tree backed by db.
func New[K any, V any](db storage.Backend, hasher hash.Hasher, keyCodec codec.Codec[K], valueCodec codec.Codec[V]) *Wrapper[K, V] {
	return &Wrapper[K, V]{
		tree:       jmt.New(db, hasher),
		db:         db,
		hasher:     hasher,
		keyCodec:   keyCodec,
		valueCodec: valueCodec,
	}
}

func (w *Wrapper[K, V]) keyHash(k K) (storage.KeyHash, error) {
	b, err := w.keyCodec.Encode(k)
	if err != nil {
		// An encoding failure is surfaced as a KindCodec error; the
		// accompanying KeyHash is the hash of the empty key, and every
		// caller in this package returns the error without using it.
		return storage.KeyHash(w.hasher.Hash(nil)), wrapCodecErr(err)
	}
	return storage.KeyHash(w.hasher.Hash(b)), nil
}

func wrapCodecErr(err error) error {
	return &jmt.Error{Kind: jmt.KindCodec, Msg: "key/value codec failure", Err: err}
}

// Get decodes and returns the value stored for k at maxVersion.
func (w *Wrapper[K, V]) Get(ctx context.Context, maxVersion storage.Version, k K) (V, error) {
	var zero V
	kh, err := w.keyHash(k)
	if err != nil {
		return zero, err
	}
	raw, ok, err := w.tree.Get(ctx, maxVersion, kh)
	if err != nil {
		return zero, err
	}
	if !ok {
		return zero, jmt.ErrNotFound
	}
	v, err := w.valueCodec.Decode(raw)
	if err != nil {
		return zero, wrapCodecErr(err)
	}
	return v, nil
}

// Contains reports whether k has a live value at maxVersion.
func (w *Wrapper[K, V]) Contains(ctx context.Context, maxVersion storage.Version, k K) (bool, error) {
	kh, err := w.keyHash(k)
	if err != nil {
		return false, err
	}
	return w.tree.Contains(ctx, maxVersion, kh)
}

// Insert encodes k and v, applies it at version()+1, and persists the
// resulting NodeBatch through the backend's TreeWriter (in addition to the
// tree's own atomic commit) so the batch is durable by the same path the
// original design described, even though jmt.Tree.PutValueSet already
// commits it. Returns the tree's new version.
func (w *Wrapper[K, V]) Insert(ctx context.Context, k K, v V) (storage.Version, error) {
	return w.mutate(ctx, k, v, true)
}

// Remove tombstones k at version()+1. Returns true iff Contains is now
// false at the new version.
func (w *Wrapper[K, V]) Remove(ctx context.Context, k K) (bool, error) {
	_, err := w.mutate(ctx, k, *new(V), false)
	if err != nil {
		return false, err
	}
	ok, err := w.Contains(ctx, w.tree.Version(), k)
	if err != nil {
		return false, err
	}
	return !ok, nil
}

func (w *Wrapper[K, V]) mutate(ctx context.Context, k K, v V, present bool) (storage.Version, error) {
	kh, err := w.keyHash(k)
	if err != nil {
		return 0, err
	}

	var raw []byte
	if present {
		raw, err = w.valueCodec.Encode(v)
		if err != nil {
			return 0, wrapCodecErr(err)
		}
	}

	next := w.tree.Version() + 1
	_, batch, err := w.tree.PutValueSet(ctx, []jmt.KeyValue{{KeyHash: kh, Value: raw, Present: present}}, next)
	if err != nil {
		return 0, err
	}

	if err := w.db.WriteNodeBatch(ctx, batch.NodeBatch); err != nil {
		return 0, &jmt.Error{Kind: jmt.KindBackend, Msg: "write_node_batch failed after commit", Err: err}
	}

	return next, nil
}

// Extend applies every (K, Option<V>) pair in kvs as one atomic value-set at
// version()+1.
func (w *Wrapper[K, V]) Extend(ctx context.Context, kvs []KV[K, V]) (storage.Version, error) {
	items := make([]jmt.KeyValue, 0, len(kvs))
	for _, kv := range kvs {
		kh, err := w.keyHash(kv.Key)
		if err != nil {
			return 0, err
		}
		var raw []byte
		if kv.Present {
			raw, err = w.valueCodec.Encode(kv.Value)
			if err != nil {
				return 0, wrapCodecErr(err)
			}
		}
		items = append(items, jmt.KeyValue{KeyHash: kh, Value: raw, Present: kv.Present})
	}

	next := w.tree.Version() + 1
	_, batch, err := w.tree.PutValueSet(ctx, items, next)
	if err != nil {
		return 0, err
	}
	if err := w.db.WriteNodeBatch(ctx, batch.NodeBatch); err != nil {
		return 0, &jmt.Error{Kind: jmt.KindBackend, Msg: "write_node_batch failed after commit", Err: err}
	}
	return next, nil
}

// KV is one entry of an Extend call.
type KV[K any, V any] struct {
	Key     K
	Value   V
	Present bool
}

// RootHash returns the tree's root hash at version.
func (w *Wrapper[K, V]) RootHash(ctx context.Context, version storage.Version) (storage.RootHash, error) {
	return w.tree.GetRootHash(ctx, version)
}

// GetProof returns a proof for k at version.
func (w *Wrapper[K, V]) GetProof(ctx context.Context, version storage.Version, k K) (jmt.SparseMerkleProof, error) {
	kh, err := w.keyHash(k)
	if err != nil {
		return jmt.SparseMerkleProof{}, err
	}
	return w.tree.GetProof(ctx, version, kh)
}

// VerifyProof verifies proof for k against expectedRoot.
func (w *Wrapper[K, V]) VerifyProof(k K, expectedRoot storage.RootHash, proof jmt.SparseMerkleProof) error {
	kh, err := w.keyHash(k)
	if err != nil {
		return err
	}
	return jmt.VerifyProof(w.hasher, kh, expectedRoot, proof)
}

// Len returns the number of live keys at the tree's latest version.
func (w *Wrapper[K, V]) Len(ctx context.Context) (int, error) { return w.tree.Len(ctx) }

// IsEmpty reports whether the tree holds no live keys at its latest version.
func (w *Wrapper[K, V]) IsEmpty(ctx context.Context) (bool, error) { return w.tree.IsEmpty(ctx) }

// Version returns the tree's latest committed version.
func (w *Wrapper[K, V]) Version() storage.Version { return w.tree.Version() }

// Iter returns an iterator over every live KeyHash >= startingKey at
// version, in ascending order. Entries are keyed by storage.KeyHash rather
// than K: the hash is one-way, so there is no K to hand back without a
// separate key-preimage index, which this wrapper does not keep.
func (w *Wrapper[K, V]) Iter(ctx context.Context, version storage.Version, startingKey storage.KeyHash) (*jmt.Iterator, error) {
	return w.tree.Iter(ctx, version, startingKey)
}

// ValueHistory returns a consistent snapshot iterator over every KeyHash's
// full version history, backed directly by the underlying storage.Backend.
func (w *Wrapper[K, V]) ValueHistory() storage.HistoryIterator {
	return w.db.ValueHistory()
}

// Tree exposes the underlying *jmt.Tree for callers needing direct access
// (iteration, raw KeyHash operations).
func (w *Wrapper[K, V]) Tree() *jmt.Tree { return w.tree }
