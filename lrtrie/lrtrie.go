// Package lrtrie is the Left-Right concurrency front-end over a jmt.Tree: a
// single WriteHandle logs pending mutations and publishes them in batches,
// while many ReadHandles observe a consistent snapshot of the tree. Taking a
// snapshot locks a mutex that Publish also holds briefly while it rotates
// reader generations, so reads are not lock-free; they never wait for
// Publish to apply its log.
//
// The tree's storage backend already retains every committed version, so
// the two "copies" a classic Left-Right structure duplicates are realized
// here as two version watermarks into one shared tree rather than two
// physically separate trees: "the stale copy" is simply "versions beyond
// the currently visible one", already durable and just not yet exposed to
// readers. Publish's job reduces to waiting until no reader registered
// before the previous Publish is still pinned, applying the pending log
// (each entry committing a new, already-durable version) and then advancing
// the visible watermark.
package lrtrie

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/golang/glog"

	"github.com/versatus/integral-db/hash"
	"github.com/versatus/integral-db/jmt"
	"github.com/versatus/integral-db/storage"
)

// epochGen is one generation's reader accounting: readers that entered
// during this generation hold its WaitGroup open. Each Publish rotates the
// current generation out and waits for the one rotated out by the previous
// Publish to drain, so a reader can hold a snapshot across one Publish.
type epochGen struct {
	wg sync.WaitGroup
}

// Trie is the shared state a WriteHandle and any number of ReadHandles
// drive concurrently.
type Trie struct {
	tree   *jmt.Tree
	hasher hash.Hasher
	db     storage.Backend

	visible atomic.Uint64 // version watermark currently exposed to readers

	genMu sync.Mutex
	gen   *epochGen
	prev  *epochGen // generation rotated out by the previous Publish
}

// New builds a fresh Trie plus its single WriteHandle and a factory for
// minting ReadHandles. This mirrors left_right::new(), which likewise
// returns one writer and one read-handle factory over freshly paired
// copies.
func New(db storage.Backend, hasher hash.Hasher) (*WriteHandle, *ReadHandleFactory) {
	t := &Trie{
		tree:   jmt.New(db, hasher),
		hasher: hasher,
		db:     db,
		gen:    &epochGen{},
	}
	return &WriteHandle{trie: t, nextVer: 1}, &ReadHandleFactory{trie: t}
}

// WriteHandle is the trie's single writer. Insert, Remove and Extend only
// append to the pending operation log — they never touch the tree directly
// — so logging a mutation never blocks a concurrent reader. Publish is
// where logged operations actually become durable and visible.
//
// Its methods serialize on an internal mutex, so calls from several
// goroutines are safe; a trie still has exactly one WriteHandle.
type WriteHandle struct {
	trie *Trie

	mu      sync.Mutex
	log     []Operation
	nextVer storage.Version
}

func (wh *WriteHandle) reserveVersion() storage.Version {
	v := wh.nextVer
	wh.nextVer++
	return v
}

// Insert logs the insertion of keyHash -> value. It returns the version the
// entry will carry once published.
func (wh *WriteHandle) Insert(keyHash storage.KeyHash, value storage.OwnedValue) storage.Version {
	wh.mu.Lock()
	defer wh.mu.Unlock()
	v := wh.reserveVersion()
	wh.log = append(wh.log, addOp(keyHash, value, true, v))
	return v
}

// Remove logs the tombstoning of keyHash. It returns the version the
// tombstone will carry once published.
func (wh *WriteHandle) Remove(keyHash storage.KeyHash) storage.Version {
	wh.mu.Lock()
	defer wh.mu.Unlock()
	v := wh.reserveVersion()
	wh.log = append(wh.log, removeOp(keyHash, v))
	return v
}

// Extend logs a batch of (KeyHash, Option<Value>) entries applied as one
// atomic value-set at a single new version. It returns that version.
func (wh *WriteHandle) Extend(entries []jmt.KeyValue) storage.Version {
	wh.mu.Lock()
	defer wh.mu.Unlock()
	v := wh.reserveVersion()
	cloned := make([]jmt.KeyValue, len(entries))
	copy(cloned, entries)
	wh.log = append(wh.log, extendOp(cloned, v))
	return v
}

// Publish applies every logged operation to the shared tree, in order, and
// advances the visible watermark to the last one that applied successfully.
//
// Per operation value-set application is already atomic (jmt.Tree commits
// each PutValueSet through the backend's VersionedDatabase as a single
// unit); Publish itself follows four steps: wait for readers registered
// before the previous Publish to drain, apply the log, advance the
// watermark, and drop the processed prefix of the log. If an operation
// fails it is reported, dropped from the log and not retried; operations
// already applied earlier in the same Publish call remain committed and
// visible, and anything logged after the failed operation stays queued for
// the next Publish call.
func (wh *WriteHandle) Publish(ctx context.Context) error {
	wh.mu.Lock()
	defer wh.mu.Unlock()

	if len(wh.log) == 0 {
		return nil
	}

	trie := wh.trie
	trie.genMu.Lock()
	drain := trie.prev
	trie.prev = trie.gen
	trie.gen = &epochGen{}
	trie.genMu.Unlock()
	if drain != nil {
		drain.wg.Wait()
	}

	applied := 0
	var firstErr error
	for _, op := range wh.log {
		if _, _, err := trie.tree.PutValueSet(ctx, op.keyValues(), op.version); err != nil {
			glog.Errorf("lrtrie: publish: put_value_set at version %d failed: %v", op.version, err)
			firstErr = err
			break
		}
		applied++
	}

	if applied > 0 {
		trie.visible.Store(uint64(wh.log[applied-1].version))
	}
	processed := applied
	if firstErr != nil {
		processed++ // the failed operation is dropped, not retried
	}
	wh.log = wh.log[processed:]

	return firstErr
}

// Pending reports how many logged operations have not yet been published.
func (wh *WriteHandle) Pending() int {
	wh.mu.Lock()
	defer wh.mu.Unlock()
	return len(wh.log)
}

// Version returns the latest version the writer has actually committed to
// the tree, whether or not it is yet visible to readers.
func (wh *WriteHandle) Version() storage.Version { return wh.trie.tree.Version() }

// RootLatest returns the root hash at the writer's own latest committed
// version.
func (wh *WriteHandle) RootLatest(ctx context.Context) (storage.RootHash, error) {
	return wh.trie.tree.GetRootHash(ctx, wh.trie.tree.Version())
}

// Len returns the number of live keys at the writer's own latest committed
// version.
func (wh *WriteHandle) Len(ctx context.Context) (int, error) { return wh.trie.tree.Len(ctx) }

// IsEmpty reports whether the writer's own latest committed version holds
// no live keys.
func (wh *WriteHandle) IsEmpty(ctx context.Context) (bool, error) { return wh.trie.tree.IsEmpty(ctx) }

// GetProof returns a proof for keyHash at the writer's own latest committed
// version.
func (wh *WriteHandle) GetProof(ctx context.Context, keyHash storage.KeyHash) (jmt.SparseMerkleProof, error) {
	return wh.trie.tree.GetProof(ctx, wh.trie.tree.Version(), keyHash)
}

// VerifyProof verifies proof for keyHash against expectedRoot.
func (wh *WriteHandle) VerifyProof(keyHash storage.KeyHash, expectedRoot storage.RootHash, proof jmt.SparseMerkleProof) error {
	return jmt.VerifyProof(wh.trie.hasher, keyHash, expectedRoot, proof)
}

// ReadHandleFactory mints ReadHandles. It is cheaply cloneable (it holds
// only a pointer back to the shared Trie) so that, for example, each
// goroutine in an errgroup.Group can be handed its own factory-derived
// handle without sharing mutable state.
type ReadHandleFactory struct {
	trie *Trie
}

// Handle returns a new ReadHandle over the same underlying Trie.
func (f *ReadHandleFactory) Handle() *ReadHandle { return &ReadHandle{trie: f.trie} }

// ReadHandle is a reader. Every read either takes a one-shot snapshot
// internally or, via Snapshot, a caller can pin one explicitly across
// several calls. Taking a snapshot briefly locks the mutex Publish uses to
// rotate generations, so a read is not wait-free.
type ReadHandle struct {
	trie *Trie
}

// Snapshot pins the currently visible version and registers this reader
// against the generation live at that moment. The next Publish does not
// wait for it; the Publish after that waits for Release. All
// reads through the returned Snapshot observe the same version, for as long
// as it is held — the atomicity guarantee a single held handle gets across
// a publish.
func (h *ReadHandle) Snapshot() *Snapshot {
	h.trie.genMu.Lock()
	g := h.trie.gen
	g.wg.Add(1)
	h.trie.genMu.Unlock()

	return &Snapshot{
		trie:    h.trie,
		gen:     g,
		version: storage.Version(h.trie.visible.Load()),
	}
}

// Get is a one-shot read at the currently visible version.
func (h *ReadHandle) Get(ctx context.Context, keyHash storage.KeyHash) (storage.OwnedValue, bool, error) {
	s := h.Snapshot()
	defer s.Release()
	return s.Get(ctx, keyHash)
}

// Contains is a one-shot read at the currently visible version.
func (h *ReadHandle) Contains(ctx context.Context, keyHash storage.KeyHash) (bool, error) {
	s := h.Snapshot()
	defer s.Release()
	return s.Contains(ctx, keyHash)
}

// RootLatest is a one-shot read of the root hash at the currently visible
// version.
func (h *ReadHandle) RootLatest(ctx context.Context) (storage.RootHash, error) {
	s := h.Snapshot()
	defer s.Release()
	return s.RootHash(ctx)
}

// Len is a one-shot read of the live key count at the currently visible
// version.
func (h *ReadHandle) Len(ctx context.Context) (int, error) {
	s := h.Snapshot()
	defer s.Release()
	return s.Len(ctx)
}

// IsEmpty is a one-shot read at the currently visible version.
func (h *ReadHandle) IsEmpty(ctx context.Context) (bool, error) {
	s := h.Snapshot()
	defer s.Release()
	return s.IsEmpty(ctx)
}

// Version returns the currently visible version watermark.
func (h *ReadHandle) Version() storage.Version {
	return storage.Version(h.trie.visible.Load())
}

// Snapshot is a pinned, consistent view into the trie held by a ReadHandle
// across possibly several reads. It must be released when the caller is
// done with it.
type Snapshot struct {
	trie     *Trie
	gen      *epochGen
	version  storage.Version
	released bool
}

// Release drops this snapshot's reader accounting. Calling Release more
// than once is a no-op. A Snapshot that is never released will make the
// second Publish after it was taken wait forever for its generation to
// drain — callers should defer Release immediately after taking a Snapshot.
func (s *Snapshot) Release() {
	if s.released {
		return
	}
	s.released = true
	s.gen.wg.Done()
}

// Version is the version this snapshot is pinned at.
func (s *Snapshot) Version() storage.Version { return s.version }

// Get reads keyHash at the snapshot's pinned version.
func (s *Snapshot) Get(ctx context.Context, keyHash storage.KeyHash) (storage.OwnedValue, bool, error) {
	return s.trie.tree.Get(ctx, s.version, keyHash)
}

// Contains reports whether keyHash is live at the snapshot's pinned
// version.
func (s *Snapshot) Contains(ctx context.Context, keyHash storage.KeyHash) (bool, error) {
	return s.trie.tree.Contains(ctx, s.version, keyHash)
}

// RootHash returns the root hash at the snapshot's pinned version.
func (s *Snapshot) RootHash(ctx context.Context) (storage.RootHash, error) {
	return s.trie.tree.GetRootHash(ctx, s.version)
}

// Len returns the number of live keys at the snapshot's pinned version.
//
// The underlying tree only tracks a live-key count at its own latest
// version (see jmt.Tree.Len); if the pinned version is older than that,
// Len falls back to counting via an Iter at the pinned version.
func (s *Snapshot) Len(ctx context.Context) (int, error) {
	if s.version == s.trie.tree.Version() {
		return s.trie.tree.Len(ctx)
	}
	it, err := s.trie.tree.Iter(ctx, s.version, storage.KeyHash{})
	if err != nil {
		return 0, err
	}
	n := 0
	for it.Next() {
		n++
	}
	return n, it.Err()
}

// IsEmpty reports whether the snapshot's pinned version holds no live
// keys.
func (s *Snapshot) IsEmpty(ctx context.Context) (bool, error) {
	n, err := s.Len(ctx)
	return n == 0, err
}

// GetProof returns a proof for keyHash at the snapshot's pinned version.
func (s *Snapshot) GetProof(ctx context.Context, keyHash storage.KeyHash) (jmt.SparseMerkleProof, error) {
	return s.trie.tree.GetProof(ctx, s.version, keyHash)
}

// VerifyProof verifies proof for keyHash against expectedRoot.
func (s *Snapshot) VerifyProof(keyHash storage.KeyHash, expectedRoot storage.RootHash, proof jmt.SparseMerkleProof) error {
	return jmt.VerifyProof(s.trie.hasher, keyHash, expectedRoot, proof)
}
