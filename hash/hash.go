// Package hash defines the pluggable cryptographic hasher contract the JMT
// core and its typed wrappers build on, plus two concrete implementations.
package hash

import (
	"crypto/sha256"

	"golang.org/x/crypto/blake2b"
)

// Size is the fixed digest length every Hasher must produce. KeyHash and
// RootHash are both Size bytes.
const Size = 32

// Digest is a Size-byte cryptographic digest.
type Digest [Size]byte

// Hasher produces a deterministic, collision-resistant digest over a byte
// slice. Two Hasher values of the same concrete type must return identical
// bytes for identical input, and hold no mutable state of their own.
type Hasher interface {
	// Hash returns the digest of data.
	Hash(data []byte) Digest
	// Name identifies the hasher, used only for diagnostics.
	Name() string
}

// SHA256 is the default Hasher, backed by the standard library.
type SHA256 struct{}

// Hash implements Hasher.
func (SHA256) Hash(data []byte) Digest { return sha256.Sum256(data) }

// Name implements Hasher.
func (SHA256) Name() string { return "sha256" }

// Blake2b256 is an alternate Hasher, demonstrating that the tree is generic
// over its hash function rather than hardcoded to SHA-256.
type Blake2b256 struct{}

// Hash implements Hasher.
func (Blake2b256) Hash(data []byte) Digest { return blake2b.Sum256(data) }

// Name implements Hasher.
func (Blake2b256) Name() string { return "blake2b-256" }

// HashChildren folds a set of already-hashed pieces into one digest by
// concatenating them before hashing, the pattern both node-hashing (internal
// node from child hashes) and leaf-hashing (key-hash || value-hash) use.
func HashChildren(h Hasher, pieces ...[]byte) Digest {
	var buf []byte
	for _, p := range pieces {
		buf = append(buf, p...)
	}
	return h.Hash(buf)
}
