package jmt

import (
	"context"

	"github.com/versatus/integral-db/hash"
	"github.com/versatus/integral-db/storage"
)

// LeafWitness is the leaf a SparseMerkleProof terminates at: either the
// queried KeyHash itself (an inclusion proof) or a different KeyHash
// sharing its path prefix (an exclusion proof by divergent leaf).
type LeafWitness struct {
	KeyHash   storage.KeyHash
	ValueHash storage.RootHash
}

// ProofStep is one level of a SparseMerkleProof, recorded root-to-leaf: the
// nibble the path followed at that level, and the hash of every sibling
// slot. The followed nibble's own slot is left zero; verification fills it
// in with the hash folded up from the level below.
type ProofStep struct {
	Nibble   byte
	Siblings [16]storage.RootHash
}

// SparseMerkleProof authenticates either the presence of a single KeyHash's
// value (inclusion) or its absence (exclusion) against a RootHash at a
// given version.
type SparseMerkleProof struct {
	Steps []ProofStep
	// Leaf is nil for an exclusion proof terminating at an empty subtree.
	Leaf *LeafWitness
}

// GetProof walks the tree at version from the root down keyHash's nibble
// path, returning a proof that is either an inclusion proof (Leaf.KeyHash
// == keyHash) or an exclusion proof (Leaf == nil, or Leaf.KeyHash !=
// keyHash).
func (t *Tree) GetProof(ctx context.Context, version storage.Version, keyHash storage.KeyHash) (SparseMerkleProof, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if err := t.checkReadVersion(version); err != nil {
		return SparseMerkleProof{}, err
	}

	root, ok, err := t.db.GetNode(ctx, storage.NodeKey{Version: version, Path: ""})
	if err != nil {
		return SparseMerkleProof{}, backendError(err)
	}
	if !ok {
		return SparseMerkleProof{}, wrapErr(KindNotFound, "no root committed at this version", nil)
	}

	var steps []ProofStep
	cur := root
	path := storage.NibblePath("")
	for {
		switch cur.Type {
		case storage.NodeNull:
			return SparseMerkleProof{Steps: steps, Leaf: nil}, nil
		case storage.NodeLeaf:
			return SparseMerkleProof{Steps: steps, Leaf: &LeafWitness{KeyHash: cur.LeafKeyHash, ValueHash: cur.LeafValueHash}}, nil
		case storage.NodeInternal:
			depth := path.Len()
			nib := nibbleAt(keyHash, depth)
			var step ProofStep
			step.Nibble = nib
			for i, c := range cur.Children {
				if byte(i) == nib {
					continue
				}
				if c != nil {
					step.Siblings[i] = c.Hash
				}
			}
			steps = append(steps, step)

			child := cur.Children[nib]
			if child == nil {
				return SparseMerkleProof{Steps: steps, Leaf: nil}, nil
			}
			childPath := path.AppendNibble(nib)
			childNode, ok, err := t.db.GetNode(ctx, storage.NodeKey{Version: child.Version, Path: childPath})
			if err != nil {
				return SparseMerkleProof{}, backendError(err)
			}
			if !ok {
				return SparseMerkleProof{}, wrapErr(KindCorruptNode, "missing child during proof walk", nil)
			}
			cur = childNode
			path = childPath
		default:
			return SparseMerkleProof{}, wrapErr(KindCorruptNode, "unknown node type during proof walk", nil)
		}
	}
}

// VerifyProof checks that proof authenticates keyHash against expectedRoot
// under hasher. A nil error means the proof is valid; the caller must
// separately inspect proof.Leaf to tell an inclusion proof from an
// exclusion proof and, for inclusion, compare ValueHash against the value
// in hand.
func VerifyProof(hasher hash.Hasher, keyHash storage.KeyHash, expectedRoot storage.RootHash, proof SparseMerkleProof) error {
	var cur storage.RootHash
	if proof.Leaf != nil {
		cur = storage.RootHash(hash.HashChildren(hasher, proof.Leaf.KeyHash[:], proof.Leaf.ValueHash[:]))
	}

	for i := len(proof.Steps) - 1; i >= 0; i-- {
		step := proof.Steps[i]
		children := step.Siblings
		children[step.Nibble] = cur
		buf := make([]byte, 0, 16*32)
		for _, c := range children {
			buf = append(buf, c[:]...)
		}
		cur = storage.RootHash(hasher.Hash(buf))
	}

	if cur != expectedRoot {
		return ErrProofMismatch
	}
	return nil
}
