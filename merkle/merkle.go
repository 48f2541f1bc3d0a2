// Package merkle implements the keccak256 merkle tree used to publish the set
// of authorized earners. Leaves and inner nodes are domain separated so that a
// leaf can never be replayed as an inner node.
package merkle

import (
	"bytes"
	"encoding/hex"
	"errors"
	"sort"

	"golang.org/x/crypto/sha3"
)

const (
	leafPrefix byte = 0x00
	nodePrefix byte = 0x01
)

var ErrLeafNotFound = errors.New("leaf not found in tree")

// Hash is a 32 byte keccak256 digest.
type Hash [32]byte

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := HashFromHex(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

func (h Hash) IsZero() bool {
	return h == Hash{}
}

// HashFromHex parses a 64 character hex string.
func HashFromHex(s string) (Hash, error) {
	var h Hash
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, err
	}
	if len(b) != len(h) {
		return h, errors.New("merkle hash must be 32 bytes")
	}
	copy(h[:], b)
	return h, nil
}

// ProofElement is one sibling on the path from a leaf to the root. OnRight
// reports whether the sibling is concatenated to the right of the running hash.
type ProofElement struct {
	Node    Hash
	OnRight bool
}

// LeafHash returns the leaf digest for the given data (an account address).
func LeafHash(data []byte) Hash {
	hasher := sha3.NewLegacyKeccak256()
	hasher.Write([]byte{leafPrefix})
	hasher.Write(data)
	var out Hash
	copy(out[:], hasher.Sum(nil))
	return out
}

func nodeHash(left, right Hash) Hash {
	hasher := sha3.NewLegacyKeccak256()
	hasher.Write([]byte{nodePrefix})
	hasher.Write(left[:])
	hasher.Write(right[:])
	var out Hash
	copy(out[:], hasher.Sum(nil))
	return out
}

// Verify recomputes the root from leaf and proof and compares it with root.
func Verify(root, leaf Hash, proof []ProofElement) bool {
	current := leaf
	for _, element := range proof {
		if element.OnRight {
			current = nodeHash(current, element.Node)
		} else {
			current = nodeHash(element.Node, current)
		}
	}
	return current == root
}

// VerifyExclusion proves that the leaf committing to data is absent from the
// tree committed to by root. neighbors are the preimages of every other leaf
// and are hashed here, so an inner node can never stand in for a leaf. Every
// neighbor leaf must be included under root with its own proof, and the
// neighbor leaves alone must rebuild root, so the full leaf set is known and
// does not contain data.
func VerifyExclusion(root Hash, data []byte, neighbors [][]byte, proofs [][]ProofElement) bool {
	if len(neighbors) != len(proofs) {
		return false
	}
	leaf := LeafHash(data)
	leaves := make([]Hash, len(neighbors))
	seen := make(map[Hash]struct{}, len(neighbors))
	for i, neighbor := range neighbors {
		h := LeafHash(neighbor)
		if h == leaf {
			return false
		}
		if _, dup := seen[h]; dup {
			return false
		}
		seen[h] = struct{}{}
		if !Verify(root, h, proofs[i]) {
			return false
		}
		leaves[i] = h
	}
	return NewTree(leaves).Root() == root
}

// Tree is a fully materialized merkle tree over sorted leaves. An odd node at
// the end of a level is promoted to the next level unchanged.
type Tree struct {
	levels [][]Hash
}

// NewTree builds a tree over a sorted copy of leaves.
func NewTree(leaves []Hash) *Tree {
	sorted := make([]Hash, len(leaves))
	copy(sorted, leaves)
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i][:], sorted[j][:]) < 0
	})

	levels := [][]Hash{sorted}
	for current := sorted; len(current) > 1; {
		next := make([]Hash, 0, (len(current)+1)/2)
		for i := 0; i < len(current); i += 2 {
			if i+1 == len(current) {
				next = append(next, current[i])
				continue
			}
			next = append(next, nodeHash(current[i], current[i+1]))
		}
		levels = append(levels, next)
		current = next
	}
	return &Tree{levels: levels}
}

// Root returns the tree root. The empty tree has the zero root.
func (t *Tree) Root() Hash {
	top := t.levels[len(t.levels)-1]
	if len(top) == 0 {
		return Hash{}
	}
	return top[0]
}

// Leaves returns the sorted leaves.
func (t *Tree) Leaves() []Hash {
	out := make([]Hash, len(t.levels[0]))
	copy(out, t.levels[0])
	return out
}

// Proof returns the inclusion proof for leaf.
func (t *Tree) Proof(leaf Hash) ([]ProofElement, error) {
	index := -1
	for i, l := range t.levels[0] {
		if l == leaf {
			index = i
			break
		}
	}
	if index < 0 {
		return nil, ErrLeafNotFound
	}

	var proof []ProofElement
	for _, level := range t.levels[:len(t.levels)-1] {
		if index%2 == 0 {
			if index+1 < len(level) {
				proof = append(proof, ProofElement{Node: level[index+1], OnRight: true})
			}
		} else {
			proof = append(proof, ProofElement{Node: level[index-1], OnRight: false})
		}
		index /= 2
	}
	return proof, nil
}

// ExclusionProof returns every other leaf of the tree, in tree order, with its
// inclusion proof. VerifyExclusion takes the preimages of these leaves. It
// fails if leaf is in the tree.
func (t *Tree) ExclusionProof(leaf Hash) ([]Hash, [][]ProofElement, error) {
	neighbors := t.Leaves()
	proofs := make([][]ProofElement, 0, len(neighbors))
	for _, neighbor := range neighbors {
		if neighbor == leaf {
			return nil, nil, errors.New("leaf is included in tree")
		}
		proof, err := t.Proof(neighbor)
		if err != nil {
			return nil, nil, err
		}
		proofs = append(proofs, proof)
	}
	return neighbors, proofs, nil
}
