package merkle

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leaves(n int) []Hash {
	out := make([]Hash, n)
	for i := range out {
		out[i] = LeafHash([]byte(fmt.Sprintf("account-%d", i)))
	}
	return out
}

func TestTree_ProofVerifiesEveryLeaf(t *testing.T) {
	for _, n := range []int{1, 2, 3, 4, 5, 7, 8, 13} {
		t.Run(fmt.Sprintf("%d leaves", n), func(t *testing.T) {
			tree := NewTree(leaves(n))
			for _, leaf := range tree.Leaves() {
				proof, err := tree.Proof(leaf)
				require.NoError(t, err)
				assert.True(t, Verify(tree.Root(), leaf, proof))
			}
		})
	}
}

func TestTree_RootIsOrderIndependent(t *testing.T) {
	ls := leaves(6)
	reversed := make([]Hash, len(ls))
	for i := range ls {
		reversed[len(ls)-1-i] = ls[i]
	}
	assert.Equal(t, NewTree(ls).Root(), NewTree(reversed).Root())
}

func TestTree_SingleLeafIsRoot(t *testing.T) {
	leaf := LeafHash([]byte("only"))
	tree := NewTree([]Hash{leaf})
	assert.Equal(t, leaf, tree.Root())

	proof, err := tree.Proof(leaf)
	require.NoError(t, err)
	assert.Empty(t, proof)
}

func TestTree_EmptyHasZeroRoot(t *testing.T) {
	assert.True(t, NewTree(nil).Root().IsZero())
}

func TestVerify_RejectsWrongLeafAndTamperedProof(t *testing.T) {
	tree := NewTree(leaves(5))
	leaf := tree.Leaves()[2]
	proof, err := tree.Proof(leaf)
	require.NoError(t, err)

	assert.False(t, Verify(tree.Root(), LeafHash([]byte("stranger")), proof))

	tampered := append([]ProofElement(nil), proof...)
	tampered[0].OnRight = !tampered[0].OnRight
	assert.False(t, Verify(tree.Root(), leaf, tampered))
}

func TestProof_UnknownLeaf(t *testing.T) {
	_, err := NewTree(leaves(3)).Proof(LeafHash([]byte("missing")))
	assert.ErrorIs(t, err, ErrLeafNotFound)
}

func TestLeafHash_DomainSeparatedFromNodes(t *testing.T) {
	a, b := LeafHash([]byte("a")), LeafHash([]byte("b"))
	var concat []byte
	concat = append(concat, a[:]...)
	concat = append(concat, b[:]...)
	assert.NotEqual(t, nodeHash(a, b), LeafHash(concat))
}

func preimages(n int) [][]byte {
	out := make([][]byte, n)
	for i := range out {
		out[i] = []byte(fmt.Sprintf("account-%d", i))
	}
	return out
}

// exclusionFor returns the preimages in tree order with their proofs.
func exclusionFor(t *testing.T, tree *Tree, data []byte, all [][]byte) ([][]byte, [][]ProofElement) {
	t.Helper()
	byLeaf := make(map[Hash][]byte, len(all))
	for _, d := range all {
		byLeaf[LeafHash(d)] = d
	}
	hashes, proofs, err := tree.ExclusionProof(LeafHash(data))
	require.NoError(t, err)
	neighbors := make([][]byte, len(hashes))
	for i, h := range hashes {
		neighbors[i] = byLeaf[h]
	}
	return neighbors, proofs
}

func TestExclusion(t *testing.T) {
	all := preimages(4)
	tree := NewTree(leaves(4))
	absent := []byte("removed")

	neighbors, proofs := exclusionFor(t, tree, absent, all)
	assert.True(t, VerifyExclusion(tree.Root(), absent, neighbors, proofs))

	t.Run("leaf present", func(t *testing.T) {
		_, _, err := tree.ExclusionProof(tree.Leaves()[0])
		assert.Error(t, err)
		assert.False(t, VerifyExclusion(tree.Root(), neighbors[0], neighbors, proofs))
	})

	t.Run("missing neighbor", func(t *testing.T) {
		assert.False(t, VerifyExclusion(tree.Root(), absent, neighbors[1:], proofs[1:]))
	})

	t.Run("duplicate neighbor", func(t *testing.T) {
		dup := append([][]byte{neighbors[0]}, neighbors...)
		dupProofs := append([][]ProofElement{proofs[0]}, proofs...)
		assert.False(t, VerifyExclusion(tree.Root(), absent, dup, dupProofs))
	})

	t.Run("length mismatch", func(t *testing.T) {
		assert.False(t, VerifyExclusion(tree.Root(), absent, neighbors, proofs[1:]))
	})

	t.Run("empty set", func(t *testing.T) {
		assert.True(t, VerifyExclusion(Hash{}, absent, nil, nil))
	})
}

func TestExclusion_RejectsInnerNodesAsNeighbors(t *testing.T) {
	all := preimages(4)
	tree := NewTree(leaves(4))
	present := all[0]
	root := tree.Root()

	t.Run("root as sole neighbor", func(t *testing.T) {
		assert.True(t, Verify(root, root, nil))
		assert.Equal(t, root, NewTree([]Hash{root}).Root())
		assert.False(t, VerifyExclusion(root, present, [][]byte{root[:]}, [][]ProofElement{{}}))
	})

	t.Run("inner nodes as neighbors", func(t *testing.T) {
		level := tree.levels[1]
		require.Len(t, level, 2)
		left, right := level[0], level[1]
		proofs := [][]ProofElement{
			{{Node: right, OnRight: true}},
			{{Node: left, OnRight: false}},
		}
		assert.True(t, Verify(root, left, proofs[0]))
		assert.True(t, Verify(root, right, proofs[1]))
		assert.False(t, VerifyExclusion(root, present, [][]byte{left[:], right[:]}, proofs))
	})
}

func TestHashFromHex(t *testing.T) {
	h := LeafHash([]byte("x"))
	parsed, err := HashFromHex(h.String())
	require.NoError(t, err)
	assert.Equal(t, h, parsed)

	_, err = HashFromHex("abcd")
	assert.Error(t, err)
	_, err = HashFromHex("zz")
	assert.Error(t, err)
}

func TestHash_TextEncoding(t *testing.T) {
	h := LeafHash([]byte("y"))
	text, err := h.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, h.String(), string(text))

	var back Hash
	require.NoError(t, back.UnmarshalText(text))
	assert.Equal(t, h, back)
	assert.Error(t, back.UnmarshalText([]byte("00")))
}
