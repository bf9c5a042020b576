package merkle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leaves(n int) []H32 {
	out := make([]H32, n)
	for i := range out {
		out[i] = LeafHash([]byte{byte(i)})
	}
	return out
}

func TestTree_TwoLeafRoot(t *testing.T) {
	ls := leaves(2)
	tree := New(ls)

	want := NodeHash(ls[0], ls[1])
	assert.Equal(t, want, tree.Root())
	assert.Equal(t, 2, tree.Len())
}

func TestTree_OddLeafDuplicatesLast(t *testing.T) {
	ls := leaves(3)
	tree := New(ls)

	n1 := NodeHash(ls[0], ls[1])
	n2 := NodeHash(ls[2], ls[2]) // duplicated last
	want := NodeHash(n1, n2)

	assert.Equal(t, want, tree.Root())
}

func TestTree_FourLeafProofOfIndex2(t *testing.T) {
	ls := leaves(4)
	tree := New(ls)

	proof, ok := tree.Proof(2)
	require.True(t, ok)
	require.Len(t, proof.Siblings, 2)

	// Expected path: sibling of l2 is l3; sibling of node(l0,l1) at level 1.
	assert.Equal(t, ls[3], proof.Siblings[0])
	assert.Equal(t, NodeHash(ls[0], ls[1]), proof.Siblings[1])

	leaf, ok := tree.Leaf(2)
	require.True(t, ok)
	assert.True(t, Verify(leaf, proof, tree.Root()))
}

func TestTree_VerifyDetectsTamperedLeaf(t *testing.T) {
	ls := leaves(4)
	tree := New(ls)
	proof, ok := tree.Proof(2)
	require.True(t, ok)

	tampered := LeafHash([]byte("not the real leaf"))
	assert.False(t, Verify(tampered, proof, tree.Root()))
}

func TestTree_VerifyDetectsTamperedSibling(t *testing.T) {
	ls := leaves(4)
	tree := New(ls)
	proof, ok := tree.Proof(2)
	require.True(t, ok)

	bad := *proof
	bad.Siblings = append([]H32(nil), proof.Siblings...)
	bad.Siblings[0] = LeafHash([]byte("wrong sibling"))

	leaf, ok := tree.Leaf(2)
	require.True(t, ok)
	assert.False(t, Verify(leaf, &bad, tree.Root()))
}

func TestTree_VerifyDetectsTamperedRoot(t *testing.T) {
	ls := leaves(4)
	tree := New(ls)
	proof, ok := tree.Proof(2)
	require.True(t, ok)

	leaf, ok := tree.Leaf(2)
	require.True(t, ok)

	badRoot := LeafHash([]byte("wrong root"))
	assert.False(t, Verify(leaf, proof, badRoot))
}

func TestTree_Empty(t *testing.T) {
	tree := New(nil)
	assert.Equal(t, H32{}, tree.Root())
	assert.Equal(t, 0, tree.Len())

	_, ok := tree.Leaf(0)
	assert.False(t, ok)

	_, ok = tree.Proof(0)
	assert.False(t, ok)
}

func TestTree_ProofOutOfRange(t *testing.T) {
	tree := New(leaves(3))
	_, ok := tree.Proof(3)
	assert.False(t, ok)
	_, ok = tree.Proof(-1)
	assert.False(t, ok)
}

func TestTree_SingleLeaf(t *testing.T) {
	ls := leaves(1)
	tree := New(ls)
	assert.Equal(t, ls[0], tree.Root())

	proof, ok := tree.Proof(0)
	require.True(t, ok)
	assert.Empty(t, proof.Siblings)
	assert.True(t, Verify(ls[0], proof, tree.Root()))
}
