package merkle

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func newFrontierTreeForTest(t *testing.T, depth int) *FrontierTree {
	cfg, err := NewConfig(SHA256Hasher{}, depth)
	require.NoError(t, err)
	return NewFrontierTree(cfg)
}

func TestFrontierTreeKnownRoots(t *testing.T) {
	tree := newFrontierTreeForTest(t, 3)
	require.Equal(t,
		"80d1bf4dd6c1f75bba022337a3f0842078f5c2e7f3f59dfd33ccbb8e963367b2",
		hex.EncodeToString(tree.Root()))

	expRoots := []string{
		"c7b75f725f1e3f478ba77ea71fba463031cd379d81af5310d10121f8e25950dc",
		"8e4ea693aa482bb15195fd27e2dd5ca18855e3acdc5d19ec0ee1eea170cf36d0",
		"47115bcc890614cfdd8ca1944870eada32c6497f2c351d15a2f23c157af9c4d4",
		"ae5dbc04301e3037e8178f06567a1f35570b715d62cddca1e9962d71b6796fb9",
		"f42f6c3bfcf3ec4f223e17fda4b6a1d07ab7bdfb85342c1ee9451a07bfa4e3f3",
	}
	for i, exp := range expRoots {
		index, err := tree.InsertLeaf(testLeaf(byte(i)))
		require.NoError(t, err)
		require.EqualValues(t, i, index)
		require.Equal(t, exp, hex.EncodeToString(tree.Root()))
	}
}

func TestFrontierTreeLastLeafProof(t *testing.T) {
	tree := newFrontierTreeForTest(t, 3)

	_, err := tree.LastLeafProof()
	require.IsType(t, IndexOutOfBoundsError{}, err)

	for i := 0; i < 8; i++ {
		index, err := tree.InsertLeaf(testLeaf(byte(i)))
		require.NoError(t, err)

		proof, err := tree.LastLeafProof()
		require.NoError(t, err)
		require.Len(t, proof, 3)
		require.True(t, tree.VerifyProof(proof, testLeaf(byte(i)), index))
		require.False(t, tree.VerifyProof(proof, testLeaf(byte(i+1)), index))
	}
}

func TestFrontierTreeCapacity(t *testing.T) {
	tree := newFrontierTreeForTest(t, 2)
	for i := 0; i < 4; i++ {
		_, err := tree.InsertLeaf(testLeaf(byte(i)))
		require.NoError(t, err)
	}

	_, err := tree.InsertLeaf(testLeaf(4))
	require.IsType(t, CapacityExceededError{}, err)

	info := tree.Info()
	require.EqualValues(t, 4, info.LeafCount)
	require.Equal(t,
		"9675e04b4ba9dc81b06e81731e2d21caa2c95557a85dcfa3fff70c9ff0f30b2e",
		hex.EncodeToString(info.Root))
}

// Both variants compute the same root for the same leaf sequence.
func TestFrontierTreeMatchesArchiveTree(t *testing.T) {
	depth := 7
	frontier := newFrontierTreeForTest(t, depth)
	archive, _, logctx := newTreeForTest(t, depth)

	leaves, err := RandomLeaves(SHA256Hasher{}, 75)
	require.NoError(t, err)

	for _, leaf := range leaves {
		fIndex, err := frontier.InsertLeaf(leaf)
		require.NoError(t, err)
		aIndex, err := archive.AddLeaf(logctx, nil, leaf)
		require.NoError(t, err)
		require.Equal(t, aIndex, fIndex)
		require.Equal(t, archive.Root(), frontier.Root())

		// The frontier proof for the newest leaf also verifies against
		// the archive tree, and vice versa.
		fProof, err := frontier.LastLeafProof()
		require.NoError(t, err)
		require.True(t, archive.VerifyProof(fProof, leaf, fIndex))
		aProof, err := archive.ProveAt(logctx, nil, aIndex)
		require.NoError(t, err)
		require.Equal(t, fProof, aProof)
	}
}
