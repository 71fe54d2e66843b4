package merkle

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestZeroCacheLadder(t *testing.T) {
	zc := NewZeroCache(SHA256Hasher{}, 3)

	expZeros := []string{
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		"2dba5dbc339e7316aea2683faf839c1b7b1ee2313db792112588118df066aa35",
		"5310a330e8f970388503c73349d80b45cd764db615f1bced2801dcd4524a2ff4",
		"80d1bf4dd6c1f75bba022337a3f0842078f5c2e7f3f59dfd33ccbb8e963367b2",
	}
	for lvl, exp := range expZeros {
		z, err := zc.Zero(lvl)
		require.NoError(t, err)
		require.Equal(t, exp, hex.EncodeToString(z))
	}

	// Each rung is the hash of two copies of the one below.
	h := SHA256Hasher{}
	for lvl := 1; lvl <= 3; lvl++ {
		below, err := zc.Zero(lvl - 1)
		require.NoError(t, err)
		cur, err := zc.Zero(lvl)
		require.NoError(t, err)
		require.Equal(t, h.HashPair(below, below), cur)
	}
}

func TestZeroCacheLevelOutOfRange(t *testing.T) {
	zc := NewZeroCache(SHA256Hasher{}, 3)

	for _, lvl := range []int{-1, 4, 100} {
		_, err := zc.Zero(lvl)
		require.IsType(t, LevelOutOfRangeError{}, err)
	}
}
