package merkle

// ZeroCache holds, for every level of a tree of the configured depth, the
// digest of a subtree of that height containing only empty leaves: level 0
// is the empty leaf sentinel, level Depth the root of a wholly empty tree.
// It is computed once at construction and only read afterwards, so a single
// cache can back any number of tree instances.
type ZeroCache struct {
	hashes [][]byte
}

func NewZeroCache(h Hasher, depth int) *ZeroCache {
	hashes := make([][]byte, depth+1)
	hashes[0] = h.HashEmpty()
	for i := 1; i <= depth; i++ {
		hashes[i] = h.HashPair(hashes[i-1], hashes[i-1])
	}
	return &ZeroCache{hashes: hashes}
}

// Zero returns the empty-subtree digest for a level in [0, depth].
func (z *ZeroCache) Zero(level int) ([]byte, error) {
	if level < 0 || level >= len(z.hashes) {
		return nil, NewLevelOutOfRangeError(level, len(z.hashes)-1)
	}
	return z.hashes[level], nil
}

// zero skips the range check for internal callers whose level is bounded by
// the tree depth.
func (z *ZeroCache) zero(level int) []byte {
	return z.hashes[level]
}
