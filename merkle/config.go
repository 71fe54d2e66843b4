package merkle

import "crypto/sha256"

// Hasher is the hash primitive every node digest is built from. It must be
// collision resistant and produce fixed-width output; the tree never
// interprets the bytes it combines.
type Hasher interface {
	// HashEmpty returns the digest standing in for an empty leaf slot.
	HashEmpty() []byte
	// HashPair combines two child digests into their parent digest.
	HashPair(left, right []byte) []byte
	// Size returns the digest width in bytes.
	Size() int
}

// SHA256Hasher is the production hash primitive.
type SHA256Hasher struct{}

var _ Hasher = SHA256Hasher{}

func (SHA256Hasher) HashEmpty() []byte {
	h := sha256.Sum256(nil)
	return h[:]
}

func (SHA256Hasher) HashPair(left, right []byte) []byte {
	h := sha256.New()
	h.Write(left)
	h.Write(right)
	return h.Sum(nil)
}

func (SHA256Hasher) Size() int {
	return sha256.Size
}

// MaxTreeDepth is the largest supported tree depth. Leaf indices are uint64
// bit paths, so 63 levels keep every slot addressable.
const MaxTreeDepth = 63

// Config defines the shape of a membership tree. It is immutable after
// construction and shared by every tree instance built from it.
type Config struct {
	// Hasher computes all node digests.
	Hasher Hasher

	// Depth is the fixed number of levels between a leaf and the root.
	Depth int

	// Capacity is 2^Depth, the number of leaf slots.
	Capacity uint64

	zeros *ZeroCache
}

// NewConfig validates the depth and precomputes the empty-subtree digests.
func NewConfig(h Hasher, depth int) (Config, error) {
	if depth < 1 || depth > MaxTreeDepth {
		return Config{}, NewInvalidDepthError(depth)
	}
	return Config{
		Hasher:   h,
		Depth:    depth,
		Capacity: uint64(1) << uint(depth),
		zeros:    NewZeroCache(h, depth),
	}, nil
}

// Zeros exposes the empty-subtree digests shared by every tree built from
// this config.
func (c Config) Zeros() *ZeroCache {
	return c.zeros
}
