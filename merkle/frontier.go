package merkle

// FrontierTree is an append-only variant of the same fixed-depth tree. It
// keeps no storage engine and no history; per level it remembers only the
// hash of the last completed subtree (the frontier), which is all that is
// needed to absorb the next leaf and recompute the root.
//
// The trade-off is that an authentication path can only be produced for the
// most recently inserted leaf, at the moment of insertion. State is O(depth)
// regardless of leaf count.
//
// FrontierTree is not safe for concurrent use; callers synchronize.
type FrontierTree struct {
	cfg Config

	// frontier[l] is the root of the last completed subtree at level l.
	// A slot is only meaningful once a carry has reached its level; the
	// slice has Depth+1 entries because inserting the final leaf carries
	// all the way to the top.
	frontier [][]byte

	leafCount uint64
	root      []byte
}

func NewFrontierTree(cfg Config) *FrontierTree {
	return &FrontierTree{
		cfg:      cfg,
		frontier: make([][]byte, cfg.Depth+1),
		root:     cfg.Zeros().zero(cfg.Depth),
	}
}

// InsertLeaf appends leaf at the next free index and returns that index.
func (t *FrontierTree) InsertLeaf(leaf []byte) (index uint64, err error) {
	if t.leafCount >= t.cfg.Capacity {
		return 0, NewCapacityExceededError(t.cfg.Capacity)
	}
	index = t.leafCount

	// Binary-counter carry: each set low bit of index means the sibling
	// subtree at that level is complete, so the new value merges into it
	// and the carry moves up.
	pending := leaf
	lvl := 0
	idx := index
	for idx&1 == 1 {
		pending = t.cfg.Hasher.HashPair(t.frontier[lvl], pending)
		idx >>= 1
		lvl++
	}
	t.frontier[lvl] = pending

	// Root recomputation from the carry's resting level upward. At levels
	// where the running index is odd the left sibling is a completed
	// frontier subtree; where it is even the right sibling is empty.
	cur := pending
	for l := lvl; l < t.cfg.Depth; l++ {
		if idx&1 == 1 {
			cur = t.cfg.Hasher.HashPair(t.frontier[l], cur)
		} else {
			cur = t.cfg.Hasher.HashPair(cur, t.cfg.Zeros().zero(l))
		}
		idx >>= 1
	}

	t.leafCount = index + 1
	t.root = cur
	return index, nil
}

// LastLeafProof returns the authentication path for the most recently
// inserted leaf against the current root. Earlier leaves cannot be proven;
// their sibling data was folded away.
func (t *FrontierTree) LastLeafProof() (Proof, error) {
	if t.leafCount == 0 {
		return nil, NewIndexOutOfBoundsError(0, 0)
	}

	index := t.leafCount - 1
	proof := make(Proof, t.cfg.Depth)
	idx := index
	for lvl := 0; lvl < t.cfg.Depth; lvl++ {
		if idx&1 == 1 {
			proof[lvl] = t.frontier[lvl]
		} else {
			proof[lvl] = t.cfg.Zeros().zero(lvl)
		}
		idx >>= 1
	}
	return proof, nil
}

// VerifyProof checks proof for leaf at index against the tree's current
// root.
func (t *FrontierTree) VerifyProof(proof Proof, leaf []byte, index uint64) bool {
	return verifyAgainstRoot(t.cfg, proof, leaf, index, t.root)
}

// Root returns the current root hash. An empty tree's root is the zero hash
// at the configured depth.
func (t *FrontierTree) Root() []byte {
	return t.root
}

func (t *FrontierTree) Info() TreeInfo {
	return TreeInfo{LeafCount: t.leafCount, Root: t.root, Capacity: t.cfg.Capacity}
}
