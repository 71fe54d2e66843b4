package merkle

import (
	"sync"

	"github.com/cmtcrypto/cmt/logger"
)

// Proof is an authentication path: the sibling hash at each level from the
// leaf's level up to just below the root.
type Proof [][]byte

type RootVersion uint8

const (
	RootVersionV1 RootVersion = 1

	CurrentRootVersion = RootVersionV1
)

// RootMetadata is the persisted record of a tree's latest state. It is
// encoded canonically as a msgpack array.
type RootMetadata struct {
	_struct   struct{}    `codec:",toarray"` //nolint
	Version   RootVersion `codec:"v"`
	LeafCount uint64      `codec:"n"`
	Root      []byte      `codec:"r"`
}

// TreeInfo is a read-only snapshot of a tree's state.
type TreeInfo struct {
	LeafCount uint64
	Root      []byte
	Capacity  uint64
}

// Tree is a fixed-depth Merkle tree over an append-ordered sequence of leaf
// hashes, backed by a StorageEngine. Every leaf and internal node ever
// written is retained, so proofs are available at any populated index and
// existing leaves can be updated in place.
//
// Empty subtrees are never materialized; lookups that miss fall back to the
// zero hash for that level.
type Tree struct {
	sync.RWMutex

	cfg Config
	eng StorageEngine

	leafCount uint64
	root      []byte
}

// NewTree builds a tree over eng, resuming from the engine's latest stored
// root if one exists.
func NewTree(ctx logger.ContextInterface, cfg Config, eng StorageEngine, tr Transaction) (*Tree, error) {
	t := &Tree{cfg: cfg, eng: eng}
	md, err := eng.LookupLatestRoot(ctx, tr)
	switch err.(type) {
	case nil:
		t.leafCount = md.LeafCount
		t.root = md.Root
	case NoLatestRootFoundError:
		ctx.Debug("NewTree: no stored root, starting empty")
		root, zerr := cfg.Zeros().Zero(cfg.Depth)
		if zerr != nil {
			return nil, zerr
		}
		t.root = root
	default:
		return nil, err
	}
	return t, nil
}

// AddLeaf appends leaf at the next free index and persists the updated path
// and root through tr.
func (t *Tree) AddLeaf(ctx logger.ContextInterface, tr Transaction, leaf []byte) (index uint64, err error) {
	t.Lock()
	defer t.Unlock()

	if t.leafCount >= t.cfg.Capacity {
		return 0, NewCapacityExceededError(t.cfg.Capacity)
	}
	index = t.leafCount

	root, err := t.rehashPath(ctx, tr, index, leaf)
	if err != nil {
		return 0, err
	}
	err = t.eng.StoreRoot(ctx, tr, RootMetadata{
		Version:   CurrentRootVersion,
		LeafCount: index + 1,
		Root:      root,
	})
	if err != nil {
		return 0, err
	}

	t.leafCount = index + 1
	t.root = root
	return index, nil
}

// AddLeaves appends a batch of leaves at consecutive indices. The batch is
// all-or-nothing: if it would overflow the tree, nothing is written and the
// first assigned index is not consumed.
func (t *Tree) AddLeaves(ctx logger.ContextInterface, tr Transaction, leaves [][]byte) (firstIndex uint64, err error) {
	t.Lock()
	defer t.Unlock()

	firstIndex = t.leafCount
	if len(leaves) == 0 {
		return firstIndex, nil
	}
	if t.leafCount+uint64(len(leaves)) > t.cfg.Capacity {
		return 0, NewCapacityExceededError(t.cfg.Capacity)
	}

	var root []byte
	for i, leaf := range leaves {
		root, err = t.rehashPath(ctx, tr, firstIndex+uint64(i), leaf)
		if err != nil {
			return 0, err
		}
	}
	newCount := firstIndex + uint64(len(leaves))
	err = t.eng.StoreRoot(ctx, tr, RootMetadata{
		Version:   CurrentRootVersion,
		LeafCount: newCount,
		Root:      root,
	})
	if err != nil {
		return 0, err
	}

	t.leafCount = newCount
	t.root = root
	return firstIndex, nil
}

// UpdateLeaf replaces the leaf at an already-populated index and rehashes
// its path. The leaf count is unchanged.
func (t *Tree) UpdateLeaf(ctx logger.ContextInterface, tr Transaction, index uint64, leaf []byte) error {
	t.Lock()
	defer t.Unlock()

	if index >= t.leafCount {
		return NewIndexOutOfBoundsError(index, t.leafCount)
	}

	root, err := t.rehashPath(ctx, tr, index, leaf)
	if err != nil {
		return err
	}
	err = t.eng.StoreRoot(ctx, tr, RootMetadata{
		Version:   CurrentRootVersion,
		LeafCount: t.leafCount,
		Root:      root,
	})
	if err != nil {
		return err
	}

	t.root = root
	return nil
}

// rehashPath writes leaf at index, recomputes the internal nodes on its path
// to the root, and persists the whole path in one StoreNodes call. It
// returns the new root hash without touching the tree's in-memory state;
// callers update that after the root is stored.
func (t *Tree) rehashPath(ctx logger.ContextInterface, tr Transaction, index uint64, leaf []byte) ([]byte, error) {
	sibCoords := make([]NodeCoord, t.cfg.Depth)
	idx := index
	for lvl := 0; lvl < t.cfg.Depth; lvl++ {
		sibCoords[lvl] = NodeCoord{Level: lvl, Index: idx ^ 1}
		idx >>= 1
	}
	sibs, err := t.eng.LookupNodes(ctx, tr, sibCoords)
	if err != nil {
		return nil, err
	}

	toStore := make([]NodeHashPair, 0, t.cfg.Depth+1)
	toStore = append(toStore, NodeHashPair{Coord: NodeCoord{Level: 0, Index: index}, Hash: leaf})

	cur := leaf
	idx = index
	for lvl := 0; lvl < t.cfg.Depth; lvl++ {
		sib := sibs[lvl].Hash
		if sib == nil {
			sib = t.cfg.Zeros().zero(lvl)
		}
		if idx&1 == 0 {
			cur = t.cfg.Hasher.HashPair(cur, sib)
		} else {
			cur = t.cfg.Hasher.HashPair(sib, cur)
		}
		idx >>= 1
		toStore = append(toStore, NodeHashPair{Coord: NodeCoord{Level: lvl + 1, Index: idx}, Hash: cur})
	}

	if err := t.eng.StoreNodes(ctx, tr, toStore); err != nil {
		return nil, err
	}
	return cur, nil
}

// ProveAt returns the authentication path for the leaf at index against the
// current root.
func (t *Tree) ProveAt(ctx logger.ContextInterface, tr Transaction, index uint64) (Proof, error) {
	t.RLock()
	defer t.RUnlock()

	if index >= t.leafCount {
		return nil, NewIndexOutOfBoundsError(index, t.leafCount)
	}

	sibCoords := make([]NodeCoord, t.cfg.Depth)
	idx := index
	for lvl := 0; lvl < t.cfg.Depth; lvl++ {
		sibCoords[lvl] = NodeCoord{Level: lvl, Index: idx ^ 1}
		idx >>= 1
	}
	sibs, err := t.eng.LookupNodes(ctx, tr, sibCoords)
	if err != nil {
		return nil, err
	}

	proof := make(Proof, t.cfg.Depth)
	for lvl := 0; lvl < t.cfg.Depth; lvl++ {
		if sibs[lvl].Hash != nil {
			proof[lvl] = sibs[lvl].Hash
		} else {
			proof[lvl] = t.cfg.Zeros().zero(lvl)
		}
	}
	return proof, nil
}

// LeafAt returns the leaf hash stored at index.
func (t *Tree) LeafAt(ctx logger.ContextInterface, tr Transaction, index uint64) ([]byte, error) {
	t.RLock()
	defer t.RUnlock()

	if index >= t.leafCount {
		return nil, NewIndexOutOfBoundsError(index, t.leafCount)
	}
	return t.eng.LookupNode(ctx, tr, NodeCoord{Level: 0, Index: index})
}

// VerifyProof checks proof for leaf at index against the tree's current
// in-memory root.
func (t *Tree) VerifyProof(proof Proof, leaf []byte, index uint64) bool {
	t.RLock()
	defer t.RUnlock()
	return verifyAgainstRoot(t.cfg, proof, leaf, index, t.root)
}

// Root returns the current root hash. An empty tree's root is the zero hash
// at the configured depth.
func (t *Tree) Root() []byte {
	t.RLock()
	defer t.RUnlock()
	return t.root
}

func (t *Tree) Info() TreeInfo {
	t.RLock()
	defer t.RUnlock()
	return TreeInfo{LeafCount: t.leafCount, Root: t.root, Capacity: t.cfg.Capacity}
}

// Eng exposes the underlying storage engine, mainly so callers can reach
// engine-specific transaction plumbing.
func (t *Tree) Eng() StorageEngine {
	return t.eng
}
