package merkle

import (
	"github.com/cmtcrypto/cmt/logger"
)

// NodeCoord addresses a node in the tree. Level 0 holds leaves, level
// Config.Depth holds the root.
type NodeCoord struct {
	Level int
	Index uint64
}

// NodeHashPair is a node coordinate together with its hash, as stored by and
// returned from a StorageEngine.
type NodeHashPair struct {
	Coord NodeCoord
	Hash  []byte
}

// Transaction is an opaque handle threaded through storage calls so that a
// sequence of node and root writes can commit or roll back as a unit.
// Concrete engines type assert it to their own transaction type; engines
// without transactional backing ignore it.
type Transaction interface{}

// StorageEngine is the persistence interface behind Tree. Implementations
// must be safe for concurrent readers; writes are serialized by the tree's
// own lock.
type StorageEngine interface {
	// StoreNodes persists node hashes, overwriting any previous values at
	// the same coordinates.
	StoreNodes(ctx logger.ContextInterface, tr Transaction, nodes []NodeHashPair) error

	// LookupNode returns the hash stored at c, or a NodeNotFoundError if
	// the coordinate has never been written.
	LookupNode(ctx logger.ContextInterface, tr Transaction, c NodeCoord) ([]byte, error)

	// LookupNodes looks up a batch of coordinates. Missing coordinates are
	// returned with a nil Hash rather than an error; the result is
	// parallel to coords.
	LookupNodes(ctx logger.ContextInterface, tr Transaction, coords []NodeCoord) ([]NodeHashPair, error)

	// StoreRoot records the latest root metadata for the tree.
	StoreRoot(ctx logger.ContextInterface, tr Transaction, root RootMetadata) error

	// LookupLatestRoot returns the most recently stored root metadata, or
	// a NoLatestRootFoundError for a tree that was never written.
	LookupLatestRoot(ctx logger.ContextInterface, tr Transaction) (RootMetadata, error)
}
