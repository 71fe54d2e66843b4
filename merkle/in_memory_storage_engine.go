package merkle

import (
	"github.com/cmtcrypto/cmt/logger"
)

// InMemoryStorageEngine is a map-backed StorageEngine for tests and
// experiments. It ignores transactions and keeps everything in process
// memory.
type InMemoryStorageEngine struct {
	Nodes map[NodeCoord][]byte
	Root  *RootMetadata
}

var _ StorageEngine = (*InMemoryStorageEngine)(nil)

func NewInMemoryStorageEngine() *InMemoryStorageEngine {
	return &InMemoryStorageEngine{Nodes: make(map[NodeCoord][]byte)}
}

func (s *InMemoryStorageEngine) StoreNodes(ctx logger.ContextInterface, tr Transaction, nodes []NodeHashPair) error {
	for _, n := range nodes {
		s.Nodes[n.Coord] = n.Hash
	}
	return nil
}

func (s *InMemoryStorageEngine) LookupNode(ctx logger.ContextInterface, tr Transaction, c NodeCoord) ([]byte, error) {
	h, ok := s.Nodes[c]
	if !ok {
		return nil, NewNodeNotFoundError()
	}
	return h, nil
}

func (s *InMemoryStorageEngine) LookupNodes(ctx logger.ContextInterface, tr Transaction, coords []NodeCoord) ([]NodeHashPair, error) {
	res := make([]NodeHashPair, len(coords))
	for i, c := range coords {
		res[i] = NodeHashPair{Coord: c, Hash: s.Nodes[c]}
	}
	return res, nil
}

func (s *InMemoryStorageEngine) StoreRoot(ctx logger.ContextInterface, tr Transaction, root RootMetadata) error {
	s.Root = &root
	return nil
}

func (s *InMemoryStorageEngine) LookupLatestRoot(ctx logger.ContextInterface, tr Transaction) (RootMetadata, error) {
	if s.Root == nil {
		return RootMetadata{}, NewNoLatestRootFoundError()
	}
	return *s.Root, nil
}
