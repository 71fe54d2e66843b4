package attest

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"net/http"
	"net/rpc"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/cmtcrypto/cmt/logger"
	"github.com/cmtcrypto/cmt/merkle"
	"github.com/cmtcrypto/cmt/storage"
)

// Server accepts commitments into per-(bucket, category) trees and serves
// membership proofs out of them. Trees are opened lazily and kept for the
// life of the server.
type Server struct {
	sync.Mutex

	cfg     merkle.Config
	openEng func(treeId []byte) (merkle.StorageEngine, error)
	trees   map[string]*managedTree
}

// managedTree pairs a tree with the mutex serializing its mutations. The
// lock is held across the whole mutate-and-commit sequence so two writers
// cannot commit their roots out of order.
type managedTree struct {
	sync.Mutex
	tree *merkle.Tree
}

func NewServer(ctx logger.ContextInterface, openEng func(treeId []byte) (merkle.StorageEngine, error)) (*Server, error) {
	cfg, err := NewConfig()
	if err != nil {
		return nil, err
	}
	return &Server{
		cfg:     cfg,
		openEng: openEng,
		trees:   make(map[string]*managedTree),
	}, nil
}

func NewServerWithPostgres(ctx logger.ContextInterface, dsn string, dir string) (*Server, error) {
	cfg, err := NewConfig()
	if err != nil {
		return nil, err
	}
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	return NewServer(ctx, func(treeId []byte) (merkle.StorageEngine, error) {
		return storage.NewMerkleStorageEngine(db, cfg, treeId, dir)
	})
}

// TreeID names the tree holding a bucket and category pair.
func TreeID(bucket int64, category uint32) []byte {
	b := make([]byte, 12)
	binary.BigEndian.PutUint64(b[0:8], uint64(bucket))
	binary.BigEndian.PutUint32(b[8:12], category)
	return b
}

func run(ctx logger.ContextInterface, eng merkle.StorageEngine, f func(tr merkle.Transaction) error) error {
	switch eng := eng.(type) {
	case *storage.MerkleStorageEngine:
		txn := eng.Tx()
		err := f(txn)
		if err != nil {
			if rbErr := txn.Rollback(); rbErr != nil {
				ctx.Warning("run: rollback failed: %v", rbErr)
			}
			return err
		}
		return txn.Commit()
	default:
		return f(nil)
	}
}

func (s *Server) tree(ctx logger.ContextInterface, bucket int64, category uint32) (*managedTree, error) {
	s.Lock()
	defer s.Unlock()

	key := string(TreeID(bucket, category))
	if mt, ok := s.trees[key]; ok {
		return mt, nil
	}

	eng, err := s.openEng(TreeID(bucket, category))
	if err != nil {
		return nil, err
	}
	var t *merkle.Tree
	err = run(ctx, eng, func(tr merkle.Transaction) error {
		var err error
		t, err = merkle.NewTree(ctx, s.cfg, eng, tr)
		return err
	})
	if err != nil {
		return nil, err
	}
	mt := &managedTree{tree: t}
	s.trees[key] = mt
	return mt, nil
}

type AcceptArg struct {
	Bucket       int64
	Category     uint32
	Participants [][]byte
}

type AcceptRet struct {
	FirstIndex uint64
	Count      int
	Root       []byte
}

// Accept commits a batch of participants into the tree for the bucket and
// category, assigning them consecutive indices. The batch lands atomically.
func (s *Server) Accept(arg AcceptArg, ret *AcceptRet) error {
	ctx := logger.NewContext(context.TODO(), logger.NewNull())

	cs := make([]Commitment, len(arg.Participants))
	for i, p := range arg.Participants {
		cs[i] = Commitment{Participant: p, Bucket: arg.Bucket, Category: arg.Category}
	}
	leaves, err := DeriveLeaves(cs)
	if err != nil {
		return err
	}

	mt, err := s.tree(ctx, arg.Bucket, arg.Category)
	if err != nil {
		return err
	}

	// Held across the commit so concurrent writers cannot persist their
	// roots out of order.
	mt.Lock()
	defer mt.Unlock()

	var firstIndex uint64
	err = run(ctx, mt.tree.Eng(), func(tr merkle.Transaction) error {
		var err error
		firstIndex, err = mt.tree.AddLeaves(ctx, tr, leaves)
		return errors.Wrap(err, "accepting batch")
	})
	if err != nil {
		return err
	}

	ret.FirstIndex = firstIndex
	ret.Count = len(leaves)
	ret.Root = mt.tree.Root()
	return nil
}

type ProveArg struct {
	Bucket   int64
	Category uint32
	Index    uint64
}

type ProveRet struct {
	Proof     merkle.Proof
	Root      []byte
	LeafCount uint64
}

// Prove returns the membership proof for the leaf at an index, along with
// the root it verifies under.
func (s *Server) Prove(arg ProveArg, ret *ProveRet) error {
	ctx := logger.NewContext(context.TODO(), logger.NewNull())

	mt, err := s.tree(ctx, arg.Bucket, arg.Category)
	if err != nil {
		return err
	}

	var proof merkle.Proof
	err = run(ctx, mt.tree.Eng(), func(tr merkle.Transaction) error {
		var err error
		proof, err = mt.tree.ProveAt(ctx, tr, arg.Index)
		return err
	})
	if err != nil {
		return err
	}

	info := mt.tree.Info()
	ret.Proof = proof
	ret.Root = info.Root
	ret.LeafCount = info.LeafCount
	return nil
}

type InfoArg struct {
	Bucket   int64
	Category uint32
}

type InfoRet struct {
	LeafCount uint64
	Capacity  uint64
	Root      []byte
}

func (s *Server) Info(arg InfoArg, ret *InfoRet) error {
	ctx := logger.NewContext(context.TODO(), logger.NewNull())

	mt, err := s.tree(ctx, arg.Bucket, arg.Category)
	if err != nil {
		return err
	}

	info := mt.tree.Info()
	ret.LeafCount = info.LeafCount
	ret.Capacity = info.Capacity
	ret.Root = info.Root
	return nil
}

// VerifyMembership is the client-side check: it recomputes the commitment
// leaf and verifies the proof against a root obtained out of band.
func VerifyMembership(cfg merkle.Config, proof merkle.Proof, c Commitment, index uint64, root []byte) (bool, error) {
	leaf, err := c.Leaf()
	if err != nil {
		return false, err
	}
	return merkle.NewProofVerifier(cfg).Verify(proof, leaf, index, root), nil
}

var once sync.Once

func RunServer(ctx logger.ContextInterface, dsn string, dir string) (*rpc.Client, error) {
	s, err := NewServerWithPostgres(ctx, dsn, dir)
	if err != nil {
		return nil, err
	}

	once.Do(func() {
		rpc.Register(s)
		rpc.HandleHTTP()
	})
	listener, err := net.Listen("tcp", ":0")
	if err != nil {
		return nil, err
	}
	port := listener.Addr().(*net.TCPAddr).Port
	go http.Serve(listener, nil)
	time.Sleep(10 * time.Millisecond)

	client, err := rpc.DialHTTP("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, err
	}

	return client, nil
}
