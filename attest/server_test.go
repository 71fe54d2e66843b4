package attest

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/cmtcrypto/cmt/logger"
	"github.com/cmtcrypto/cmt/merkle"
	"github.com/cmtcrypto/cmt/storage"
)

func newServerForTest(t *testing.T) *Server {
	ctx := logger.NewContext(context.TODO(), logger.NewTestLogger(t))
	s, err := NewServer(ctx, func(treeId []byte) (merkle.StorageEngine, error) {
		return merkle.NewInMemoryStorageEngine(), nil
	})
	require.NoError(t, err)
	return s
}

func TestServerAcceptProveVerify(t *testing.T) {
	s := newServerForTest(t)

	participants := [][]byte{[]byte("alice"), []byte("bob"), []byte("carol")}
	var acceptRet AcceptRet
	err := s.Accept(AcceptArg{Bucket: 7, Category: 1, Participants: participants}, &acceptRet)
	require.NoError(t, err)
	require.EqualValues(t, 0, acceptRet.FirstIndex)
	require.Equal(t, 3, acceptRet.Count)
	require.NotEmpty(t, acceptRet.Root)

	cfg, err := NewConfig()
	require.NoError(t, err)

	for i, p := range participants {
		index := acceptRet.FirstIndex + uint64(i)
		var proveRet ProveRet
		err := s.Prove(ProveArg{Bucket: 7, Category: 1, Index: index}, &proveRet)
		require.NoError(t, err)
		require.Equal(t, acceptRet.Root, proveRet.Root)
		require.EqualValues(t, 3, proveRet.LeafCount)

		c := Commitment{Participant: p, Bucket: 7, Category: 1}
		ok, err := VerifyMembership(cfg, proveRet.Proof, c, index, proveRet.Root)
		require.NoError(t, err)
		require.True(t, ok)

		// A commitment for a different bucket does not verify with this
		// proof.
		wrong := Commitment{Participant: p, Bucket: 8, Category: 1}
		ok, err = VerifyMembership(cfg, proveRet.Proof, wrong, index, proveRet.Root)
		require.NoError(t, err)
		require.False(t, ok)
	}
}

func TestServerSeparatesTrees(t *testing.T) {
	s := newServerForTest(t)

	var ret1, ret2 AcceptRet
	err := s.Accept(AcceptArg{Bucket: 1, Category: 1, Participants: [][]byte{[]byte("alice")}}, &ret1)
	require.NoError(t, err)
	err = s.Accept(AcceptArg{Bucket: 1, Category: 2, Participants: [][]byte{[]byte("alice")}}, &ret2)
	require.NoError(t, err)

	// Same participant, different category, so different trees and
	// different roots.
	require.NotEqual(t, ret1.Root, ret2.Root)

	var info InfoRet
	err = s.Info(InfoArg{Bucket: 1, Category: 1}, &info)
	require.NoError(t, err)
	require.EqualValues(t, 1, info.LeafCount)
	require.EqualValues(t, uint64(1)<<TreeDepth, info.Capacity)
	require.Equal(t, ret1.Root, info.Root)
}

func TestServerAcceptAppends(t *testing.T) {
	s := newServerForTest(t)

	var ret AcceptRet
	err := s.Accept(AcceptArg{Bucket: 2, Category: 1, Participants: [][]byte{[]byte("a"), []byte("b")}}, &ret)
	require.NoError(t, err)
	require.EqualValues(t, 0, ret.FirstIndex)

	err = s.Accept(AcceptArg{Bucket: 2, Category: 1, Participants: [][]byte{[]byte("c")}}, &ret)
	require.NoError(t, err)
	require.EqualValues(t, 2, ret.FirstIndex)

	var proveRet ProveRet
	err = s.Prove(ProveArg{Bucket: 2, Category: 1, Index: 2}, &proveRet)
	require.NoError(t, err)

	cfg, err := NewConfig()
	require.NoError(t, err)
	ok, err := VerifyMembership(cfg, proveRet.Proof,
		Commitment{Participant: []byte("c"), Bucket: 2, Category: 1}, 2, proveRet.Root)
	require.NoError(t, err)
	require.True(t, ok)
}

func newStorageEngineForTest(t *testing.T, treeId []byte) *storage.MerkleStorageEngine {
	cfg, err := NewConfig()
	require.NoError(t, err)

	dir := t.TempDir()
	db, err := sqlx.Open("sqlite3", filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	eng, err := storage.NewMerkleStorageEngine(db, cfg, treeId, dir)
	require.NoError(t, err)
	t.Cleanup(func() { eng.Close() })
	require.NoError(t, eng.Reset())
	return eng
}

// Concurrent writers to the same tree must commit in leaf-count order:
// after every call returns, the persisted root reflects all of them and the
// assigned index ranges are disjoint.
func TestServerConcurrentAccepts(t *testing.T) {
	eng := newStorageEngineForTest(t, TreeID(3, 1))
	ctx := logger.NewContext(context.TODO(), logger.NewTestLogger(t))
	s, err := NewServer(ctx, func(treeId []byte) (merkle.StorageEngine, error) {
		return eng, nil
	})
	require.NoError(t, err)

	n := 8
	indices := make([]uint64, n)
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			var ret AcceptRet
			err := s.Accept(AcceptArg{Bucket: 3, Category: 1, Participants: [][]byte{{byte(i)}}}, &ret)
			if err != nil {
				errs <- err
				return
			}
			indices[i] = ret.FirstIndex
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	seen := make(map[uint64]bool)
	for _, index := range indices {
		require.False(t, seen[index])
		seen[index] = true
		require.Less(t, index, uint64(n))
	}

	var info InfoRet
	require.NoError(t, s.Info(InfoArg{Bucket: 3, Category: 1}, &info))
	require.EqualValues(t, n, info.LeafCount)

	// A tree rehydrated from storage sees every accepted leaf, so no
	// issued index can be handed out again after a restart.
	cfg, err := NewConfig()
	require.NoError(t, err)
	txn := eng.Tx()
	resumed, err := merkle.NewTree(ctx, cfg, eng, txn)
	require.NoError(t, err)
	require.EqualValues(t, n, resumed.Info().LeafCount)
	require.Equal(t, info.Root, resumed.Root())
	require.NoError(t, txn.Rollback())
}

func TestRunRollsBackOnError(t *testing.T) {
	eng := newStorageEngineForTest(t, TreeID(4, 1))
	ctx := logger.NewContext(context.TODO(), logger.NewTestLogger(t))

	c := merkle.NodeCoord{Level: 0, Index: 0}
	err := run(ctx, eng, func(tr merkle.Transaction) error {
		storeErr := eng.StoreNodes(ctx, tr, []merkle.NodeHashPair{{Coord: c, Hash: []byte("h")}})
		require.NoError(t, storeErr)
		return errors.New("boom")
	})
	require.EqualError(t, err, "boom")

	// The failed mutation left nothing behind.
	_, err = eng.LookupNode(ctx, nil, c)
	require.IsType(t, merkle.NodeNotFoundError{}, err)
	txn := eng.Tx()
	_, err = eng.LookupLatestRoot(ctx, txn)
	require.IsType(t, merkle.NoLatestRootFoundError{}, err)
	require.NoError(t, txn.Rollback())
}

func TestTreeID(t *testing.T) {
	require.Len(t, TreeID(0, 0), 12)
	require.NotEqual(t, TreeID(1, 2), TreeID(2, 1))
	require.Equal(t, TreeID(5, 9), TreeID(5, 9))
}
