package storage

import (
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/syndtr/goleveldb/leveldb"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/cmtcrypto/cmt/logger"
	"github.com/cmtcrypto/cmt/merkle"
	"github.com/cmtcrypto/cmt/msgpack"

	sq "github.com/Masterminds/squirrel"
)

// MerkleStorageEngine implements merkle.StorageEngine. Node hashes go to a
// per-tree leveldb (they are only ever read back by coordinate, and there
// are a lot of them); root metadata goes to SQL so that it commits inside
// the caller's transaction. Node writes are staged in the Txn and only
// reach leveldb once the SQL side has committed, so a rolled back mutation
// leaves no trace in the node store.

// CachedNodeLevels counts tree levels, from the root down, whose nodes are
// kept in an in-process lru. Nodes near the root are rewritten and reread on
// every mutation; leaf-adjacent levels are touched once per leaf and are not
// worth the memory.
var CachedNodeLevels = 12

// nodeCacheSize caps the lru well above 2^CachedNodeLevels so cached levels
// never evict each other.
var nodeCacheSize = 1 << 13

type MerkleStorageEngine struct {
	db        *sqlx.DB
	leveldb   *leveldb.DB
	nodeCache *lru.Cache[merkle.NodeCoord, []byte]

	cfg    merkle.Config
	treeId []byte
}

var _ merkle.StorageEngine = &MerkleStorageEngine{}

// NewMerkleStorageEngine opens a node store for treeId under dir. The same
// db handle can back engines for many trees; each tree gets its own leveldb.
func NewMerkleStorageEngine(db *sqlx.DB, cfg merkle.Config, treeId []byte, dir string) (*MerkleStorageEngine, error) {
	name := hex.EncodeToString(treeId)
	ldb, err := leveldb.OpenFile(filepath.Join(dir, "nodes-"+name), nil)
	if err != nil {
		return nil, errors.Wrap(err, "opening node store")
	}

	cache, err := lru.New[merkle.NodeCoord, []byte](nodeCacheSize)
	if err != nil {
		return nil, err
	}

	return &MerkleStorageEngine{
		db:        db,
		leveldb:   ldb,
		nodeCache: cache,
		cfg:       cfg,
		treeId:    treeId,
	}, nil
}

// Txn is the merkle.Transaction handle for this engine: a SQL transaction
// plus the node writes staged under it. Staged nodes are visible to lookups
// made through the same Txn, mirroring SQL transaction semantics.
type Txn struct {
	tx     *sqlx.Tx
	eng    *MerkleStorageEngine
	staged map[merkle.NodeCoord][]byte
}

func (m *MerkleStorageEngine) Tx() *Txn {
	return &Txn{
		tx:     m.db.MustBegin(),
		eng:    m,
		staged: make(map[merkle.NodeCoord][]byte),
	}
}

// Commit commits the SQL side first; the node batch is written only once
// the root it supports is durable.
func (t *Txn) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return err
	}

	batch := new(leveldb.Batch)
	for c, hash := range t.staged {
		batch.Put(t.eng.calcKey(c), hash)
	}
	if err := t.eng.leveldb.Write(batch, nil); err != nil {
		return errors.Wrap(err, "writing node batch")
	}
	for c, hash := range t.staged {
		if t.eng.cacheable(c) {
			t.eng.nodeCache.Add(c, hash)
		}
	}
	t.staged = nil
	return nil
}

// Rollback discards the staged nodes along with the SQL transaction.
func (t *Txn) Rollback() error {
	t.staged = nil
	return t.tx.Rollback()
}

func (m *MerkleStorageEngine) Close() error {
	return m.leveldb.Close()
}

// Reset drops and recreates the SQL tables shared by all trees. Node
// leveldbs are left alone; remove them on disk for a full wipe.
func (m *MerkleStorageEngine) Reset() error {
	tx := m.db.MustBegin()
	tx.MustExec(`DROP TABLE IF EXISTS roots`)
	tx.MustExec(`CREATE TABLE roots(
		tree_id bytea,
		root_metadata bytea,
		PRIMARY KEY (tree_id)
	);`)
	return tx.Commit()
}

func (m *MerkleStorageEngine) calcKey(c merkle.NodeCoord) []byte {
	b := make([]byte, 9)
	b[0] = byte(c.Level)
	binary.BigEndian.PutUint64(b[1:9], c.Index)
	return b
}

func (m *MerkleStorageEngine) cacheable(c merkle.NodeCoord) bool {
	return c.Level >= m.cfg.Depth-CachedNodeLevels
}

func (m *MerkleStorageEngine) StoreNodes(ctx logger.ContextInterface, tr merkle.Transaction,
	nodes []merkle.NodeHashPair) error {
	txn, ok := tr.(*Txn)
	if !ok {
		return errors.New("Require storage txn")
	}

	for _, node := range nodes {
		txn.staged[node.Coord] = node.Hash
	}
	return nil
}

func (m *MerkleStorageEngine) LookupNode(ctx logger.ContextInterface, tr merkle.Transaction,
	c merkle.NodeCoord) ([]byte, error) {

	if txn, ok := tr.(*Txn); ok {
		if hash, ok := txn.staged[c]; ok {
			return hash, nil
		}
	}

	if m.cacheable(c) {
		if v, ok := m.nodeCache.Get(c); ok {
			return v, nil
		}
	}

	v, err := m.leveldb.Get(m.calcKey(c), nil)
	switch err {
	case nil:
	case leveldb.ErrNotFound:
		return nil, merkle.NewNodeNotFoundError()
	default:
		return nil, errors.Wrap(err, "reading node")
	}

	if m.cacheable(c) {
		m.nodeCache.Add(c, v)
	}
	return v, nil
}

func (m *MerkleStorageEngine) LookupNodes(ctx logger.ContextInterface, tr merkle.Transaction,
	coords []merkle.NodeCoord) ([]merkle.NodeHashPair, error) {

	ret := make([]merkle.NodeHashPair, len(coords))
	for i, c := range coords {
		hash, err := m.LookupNode(ctx, tr, c)
		switch err.(type) {
		case nil:
			ret[i] = merkle.NodeHashPair{Coord: c, Hash: hash}
		case merkle.NodeNotFoundError:
			ret[i] = merkle.NodeHashPair{Coord: c, Hash: nil}
		default:
			return nil, err
		}
	}
	return ret, nil
}

func (m *MerkleStorageEngine) StoreRoot(ctx logger.ContextInterface, tr merkle.Transaction,
	md merkle.RootMetadata) error {
	txn, ok := tr.(*Txn)
	if !ok {
		return errors.New("Require storage txn")
	}

	encodedMd, err := msgpack.EncodeCanonical(md)
	if err != nil {
		return errors.Wrap(err, "cannot encode root metadata")
	}

	builder := sq.
		Insert("roots").
		Columns("tree_id", "root_metadata").
		Values(m.treeId, encodedMd).
		Suffix("on conflict (tree_id) do update set root_metadata=excluded.root_metadata")

	q, args, err := builder.ToSql()
	if err != nil {
		return err
	}

	q = m.db.Rebind(q)
	_, err = txn.tx.Exec(q, args...)
	if err != nil {
		return errors.Wrap(err, "storing root")
	}

	return nil
}

func (m *MerkleStorageEngine) LookupLatestRoot(ctx logger.ContextInterface,
	tr merkle.Transaction) (merkle.RootMetadata, error) {
	txn, ok := tr.(*Txn)
	if !ok {
		return merkle.RootMetadata{}, errors.New("Require storage txn")
	}

	var rootMdBytes []byte
	q := `SELECT root_metadata
		FROM roots
		WHERE tree_id=?
		LIMIT 1`
	q = m.db.Rebind(q)
	err := txn.tx.Get(&rootMdBytes, q, m.treeId)
	switch err {
	case nil:
	case sql.ErrNoRows:
		return merkle.RootMetadata{}, merkle.NewNoLatestRootFoundError()
	default:
		return merkle.RootMetadata{}, errors.Wrap(err, "reading root")
	}

	var rootMd merkle.RootMetadata
	err = msgpack.Decode(&rootMd, rootMdBytes)
	if err != nil {
		return merkle.RootMetadata{}, err
	}

	return rootMd, nil
}
