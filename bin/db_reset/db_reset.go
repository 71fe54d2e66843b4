package main

import (
	"flag"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/cmtcrypto/cmt/attest"
	"github.com/cmtcrypto/cmt/storage"
)

func inner() error {
	dsnPtr := flag.String("dsn", "user=foo dbname=cmt sslmode=disable", "postgres dsn")
	dirPtr := flag.String("dir", "db", "node store directory")
	flag.Parse()

	cfg, err := attest.NewConfig()
	if err != nil {
		return err
	}

	db, err := sqlx.Open("postgres", *dsnPtr)
	if err != nil {
		return err
	}

	treeId := []byte{1, 2, 3}

	eng, err := storage.NewMerkleStorageEngine(db, cfg, treeId, *dirPtr)
	if err != nil {
		return err
	}
	defer eng.Close()

	return eng.Reset()
}

func main() {
	err := inner()
	if err != nil {
		panic(err)
	}
}
