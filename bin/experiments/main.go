package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime/pprof"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/sync/errgroup"

	"github.com/cmtcrypto/cmt/attest"
	"github.com/cmtcrypto/cmt/logger"
	"github.com/cmtcrypto/cmt/merkle"
	"github.com/cmtcrypto/cmt/storage"
)

func toMs(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

func randomLeavesParallel(n int) ([][]byte, error) {
	leaves := make([][]byte, n)
	g := new(errgroup.Group)
	chunk := (n + 7) / 8
	for start := 0; start < n; start += chunk {
		start := start
		end := start + chunk
		if end > n {
			end = n
		}
		g.Go(func() error {
			part, err := merkle.RandomLeaves(merkle.SHA256Hasher{}, end-start)
			if err != nil {
				return err
			}
			copy(leaves[start:end], part)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return leaves, nil
}

// Inserts the same random leaves into the archive tree and the frontier
// tree and reports timings. The two must agree on every intermediate root.
func mainInner() error {
	nPtr := flag.Int("n", 10000, "number of leaves")
	depthPtr := flag.Int("depth", attest.TreeDepth, "tree depth")
	dirPtr := flag.String("dir", "", "persist archive tree under this directory (sqlite); empty for in-memory")
	verbosePtr := flag.Bool("v", false, "dump final tree info")
	cpuProfilePtr := flag.String("cpuprofile", "", "cpu profile file")
	flag.Parse()

	if *cpuProfilePtr != "" {
		f, err := os.Create(*cpuProfilePtr)
		if err != nil {
			log.Fatal("could not create CPU profile: ", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal("could not start CPU profile: ", err)
		}
		defer pprof.StopCPUProfile()
	}

	ctx := logger.NewContext(context.TODO(), logger.NewNull())

	cfg, err := merkle.NewConfig(merkle.SHA256Hasher{}, *depthPtr)
	if err != nil {
		return err
	}

	var eng merkle.StorageEngine
	var tr merkle.Transaction
	if *dirPtr != "" {
		db, err := sqlx.Open("sqlite3", filepath.Join(*dirPtr, "experiments.db"))
		if err != nil {
			return err
		}
		seng, err := storage.NewMerkleStorageEngine(db, cfg, []byte{0xe0}, *dirPtr)
		if err != nil {
			return err
		}
		defer seng.Close()
		if err := seng.Reset(); err != nil {
			return err
		}
		tx := seng.Tx()
		defer tx.Commit()
		eng = seng
		tr = tx
	} else {
		eng = merkle.NewInMemoryStorageEngine()
	}

	archive, err := merkle.NewTree(ctx, cfg, eng, tr)
	if err != nil {
		return err
	}
	frontier := merkle.NewFrontierTree(cfg)

	leaves, err := randomLeavesParallel(*nPtr)
	if err != nil {
		return err
	}

	st := time.Now()
	_, err = archive.AddLeaves(ctx, tr, leaves)
	if err != nil {
		return err
	}
	archiveEl := time.Since(st)

	st = time.Now()
	for _, leaf := range leaves {
		_, err := frontier.InsertLeaf(leaf)
		if err != nil {
			return err
		}
	}
	frontierEl := time.Since(st)

	if !bytes.Equal(archive.Root(), frontier.Root()) {
		return fmt.Errorf("root mismatch: archive %x frontier %x", archive.Root(), frontier.Root())
	}

	st = time.Now()
	for i := 0; i < *nPtr; i++ {
		proof, err := archive.ProveAt(ctx, tr, uint64(i))
		if err != nil {
			return err
		}
		if !archive.VerifyProof(proof, leaves[i], uint64(i)) {
			return fmt.Errorf("proof at %d does not verify", i)
		}
	}
	proveEl := time.Since(st)

	fmt.Printf("n=%d depth=%d\n", *nPtr, *depthPtr)
	fmt.Printf("archive insert:  %.3fms (%.3fms/leaf)\n", toMs(archiveEl), toMs(archiveEl)/float64(*nPtr))
	fmt.Printf("frontier insert: %.3fms (%.3fms/leaf)\n", toMs(frontierEl), toMs(frontierEl)/float64(*nPtr))
	fmt.Printf("prove+verify:    %.3fms (%.3fms/leaf)\n", toMs(proveEl), toMs(proveEl)/float64(*nPtr))

	if *verbosePtr {
		spew.Dump(archive.Info())
		spew.Dump(frontier.Info())
	}

	return nil
}

func main() {
	err := mainInner()
	if err != nil {
		panic(err.Error())
	}
}
