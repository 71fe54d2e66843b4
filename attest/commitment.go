package attest

import (
	"crypto/sha256"

	"golang.org/x/sync/errgroup"

	"github.com/cmtcrypto/cmt/msgpack"
)

// Commitment is what a participant commits into a tree: who they are, which
// bucket (a time window or shard) and which category the attestation falls
// under. It is encoded canonically so that the same commitment always
// produces the same leaf.
type Commitment struct {
	_struct     struct{} `codec:",toarray"` //nolint
	Participant []byte   `codec:"p"`
	Bucket      int64    `codec:"b"`
	Category    uint32   `codec:"c"`
}

// Leaf returns the leaf hash for the commitment.
func (c Commitment) Leaf() ([]byte, error) {
	enc, err := msgpack.EncodeCanonical(c)
	if err != nil {
		return nil, err
	}
	h := sha256.Sum256(enc)
	return h[:], nil
}

// Batches at least this large are hashed across multiple goroutines.
const parallelDeriveMin = 100

const deriveChunks = 8

// DeriveLeaves computes leaf hashes for a batch of commitments, preserving
// order.
func DeriveLeaves(cs []Commitment) ([][]byte, error) {
	leaves := make([][]byte, len(cs))

	if len(cs) < parallelDeriveMin {
		for i, c := range cs {
			leaf, err := c.Leaf()
			if err != nil {
				return nil, err
			}
			leaves[i] = leaf
		}
		return leaves, nil
	}

	g := new(errgroup.Group)
	chunk := (len(cs) + deriveChunks - 1) / deriveChunks
	for start := 0; start < len(cs); start += chunk {
		start := start
		end := start + chunk
		if end > len(cs) {
			end = len(cs)
		}
		g.Go(func() error {
			for i := start; i < end; i++ {
				leaf, err := cs[i].Leaf()
				if err != nil {
					return err
				}
				leaves[i] = leaf
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return leaves, nil
}
