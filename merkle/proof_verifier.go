package merkle

import (
	"crypto/hmac"
)

// ProofVerifier checks authentication paths against an externally supplied
// root. It carries no tree state, so it can run on the client side of a
// protocol where the server produces proofs.
type ProofVerifier struct {
	cfg Config
}

func NewProofVerifier(cfg Config) ProofVerifier {
	return ProofVerifier{cfg: cfg}
}

// Verify returns true iff proof authenticates leaf at index under
// expectedRoot. It is total: malformed input yields false, never a panic.
func (v ProofVerifier) Verify(proof Proof, leaf []byte, index uint64, expectedRoot []byte) bool {
	return verifyAgainstRoot(v.cfg, proof, leaf, index, expectedRoot)
}

func verifyAgainstRoot(cfg Config, proof Proof, leaf []byte, index uint64, expectedRoot []byte) bool {
	if len(proof) != cfg.Depth {
		return false
	}
	if index >= cfg.Capacity {
		return false
	}

	cur := leaf
	idx := index
	for lvl := 0; lvl < cfg.Depth; lvl++ {
		if idx&1 == 0 {
			cur = cfg.Hasher.HashPair(cur, proof[lvl])
		} else {
			cur = cfg.Hasher.HashPair(proof[lvl], cur)
		}
		idx >>= 1
	}

	// Check the root computed matches the expected value.
	return hmac.Equal(cur, expectedRoot)
}
