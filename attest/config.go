package attest

import (
	"github.com/cmtcrypto/cmt/merkle"
)

// TreeDepth fixes every attestation tree at 2^20 leaf slots. Buckets that
// fill roll over to a fresh tree id.
const TreeDepth = 20

func NewConfig() (merkle.Config, error) {
	return merkle.NewConfig(merkle.SHA256Hasher{}, TreeDepth)
}
