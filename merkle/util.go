package merkle

import (
	"crypto/rand"
	"fmt"
)

func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// RandomLeaves returns m random leaf hashes of the hasher's output size.
func RandomLeaves(h Hasher, m int) ([][]byte, error) {
	leaves := make([][]byte, m)
	for i := 0; i < m; i++ {
		b, err := RandomBytes(h.Size())
		if err != nil {
			return nil, fmt.Errorf("generating leaf %d: %v", i, err)
		}
		leaves[i] = b
	}
	return leaves, nil
}
