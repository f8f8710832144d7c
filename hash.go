// Hash algorithm implementations for bucket selection.
//
// Both the long-string interning store and the idxhash record-key table
// pick their buckets with a 64-bit hash of the key bytes. Three algorithms
// are supported, selectable via Config.HashAlgorithm.
package whitedb

import (
	"hash/fnv"

	"github.com/zeebo/xxh3"
	"golang.org/x/crypto/blake2b"
)

// Hash algorithm constants.
const (
	AlgXXHash3 = 1 // Default, fastest
	AlgFNV1a   = 2 // No external dependencies
	AlgBlake2b = 3 // Best distribution
)

// hashBytes produces a 64-bit hash of a key using the specified algorithm.
func hashBytes(key []byte, alg int) uint64 {
	switch alg {
	case AlgFNV1a:
		h := fnv.New64a()
		h.Write(key)
		return h.Sum64()
	case AlgBlake2b:
		h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
		h.Write(key)
		sum := h.Sum(nil)
		var r uint64
		for _, b := range sum {
			r = r<<8 | uint64(b)
		}
		return r
	default:
		return xxh3.Hash(key)
	}
}
