// Package entropy provides the randomness used to pick lottery winners.
//
// Selection is a pure function of a seed: Seed hashes the draw inputs and
// Pick reduces the digest over the sorted eligible set. Recording the seed
// and the set size is enough to replay any draw.
package entropy

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math/big"
)

// Seed hashes length-prefixed parts with SHA-256.
func Seed(parts ...[]byte) []byte {
	h := sha256.New()
	var size [8]byte
	for _, p := range parts {
		binary.BigEndian.PutUint64(size[:], uint64(len(p)))
		h.Write(size[:])
		h.Write(p)
	}
	return h.Sum(nil)
}

// Pick maps seed to an index in [0, n). It returns -1 when n <= 0.
func Pick(seed []byte, n int) int {
	if n <= 0 {
		return -1
	}
	v := new(big.Int).SetBytes(seed)
	return int(v.Mod(v, big.NewInt(int64(n))).Int64())
}

// Int64 encodes v for use as a seed part.
func Int64(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

// Static returns the same bytes every time. Tests and hosts without an
// outside source use it; selection then depends on ledger state only.
type Static []byte

func (s Static) Entropy(context.Context) ([]byte, error) {
	return []byte(s), nil
}
