package project

import (
	"crypto/sha256"
)

// Digest - фиксированный 256 битный хеш (совместим с source.File.Hash)
type Digest [32]byte

// Combine hashes content followed by every extra digest in order:
// H(content || extra1 || extra2 ...). Callers must pass extras in a fixed order.
func Combine(content Digest, extra ...Digest) Digest {
	h := sha256.New()
	_, _ = h.Write(content[:])
	for _, d := range extra {
		_, _ = h.Write(d[:])
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

// StringDigest hashes s; used for version strings in cache keys.
func StringDigest(s string) Digest {
	return Digest(sha256.Sum256([]byte(s)))
}
