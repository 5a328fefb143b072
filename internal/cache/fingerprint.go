package cache

import (
	"encoding/binary"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Fingerprint hashes parts into a stable hex key. Each part is length
// prefixed, so ("ab", "c") and ("a", "bc") differ.
func Fingerprint(parts ...string) string {
	h, _ := blake2b.New256(nil) // only fails for keys longer than 64 bytes
	var n [8]byte
	for _, p := range parts {
		binary.BigEndian.PutUint64(n[:], uint64(len(p)))
		_, _ = h.Write(n[:])
		_, _ = h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}
