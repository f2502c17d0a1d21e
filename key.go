package linkshortener

import (
	"fmt"
	"hash/fnv"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Hasher maps an input string to a 32 bit hash value.
type Hasher func(s string) uint32

// KeyFunc produces a candidate key without looking at the input URL.
// It is used once the perturbed hashes keep colliding.
type KeyFunc func() (string, error)

const (
	keyAlphabet = "0123456789abcdef"
	keyLength   = 8
)

// FNV1a is the default Hasher: 32 bit FNV-1a over the UTF-8 bytes of s.
// Keys derived from it are stable across processes and platforms.
func FNV1a(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(s)) // never fails
	return h.Sum32()
}

// formatKey renders a hash as 8 lowercase hex digits.
func formatKey(sum uint32) string {
	return fmt.Sprintf("%08x", sum)
}

// RandomKey draws a key of the same shape as formatKey output from a
// cryptographically random source.
func RandomKey() (string, error) {
	return gonanoid.Generate(keyAlphabet, keyLength)
}
