package linkshortener

import (
	"errors"
)

// Index keeps track of the key <-> URL mapping.
type Index interface {
	Shorten(longURL string) (key string, err error)
	Expand(shortID string) (longURL string, err error)
	Entries() []Entry
}

// Entry is a single key -> URL pair.
type Entry struct {
	Key     string
	LongURL string
}

var (
	ErrNotFound = errors.New("not found in index")

	// ErrKeySpaceExhausted is returned by Shorten when neither the perturbed
	// hashes nor the fallback generator produced an unused key.
	ErrKeySpaceExhausted = errors.New("could not find an unused key")
)
