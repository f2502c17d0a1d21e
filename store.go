package linkshortener

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/xerrors"
)

const (
	// DefaultPrefix is prepended to keys when they are shown to users.
	DefaultPrefix = "http://short.ly/"

	// DefaultMaxRetries bounds each of the two collision phases in Shorten.
	DefaultMaxRetries = 16
)

// Store is an in-memory Index. It keeps a forward (key -> URL) and a
// reverse (URL -> key) map in lockstep, so both keys and URLs are unique.
type Store struct {
	forward map[string]string
	reverse map[string]string

	hash       Hasher
	fallback   KeyFunc
	prefix     string
	maxRetries int

	rev uint64 // bumped on every mutation

	l *sync.Mutex // guards forward, reverse and rev together
}

// compile-time assertion that we implement Index
var _ Index = &Store{}

// Option configures a Store.
type Option func(*Store)

// WithHasher replaces the FNV-1a hash used to derive keys.
func WithHasher(h Hasher) Option {
	return func(s *Store) { s.hash = h }
}

// WithFallback replaces the random key generator used after the
// perturbed hashes collided MaxRetries times.
func WithFallback(f KeyFunc) Option {
	return func(s *Store) { s.fallback = f }
}

// WithPrefix sets the display prefix used by ShortURL and stripped by Expand.
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// WithMaxRetries sets how many perturbed hashes, and after that how many
// fallback keys, Shorten tries before giving up. Negative values mean 0.
func WithMaxRetries(n int) Option {
	return func(s *Store) {
		if n < 0 {
			n = 0
		}
		s.maxRetries = n
	}
}

// NewStore returns an empty Store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		forward:    make(map[string]string),
		reverse:    make(map[string]string),
		hash:       FNV1a,
		fallback:   RandomKey,
		prefix:     DefaultPrefix,
		maxRetries: DefaultMaxRetries,
		l:          new(sync.Mutex),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Shorten returns the key mapped to longURL, creating the mapping if needed.
// Shortening the same URL twice returns the same key.
func (s *Store) Shorten(longURL string) (key string, err error) {
	s.l.Lock()
	defer s.l.Unlock()

	if existing, ok := s.reverse[longURL]; ok {
		return existing, nil
	}

	key, err = s.unusedKey(longURL)
	if err != nil {
		return "", err
	}

	s.forward[key] = longURL
	s.reverse[longURL] = key
	s.rev++
	linksShortened.Inc()

	return key, nil
}

// unusedKey hashes longURL, then longURL with an attempt counter appended,
// and finally asks the fallback generator, until it finds a key nobody owns.
// Callers must hold s.l.
func (s *Store) unusedKey(longURL string) (string, error) {
	input := longURL
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			input = longURL + strconv.Itoa(attempt)
		}
		key := formatKey(s.hash(input))
		if _, taken := s.forward[key]; !taken {
			return key, nil
		}
		keyCollisions.Inc()
	}

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		key, err := s.fallback()
		if err != nil {
			return "", xerrors.Errorf("error generating fallback key: %w", err)
		}
		if _, taken := s.forward[key]; !taken && key != "" {
			return key, nil
		}
		keyCollisions.Inc()
	}

	return "", ErrKeySpaceExhausted
}

// Expand returns the URL mapped to shortID. shortID may carry the display
// prefix. Unknown keys yield an error wrapping ErrNotFound.
func (s *Store) Expand(shortID string) (longURL string, err error) {
	key := strings.TrimPrefix(strings.TrimSpace(shortID), s.prefix)

	s.l.Lock()
	defer s.l.Unlock()

	longURL, ok := s.forward[key]
	if !ok {
		linksExpanded.WithLabelValues("miss").Inc()
		return "", xerrors.Errorf("unknown key %q: %w", key, ErrNotFound)
	}

	linksExpanded.WithLabelValues("hit").Inc()
	return longURL, nil
}

// Put maps key to longURL as given, without hashing. Any existing mapping
// of key or of longURL is dropped first, so on conflicting input the last
// Put wins.
func (s *Store) Put(key, longURL string) {
	s.l.Lock()
	defer s.l.Unlock()

	if old, ok := s.forward[key]; ok {
		delete(s.reverse, old)
	}
	if old, ok := s.reverse[longURL]; ok {
		delete(s.forward, old)
	}

	s.forward[key] = longURL
	s.reverse[longURL] = key
	s.rev++
}

// Entries returns a copy of all mappings, sorted by key.
func (s *Store) Entries() []Entry {
	s.l.Lock()
	entries := make([]Entry, 0, len(s.forward))
	for key, longURL := range s.forward {
		entries = append(entries, Entry{Key: key, LongURL: longURL})
	}
	s.l.Unlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })

	return entries
}

// Len returns the number of mappings.
func (s *Store) Len() int {
	s.l.Lock()
	defer s.l.Unlock()
	return len(s.forward)
}

// Revision changes whenever the mappings change.
func (s *Store) Revision() uint64 {
	s.l.Lock()
	defer s.l.Unlock()
	return s.rev
}

// ShortURL prepends the display prefix to key.
func (s *Store) ShortURL(key string) string {
	return s.prefix + key
}
