// Package cache holds a bounded string interner that lets decoders share one
// copy of header names and values that repeat across blocks and connections.
package cache

import (
	"sync"
	"sync/atomic"
)

const (
	DefaultMaxEntries = 4096
	DefaultMaxLength  = 256
)

type Interner struct {
	mutex      sync.RWMutex
	strings    map[string]string
	maxEntries int
	maxLength  int

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewInterner keeps at most maxEntries strings of at most maxLength octets.
// When full, the whole set is dropped and filling starts again.
func NewInterner(maxEntries, maxLength int) *Interner {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	return &Interner{
		strings:    make(map[string]string),
		maxEntries: maxEntries,
		maxLength:  maxLength,
	}
}

func (in *Interner) Intern(b []byte) string {
	if len(b) > in.maxLength {
		return string(b)
	}

	in.mutex.RLock()
	s, ok := in.strings[string(b)]
	in.mutex.RUnlock()
	if ok {
		in.hits.Add(1)
		return s
	}

	in.misses.Add(1)
	s = string(b)

	in.mutex.Lock()
	if len(in.strings) >= in.maxEntries {
		clear(in.strings)
	}
	in.strings[s] = s
	in.mutex.Unlock()

	return s
}

func (in *Interner) Len() int {
	in.mutex.RLock()
	defer in.mutex.RUnlock()
	return len(in.strings)
}

func (in *Interner) Stats() (hits, misses uint64) {
	return in.hits.Load(), in.misses.Load()
}
