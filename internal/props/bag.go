// Package props implements a small generic key/value registry. Handles use it
// to expose per-process resources, such as stream adapters, under well-known
// string keys.
package props

import (
	"sort"
	"sync"
)

// Bag maps string keys to arbitrary values. The zero value is not usable;
// construct bags with New.
type Bag struct {
	mu     sync.RWMutex
	values map[string]any
}

// New returns an empty bag.
func New() *Bag {
	return &Bag{values: make(map[string]any)}
}

// Set stores value under key, replacing any previous entry.
func (b *Bag) Set(key string, value any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.values[key] = value
}

// Get returns the value stored under key and whether the key exists.
func (b *Bag) Get(key string) (any, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	value, ok := b.values[key]
	return value, ok
}

// Clear removes the entry stored under key, if any.
func (b *Bag) Clear(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.values, key)
}

// Keys returns the registered keys in sorted order.
func (b *Bag) Keys() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	keys := make([]string, 0, len(b.values))
	for key := range b.values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Len reports the number of registered entries.
func (b *Bag) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.values)
}
