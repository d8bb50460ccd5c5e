package doccache

import (
	"fmt"
	"sync"
)

// Registry holds one cache partition per collection name. Construct it once
// and pass it to every accessor that should share cached state; accessors
// built for the same collection against the same Registry share a partition.
// Separate Registries are fully isolated, which keeps tests hermetic.
//
// A partition lives for the Registry's lifetime. There is no TTL and no size
// bound: entries stay until evicted by an edit, overwritten by a fetch, or
// dropped by ClearCache.
type Registry struct {
	mu    sync.Mutex
	parts map[string]any // collection -> *partition[V]
}

func NewRegistry() *Registry {
	return &Registry{parts: make(map[string]any)}
}

// partitionFor returns the partition for collection, allocating it on first
// use. Two accessors may only share a collection name when they also share
// the document type.
func partitionFor[V any](r *Registry, collection string) (*partition[V], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.parts[collection]; ok {
		p, ok := existing.(*partition[V])
		if !ok {
			return nil, fmt.Errorf("doccache: collection %q already cached with a different document type", collection)
		}
		return p, nil
	}
	p := newPartition[V]()
	r.parts[collection] = p
	return p, nil
}

// entry is one cached document state. present=false is the tombstone: the
// store confirmed this id absent, distinct from "never looked up" (no entry
// at all).
type entry[V any] struct {
	doc     V
	present bool
}

// partition is the per-collection cache. Entries are deep copies taken at
// write time; readers clone again on the way out, so no caller ever holds a
// reference into the map.
type partition[V any] struct {
	mu      sync.RWMutex
	entries map[string]entry[V]
}

func newPartition[V any]() *partition[V] {
	return &partition[V]{entries: make(map[string]entry[V])}
}

func (p *partition[V]) get(id string) (entry[V], bool) {
	p.mu.RLock()
	e, ok := p.entries[id]
	p.mu.RUnlock()
	return e, ok
}

func (p *partition[V]) put(id string, doc V) {
	p.mu.Lock()
	p.entries[id] = entry[V]{doc: doc, present: true}
	p.mu.Unlock()
}

func (p *partition[V]) tombstone(id string) {
	p.mu.Lock()
	p.entries[id] = entry[V]{}
	p.mu.Unlock()
}

func (p *partition[V]) evict(id string) {
	p.mu.Lock()
	delete(p.entries, id)
	p.mu.Unlock()
}

// replace swaps in a whole new entry set, dropping everything held before,
// tombstones included.
func (p *partition[V]) replace(entries map[string]entry[V]) {
	p.mu.Lock()
	p.entries = entries
	p.mu.Unlock()
}

func (p *partition[V]) reset() {
	p.replace(make(map[string]entry[V]))
}

func (p *partition[V]) len() int {
	p.mu.RLock()
	n := len(p.entries)
	p.mu.RUnlock()
	return n
}
