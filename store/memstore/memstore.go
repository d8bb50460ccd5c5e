// Package memstore is an in-process store.Store backed by a mutex-guarded
// map. Documents are kept as their JSON encoding, so reads hand out fresh
// decodes and never alias stored state. Useful for tests and single-process
// deployments.
package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/unkn0wn-root/doccache/internal/match"
	"github.com/unkn0wn-root/doccache/store"
)

type Store[V any] struct {
	mu   sync.RWMutex
	cols map[string]map[string][]byte // collection -> id -> JSON body
}

var _ store.Store[struct{}] = (*Store[struct{}])(nil)

func New[V any]() *Store[V] {
	return &Store[V]{cols: make(map[string]map[string][]byte)}
}

func (s *Store[V]) Get(_ context.Context, collection, id string) (V, bool, error) {
	var zero V
	s.mu.RLock()
	body, ok := s.cols[collection][id]
	s.mu.RUnlock()
	if !ok {
		return zero, false, nil
	}
	var doc V
	if err := json.Unmarshal(body, &doc); err != nil {
		return zero, false, fmt.Errorf("memstore: decode %q/%q: %w", collection, id, err)
	}
	return doc, true, nil
}

func (s *Store[V]) Set(_ context.Context, collection, id string, doc V) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("memstore: encode %q/%q: %w", collection, id, err)
	}
	s.mu.Lock()
	col, ok := s.cols[collection]
	if !ok {
		col = make(map[string][]byte)
		s.cols[collection] = col
	}
	col[id] = body
	s.mu.Unlock()
	return nil
}

func (s *Store[V]) Update(_ context.Context, collection, id string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	body, ok := s.cols[collection][id]
	if !ok {
		return fmt.Errorf("memstore: update %q/%q: %w", collection, id, store.ErrNoDocument)
	}
	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return fmt.Errorf("memstore: decode %q/%q: %w", collection, id, err)
	}
	for k, v := range fields {
		doc[k] = v
	}
	merged, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("memstore: encode %q/%q: %w", collection, id, err)
	}
	s.cols[collection][id] = merged
	return nil
}

func (s *Store[V]) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()
	delete(s.cols[collection], id)
	s.mu.Unlock()
	return nil
}

func (s *Store[V]) Query(_ context.Context, collection string, filters []store.Filter, orders []store.Order, limit int) ([]V, error) {
	type hit struct {
		id     string
		body   []byte
		fields map[string]any
	}

	s.mu.RLock()
	col := s.cols[collection]
	hits := make([]hit, 0, len(col))
	for id, body := range col {
		hits = append(hits, hit{id: id, body: body})
	}
	s.mu.RUnlock()

	// id order as the deterministic base; orders are applied on top
	sort.Slice(hits, func(i, j int) bool { return hits[i].id < hits[j].id })

	out := make([]hit, 0, len(hits))
	for _, h := range hits {
		var fields map[string]any
		if err := json.Unmarshal(h.body, &fields); err != nil {
			return nil, fmt.Errorf("memstore: decode %q/%q: %w", collection, h.id, err)
		}
		ok, err := match.Matches(fields, filters)
		if err != nil {
			return nil, fmt.Errorf("memstore: query %q: %w", collection, err)
		}
		if ok {
			h.fields = fields
			out = append(out, h)
		}
	}

	match.Sort(out, orders, func(h hit) map[string]any { return h.fields })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	docs := make([]V, len(out))
	for i, h := range out {
		if err := json.Unmarshal(h.body, &docs[i]); err != nil {
			return nil, fmt.Errorf("memstore: decode %q/%q: %w", collection, h.id, err)
		}
	}
	return docs, nil
}

func (s *Store[V]) Close(context.Context) error { return nil }
