// Package redistore is a Redis-backed store.Store. Each collection is one
// Redis hash keyed "doc:<collection>"; documents are stored as JSON under
// their id field. Queries read the whole hash and evaluate filters, orders
// and the limit client-side, so keep collections queried this way reasonably
// small or front them with the accessor cache.
//
// Update is a read-merge-write without a transaction: two concurrent updates
// to the same id may lose fields. That mirrors the layer's documented
// single-writer model; wrap with WATCH/MULTI externally if you need more.
package redistore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/doccache/internal/match"
	"github.com/unkn0wn-root/doccache/store"
)

var ErrNilClient = errors.New("redistore: nil client")

type Store[V any] struct {
	rdb         goredis.UniversalClient
	closeClient bool
}

var _ store.Store[struct{}] = (*Store[struct{}])(nil)

type Config struct {
	Client      goredis.UniversalClient
	CloseClient bool // set true only if this store exclusively owns the client
}

func New[V any](cfg Config) (*Store[V], error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	return &Store[V]{rdb: cfg.Client, closeClient: cfg.CloseClient}, nil
}

func colKey(collection string) string { return "doc:" + collection }

func (s *Store[V]) Get(ctx context.Context, collection, id string) (V, bool, error) {
	var zero V
	body, err := s.rdb.HGet(ctx, colKey(collection), id).Bytes()
	if err == goredis.Nil {
		return zero, false, nil // miss
	}
	if err != nil {
		return zero, false, err // transport/server error
	}
	var doc V
	if err := json.Unmarshal(body, &doc); err != nil {
		return zero, false, fmt.Errorf("redistore: decode %q/%q: %w", collection, id, err)
	}
	return doc, true, nil
}

func (s *Store[V]) Set(ctx context.Context, collection, id string, doc V) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("redistore: encode %q/%q: %w", collection, id, err)
	}
	return s.rdb.HSet(ctx, colKey(collection), id, body).Err()
}

func (s *Store[V]) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	body, err := s.rdb.HGet(ctx, colKey(collection), id).Bytes()
	if err == goredis.Nil {
		return fmt.Errorf("redistore: update %q/%q: %w", collection, id, store.ErrNoDocument)
	}
	if err != nil {
		return err
	}
	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return fmt.Errorf("redistore: decode %q/%q: %w", collection, id, err)
	}
	for k, v := range fields {
		doc[k] = v
	}
	merged, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("redistore: encode %q/%q: %w", collection, id, err)
	}
	return s.rdb.HSet(ctx, colKey(collection), id, merged).Err()
}

func (s *Store[V]) Delete(ctx context.Context, collection, id string) error {
	return s.rdb.HDel(ctx, colKey(collection), id).Err()
}

func (s *Store[V]) Query(ctx context.Context, collection string, filters []store.Filter, orders []store.Order, limit int) ([]V, error) {
	all, err := s.rdb.HGetAll(ctx, colKey(collection)).Result()
	if err != nil {
		return nil, err
	}

	type hit struct {
		id     string
		body   string
		fields map[string]any
	}
	hits := make([]hit, 0, len(all))
	for id, body := range all {
		hits = append(hits, hit{id: id, body: body})
	}
	// HGetAll order is arbitrary; id order as the deterministic base
	sort.Slice(hits, func(i, j int) bool { return hits[i].id < hits[j].id })

	out := make([]hit, 0, len(hits))
	for _, h := range hits {
		var fields map[string]any
		if err := json.Unmarshal([]byte(h.body), &fields); err != nil {
			return nil, fmt.Errorf("redistore: decode %q/%q: %w", collection, h.id, err)
		}
		ok, err := match.Matches(fields, filters)
		if err != nil {
			return nil, fmt.Errorf("redistore: query %q: %w", collection, err)
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
		if err := json.Unmarshal([]byte(h.body), &docs[i]); err != nil {
			return nil, fmt.Errorf("redistore: decode %q/%q: %w", collection, h.id, err)
		}
	}
	return docs, nil
}

// Close releases the underlying redis client only when this store owns it.
// Safe to call multiple times; repeated calls become no-ops.
func (s *Store[V]) Close(context.Context) error {
	if s.closeClient {
		if err := s.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}
