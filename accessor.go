package doccache

import (
	"context"
	"fmt"

	cl "github.com/unkn0wn-root/doccache/clone"
	st "github.com/unkn0wn-root/doccache/store"
)

type accessor[V any] struct {
	collection string
	store      st.Store[V]
	idOf       func(V) string
	cloner     cl.Cloner[V]
	log        Logger
	part       *partition[V] // nil when caching disabled
}

func newAccessor[V any](opts Options[V]) (*accessor[V], error) {
	if opts.Collection == "" {
		return nil, fmt.Errorf("doccache: collection is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("doccache: store is required")
	}
	if opts.IDFunc == nil {
		return nil, fmt.Errorf("doccache: id func is required")
	}

	a := &accessor[V]{
		collection: opts.Collection,
		store:      opts.Store,
		idOf:       opts.IDFunc,
	}

	// defaults
	a.log = coalesce[Logger](opts.Logger, NopLogger{})
	a.cloner = coalesce[cl.Cloner[V]](opts.Cloner, cl.JSON[V]{})

	if !opts.DisableCache {
		reg := opts.Registry
		if reg == nil {
			reg = NewRegistry()
		}
		part, err := partitionFor[V](reg, opts.Collection)
		if err != nil {
			return nil, err
		}
		a.part = part
	}
	return a, nil
}

func (a *accessor[V]) Cached() bool { return a.part != nil }

func (a *accessor[V]) Add(ctx context.Context, doc V) error {
	id := a.idOf(doc)
	if id == "" {
		return fmt.Errorf("add to %q: %w", a.collection, ErrMissingID)
	}

	// Clone before the write: a clone failure aborts the whole Add instead
	// of leaving a stored document the cache can never hold.
	var cached V
	if a.part != nil {
		var err error
		cached, err = a.cloner.Clone(doc)
		if err != nil {
			return fmt.Errorf("doccache: clone for add %q/%q: %w", a.collection, id, err)
		}
	}

	if err := a.store.Set(ctx, a.collection, id, doc); err != nil {
		return err
	}
	if a.part != nil {
		a.part.put(id, cached)
	}
	return nil
}

func (a *accessor[V]) GetByID(ctx context.Context, id string) (V, bool, error) {
	var zero V
	if a.part != nil {
		if e, ok := a.part.get(id); ok {
			if !e.present {
				// confirmed absent; skip the store round trip
				return zero, false, nil
			}
			out, err := a.cloner.Clone(e.doc)
			if err != nil {
				return zero, false, fmt.Errorf("doccache: clone cached %q/%q: %w", a.collection, id, err)
			}
			return out, true, nil
		}
	}

	doc, found, err := a.store.Get(ctx, a.collection, id)
	if err != nil {
		return zero, false, err
	}
	if a.part != nil {
		if found {
			a.cacheIn(id, doc)
		} else {
			a.part.tombstone(id)
		}
	}
	if !found {
		return zero, false, nil
	}
	return doc, true, nil
}

func (a *accessor[V]) GetBy(ctx context.Context, d Descriptor) ([]V, error) {
	filters, orders, err := d.translate()
	if err != nil {
		return nil, err
	}
	docs, err := a.store.Query(ctx, a.collection, filters, orders, d.Limit)
	if err != nil {
		return nil, err
	}
	if a.part != nil {
		for _, doc := range docs {
			id := a.idOf(doc)
			if id == "" {
				a.log.Debug("query result without id not cached", Fields{"collection": a.collection})
				continue
			}
			a.cacheIn(id, doc)
		}
	}
	if docs == nil {
		docs = []V{}
	}
	return docs, nil
}

func (a *accessor[V]) GetOne(ctx context.Context, d Descriptor) (V, bool, error) {
	var zero V
	d.Limit = 1
	docs, err := a.GetBy(ctx, d)
	if err != nil {
		return zero, false, err
	}
	if len(docs) == 0 {
		return zero, false, nil
	}
	return docs[0], true, nil
}

func (a *accessor[V]) GetAll(ctx context.Context) ([]V, error) {
	docs, err := a.store.Query(ctx, a.collection, nil, nil, 0)
	if err != nil {
		return nil, err
	}
	if a.part != nil {
		entries := make(map[string]entry[V], len(docs))
		for _, doc := range docs {
			id := a.idOf(doc)
			if id == "" {
				a.log.Debug("document without id not cached", Fields{"collection": a.collection})
				continue
			}
			c, cerr := a.cloner.Clone(doc)
			if cerr != nil {
				a.log.Warn("clone failed; document not cached", Fields{"collection": a.collection, "id": id, "err": cerr})
				continue
			}
			entries[id] = entry[V]{doc: c, present: true}
		}
		// full repopulate: prior entries and tombstones are gone
		a.part.replace(entries)
		a.log.Debug("partition repopulated", Fields{"collection": a.collection, "entries": len(entries)})
	}
	if docs == nil {
		docs = []V{}
	}
	return docs, nil
}

func (a *accessor[V]) DeleteByID(ctx context.Context, id string) error {
	if err := a.store.Delete(ctx, a.collection, id); err != nil {
		return err
	}
	if a.part != nil {
		a.part.tombstone(id)
	}
	return nil
}

func (a *accessor[V]) EditByID(ctx context.Context, id string, fields map[string]any) error {
	if err := a.store.Update(ctx, a.collection, id, fields); err != nil {
		return err
	}
	if a.part != nil {
		// evict, don't patch: the store may apply defaults/transforms the
		// local copy would miss. Next read refetches.
		a.part.evict(id)
	}
	return nil
}

func (a *accessor[V]) ClearCache(ids ...string) {
	if a.part == nil {
		return
	}
	if len(ids) == 0 {
		a.part.reset()
		a.log.Debug("partition cleared", Fields{"collection": a.collection})
		return
	}
	for _, id := range ids {
		a.part.evict(id)
	}
}

// cacheIn stores a defensive copy of doc under id. Clone failures are logged
// and skipped: the caller still gets the store's result, the cache just stays
// cold for that id.
func (a *accessor[V]) cacheIn(id string, doc V) {
	c, err := a.cloner.Clone(doc)
	if err != nil {
		a.log.Warn("clone failed; document not cached", Fields{"collection": a.collection, "id": id, "err": err})
		return
	}
	a.part.put(id, c)
}
