package doccache

import (
	"context"

	cl "github.com/unkn0wn-root/doccache/clone"
	st "github.com/unkn0wn-root/doccache/store"
)

// Accessor is the per-collection data-access API: CRUD against a document
// store with an optional local write-through/read-through cache keyed by
// document id. One Accessor serves exactly one collection.
type Accessor[V any] interface {
	// Cached reports whether this accessor keeps a local cache partition.
	Cached() bool

	// Add writes doc under its id, fully replacing any previous document.
	// Fails with ErrMissingID (no store call) when IDFunc yields "".
	Add(ctx context.Context, doc V) error

	// GetByID returns (doc, true, nil) or (zero, false, nil) when the id is
	// confirmed absent. A cache entry for the id, tombstones included,
	// answers without a store round trip.
	GetByID(ctx context.Context, id string) (V, bool, error)

	// GetBy runs the descriptor as one filtered, ordered, limited store
	// query. Always returns a slice, possibly empty.
	GetBy(ctx context.Context, d Descriptor) ([]V, error)

	// GetOne is GetBy with the limit forced to 1: (zero, false, nil) when
	// nothing matches, otherwise the single match.
	GetOne(ctx context.Context, d Descriptor) (V, bool, error)

	// GetAll fetches every document in the collection. It never reads the
	// cache; with caching enabled it rebuilds the whole partition from the
	// fetched set, dropping prior entries and tombstones.
	GetAll(ctx context.Context) ([]V, error)

	// DeleteByID removes the document and tombstones the cache entry, so a
	// following GetByID reports not-found without a store round trip.
	DeleteByID(ctx context.Context, id string) error

	// EditByID merge-updates the stored document and evicts the cache entry.
	// The next read refetches; the partial update is never merged locally,
	// which would drift from store-side defaults and transforms.
	EditByID(ctx context.Context, id string, fields map[string]any) error

	// ClearCache drops the given entries, or the whole partition when called
	// with no ids. No-op when caching is disabled.
	ClearCache(ids ...string)
}

// Options configure an Accessor. Collection, Store and IDFunc are required;
// the rest have sensible defaults.
type Options[V any] struct {
	// Required
	Collection string         // collection name; also the cache partition key
	Store      st.Store[V]    // the document store this accessor fronts
	IDFunc     func(V) string // extracts the document id; "" means missing

	Cloner cl.Cloner[V] // deep copy at cache boundaries; nil => clone.JSON
	// Registry to allocate the cache partition from. Accessors sharing a
	// Registry and a collection share cached state. nil => a private
	// registry, caching only for this accessor.
	Registry     *Registry
	Logger       Logger // if nil, NopLogger is used
	DisableCache bool   // default false (cache enabled)
}

// New builds an Accessor for one collection. With caching enabled the
// collection's partition is allocated on first use.
//
// The cache is strictly local and best-effort: it assumes this process is the
// only writer. Under external mutation, or overlapping operations on the same
// id, reads may return stale copies until the next edit or refetch. Callers
// needing strict consistency should set DisableCache.
func New[V any](opts Options[V]) (Accessor[V], error) {
	return newAccessor[V](opts)
}
