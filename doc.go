// Package doccache implements a thin per-collection data-access layer over a
// remote document store, with an optional local write-through/read-through
// cache keyed by document id.
//
// Components:
//   - store.Store[V]: the document store contract (memstore, redistore and
//     sqlstore implementations are bundled).
//   - Accessor[V]: one instance per collection; Add/GetByID/GetBy/GetOne/
//     GetAll/DeleteByID/EditByID/ClearCache, each consulting or maintaining
//     the collection's cache partition.
//   - Registry: explicit holder of cache partitions, one per collection name.
//   - clone.Cloner[V]: deep copy applied at every cache boundary so cached
//     state never shares memory with caller-visible documents.
//   - Actions[V]: the accessor's operations rebound as standalone functions.
//
// Cache lifecycle per id:
//
//	Add / fetch        -> entry overwritten with a deep copy
//	DeleteByID         -> tombstone ("confirmed absent", answers reads)
//	EditByID           -> evicted (next read refetches from the store)
//	GetAll             -> whole partition rebuilt from the fetched set
//	ClearCache         -> entry (or partition) dropped
//
// The cache is strictly local, unbounded, and best-effort. It disclaims
// coherency across processes and under overlapping operations on one id;
// set Options.DisableCache when strict consistency is required.
package doccache
