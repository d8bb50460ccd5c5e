// Package store defines the document-store abstraction consumed by doccache.
//
// A Store keeps field-mapping documents under (collection, id). Implementations
// MUST treat a missing document as a miss, not an error: Get returns
// (zero, false, nil) when the id is absent. Update merges the given fields into
// an existing document and MUST fail with ErrNoDocument when there is nothing
// to merge into. Set is a full overwrite, never a merge.
//
// Filtering, ordering and limiting in Query operate on the document's JSON
// field mapping. Operator strings are passed through from the caller verbatim;
// every bundled store understands OpEq, OpNotEq, OpLt, OpLtEq, OpGt, OpGtEq,
// OpIn and OpNotIn. Unknown operators are a Query error.
package store

import (
	"context"
	"errors"
)

// Operators understood by the bundled stores. Custom stores may accept more;
// the accessor layer forwards whatever operator the caller supplied.
const (
	OpEq    = "=="
	OpNotEq = "!="
	OpLt    = "<"
	OpLtEq  = "<="
	OpGt    = ">"
	OpGtEq  = ">="
	OpIn    = "in"
	OpNotIn = "not-in"
)

// ErrNoDocument is returned by Update when the target document does not exist.
var ErrNoDocument = errors.New("store: no such document")

// Filter is one field predicate. Filters given together are conjoined.
type Filter struct {
	Field string
	Op    string
	Value any
}

// Eq is shorthand for an equality filter.
func Eq(field string, value any) Filter {
	return Filter{Field: field, Op: OpEq, Value: value}
}

// Order is one sort key. A slice of Orders is applied primary-first.
type Order struct {
	Field string
	Desc  bool
}

// Store is a document store addressed by (collection, id).
// Implementations must be safe for concurrent use.
type Store[V any] interface {
	// Get returns (doc, true, nil) when the document exists and
	// (zero, false, nil) when it does not.
	Get(ctx context.Context, collection, id string) (V, bool, error)

	// Set writes doc under id, fully replacing any previous document.
	Set(ctx context.Context, collection, id string, doc V) error

	// Update merges fields into the existing document. The merge is shallow:
	// each given top-level field replaces the stored one. Returns an error
	// wrapping ErrNoDocument when the document is absent.
	Update(ctx context.Context, collection, id string, fields map[string]any) error

	// Delete removes the document. Deleting an absent id is not an error.
	Delete(ctx context.Context, collection, id string) error

	// Query returns documents matching all filters, sorted by orders and
	// capped at limit. limit <= 0 means uncapped. With no orders the result
	// order is implementation-defined and must not be relied upon.
	Query(ctx context.Context, collection string, filters []Filter, orders []Order, limit int) ([]V, error)

	// Close releases resources.
	Close(ctx context.Context) error
}
