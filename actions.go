package doccache

import "context"

// Actions rebinds an Accessor's methods into a fixed-arity function set, so a
// business-logic layer can depend on a narrow function contract instead of an
// object instance (and cannot reach the accessor's cache or store). Pure
// delegation: no validation, no error translation, no added behavior.
type Actions[V any] struct {
	Add        func(ctx context.Context, doc V) error
	GetByID    func(ctx context.Context, id string) (V, bool, error)
	GetBy      func(ctx context.Context, d Descriptor) ([]V, error)
	GetOne     func(ctx context.Context, d Descriptor) (V, bool, error)
	GetAll     func(ctx context.Context) ([]V, error)
	DeleteByID func(ctx context.Context, id string) error
	EditByID   func(ctx context.Context, id string, fields map[string]any) error
	ClearCache func(ids ...string)
}

// NewActions binds every operation of a to a standalone function.
func NewActions[V any](a Accessor[V]) Actions[V] {
	return Actions[V]{
		Add:        a.Add,
		GetByID:    a.GetByID,
		GetBy:      a.GetBy,
		GetOne:     a.GetOne,
		GetAll:     a.GetAll,
		DeleteByID: a.DeleteByID,
		EditByID:   a.EditByID,
		ClearCache: a.ClearCache,
	}
}
