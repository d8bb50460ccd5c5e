package doccache

import (
	"errors"
	"fmt"
)

// ErrMissingID is returned by Add when IDFunc yields an empty id for the
// document. Detected before any store call; the store is never touched.
var ErrMissingID = errors.New("doccache: document has no id")

// QueryShapeError reports a Descriptor whose Where, OrderBy or Limit does not
// match any recognized shape. Surfaced before any store query is issued.
type QueryShapeError struct {
	Part  string // "where", "orderBy" or "limit"
	Value any    // the offending value
}

func (e *QueryShapeError) Error() string {
	return fmt.Sprintf("doccache: unrecognized %s shape %T (%v)", e.Part, e.Value, e.Value)
}
