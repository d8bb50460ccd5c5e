package doccache

import (
	"sort"
	"strings"

	"github.com/unkn0wn-root/doccache/store"
)

// Descriptor describes a filtered, ordered, limited lookup. Where and OrderBy
// accept a small set of shapes, resolved once during translation; anything
// else fails with *QueryShapeError before a store query is issued.
//
// Where (all filters are conjoined):
//   - nil: no filter
//   - map[string]any: one equality filter per key
//   - store.Filter or []store.Filter: used verbatim
//   - []any whose elements are maps (equalities), store.Filter values, or
//     3-element []any{field, operator, value} triples
//
// OrderBy:
//   - nil: store default order (unspecified; do not rely on it)
//   - string: ascending by that field
//   - store.Order or []store.Order: used verbatim
//   - a {field, direction} pair ([]any or []string of length 2, direction
//     "asc" or "desc", case-insensitive)
//   - []any listing such pairs, applied primary-first
//
// Limit caps the result count; 0 means uncapped, negative is rejected.
type Descriptor struct {
	Where   any
	OrderBy any
	Limit   int
}

func (d Descriptor) translate() ([]store.Filter, []store.Order, error) {
	filters, err := translateWhere(d.Where)
	if err != nil {
		return nil, nil, err
	}
	orders, err := translateOrderBy(d.OrderBy)
	if err != nil {
		return nil, nil, err
	}
	if d.Limit < 0 {
		return nil, nil, &QueryShapeError{Part: "limit", Value: d.Limit}
	}
	return filters, orders, nil
}

func translateWhere(w any) ([]store.Filter, error) {
	switch v := w.(type) {
	case nil:
		return nil, nil
	case store.Filter:
		return []store.Filter{v}, nil
	case []store.Filter:
		return append([]store.Filter(nil), v...), nil
	case map[string]any:
		return equalities(v), nil
	case []any:
		var out []store.Filter
		for _, el := range v {
			fs, err := whereElement(el)
			if err != nil {
				return nil, err
			}
			out = append(out, fs...)
		}
		return out, nil
	default:
		return nil, &QueryShapeError{Part: "where", Value: w}
	}
}

func whereElement(el any) ([]store.Filter, error) {
	switch e := el.(type) {
	case store.Filter:
		return []store.Filter{e}, nil
	case map[string]any:
		return equalities(e), nil
	case []any:
		if len(e) != 3 {
			return nil, &QueryShapeError{Part: "where", Value: el}
		}
		field, fok := e[0].(string)
		op, ook := e[1].(string)
		if !fok || !ook || field == "" || op == "" {
			return nil, &QueryShapeError{Part: "where", Value: el}
		}
		return []store.Filter{{Field: field, Op: op, Value: e[2]}}, nil
	default:
		return nil, &QueryShapeError{Part: "where", Value: el}
	}
}

// equalities expands a field map into equality filters, field-sorted so the
// translated query is deterministic.
func equalities(m map[string]any) []store.Filter {
	fields := make([]string, 0, len(m))
	for f := range m {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	out := make([]store.Filter, 0, len(m))
	for _, f := range fields {
		out = append(out, store.Eq(f, m[f]))
	}
	return out
}

func translateOrderBy(ob any) ([]store.Order, error) {
	switch v := ob.(type) {
	case nil:
		return nil, nil
	case string:
		if v == "" {
			return nil, &QueryShapeError{Part: "orderBy", Value: ob}
		}
		return []store.Order{{Field: v}}, nil
	case store.Order:
		return []store.Order{v}, nil
	case []store.Order:
		return append([]store.Order(nil), v...), nil
	case []string:
		o, ok := orderPair(v)
		if !ok {
			return nil, &QueryShapeError{Part: "orderBy", Value: ob}
		}
		return []store.Order{o}, nil
	case []any:
		// A two-string element list is the single {field, direction} pair;
		// everything else is read as a list of pairs.
		if o, ok := anyOrderPair(v); ok {
			return []store.Order{o}, nil
		}
		out := make([]store.Order, 0, len(v))
		for _, el := range v {
			o, err := orderElement(el)
			if err != nil {
				return nil, err
			}
			out = append(out, o)
		}
		return out, nil
	default:
		return nil, &QueryShapeError{Part: "orderBy", Value: ob}
	}
}

func orderElement(el any) (store.Order, error) {
	switch e := el.(type) {
	case store.Order:
		return e, nil
	case []string:
		if o, ok := orderPair(e); ok {
			return o, nil
		}
	case []any:
		if o, ok := anyOrderPair(e); ok {
			return o, nil
		}
	}
	return store.Order{}, &QueryShapeError{Part: "orderBy", Value: el}
}

func anyOrderPair(v []any) (store.Order, bool) {
	if len(v) != 2 {
		return store.Order{}, false
	}
	field, fok := v[0].(string)
	dir, dok := v[1].(string)
	if !fok || !dok {
		return store.Order{}, false
	}
	return orderPair([]string{field, dir})
}

func orderPair(v []string) (store.Order, bool) {
	if len(v) != 2 || v[0] == "" {
		return store.Order{}, false
	}
	switch {
	case strings.EqualFold(v[1], "asc"):
		return store.Order{Field: v[0]}, true
	case strings.EqualFold(v[1], "desc"):
		return store.Order{Field: v[0], Desc: true}, true
	}
	return store.Order{}, false
}
