// Package match evaluates store filters and orderings against the JSON field
// mapping of a document. Numeric values are coerced to float64 before
// comparison so that caller-supplied ints match json-decoded numbers.
package match

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/unkn0wn-root/doccache/store"
)

// Matches reports whether fields satisfies every filter (conjunction).
// An unknown operator is an error.
func Matches(fields map[string]any, filters []store.Filter) (bool, error) {
	for _, f := range filters {
		ok, err := matchOne(fields[f.Field], f)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func matchOne(have any, f store.Filter) (bool, error) {
	switch f.Op {
	case store.OpEq:
		return equal(have, f.Value), nil
	case store.OpNotEq:
		return !equal(have, f.Value), nil
	case store.OpLt, store.OpLtEq, store.OpGt, store.OpGtEq:
		c, ok := compare(have, f.Value)
		if !ok {
			return false, nil // incomparable values never satisfy an ordering op
		}
		switch f.Op {
		case store.OpLt:
			return c < 0, nil
		case store.OpLtEq:
			return c <= 0, nil
		case store.OpGt:
			return c > 0, nil
		default:
			return c >= 0, nil
		}
	case store.OpIn, store.OpNotIn:
		members, err := Elements(f.Value)
		if err != nil {
			return false, fmt.Errorf("match: operator %q: %w", f.Op, err)
		}
		in := false
		for _, m := range members {
			if equal(have, m) {
				in = true
				break
			}
		}
		if f.Op == store.OpIn {
			return in, nil
		}
		return !in, nil
	default:
		return false, fmt.Errorf("match: unknown operator %q", f.Op)
	}
}

// Sort orders docs in place, primary key first. fieldsOf resolves the JSON
// field mapping of each element. The sort is stable so that equal keys keep
// the store's incoming order.
func Sort[V any](docs []V, orders []store.Order, fieldsOf func(V) map[string]any) {
	if len(orders) == 0 {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		return Less(fieldsOf(docs[i]), fieldsOf(docs[j]), orders)
	})
}

// Less reports whether a sorts before b under orders.
func Less(a, b map[string]any, orders []store.Order) bool {
	for _, o := range orders {
		c, ok := compare(a[o.Field], b[o.Field])
		if !ok || c == 0 {
			continue
		}
		if o.Desc {
			return c > 0
		}
		return c < 0
	}
	return false
}

func equal(a, b any) bool {
	if c, ok := compare(a, b); ok {
		return c == 0
	}
	return reflect.DeepEqual(a, b)
}

// compare returns (-1|0|1, true) for values it can order: nil (smallest),
// bools (false < true), numbers, strings. Mixed or unsupported kinds return
// ok=false.
func compare(a, b any) (int, bool) {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0, true
		case a == nil:
			return -1, true
		default:
			return 1, true
		}
	}
	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		switch {
		case av < bv:
			return -1, true
		case av > bv:
			return 1, true
		default:
			return 0, true
		}
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case av == bv:
			return 0, true
		case !av:
			return -1, true
		default:
			return 1, true
		}
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

// Elements flattens a membership-operator value into its members.
func Elements(v any) ([]any, error) {
	if vs, ok := v.([]any); ok {
		return vs, nil
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, fmt.Errorf("value %T is not a list", v)
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}
