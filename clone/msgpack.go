package clone

import "github.com/vmihailenco/msgpack/v5"

// Msgpack deep-copies through a vmihailenco/msgpack/v5 round-trip.
// The zero value is ready to use.
//
// Msgpack is compact and fast and, unlike JSON, keeps integer fields integral
// on typed documents. Use `msgpack:"fieldName"` tags for explicit control.
type Msgpack[V any] struct{}

var _ Cloner[struct{}] = Msgpack[struct{}]{}

func (Msgpack[V]) Clone(v V) (V, error) {
	b, err := msgpack.Marshal(v)
	if err != nil {
		var zero V
		return zero, err
	}
	var out V
	err = msgpack.Unmarshal(b, &out)
	return out, err
}
