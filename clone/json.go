package clone

import "encoding/json"

// JSON deep-copies through an encoding/json round-trip. The zero value is
// ready to use. It is the default cloner: documents are JSON field mappings,
// so the round-trip preserves exactly the fields the stores see.
//
// Note the usual JSON caveats: numbers decode to float64 in untyped maps and
// unexported struct fields are dropped.
type JSON[V any] struct{}

var _ Cloner[struct{}] = JSON[struct{}]{}

func (JSON[V]) Clone(v V) (V, error) {
	b, err := json.Marshal(v)
	if err != nil {
		var zero V
		return zero, err
	}
	var out V
	err = json.Unmarshal(b, &out)
	return out, err
}
