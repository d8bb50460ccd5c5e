// Package clone provides the deep-copy operation applied at every cache
// boundary of doccache. A cached document must never share memory with a
// caller-visible one, so documents are cloned on the way into the cache and
// again on the way out.
//
// The bundled cloners copy through a serialize round-trip. For hot paths,
// implement Cloner (or wrap a function with Func) with a hand-written
// structural copy of your concrete document type.
package clone

// Cloner produces an independent deep copy of V. Clone must not return a
// value that shares any mutable memory with its input.
type Cloner[V any] interface {
	Clone(V) (V, error)
}

// Func adapts a plain function to the Cloner interface.
type Func[V any] func(V) (V, error)

func (f Func[V]) Clone(v V) (V, error) { return f(v) }
