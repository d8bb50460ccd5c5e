package clone

import "google.golang.org/protobuf/proto"

// Protobuf deep-copies protobuf message documents.
type Protobuf[T proto.Message] struct {
	new func() T // constructor for a concrete message (e.g., func() *mypb.User { return &mypb.User{} })
}

func NewProtobuf[T proto.Message](ctor func() T) Protobuf[T] {
	return Protobuf[T]{new: ctor}
}

func (c Protobuf[T]) Clone(v T) (T, error) {
	b, err := proto.Marshal(v)
	if err != nil {
		var zero T
		return zero, err
	}
	m := c.new()
	err = proto.Unmarshal(b, m)
	return m, err
}
