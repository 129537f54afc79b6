package types

import "encoding/json"

// Field records whether a key was present in a decoded JSON object.
// An explicit null is present with the zero value.
type Field[T any] struct {
	Set   bool
	Value T
}

// Some returns a present field holding v.
func Some[T any](v T) Field[T] {
	return Field[T]{Set: true, Value: v}
}

func (f *Field[T]) UnmarshalJSON(data []byte) error {
	f.Set = true
	if string(data) == "null" {
		var zero T
		f.Value = zero
		return nil
	}
	return json.Unmarshal(data, &f.Value)
}

func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.Set {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// ApplyTo overwrites *dst with the field value when the field was present.
func (f Field[T]) ApplyTo(dst *T) {
	if f.Set {
		*dst = f.Value
	}
}
