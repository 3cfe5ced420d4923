package models

import (
	"bytes"
	"encoding/json"
)

// Optional tracks whether a JSON field was present in a payload and whether
// it was explicitly null. The zero value means the field was omitted.
type Optional[T any] struct {
	Value T
	Set   bool
	Null  bool
}

// Some returns an Optional holding v
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Set: true}
}

// Null returns an Optional that was explicitly set to null
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true, Null: true}
}

// UnmarshalJSON is only invoked by encoding/json when the key is present.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		var zero T
		o.Value = zero
		o.Null = true
		return nil
	}
	o.Null = false
	return json.Unmarshal(data, &o.Value)
}

// MarshalJSON renders the value, or null when unset or cleared
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Set || o.Null {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// HasValue reports whether the field was supplied with a non-null value
func (o Optional[T]) HasValue() bool {
	return o.Set && !o.Null
}

// OrNil returns nil when the field was cleared, otherwise the value
func (o Optional[T]) OrNil() interface{} {
	if o.Null {
		return nil
	}
	return o.Value
}
