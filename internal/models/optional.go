package models

import (
	"bytes"
	"encoding/json"
)

// Optional is a patch field that distinguishes a field left out of a request
// (Set == false) from one explicitly set to null (Set && Null).
type Optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// Some returns an Optional holding v
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}

// Null returns an Optional that clears the field
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true, Null: true}
}

// UnmarshalJSON is only invoked when the key is present in the document
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Null = true
		var zero T
		o.Value = zero
		return nil
	}
	o.Null = false
	return json.Unmarshal(data, &o.Value)
}

// Apply writes the patched value into dst when the field was provided.
// A null clears dst to nil.
func (o Optional[T]) Apply(dst **T) {
	if !o.Set {
		return
	}
	if o.Null {
		*dst = nil
		return
	}
	v := o.Value
	*dst = &v
}

// ApplyValue writes the value into a non-nullable dst when provided and not null.
// It reports whether a null was supplied for a field that cannot be cleared.
func (o Optional[T]) ApplyValue(dst *T) (nullRejected bool) {
	if !o.Set {
		return false
	}
	if o.Null {
		return true
	}
	*dst = o.Value
	return false
}
