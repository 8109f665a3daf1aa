package crud

import (
	"bytes"
	"encoding/json"
)

// Nullable is a record field that is either absent, explicitly null or set
// to a value. Generated record models declare their fields as Nullable with
// the omitzero json option, so a stored null is written back as null while
// a field that was never stored is left out.
type Nullable[T any] struct {
	Value T
	// Valid is true when Value holds a non-null value.
	Valid bool
	// Present is true when the field was present, null or not.
	Present bool
}

// Some returns a Nullable holding v.
func Some[T any](v T) Nullable[T] {
	return Nullable[T]{Value: v, Valid: true, Present: true}
}

// Null returns a Nullable holding an explicit null.
func Null[T any]() Nullable[T] {
	return Nullable[T]{Present: true}
}

// Get returns the value and whether it is set and non-null.
func (n Nullable[T]) Get() (T, bool) { return n.Value, n.Valid }

// IsNull reports whether the field was present with a null value.
func (n Nullable[T]) IsNull() bool { return n.Present && !n.Valid }

// IsZero reports whether the field was absent. encoding/json consults it
// for omitzero.
func (n Nullable[T]) IsZero() bool { return !n.Present }

// MarshalJSON implements json.Marshaler.
func (n Nullable[T]) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	var zero T
	n.Value, n.Valid, n.Present = zero, false, true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(data, &n.Value); err != nil {
		return err
	}
	n.Valid = true
	return nil
}
