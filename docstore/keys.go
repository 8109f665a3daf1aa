package docstore

import (
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// KeyFunc generates primary keys for documents inserted without a _key.
type KeyFunc func() string

// ULIDKey generates lexicographically sortable ULID keys. It is the default.
func ULIDKey() string {
	return ulid.Make().String()
}

// UUIDKey generates random UUID v4 keys.
func UUIDKey() string {
	return uuid.NewString()
}

// KeyGenerator returns the KeyFunc registered under name ("ulid" or "uuid").
func KeyGenerator(name string) (KeyFunc, bool) {
	switch name {
	case "", "ulid":
		return ULIDKey, true
	case "uuid":
		return UUIDKey, true
	default:
		return nil, false
	}
}

// NewRev returns a fresh document revision.
func NewRev() string {
	return ulid.Make().String()
}
