// Package docstore defines the document-store contract consumed by the crud
// runtime and by generated services, together with the structured query
// model shared by every backend.
//
// A store holds named collections of JSON documents. Each document carries the
// reserved fields below; backends own their values:
//
//	_key  primary key, unique inside the collection
//	_id   "<collection>/<key>"
//	_rev  revision, replaced on every write
//
// Edge collections additionally hold _from and _to link fields that point at
// documents of other collections using their _id form.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Reserved document fields.
const (
	FieldKey  = "_key"
	FieldID   = "_id"
	FieldRev  = "_rev"
	FieldFrom = "_from"
	FieldTo   = "_to"
)

// Sentinel errors returned by every Store implementation.
var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("docstore: document not found")
	// ErrUniqueViolation is returned when a write breaks a unique index.
	ErrUniqueViolation = errors.New("docstore: unique constraint violation")
	// ErrCollectionNotFound is returned when a collection does not exist.
	ErrCollectionNotFound = errors.New("docstore: collection not found")
	// ErrInvalidIdentifier is returned for collection or field names that
	// cannot be used by the backend.
	ErrInvalidIdentifier = errors.New("docstore: invalid identifier")
	// ErrUnsupportedFilter is returned when a condition cannot be evaluated.
	ErrUnsupportedFilter = errors.New("docstore: unsupported filter")
)

// Store is a document/graph capable datastore.
type Store interface {
	// HasCollection reports whether the named collection exists.
	HasCollection(ctx context.Context, name string) (bool, error)
	// CreateCollection creates a document collection, or an edge collection
	// when edge is true.
	CreateCollection(ctx context.Context, name string, edge bool) error
	// DropCollection removes a collection and all of its documents.
	DropCollection(ctx context.Context, name string) error
	// EnsureUniqueIndex creates a persistent unique index over fields.
	EnsureUniqueIndex(ctx context.Context, name string, fields []string) error
	// Get returns the document stored under key.
	Get(ctx context.Context, name, key string) (Document, error)
	// Insert stores a new document and returns it with its identity fields.
	Insert(ctx context.Context, name string, doc Document) (Document, error)
	// Replace overwrites the document stored under key.
	Replace(ctx context.Context, name, key string, doc Document) (Document, error)
	// Delete removes the document stored under key.
	Delete(ctx context.Context, name, key string) error
	// Find runs q against the collection.
	Find(ctx context.Context, name string, q Query) (Cursor, error)
	// Close releases the resources held by the store.
	Close(ctx context.Context) error
}

// Document is a single JSON document.
type Document map[string]any

// Key returns the primary key of the document, or "" if it has none.
func (d Document) Key() string {
	k, _ := d[FieldKey].(string)
	return k
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	return cloneValue(map[string]any(d)).(map[string]any)
}

func cloneValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(v))
		for k, e := range v {
			m[k] = cloneValue(e)
		}
		return m
	case Document:
		return Document(cloneValue(map[string]any(v)).(map[string]any))
	case []any:
		s := make([]any, len(v))
		for i, e := range v {
			s[i] = cloneValue(e)
		}
		return s
	default:
		return v
	}
}

// Normalize returns a copy of d in its JSON representation: numbers become
// float64, nested structures become map[string]any and []any, and values
// with custom marshalers (time.Time, for example) are encoded.
func Normalize(d Document) (Document, error) {
	buf, err := json.Marshal(map[string]any(d))
	if err != nil {
		return nil, fmt.Errorf("docstore: encode document: %w", err)
	}
	var out Document
	if err := json.Unmarshal(buf, &out); err != nil {
		return nil, fmt.Errorf("docstore: decode document: %w", err)
	}
	return out, nil
}

// ID returns the _id value for key inside the named collection.
func ID(collection, key string) string {
	return collection + "/" + key
}

// SplitID splits an _id value into its collection and key parts.
func SplitID(id string) (collection, key string, ok bool) {
	return strings.Cut(id, "/")
}

// Stamp sets the identity fields of doc for the given collection and key and
// assigns a fresh revision.
func Stamp(doc Document, collection, key string) {
	doc[FieldKey] = key
	doc[FieldID] = ID(collection, key)
	doc[FieldRev] = NewRev()
}

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdentifier reports whether s can be used as a collection or field name
// by every backend.
func ValidIdentifier(s string) bool {
	return len(s) <= 128 && identifierRe.MatchString(s)
}

// CheckIdentifier returns ErrInvalidIdentifier wrapped with s when s is not a
// valid identifier.
func CheckIdentifier(s string) error {
	if !ValidIdentifier(s) {
		return fmt.Errorf("%w: %q", ErrInvalidIdentifier, s)
	}
	return nil
}
