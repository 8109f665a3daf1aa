package crud

import (
	"slices"
	"strings"

	"github.com/syssam/crudgen/docstore"
)

// Timestamp fields maintained by the service.
const (
	FieldCreatedAt = "created_at"
	FieldUpdatedAt = "updated_at"
)

// EdgeAliases maps the endpoint names accepted on edge writes to the
// storage-level link fields.
var EdgeAliases = map[string]string{
	"from": docstore.FieldFrom,
	"to":   docstore.FieldTo,
}

// Entity describes a collection managed by a Service. Generated services
// declare one Entity literal per schema.
type Entity struct {
	// Name is the collection name.
	Name string
	// Edge marks relationship collections holding _from and _to links.
	Edge bool
	// From and To name the endpoint collections of an edge entity. They are
	// empty when the endpoints could not be derived from the name.
	From, To string
	// Required lists fields that must be present on create.
	Required []string
	// UniqueCombinations lists groups of fields whose joint values must be
	// unique across the collection.
	UniqueCombinations [][]string
	// SearchFields maps filterable fields to their kind.
	SearchFields map[string]Kind
	// Defaults holds values applied to fields absent on create.
	Defaults map[string]any
	// DeletionConstraints lists edge collections whose links block deletion.
	DeletionConstraints []string
}

// Traversable reports whether the edge lookups by endpoint are available.
func (e Entity) Traversable() bool {
	return e.Edge && e.From != "" && e.To != ""
}

// Searchable reports whether field is declared as a search field.
func (e Entity) Searchable(field string) bool {
	_, ok := e.SearchFields[field]
	return ok
}

// IsIdentifierField reports whether field holds an identifier. Identifier
// fields always match exactly when filtering, even when they are strings.
func IsIdentifierField(field string) bool {
	switch field {
	case docstore.FieldKey, docstore.FieldID, docstore.FieldFrom, docstore.FieldTo:
		return true
	}
	return strings.HasSuffix(field, "_id") || strings.HasSuffix(field, "_key")
}

// endpointID returns the _id form of an endpoint reference. Bare keys are
// qualified with the endpoint collection when it is known.
func endpointID(collection, ref string) string {
	if collection == "" || strings.Contains(ref, "/") {
		return ref
	}
	return docstore.ID(collection, ref)
}

// searchFieldNames returns the search fields in a stable order.
func (e Entity) searchFieldNames() []string {
	names := make([]string, 0, len(e.SearchFields))
	for name := range e.SearchFields {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
