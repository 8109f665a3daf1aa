package crud

// Kind is the semantic type of a schema field. It drives the Go type of
// generated model fields and the matching rule used when filtering.
type Kind string

// Supported kinds.
const (
	KindString   Kind = "string"
	KindDateTime Kind = "date-time"
	KindDate     Kind = "date"
	KindEmail    Kind = "email"
	KindURI      Kind = "uri"
	KindUUID     Kind = "uuid"
	KindInteger  Kind = "integer"
	KindNumber   Kind = "number"
	KindBoolean  Kind = "boolean"
	KindArray    Kind = "array"
	KindObject   Kind = "object"
	KindAny      Kind = "any"
)

// Textual reports whether values of the kind are JSON strings.
func (k Kind) Textual() bool {
	switch k {
	case KindString, KindDateTime, KindDate, KindEmail, KindURI, KindUUID:
		return true
	default:
		return false
	}
}

// Valid reports whether k is one of the supported kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindString, KindDateTime, KindDate, KindEmail, KindURI, KindUUID,
		KindInteger, KindNumber, KindBoolean, KindArray, KindObject, KindAny:
		return true
	default:
		return false
	}
}

// String implements fmt.Stringer.
func (k Kind) String() string { return string(k) }
