package gen

import (
	"strings"

	"github.com/syssam/crudgen/compiler/load"
	"github.com/syssam/crudgen/crud"
	"github.com/syssam/crudgen/docstore"
)

// Field is a declared property of an entity.
type Field struct {
	// Name is the JSON name of the field.
	Name string
	// Kind is the semantic type derived from the declared type and format.
	Kind crud.Kind
	// Format is the declared format, if any.
	Format      string
	Description string
	// Required reports whether the field must be supplied on create.
	Required bool
	// Nullable reports whether the declared type admits null.
	Nullable bool
	// Default holds the scalar default applied on create. HasDefault
	// distinguishes a null default from none.
	Default    any
	HasDefault bool
	// Enum lists the allowed values, if declared.
	Enum []any

	structName string
}

// =============================================================================
// Field methods
// =============================================================================

// StructField returns the Go struct member name of the field.
func (f *Field) StructField() string { return f.structName }

// Reserved reports whether the field is maintained by the store or the
// service rather than supplied by callers.
func (f *Field) Reserved() bool {
	switch f.Name {
	case docstore.FieldKey, docstore.FieldID, docstore.FieldRev, crud.FieldCreatedAt, crud.FieldUpdatedAt:
		return true
	}
	return false
}

// Link reports whether the field is one of the _from and _to edge links.
func (f *Field) Link() bool {
	return f.Name == docstore.FieldFrom || f.Name == docstore.FieldTo
}

// Identifier reports whether the field holds an identifier. Identifier
// fields are matched exactly when filtering.
func (f *Field) Identifier() bool { return crud.IsIdentifierField(f.Name) }

// GoType returns the Go type of the field in generated models.
func (f *Field) GoType() GoType { return goTypes[f.Kind] }

// BindingTag returns the value of the binding struct tag of the field in
// generated input models, or "" when no validator applies.
func (f *Field) BindingTag() string {
	var rules []string
	switch f.Kind {
	case crud.KindEmail:
		rules = append(rules, "email")
	case crud.KindURI:
		rules = append(rules, "uri")
	case crud.KindUUID:
		rules = append(rules, "uuid")
	case crud.KindDate:
		rules = append(rules, "datetime=2006-01-02")
	}
	if len(f.Enum) > 0 && f.Kind.Textual() {
		if oneof := enumRule(f.Enum); oneof != "" {
			rules = append(rules, oneof)
		}
	}
	if len(rules) == 0 {
		return ""
	}
	return "omitempty," + strings.Join(rules, ",")
}

// enumRule returns a oneof validator for string enums. It returns "" when a
// value cannot be expressed by the validator.
func enumRule(values []any) string {
	words := make([]string, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if s == "" || strings.ContainsAny(s, " ,'|") {
			return ""
		}
		words = append(words, s)
	}
	if len(words) == 0 {
		return ""
	}
	return "oneof=" + strings.Join(words, " ")
}

// GoType describes the Go representation of a kind.
type GoType struct {
	// PkgPath is the import path of the type, or "" for builtins.
	PkgPath string
	// Name is the type name, qualified by PkgPath when set.
	Name string
}

// String returns the type as written in Go source.
func (t GoType) String() string {
	if t.PkgPath == "" {
		return t.Name
	}
	return t.PkgPath[strings.LastIndex(t.PkgPath, "/")+1:] + "." + t.Name
}

var goTypes = map[crud.Kind]GoType{
	crud.KindString:   {Name: "string"},
	crud.KindDateTime: {PkgPath: "time", Name: "Time"},
	crud.KindDate:     {Name: "string"},
	crud.KindEmail:    {Name: "string"},
	crud.KindURI:      {Name: "string"},
	crud.KindUUID:     {Name: "string"},
	crud.KindInteger:  {Name: "int64"},
	crud.KindNumber:   {Name: "float64"},
	crud.KindBoolean:  {Name: "bool"},
	crud.KindArray:    {Name: "[]any"},
	crud.KindObject:   {Name: "map[string]any"},
	crud.KindAny:      {Name: "any"},
}

// KindOf maps a declared JSON Schema type and format to a semantic kind.
// Unknown types map to crud.KindAny.
func KindOf(typ, format string) crud.Kind {
	switch typ {
	case "string":
		switch format {
		case "date-time":
			return crud.KindDateTime
		case "date":
			return crud.KindDate
		case "email":
			return crud.KindEmail
		case "uri":
			return crud.KindURI
		case "uuid":
			return crud.KindUUID
		}
		return crud.KindString
	case "integer":
		return crud.KindInteger
	case "number":
		return crud.KindNumber
	case "boolean":
		return crud.KindBoolean
	case "array":
		return crud.KindArray
	case "object":
		return crud.KindObject
	}
	return crud.KindAny
}

func newField(p *load.Property, required bool) *Field {
	return &Field{
		Name:        p.Name,
		Kind:        KindOf(p.Type, p.Format),
		Format:      p.Format,
		Description: p.Description,
		Required:    required,
		Nullable:    p.Nullable,
		Default:     p.Default,
		HasDefault:  p.HasDefault,
		Enum:        p.Enum,
		structName:  goIdent(p.Name),
	}
}

// scalar reports whether v is a JSON string, number or boolean.
func scalar(v any) bool {
	switch v.(type) {
	case string, bool, float64, float32, int, int64, int32:
		return true
	}
	return false
}
