package load

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/buger/jsonparser"
	"github.com/invopop/jsonschema"
)

// Schema represents an entity schema loaded from a JSON Schema document.
type Schema struct {
	// Name is the entity name, derived from the file name.
	Name string `json:"name"`
	// Path is the file the schema was loaded from.
	Path        string `json:"-"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	// Properties holds the declared fields in declaration order.
	Properties []*Property `json:"properties"`
	Required   []string    `json:"required,omitempty"`
	// UniqueCombinations lists groups of fields that must be jointly unique.
	UniqueCombinations [][]string `json:"x-unique-combinations,omitempty"`
	// SearchFields lists the fields accepted as list filters.
	SearchFields []string `json:"x-search-fields,omitempty"`
	// DeletionConstraints lists edge collections whose links block deletion.
	DeletionConstraints []string `json:"x-deletion-constraints,omitempty"`
	// CustomEndpoints lists user-authored operations.
	CustomEndpoints []*CustomEndpoint `json:"x-custom-endpoints,omitempty"`
	// DefaultValues holds entity-level defaults. They take precedence over
	// property defaults.
	DefaultValues map[string]any `json:"x-default-values,omitempty"`
	// FromCollection and ToCollection name the endpoint collections of an
	// edge entity explicitly.
	FromCollection string `json:"x-from-collection,omitempty"`
	ToCollection   string `json:"x-to-collection,omitempty"`
}

// Property represents a single declared field.
type Property struct {
	Name        string `json:"name"`
	Type        string `json:"type,omitempty"`
	Format      string `json:"format,omitempty"`
	Description string `json:"description,omitempty"`
	// Nullable is set when the type union includes "null".
	Nullable bool `json:"nullable,omitempty"`
	// Default holds the declared default. HasDefault distinguishes a null
	// default from none.
	Default    any  `json:"default,omitempty"`
	HasDefault bool `json:"has_default,omitempty"`
	// Enum lists the allowed values, if declared.
	Enum []any `json:"enum,omitempty"`
}

// CustomEndpoint represents an x-custom-endpoints entry.
type CustomEndpoint struct {
	Name        string `json:"name"`
	ExposeRoute bool   `json:"expose_route"`
	RoutePath   string `json:"route_path,omitempty"`
	HTTPMethod  string `json:"http_method,omitempty"`
}

// Property returns the property with the given name, or nil.
func (s *Schema) Property(name string) *Property {
	for _, p := range s.Properties {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// IsRequired reports whether the named property is required.
func (s *Schema) IsRequired(name string) bool {
	return slices.Contains(s.Required, name)
}

// extensions holds the x- keys of a schema document.
type extensions struct {
	UniqueCombinations  [][]string        `json:"x-unique-combinations"`
	SearchFields        []string          `json:"x-search-fields"`
	DeletionConstraints []string          `json:"x-deletion-constraints"`
	CustomEndpoints     []json.RawMessage `json:"x-custom-endpoints"`
	CustomFunctions     []string          `json:"x-custom-functions"`
	CustomRoutes        []string          `json:"x-custom-routes"`
	DefaultValues       map[string]any    `json:"x-default-values"`
	FromCollection      string            `json:"x-from-collection"`
	ToCollection        string            `json:"x-to-collection"`
}

// declaration records what jsonschema.Schema cannot carry for a property:
// a type given as a list and whether a default key is present at all.
type declaration struct {
	types      []string
	union      bool
	nullable   bool
	hasDefault bool
}

// Parse decodes and validates a schema document for the named entity.
func Parse(name string, data []byte) (*Schema, error) {
	fail := func(format string, args ...any) error {
		return &InvalidSchemaError{Name: name, Reason: fmt.Sprintf(format, args...)}
	}
	doc := bytes.TrimSpace(data)
	if len(doc) == 0 || doc[0] != '{' {
		return nil, fail("document must be a JSON object")
	}
	var ext extensions
	if err := json.Unmarshal(doc, &ext); err != nil {
		return nil, &InvalidSchemaError{Name: name, Reason: "malformed JSON", Err: err}
	}
	if raw, dt, _, err := jsonparser.Get(doc, "type"); err == nil {
		types, _, err := parseType(raw, dt)
		if err != nil || len(types) != 1 || types[0] != "object" {
			return nil, fail(`"type" must be "object"`)
		}
		doc = jsonparser.Delete(doc, "type")
	}
	if _, dt, _, err := jsonparser.Get(doc, "properties"); err != nil || dt == jsonparser.Null {
		return nil, fail(`"properties" is missing`)
	}
	decls, err := declarations(doc)
	if err != nil {
		return nil, &InvalidSchemaError{Name: name, Reason: `"properties" must be an object of property declarations`, Err: err}
	}
	for prop, d := range decls {
		if d.union {
			doc = jsonparser.Delete(doc, "properties", prop, "type")
		}
	}
	var js jsonschema.Schema
	if err := json.Unmarshal(doc, &js); err != nil {
		return nil, &InvalidSchemaError{Name: name, Reason: "not a JSON Schema document", Err: err}
	}
	s := &Schema{
		Name:                name,
		Title:               js.Title,
		Description:         js.Description,
		Properties:          properties(&js, decls),
		Required:            js.Required,
		UniqueCombinations:  ext.UniqueCombinations,
		SearchFields:        ext.SearchFields,
		DeletionConstraints: ext.DeletionConstraints,
		DefaultValues:       ext.DefaultValues,
		FromCollection:      ext.FromCollection,
		ToCollection:        ext.ToCollection,
	}
	if s.CustomEndpoints, err = parseEndpoints(ext); err != nil {
		return nil, &InvalidSchemaError{Name: name, Reason: `invalid "x-custom-endpoints"`, Err: err}
	}
	if err := s.validate(); err != nil {
		return nil, &InvalidSchemaError{Name: name, Reason: err.Error()}
	}
	return s, nil
}

// declarations checks that every entry of the properties object is itself
// an object and collects the details jsonschema.Schema drops.
func declarations(doc []byte) (map[string]declaration, error) {
	decls := make(map[string]declaration)
	err := jsonparser.ObjectEach(doc, func(key, value []byte, dt jsonparser.ValueType, _ int) error {
		name := string(key)
		if dt != jsonparser.Object {
			return fmt.Errorf("property %q: expected an object", name)
		}
		var d declaration
		if raw, tdt, _, err := jsonparser.Get(value, "type"); err == nil {
			types, nullable, err := parseType(raw, tdt)
			if err != nil {
				return fmt.Errorf("property %q: %w", name, err)
			}
			d.types, d.nullable, d.union = types, nullable, tdt == jsonparser.Array
		}
		_, _, _, err := jsonparser.Get(value, "default")
		d.hasDefault = err == nil
		decls[name] = d
		return nil
	}, "properties")
	return decls, err
}

// properties flattens the ordered property map of js into declaration order.
func properties(js *jsonschema.Schema, decls map[string]declaration) []*Property {
	if js.Properties == nil {
		return nil
	}
	props := make([]*Property, 0, js.Properties.Len())
	for pair := js.Properties.Oldest(); pair != nil; pair = pair.Next() {
		d := decls[pair.Key]
		prop := &Property{Name: pair.Key, Nullable: d.nullable, HasDefault: d.hasDefault}
		if ps := pair.Value; ps != nil {
			prop.Type = ps.Type
			prop.Format = ps.Format
			prop.Description = ps.Description
			prop.Enum = ps.Enum
			prop.Default = ps.Default
		}
		if d.union && len(d.types) > 0 {
			prop.Type = d.types[0]
		}
		props = append(props, prop)
	}
	return props
}

// parseType reads a "type" value given either as a string or as a list of
// strings. "null" members are reported through nullable.
func parseType(raw []byte, dt jsonparser.ValueType) (types []string, nullable bool, err error) {
	switch dt {
	case jsonparser.String:
		t, err := jsonparser.ParseString(raw)
		if err != nil {
			return nil, false, err
		}
		return []string{t}, false, nil
	case jsonparser.Array:
		var bad bool
		_, err := jsonparser.ArrayEach(raw, func(value []byte, vt jsonparser.ValueType, _ int, _ error) {
			t, perr := jsonparser.ParseString(value)
			switch {
			case vt != jsonparser.String || perr != nil:
				bad = true
			case t == "null":
				nullable = true
			default:
				types = append(types, t)
			}
		})
		if err == nil && !bad {
			return types, nullable, nil
		}
	}
	return nil, false, fmt.Errorf(`"type" must be a string or a list of strings`)
}

// parseEndpoints decodes x-custom-endpoints, falling back to the legacy
// x-custom-functions and x-custom-routes pair.
func parseEndpoints(ext extensions) ([]*CustomEndpoint, error) {
	if len(ext.CustomEndpoints) > 0 {
		eps := make([]*CustomEndpoint, 0, len(ext.CustomEndpoints))
		for _, raw := range ext.CustomEndpoints {
			var ep CustomEndpoint
			if err := json.Unmarshal(raw, &ep); err != nil {
				return nil, err
			}
			var fields map[string]json.RawMessage
			if err := json.Unmarshal(raw, &fields); err != nil {
				return nil, err
			}
			if _, ok := fields["expose_route"]; !ok {
				ep.ExposeRoute = true
			}
			eps = append(eps, ep.withDefaults())
		}
		return eps, nil
	}
	eps := make([]*CustomEndpoint, 0, len(ext.CustomFunctions))
	for _, name := range ext.CustomFunctions {
		ep := CustomEndpoint{Name: name, ExposeRoute: slices.Contains(ext.CustomRoutes, name)}
		eps = append(eps, ep.withDefaults())
	}
	return eps, nil
}

func (ep CustomEndpoint) withDefaults() *CustomEndpoint {
	if ep.HTTPMethod == "" {
		ep.HTTPMethod = "get"
	}
	if ep.RoutePath == "" {
		ep.RoutePath = "/" + ep.Name
	}
	return &ep
}

// validate checks the structural rules of the document. References from
// extension keys are resolved when the entity descriptor is built.
func (s *Schema) validate() error {
	seen := make(map[string]bool, len(s.Properties))
	for _, p := range s.Properties {
		if p.Name == "" {
			return fmt.Errorf("property name must not be empty")
		}
		seen[p.Name] = true
	}
	for _, r := range s.Required {
		if !seen[r] {
			return fmt.Errorf("required field %q is not declared in properties", r)
		}
	}
	names := make(map[string]bool, len(s.CustomEndpoints))
	for _, ep := range s.CustomEndpoints {
		if ep.Name == "" {
			return fmt.Errorf("custom endpoint name must not be empty")
		}
		if names[ep.Name] {
			return fmt.Errorf("custom endpoint %q is declared twice", ep.Name)
		}
		names[ep.Name] = true
	}
	return nil
}
