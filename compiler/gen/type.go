package gen

import (
	"fmt"
	"maps"
	"net/http"
	"regexp"
	"slices"
	"strings"

	"github.com/syssam/crudgen/compiler/load"
	"github.com/syssam/crudgen/crud"
	"github.com/syssam/crudgen/docstore"
)

// Type is the entity descriptor: the metadata derived once from a schema
// and consumed by every artifact generator.
type Type struct {
	*Config
	// Schema is the schema the descriptor was built from.
	Schema *load.Schema
	// Name is the entity (and collection) name.
	Name string
	// Pascal and Camel are the case variants of Name.
	Pascal string
	Camel  string
	// Title and Description document the entity.
	Title       string
	Description string
	// Fields holds the declared properties in declaration order.
	Fields []*Field
	// Required lists the fields that must be present on create.
	Required []string
	// Edge reports whether the entity is a relationship collection.
	Edge bool
	// From and To name the endpoint collections of an edge entity. Both are
	// empty when they could not be determined.
	From string
	To   string
	// UniqueCombinations lists groups of jointly unique fields.
	UniqueCombinations [][]string
	// SearchFields lists the filterable fields; SearchFieldKinds maps each to
	// its kind.
	SearchFields     []string
	SearchFieldKinds map[string]crud.Kind
	// CustomEndpoints lists the user-authored operations.
	CustomEndpoints []*Endpoint
	// DeletionConstraints lists edge collections that block deletion.
	DeletionConstraints []string
	// Defaults holds the scalar defaults applied on create.
	Defaults map[string]any
}

// Endpoint is a custom operation whose body comes from a template.
type Endpoint struct {
	// Name is the endpoint name as declared.
	Name string
	// Method is the upper-case HTTP method of the route.
	Method string
	// Path is the route path relative to the entity group, in gin syntax.
	Path string
	// ExposeRoute reports whether a route is registered for the endpoint.
	ExposeRoute bool
	// Func is the service method name suggested to templates.
	Func string
	// Handler is the name of the handler method the route template defines.
	Handler string
}

// reserved struct members of the response model.
var reservedMembers = map[string]bool{
	"Key": true, "ID": true, "Rev": true, "CreatedAt": true, "UpdatedAt": true,
}

var braceParam = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// NewType creates the descriptor of the given schema. It is pure and
// deterministic: the same schema always yields the same descriptor.
func NewType(c *Config, schema *load.Schema) (*Type, error) {
	if schema == nil {
		return nil, NewSchemaError("", "", "schema is nil", nil)
	}
	name := schema.Name
	if !docstore.ValidIdentifier(name) || !isIdent(Pascal(name)) {
		return nil, NewSchemaError(name, "", "entity name must be a snake_case identifier", nil)
	}
	t := &Type{
		Config:              c,
		Schema:              schema,
		Name:                name,
		Pascal:              Pascal(name),
		Camel:               Camel(name),
		Title:               schema.Title,
		Description:         schema.Description,
		Required:            slices.Clone(schema.Required),
		DeletionConstraints: slices.Clone(schema.DeletionConstraints),
		SearchFieldKinds:    make(map[string]crud.Kind),
		Defaults:            make(map[string]any),
	}
	if t.Title == "" {
		t.Title = title(name)
	}
	if err := t.setFields(); err != nil {
		return nil, err
	}
	if err := t.setConstraints(); err != nil {
		return nil, err
	}
	if err := t.setDefaults(); err != nil {
		return nil, err
	}
	if err := t.setEndpoints(); err != nil {
		return nil, err
	}
	t.setEdge()
	return t, nil
}

func (t *Type) setFields() error {
	members := make(map[string]string, len(t.Schema.Properties))
	for _, p := range t.Schema.Properties {
		f := newField(p, t.Schema.IsRequired(p.Name))
		if f.Reserved() {
			t.Fields = append(t.Fields, f)
			continue
		}
		if reservedMembers[f.structName] {
			f.structName += "Field"
		}
		if other, ok := members[f.structName]; ok {
			return NewSchemaError(t.Name, p.Name, fmt.Sprintf("maps to the same Go name as %q", other), nil)
		}
		members[f.structName] = p.Name
		t.Fields = append(t.Fields, f)
	}
	return nil
}

func (t *Type) setConstraints() error {
	for i, combo := range t.Schema.UniqueCombinations {
		if len(combo) == 0 {
			return NewSchemaError(t.Name, "", fmt.Sprintf("unique combination %d is empty", i), nil)
		}
		for _, name := range combo {
			if t.Field(name) == nil {
				return NewSchemaError(t.Name, name, "unique combination references an undeclared field", nil)
			}
		}
		t.UniqueCombinations = append(t.UniqueCombinations, slices.Clone(combo))
	}
	for _, name := range t.Schema.SearchFields {
		f := t.Field(name)
		if f == nil {
			return NewSchemaError(t.Name, name, "search field references an undeclared field", nil)
		}
		if _, dup := t.SearchFieldKinds[name]; dup {
			continue
		}
		t.SearchFields = append(t.SearchFields, name)
		t.SearchFieldKinds[name] = f.Kind
	}
	for _, coll := range t.DeletionConstraints {
		if !docstore.ValidIdentifier(coll) {
			return NewSchemaError(t.Name, "", fmt.Sprintf("deletion constraint %q is not a collection name", coll), nil)
		}
	}
	return nil
}

// setDefaults merges property defaults with x-default-values, the latter
// taking precedence. Null defaults are ignored.
func (t *Type) setDefaults() error {
	for _, f := range t.Fields {
		if !f.HasDefault || f.Default == nil {
			continue
		}
		if !scalar(f.Default) {
			return NewSchemaError(t.Name, f.Name, "default must be a string, number or boolean", nil)
		}
		t.Defaults[f.Name] = f.Default
	}
	for _, name := range slices.Sorted(maps.Keys(t.Schema.DefaultValues)) {
		v := t.Schema.DefaultValues[name]
		f := t.Field(name)
		if f == nil {
			return NewSchemaError(t.Name, name, "default value references an undeclared field", nil)
		}
		if v == nil {
			continue
		}
		if !scalar(v) {
			return NewSchemaError(t.Name, name, "default must be a string, number or boolean", nil)
		}
		f.Default, f.HasDefault = v, true
		t.Defaults[name] = v
	}
	return nil
}

func (t *Type) setEndpoints() error {
	handlers := make(map[string]string, len(t.Schema.CustomEndpoints))
	for _, ep := range t.Schema.CustomEndpoints {
		method := strings.ToUpper(ep.HTTPMethod)
		if !slices.Contains(methods, method) {
			return NewSchemaError(t.Name, "", fmt.Sprintf("custom endpoint %q has unsupported method %q", ep.Name, ep.HTTPMethod), nil)
		}
		e := &Endpoint{
			Name:        ep.Name,
			Method:      method,
			Path:        routePath(ep.RoutePath),
			ExposeRoute: ep.ExposeRoute,
			Func:        goIdent(ep.Name),
		}
		e.Handler = "custom" + e.Func
		if other, ok := handlers[e.Handler]; ok {
			return NewSchemaError(t.Name, "", fmt.Sprintf("custom endpoints %q and %q map to the same handler", other, ep.Name), nil)
		}
		handlers[e.Handler] = ep.Name
		t.CustomEndpoints = append(t.CustomEndpoints, e)
	}
	return nil
}

// setEdge classifies the entity. Endpoint collections come from the explicit
// extension keys, then from a two-segment entity name.
func (t *Type) setEdge() {
	t.Edge = t.Field(docstore.FieldFrom) != nil && t.Field(docstore.FieldTo) != nil
	if !t.Edge {
		return
	}
	if segs := strings.Split(t.Name, "_"); len(segs) == 2 && segs[0] != "" && segs[1] != "" {
		t.From, t.To = segs[0], segs[1]
	}
	if t.Schema.FromCollection != "" {
		t.From = t.Schema.FromCollection
	}
	if t.Schema.ToCollection != "" {
		t.To = t.Schema.ToCollection
	}
	if t.From == "" || t.To == "" {
		t.From, t.To = "", ""
	}
}

var methods = []string{
	http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch,
	http.MethodDelete, http.MethodHead, http.MethodOptions,
}

// routePath converts a declared route path to gin syntax: "{key}" segments
// become ":key".
func routePath(p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return braceParam.ReplaceAllString(p, ":$1")
}

// =============================================================================
// Type methods
// =============================================================================

// Field returns the field with the given name, or nil.
func (t *Type) Field(name string) *Field {
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// InputFields returns the fields callers may supply: every declared field
// except the ones maintained by the store and the service.
func (t *Type) InputFields() []*Field {
	fields := make([]*Field, 0, len(t.Fields))
	for _, f := range t.Fields {
		if !f.Reserved() {
			fields = append(fields, f)
		}
	}
	return fields
}

// Traversable reports whether the edge lookups by endpoint are generated.
func (t *Type) Traversable() bool {
	return t.Edge && t.From != "" && t.To != ""
}

// Searchable reports whether the entity declares search fields.
func (t *Type) Searchable() bool {
	return len(t.SearchFields) > 0
}

// HasCustom reports whether the entity declares custom endpoints.
func (t *Type) HasCustom() bool {
	return len(t.CustomEndpoints) > 0
}

// ExposedEndpoints returns the custom endpoints that get a route.
func (t *Type) ExposedEndpoints() []*Endpoint {
	var eps []*Endpoint
	for _, ep := range t.CustomEndpoints {
		if ep.ExposeRoute {
			eps = append(eps, ep)
		}
	}
	return eps
}

// Plural returns the plural form of the entity name.
func (t *Type) Plural() string { return plural(t.Name) }

// RoutePath returns the path of the entity route group.
func (t *Type) RoutePath() string {
	prefix := ""
	if t.Config != nil {
		prefix = t.RoutePrefix
	}
	return prefix + "/" + t.Plural()
}

// ModelName returns the name of the response model.
func (t *Type) ModelName() string { return t.Pascal }

// CreateName returns the name of the create input model.
func (t *Type) CreateName() string { return t.Pascal + "Create" }

// UpdateName returns the name of the update input model.
func (t *Type) UpdateName() string { return t.Pascal + "Update" }

// ServiceName returns the name of the generated service type.
func (t *Type) ServiceName() string { return t.Pascal + "Service" }

// EntityVar returns the name of the crud.Entity variable of the service.
func (t *Type) EntityVar() string { return t.Pascal + "Entity" }

// HandlerName returns the name of the generated handler type.
func (t *Type) HandlerName() string { return t.Camel + "Handler" }

// RegisterFunc returns the name of the route registration function.
func (t *Type) RegisterFunc() string { return "Register" + t.Pascal + "Routes" }

// ModelFile returns the file name of the model artifact.
func (t *Type) ModelFile() string { return modelFile(t.Name) }

// ServiceFile returns the file name of the service artifact.
func (t *Type) ServiceFile() string { return serviceFile(t.Name) }

// RoutesFile returns the file name of the routes artifact.
func (t *Type) RoutesFile() string { return routesFile(t.Name) }

func modelFile(name string) string   { return name + ".go" }
func serviceFile(name string) string { return name + "_service.go" }
func routesFile(name string) string  { return name + "_routes.go" }
