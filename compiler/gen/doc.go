// Package gen turns loaded entity schemas into CRUD artifacts.
//
// # Architecture
//
// The code generation pipeline follows this flow:
//
//	Schema Document ({entity}.schema.json)
//	        ↓
//	   load.Schema (compiler/load)
//	        ↓
//	   Type (entity descriptor)
//	        ↓
//	   Dialect (model, service and routes as *jen.File)
//	        ↓
//	   Generator (concurrent in-memory render + custom templates)
//	        ↓
//	   Emitter (files, manifest, registries, collections.json)
//
// # Key Types
//
//   - Type: Derived metadata of one entity: case variants, fields and
//     kinds, edge classification, unique combinations, search fields,
//     custom endpoints, deletion constraints and defaults
//   - Field: Declared property with its semantic crud.Kind
//   - Fragment: Operation unit included in an artifact by a predicate
//   - Config: Global configuration for code generation
//   - Manifest: Generated entities, source of the shared registries
//
// # Interface Hierarchy
//
//	Dialect
//	├── Name() string
//	├── EntityGenerator
//	│   └── GenModel, GenService, GenRoutes
//	└── RegistryGenerator
//	    └── GenRouteRegistry, GenModelIndex
//
// # Error Handling
//
// The package uses structured error types:
//
//   - SchemaError: The schema cannot produce a descriptor (ErrInvalidSchema)
//   - ConfigError: Configuration errors (ErrMissingConfig)
//   - TemplateError: Custom endpoint template missing (ErrMissingTemplate)
//     or failing to render
//   - GenerationError: Rendering or writing failed (ErrGenerationFailed)
//
// Example error handling:
//
//	t, err := gen.NewType(cfg, schema)
//	if err != nil {
//	    if errors.Is(err, gen.ErrInvalidSchema) {
//	        // Report the schema problem
//	    }
//	    return err
//	}
//
// # Configuration
//
// Configuration is done via the functional options pattern:
//
//	cfg, err := gen.NewConfig(
//	    gen.WithTarget("./api"),
//	    gen.WithPackage("example.com/app/api"),
//	    gen.WithTemplates("./templates"),
//	)
//
// # Custom Endpoints
//
// Every custom endpoint needs a text/template file at
// {templates}/custom/{name}.service.tmpl, and one at
// {templates}/custom/{name}.route.tmpl when its route is exposed. The
// rendered code is appended to the service and routes artifacts. A route
// template must define the handler method named by Endpoint.Handler.
package gen
