package gen

import "github.com/dave/jennifer/jen"

// =============================================================================
// Interface Segregation: per-entity and registry generation
// =============================================================================

// EntityGenerator generates the per-entity artifacts.
// Each method is called once per entity.
type EntityGenerator interface {
	// GenModel generates the validation models (models/{entity}.go)
	GenModel(t *Type) *jen.File
	// GenService generates the data-access service (services/{entity}_service.go)
	GenService(t *Type) *jen.File
	// GenRoutes generates the HTTP handlers (routes/{entity}_routes.go)
	GenRoutes(t *Type) *jen.File
}

// RegistryGenerator generates the files shared by every entity.
// Each method is called after the manifest changed.
type RegistryGenerator interface {
	// GenRouteRegistry generates routes/zz_registry.go
	GenRouteRegistry(m *Manifest) *jen.File
	// GenModelIndex generates models/zz_index.go
	GenModelIndex(m *Manifest) *jen.File
}

// Dialect generates the Go sources of one HTTP framework.
//
// Architecture:
//
//	┌──────────────────────────────┐
//	│          Generator           │  render in memory, concurrently
//	└──────────────┬───────────────┘
//	               │ uses
//	               ▼
//	┌──────────────────────────────┐
//	│           Dialect            │  *jen.File per artifact
//	└──────────────┬───────────────┘
//	               │ implemented by
//	               ▼
//	        ┌─────────────┐
//	        │   ginapi    │
//	        └─────────────┘
//
// Usage:
//
//	g := gen.NewGenerator(cfg)
//	g.WithDialect(ginapi.NewDialect(g))
type Dialect interface {
	// Name returns the dialect name (e.g., "gin")
	Name() string
	EntityGenerator
	RegistryGenerator
}

// GeneratorHelper provides helper methods for dialect implementations.
// Generator implements this interface, allowing dialect packages to share
// the configuration without importing the orchestration code.
type GeneratorHelper interface {
	// NewFile creates a new Jennifer file with the standard header comment.
	NewFile(pkg string) *jen.File

	// GoType returns the Jennifer code for a field's Go type.
	GoType(f *Field) jen.Code

	// Config returns the generation configuration.
	Config() *Config

	// ModelsPkg returns the import path of the generated models package.
	ModelsPkg() string

	// ServicesPkg returns the import path of the generated services package.
	ServicesPkg() string

	// RoutesPkg returns the import path of the generated routes package.
	RoutesPkg() string
}

// Runtime import paths used by generated code.
const (
	CrudPkg     = "github.com/syssam/crudgen/crud"
	GinxPkg     = "github.com/syssam/crudgen/crud/ginx"
	DocstorePkg = "github.com/syssam/crudgen/docstore"
)
