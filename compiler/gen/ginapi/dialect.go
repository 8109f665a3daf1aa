// Package ginapi implements the gin dialect of the generator: validation
// models, typed services over the crud runtime and gin route handlers.
//
// Usage:
//
//	import (
//	    "github.com/syssam/crudgen/compiler/gen"
//	    "github.com/syssam/crudgen/compiler/gen/ginapi"
//	)
//
//	g := gen.NewGenerator(cfg)
//	g.WithDialect(ginapi.NewDialect(g))
//
// Generated code structure:
//
//	{target}/
//	├── models/
//	│   ├── {entity}.go           # Create, Update and response models
//	│   └── zz_index.go           # Model index of every entity
//	├── services/
//	│   └── {entity}_service.go   # crud.Entity and typed service
//	├── routes/
//	│   ├── {entity}_routes.go    # Handlers and Register{Entity}Routes
//	│   ├── registry.yaml         # Entity manifest
//	│   └── zz_registry.go        # RegisterAll
//	└── config/
//	    └── collections.json      # Collection inventory
package ginapi

import (
	"github.com/dave/jennifer/jen"

	"github.com/syssam/crudgen/compiler/gen"
)

// Import paths of the libraries referenced by generated code.
const (
	ginPkg  = "github.com/gin-gonic/gin"
	httpPkg = "net/http"
)

// Dialect implements gen.Dialect for gin.
type Dialect struct {
	helper gen.GeneratorHelper
}

// NewDialect creates a new gin dialect generator.
// The helper parameter should be a *gen.Generator.
func NewDialect(helper gen.GeneratorHelper) *Dialect {
	return &Dialect{helper: helper}
}

// Name returns the dialect name.
func (d *Dialect) Name() string {
	return "gin"
}

// =============================================================================
// Per-entity generation methods
// =============================================================================

// GenModel generates the models file (models/{entity}.go).
// Includes: {Entity}Create, {Entity}Update and the {Entity} response model.
func (d *Dialect) GenModel(t *gen.Type) *jen.File {
	return genModel(d.helper, t)
}

// GenService generates the service file (services/{entity}_service.go).
// Includes: the crud.Entity descriptor and the typed {Entity}Service.
func (d *Dialect) GenService(t *gen.Type) *jen.File {
	return genService(d.helper, t)
}

// GenRoutes generates the routes file (routes/{entity}_routes.go).
// Includes: the handler type and Register{Entity}Routes.
func (d *Dialect) GenRoutes(t *gen.Type) *jen.File {
	return genRoutes(d.helper, t)
}

// =============================================================================
// Registry generation methods
// =============================================================================

// GenRouteRegistry generates routes/zz_registry.go.
func (d *Dialect) GenRouteRegistry(m *gen.Manifest) *jen.File {
	return genRouteRegistry(d.helper, m)
}

// GenModelIndex generates models/zz_index.go.
func (d *Dialect) GenModelIndex(m *gen.Manifest) *jen.File {
	return genModelIndex(d.helper, m)
}

// Verify Dialect implements gen.Dialect at compile time.
var _ gen.Dialect = (*Dialect)(nil)
