package ginapi

import (
	"bytes"
	"context"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/dave/jennifer/jen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/crudgen/compiler/gen"
	"github.com/syssam/crudgen/compiler/load"
)

const productSchema = `{
  "title": "Product",
  "type": "object",
  "properties": {
    "name": {"type": "string", "description": "Display name."},
    "sku": {"type": "string"},
    "price": {"type": "number", "default": 0},
    "status": {"type": "string", "enum": ["draft", "active"]},
    "email": {"type": "string", "format": "email"},
    "owner_id": {"type": "string"},
    "released_on": {"type": "string", "format": "date"},
    "published_at": {"type": "string", "format": "date-time"},
    "tags": {"type": ["array", "null"]}
  },
  "required": ["name", "sku"],
  "x-unique-combinations": [["sku"]],
  "x-search-fields": ["name", "price"],
  "x-custom-endpoints": [{"name": "top_sellers"}],
  "x-default-values": {"status": "draft"},
  "x-deletion-constraints": ["product_tag"]
}`

const userOrderSchema = `{
  "type": "object",
  "properties": {
    "_from": {"type": "string"},
    "_to": {"type": "string"},
    "quantity": {"type": "integer"}
  },
  "required": ["_from", "_to"]
}`

func newTestGenerator(t *testing.T, opts ...gen.Option) (*gen.Generator, *Dialect) {
	t.Helper()
	opts = append([]gen.Option{
		gen.WithPackage("example.com/shop/api"),
		gen.WithTarget(t.TempDir()),
		gen.WithTemplates(t.TempDir()),
	}, opts...)
	cfg, err := gen.NewConfig(opts...)
	require.NoError(t, err)
	g := gen.NewGenerator(cfg)
	d := NewDialect(g)
	g.WithDialect(d)
	return g, d
}

func newTestType(t *testing.T, g *gen.Generator, name, doc string) *gen.Type {
	t.Helper()
	s, err := load.Parse(name, []byte(doc))
	require.NoError(t, err)
	typ, err := gen.NewType(g.Config(), s)
	require.NoError(t, err)
	return typ
}

// source renders f and checks that the result parses.
func source(t *testing.T, f *jen.File) (string, *ast.File) {
	t.Helper()
	require.NotNil(t, f)
	var buf bytes.Buffer
	require.NoError(t, f.Render(&buf))
	file, err := parser.ParseFile(token.NewFileSet(), "", buf.Bytes(), parser.ParseComments)
	require.NoError(t, err, buf.String())
	return buf.String(), file
}

// declNames returns the top-level declarations of file. Methods are keyed
// as Receiver.Name.
func declNames(file *ast.File) map[string]bool {
	names := make(map[string]bool)
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			name := d.Name.Name
			if d.Recv != nil && len(d.Recv.List) > 0 {
				typ := d.Recv.List[0].Type
				if star, ok := typ.(*ast.StarExpr); ok {
					typ = star.X
				}
				if id, ok := typ.(*ast.Ident); ok {
					name = id.Name + "." + name
				}
			}
			names[name] = true
		case *ast.GenDecl:
			for _, spec := range d.Specs {
				switch s := spec.(type) {
				case *ast.TypeSpec:
					names[s.Name.Name] = true
				case *ast.ValueSpec:
					for _, n := range s.Names {
						names[n.Name] = true
					}
				}
			}
		}
	}
	return names
}

func importPaths(file *ast.File) []string {
	var paths []string
	for _, spec := range file.Imports {
		p, _ := strconv.Unquote(spec.Path.Value)
		paths = append(paths, p)
	}
	return paths
}

func TestDialect_Name(t *testing.T) {
	_, d := newTestGenerator(t)
	assert.Equal(t, "gin", d.Name())
}

func TestGenModel(t *testing.T) {
	g, d := newTestGenerator(t)

	t.Run("document entity", func(t *testing.T) {
		src, file := source(t, d.GenModel(newTestType(t, g, "product", productSchema)))
		assert.Equal(t, "models", file.Name.Name)
		names := declNames(file)
		assert.True(t, names["ProductCreate"])
		assert.True(t, names["ProductUpdate"])
		assert.True(t, names["Product"])
		assert.Contains(t, importPaths(file), "time")

		assert.Contains(t, src, "// Code generated by crudgen. DO NOT EDIT.")
		assert.Contains(t, src, `// Required fields: "name", "sku".`)
		assert.Contains(t, src, `json:"owner_id,omitempty"`)
		assert.Contains(t, src, "OwnerID")
		assert.Contains(t, src, `binding:"omitempty,email"`)
		assert.Contains(t, src, `binding:"omitempty,oneof=draft active"`)
		assert.Contains(t, src, `binding:"omitempty,datetime=2006-01-02"`)
		assert.Contains(t, src, "// Display name.")
		assert.Contains(t, src, "*float64")
		assert.Contains(t, src, "*time.Time")
		assert.Contains(t, src, "[]any")
		assert.Contains(t, src, `json:"_key"`)
		assert.Contains(t, src, `json:"_rev,omitempty"`)
		assert.Contains(t, src, `json:"updated_at"`)
		assert.Regexp(t, `Price\s+crud\.Nullable\[float64\]\s+`+"`"+`json:"price,omitzero"`, src)
		assert.Regexp(t, `Tags\s+crud\.Nullable\[\[\]any\]\s+`+"`"+`json:"tags,omitzero"`, src)
		assert.Contains(t, importPaths(file), "github.com/syssam/crudgen/crud")
		assert.NotContains(t, src, "required")
	})

	t.Run("edge entity", func(t *testing.T) {
		src, file := source(t, d.GenModel(newTestType(t, g, "user_order", userOrderSchema)))
		assert.True(t, declNames(file)["UserOrderCreate"])
		assert.Contains(t, src, `json:"_from,omitempty"`)
		assert.Contains(t, src, `json:"_to,omitempty"`)
		assert.Contains(t, src, "*int64")
		assert.Contains(t, src, "crud.Nullable[int64]")
		assert.Contains(t, src, "// UserOrder is a stored User Order record.")
	})
}

func TestGenService(t *testing.T) {
	g, d := newTestGenerator(t)

	t.Run("document entity", func(t *testing.T) {
		src, file := source(t, d.GenService(newTestType(t, g, "product", productSchema)))
		assert.Equal(t, "services", file.Name.Name)
		names := declNames(file)
		for _, name := range []string{
			"ProductEntity", "ProductService", "NewProductService",
			"ProductService.Ensure", "ProductService.Create", "ProductService.GetAll",
			"ProductService.GetByKey", "ProductService.Update", "ProductService.Delete",
			"ProductService.GetFiltered",
		} {
			assert.True(t, names[name], name)
		}
		assert.False(t, names["ProductService.GetByFrom"])
		assert.Subset(t, importPaths(file), []string{
			"context",
			"github.com/syssam/crudgen/crud",
			"github.com/syssam/crudgen/docstore",
			"example.com/shop/api/models",
		})

		assert.Contains(t, src, "crud.Entity{")
		assert.Contains(t, src, "crud.KindString")
		assert.Contains(t, src, "crud.KindNumber")
		assert.Contains(t, src, `[][]string{{"sku"}}`)
		assert.Contains(t, src, `[]string{"product_tag"}`)
		assert.Contains(t, src, `"draft"`)
		assert.Contains(t, src, "crud.Decode[models.Product](doc)")
		assert.Contains(t, src, "crud.DecodeAll[models.Product](docs)")
		assert.Contains(t, src, "crud.NewService(store, ProductEntity, opts...)")
		assert.Contains(t, src, "s.svc.GetFiltered(ctx, filters, skip, limit)")
		assert.NotContains(t, src, "Edge:")
	})

	t.Run("edge entity", func(t *testing.T) {
		src, file := source(t, d.GenService(newTestType(t, g, "user_order", userOrderSchema)))
		names := declNames(file)
		assert.True(t, names["UserOrderService.GetByFrom"])
		assert.True(t, names["UserOrderService.GetByTo"])
		assert.True(t, names["UserOrderService.GetByFromTo"])
		assert.False(t, names["UserOrderService.GetFiltered"])
		assert.Contains(t, src, "Edge:")
		assert.Contains(t, src, `"user"`)
		assert.Contains(t, src, `"order"`)
		assert.Contains(t, src, `[]string{"_from", "_to"}`)
		assert.Contains(t, src, "s.svc.GetByFromTo(ctx, fromKey, toKey)")
	})
}

func TestRoutes(t *testing.T) {
	g, _ := newTestGenerator(t)

	t.Run("document entity", func(t *testing.T) {
		assert.Equal(t, []route{
			{"POST", "", "create"},
			{"GET", "", "list"},
			{"GET", "/:key", "get"},
			{"PUT", "/:key", "update"},
			{"DELETE", "/:key", "delete"},
			{"GET", "/top_sellers", "customTopSellers"},
		}, routes(newTestType(t, g, "product", productSchema)))
	})

	t.Run("edge entity", func(t *testing.T) {
		rs := routes(newTestType(t, g, "user_order", userOrderSchema))
		assert.Equal(t, []route{
			{"GET", "/from/:key", "listByFrom"},
			{"GET", "/to/:key", "listByTo"},
			{"GET", "/from/:key/to/:to_key", "listByFromTo"},
		}, rs[5:])
	})
}

func TestMethodConst(t *testing.T) {
	for method, want := range map[string]string{
		"GET": "MethodGet", "POST": "MethodPost", "PUT": "MethodPut", "PATCH": "MethodPatch",
		"DELETE": "MethodDelete", "HEAD": "MethodHead", "OPTIONS": "MethodOptions",
	} {
		assert.Equal(t, want, methodConst(method))
	}
}

func TestGenRoutes(t *testing.T) {
	t.Run("document entity", func(t *testing.T) {
		g, d := newTestGenerator(t)
		src, file := source(t, d.GenRoutes(newTestType(t, g, "product", productSchema)))
		assert.Equal(t, "routes", file.Name.Name)
		names := declNames(file)
		for _, name := range []string{
			"productHandler", "RegisterProductRoutes",
			"productHandler.create", "productHandler.list", "productHandler.get",
			"productHandler.update", "productHandler.delete",
		} {
			assert.True(t, names[name], name)
		}
		assert.Subset(t, importPaths(file), []string{
			"net/http",
			"github.com/gin-gonic/gin",
			"github.com/syssam/crudgen/crud/ginx",
			"example.com/shop/api/services",
			"example.com/shop/api/models",
		})

		assert.Contains(t, src, "func RegisterProductRoutes(rg *gin.RouterGroup, store docstore.Store, opts ...crud.Option)")
		assert.Contains(t, src, `g := rg.Group("/products")`)
		assert.Contains(t, src, `g.Handle(http.MethodPost, "", h.create)`)
		assert.Contains(t, src, `g.Handle(http.MethodDelete, "/:key", h.delete)`)
		assert.Contains(t, src, `g.Handle(http.MethodGet, "/top_sellers", h.customTopSellers)`)
		assert.Contains(t, src, "ginx.BindDocument(c, &in, nil)")
		assert.Contains(t, src, "ginx.QueryFilters(c, services.ProductEntity.SearchFields)")
		assert.Contains(t, src, "h.svc.GetFiltered(c.Request.Context(), filters, skip, limit)")
		assert.Contains(t, src, "c.JSON(http.StatusCreated, out)")
		assert.Contains(t, src, `"deleted":`)
		assert.Contains(t, src, "ginx.WriteError(c, err)")
	})

	t.Run("edge entity", func(t *testing.T) {
		g, d := newTestGenerator(t)
		src, file := source(t, d.GenRoutes(newTestType(t, g, "user_order", userOrderSchema)))
		names := declNames(file)
		assert.True(t, names["userOrderHandler.listByFromTo"])
		assert.Contains(t, src, "ginx.BindDocument(c, &in, crud.EdgeAliases)")
		assert.Contains(t, src, `g.Handle(http.MethodGet, "/from/:key/to/:to_key", h.listByFromTo)`)
		assert.Contains(t, src, `h.svc.GetByFromTo(c.Request.Context(), c.Param("key"), c.Param("to_key"))`)
		assert.NotContains(t, src, "QueryFilters")
	})

	t.Run("route prefix", func(t *testing.T) {
		g, d := newTestGenerator(t, gen.WithRoutePrefix("/v1"))
		src, _ := source(t, d.GenRoutes(newTestType(t, g, "user_order", userOrderSchema)))
		assert.Contains(t, src, `rg.Group("/v1/user_orders")`)
	})
}

func TestGenRouteRegistry(t *testing.T) {
	g, d := newTestGenerator(t)

	t.Run("empty manifest", func(t *testing.T) {
		src, file := source(t, d.GenRouteRegistry(&gen.Manifest{}))
		assert.True(t, declNames(file)["RegisterAll"])
		assert.Contains(t, src, "var Paths = map[string]string{}")
	})

	t.Run("entities", func(t *testing.T) {
		m := &gen.Manifest{}
		m.Upsert(gen.EntryOf(newTestType(t, g, "user_order", userOrderSchema)))
		m.Upsert(gen.EntryOf(newTestType(t, g, "product", productSchema)))
		src, _ := source(t, d.GenRouteRegistry(m))
		assert.Contains(t, src, "RegisterProductRoutes(rg, store, opts...)")
		assert.Contains(t, src, "RegisterUserOrderRoutes(rg, store, opts...)")
		assert.Less(t, bytes.Index([]byte(src), []byte("RegisterProductRoutes")), bytes.Index([]byte(src), []byte("RegisterUserOrderRoutes")))
		assert.Contains(t, src, `"/user_orders"`)
	})
}

func TestGenModelIndex(t *testing.T) {
	g, d := newTestGenerator(t)

	t.Run("empty manifest", func(t *testing.T) {
		src, file := source(t, d.GenModelIndex(&gen.Manifest{}))
		names := declNames(file)
		assert.True(t, names["Model"])
		assert.True(t, names["Entities"])
		assert.True(t, names["Models"])
		assert.Contains(t, src, "var Entities = []string{}")
	})

	t.Run("entities", func(t *testing.T) {
		m := &gen.Manifest{}
		m.Upsert(gen.EntryOf(newTestType(t, g, "product", productSchema)))
		src, _ := source(t, d.GenModelIndex(m))
		assert.Contains(t, src, `var Entities = []string{"product"}`)
		assert.Contains(t, src, "ProductCreate{}")
		assert.Contains(t, src, "ProductUpdate{}")
		assert.Contains(t, src, "Product{}")
		assert.NotContains(t, src, "Edge:")
	})
}

func TestEmit(t *testing.T) {
	g, _ := newTestGenerator(t)
	cfg := g.Config()
	product := newTestType(t, g, "product", productSchema)
	ep := product.CustomEndpoints[0]
	writeFile(t, gen.ServiceTemplate(cfg.Templates, ep),
		"func (s *{{.Entity.ServiceName}}) {{.Endpoint.Func}}(ctx context.Context) ([]*models.{{.Entity.ModelName}}, error) {\n\treturn s.GetAll(ctx, 0, 10)\n}\n")
	writeFile(t, gen.RouteTemplate(cfg.Templates, ep),
		"func (h *{{.Entity.HandlerName}}) {{.Endpoint.Handler}}(c *gin.Context) {\n\tc.JSON(http.StatusOK, gin.H{\"path\": \"{{.Path}}\"})\n}\n")

	e := gen.NewEmitter(g)
	ctx := context.Background()
	_, err := e.Emit(ctx, product)
	require.NoError(t, err)
	_, err = e.Emit(ctx, newTestType(t, g, "user_order", userOrderSchema))
	require.NoError(t, err)

	for _, p := range []string{
		cfg.Path("models", "product.go"),
		cfg.Path("models", "user_order.go"),
		cfg.Path("models", gen.IndexFile),
		cfg.Path("services", "product_service.go"),
		cfg.Path("services", "user_order_service.go"),
		cfg.Path("routes", "product_routes.go"),
		cfg.Path("routes", "user_order_routes.go"),
		cfg.Path("routes", gen.RegistryFile),
	} {
		buf, err := os.ReadFile(p)
		require.NoError(t, err)
		_, err = parser.ParseFile(token.NewFileSet(), p, buf, 0)
		assert.NoError(t, err, p)
	}

	service, err := os.ReadFile(cfg.Path("services", "product_service.go"))
	require.NoError(t, err)
	assert.Contains(t, string(service), "func (s *ProductService) TopSellers(ctx context.Context) ([]*models.Product, error)")

	routesSrc, err := os.ReadFile(cfg.Path("routes", "product_routes.go"))
	require.NoError(t, err)
	assert.Contains(t, string(routesSrc), `gin.H{"path": "/top_sellers"}`)

	collections, err := os.ReadFile(cfg.Path("config", gen.CollectionsFile))
	require.NoError(t, err)
	assert.Contains(t, string(collections), `"edge_collection": "user_order"`)
	assert.Contains(t, string(collections), `"product"`)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
