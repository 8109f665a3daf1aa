package ginapi

import (
	"github.com/dave/jennifer/jen"

	"github.com/syssam/crudgen/compiler/gen"
)

// genRouteRegistry generates the route registry (zz_registry.go).
func genRouteRegistry(h gen.GeneratorHelper, m *gen.Manifest) *jen.File {
	f := h.NewFile(h.Config().Dirs.Routes)

	f.Comment("RegisterAll mounts the endpoints of every generated entity on rg.")
	f.Func().Id("RegisterAll").Params(
		jen.Id("rg").Op("*").Qual(ginPkg, "RouterGroup"),
		jen.Id("store").Qual(gen.DocstorePkg, "Store"),
		jen.Id("opts").Op("...").Qual(gen.CrudPkg, "Option"),
	).BlockFunc(func(g *jen.Group) {
		for _, e := range m.Entities {
			g.Id(e.Register).Call(jen.Id("rg"), jen.Id("store"), jen.Id("opts").Op("..."))
		}
	})

	f.Comment("Paths maps each generated entity to the path of its route group.")
	f.Var().Id("Paths").Op("=").Map(jen.String()).String().Values(jen.DictFunc(func(d jen.Dict) {
		for _, e := range m.Entities {
			d[jen.Lit(e.Name)] = jen.Lit(e.Route)
		}
	}))

	return f
}

// genModelIndex generates the model index (zz_index.go).
func genModelIndex(h gen.GeneratorHelper, m *gen.Manifest) *jen.File {
	f := h.NewFile(h.Config().Dirs.Models)

	f.Comment("Model groups the models generated for an entity.")
	f.Type().Id("Model").Struct(
		jen.Id("Name").String(),
		jen.Id("Edge").Bool(),
		jen.Id("Create").Any(),
		jen.Id("Update").Any(),
		jen.Id("Response").Any(),
	)

	f.Comment("Entities lists the generated entities in name order.")
	f.Var().Id("Entities").Op("=").Index().String().ValuesFunc(func(g *jen.Group) {
		for _, e := range m.Entities {
			g.Lit(e.Name)
		}
	})

	f.Comment("Models maps each generated entity to its models.")
	f.Var().Id("Models").Op("=").Map(jen.String()).Id("Model").Values(jen.DictFunc(func(d jen.Dict) {
		for _, e := range m.Entities {
			fields := jen.Dict{
				jen.Id("Name"):     jen.Lit(e.Name),
				jen.Id("Create"):   jen.Id(e.Create).Values(),
				jen.Id("Update"):   jen.Id(e.Update).Values(),
				jen.Id("Response"): jen.Id(e.Model).Values(),
			}
			if e.Edge {
				fields[jen.Id("Edge")] = jen.True()
			}
			d[jen.Lit(e.Name)] = jen.Values(fields)
		}
	}))

	return f
}
