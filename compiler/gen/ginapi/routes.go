package ginapi

import (
	"net/http"

	"github.com/dave/jennifer/jen"

	"github.com/syssam/crudgen/compiler/gen"
)

// route is a generated handler and the route serving it.
type route struct {
	method  string
	path    string
	handler string
}

// routes returns the routes of t in registration order.
func routes(t *gen.Type) []route {
	var rs []route
	for _, frag := range t.Fragments(gen.ArtifactRoutes) {
		switch frag {
		case gen.FragCreate:
			rs = append(rs, route{http.MethodPost, "", "create"})
		case gen.FragList:
			rs = append(rs, route{http.MethodGet, "", "list"})
		case gen.FragGet:
			rs = append(rs, route{http.MethodGet, "/:key", "get"})
		case gen.FragUpdate:
			rs = append(rs, route{http.MethodPut, "/:key", "update"})
		case gen.FragDelete:
			rs = append(rs, route{http.MethodDelete, "/:key", "delete"})
		case gen.FragEdgeFrom:
			rs = append(rs, route{http.MethodGet, "/from/:key", "listByFrom"})
		case gen.FragEdgeTo:
			rs = append(rs, route{http.MethodGet, "/to/:key", "listByTo"})
		case gen.FragEdgeFromTo:
			rs = append(rs, route{http.MethodGet, "/from/:key/to/:to_key", "listByFromTo"})
		case gen.FragCustom:
			for _, ep := range t.ExposedEndpoints() {
				rs = append(rs, route{ep.Method, ep.Path, ep.Handler})
			}
		}
	}
	return rs
}

// genRoutes generates the routes file ({entity}_routes.go).
func genRoutes(h gen.GeneratorHelper, t *gen.Type) *jen.File {
	f := h.NewFile(h.Config().Dirs.Routes)
	handler := t.HandlerName()
	svc := jen.Qual(h.ServicesPkg(), t.ServiceName())

	f.Commentf("%s serves the %s endpoints.", handler, t.Title)
	f.Type().Id(handler).Struct(
		jen.Id("svc").Op("*").Add(svc),
	)

	f.Commentf("%s mounts the %s endpoints under %s.", t.RegisterFunc(), t.Title, t.RoutePath())
	f.Func().Id(t.RegisterFunc()).Params(
		jen.Id("rg").Op("*").Qual(ginPkg, "RouterGroup"),
		jen.Id("store").Qual(gen.DocstorePkg, "Store"),
		jen.Id("opts").Op("...").Qual(gen.CrudPkg, "Option"),
	).BlockFunc(func(g *jen.Group) {
		g.Id("h").Op(":=").Op("&").Id(handler).Values(jen.Dict{
			jen.Id("svc"): jen.Qual(h.ServicesPkg(), "New"+t.ServiceName()).Call(jen.Id("store"), jen.Id("opts").Op("...")),
		})
		g.Id("g").Op(":=").Id("rg").Dot("Group").Call(jen.Lit(t.RoutePath()))
		for _, r := range routes(t) {
			g.Id("g").Dot("Handle").Call(jen.Qual(httpPkg, methodConst(r.method)), jen.Lit(r.path), jen.Id("h").Dot(r.handler))
		}
	})

	for _, frag := range t.Fragments(gen.ArtifactRoutes) {
		switch frag {
		case gen.FragCreate:
			f.Commentf("create handles POST %s.", t.RoutePath())
			handlerFunc(f, handler, "create").Block(append(bindBody(h, t, t.CreateName()),
				jen.List(jen.Id("out"), jen.Err()).Op(":=").Id("h").Dot("svc").Dot("Create").Call(reqCtx(), jen.Id("data")),
				abortOnErr(),
				jen.Id("c").Dot("JSON").Call(jen.Qual(httpPkg, "StatusCreated"), jen.Id("out")),
			)...)
		case gen.FragList:
			f.Commentf("list handles GET %s.", t.RoutePath())
			handlerFunc(f, handler, "list").BlockFunc(func(g *jen.Group) {
				g.List(jen.Id("skip"), jen.Id("limit"), jen.Err()).Op(":=").Qual(gen.GinxPkg, "Pagination").Call(jen.Id("c"))
				g.Add(abortOnErr())
				if !t.Includes(gen.ArtifactRoutes, gen.FragFilter) {
					g.List(jen.Id("out"), jen.Err()).Op(":=").Id("h").Dot("svc").Dot("GetAll").Call(reqCtx(), jen.Id("skip"), jen.Id("limit"))
					g.Add(abortOnErr())
					g.Id("c").Dot("JSON").Call(jen.Qual(httpPkg, "StatusOK"), jen.Id("out"))
					return
				}
				g.List(jen.Id("filters"), jen.Err()).Op(":=").Qual(gen.GinxPkg, "QueryFilters").Call(
					jen.Id("c"), jen.Qual(h.ServicesPkg(), t.EntityVar()).Dot("SearchFields"),
				)
				g.Add(abortOnErr())
				g.Var().Id("out").Index().Op("*").Qual(h.ModelsPkg(), t.ModelName())
				g.If(jen.Len(jen.Id("filters")).Op(">").Lit(0)).Block(
					jen.List(jen.Id("out"), jen.Err()).Op("=").Id("h").Dot("svc").Dot("GetFiltered").Call(reqCtx(), jen.Id("filters"), jen.Id("skip"), jen.Id("limit")),
				).Else().Block(
					jen.List(jen.Id("out"), jen.Err()).Op("=").Id("h").Dot("svc").Dot("GetAll").Call(reqCtx(), jen.Id("skip"), jen.Id("limit")),
				)
				g.Add(abortOnErr())
				g.Id("c").Dot("JSON").Call(jen.Qual(httpPkg, "StatusOK"), jen.Id("out"))
			})
		case gen.FragGet:
			f.Commentf("get handles GET %s/:key.", t.RoutePath())
			handlerFunc(f, handler, "get").Block(
				jen.List(jen.Id("out"), jen.Err()).Op(":=").Id("h").Dot("svc").Dot("GetByKey").Call(reqCtx(), param("key")),
				abortOnErr(),
				jen.Id("c").Dot("JSON").Call(jen.Qual(httpPkg, "StatusOK"), jen.Id("out")),
			)
		case gen.FragUpdate:
			f.Commentf("update handles PUT %s/:key.", t.RoutePath())
			handlerFunc(f, handler, "update").Block(append(bindBody(h, t, t.UpdateName()),
				jen.List(jen.Id("out"), jen.Err()).Op(":=").Id("h").Dot("svc").Dot("Update").Call(reqCtx(), param("key"), jen.Id("data")),
				abortOnErr(),
				jen.Id("c").Dot("JSON").Call(jen.Qual(httpPkg, "StatusOK"), jen.Id("out")),
			)...)
		case gen.FragDelete:
			f.Commentf("delete handles DELETE %s/:key.", t.RoutePath())
			handlerFunc(f, handler, "delete").Block(
				jen.Id("key").Op(":=").Add(param("key")),
				jen.If(
					jen.Err().Op(":=").Id("h").Dot("svc").Dot("Delete").Call(reqCtx(), jen.Id("key")),
					jen.Err().Op("!=").Nil(),
				).Block(
					jen.Qual(gen.GinxPkg, "WriteError").Call(jen.Id("c"), jen.Err()),
					jen.Return(),
				),
				jen.Id("c").Dot("JSON").Call(jen.Qual(httpPkg, "StatusOK"), jen.Qual(ginPkg, "H").Values(jen.Dict{
					jen.Lit("deleted"): jen.True(),
					jen.Lit("_key"):    jen.Id("key"),
				})),
			)
		case gen.FragEdgeFrom:
			f.Commentf("listByFrom handles GET %s/from/:key.", t.RoutePath())
			handlerFunc(f, handler, "listByFrom").Block(listCall("GetByFrom", param("key"))...)
		case gen.FragEdgeTo:
			f.Commentf("listByTo handles GET %s/to/:key.", t.RoutePath())
			handlerFunc(f, handler, "listByTo").Block(listCall("GetByTo", param("key"))...)
		case gen.FragEdgeFromTo:
			f.Commentf("listByFromTo handles GET %s/from/:key/to/:to_key.", t.RoutePath())
			handlerFunc(f, handler, "listByFromTo").Block(listCall("GetByFromTo", param("key"), param("to_key"))...)
		}
	}

	return f
}

// handlerFunc starts the declaration of a gin handler method.
func handlerFunc(f *jen.File, handler, name string) *jen.Statement {
	return f.Func().Params(jen.Id("h").Op("*").Id(handler)).Id(name).Params(
		jen.Id("c").Op("*").Qual(ginPkg, "Context"),
	)
}

// bindBody decodes the request body into the named input model. Edge
// entities accept the from and to aliases of their link fields.
func bindBody(h gen.GeneratorHelper, t *gen.Type, model string) []jen.Code {
	aliases := jen.Nil()
	if t.Edge {
		aliases = jen.Qual(gen.CrudPkg, "EdgeAliases")
	}
	return []jen.Code{
		jen.Var().Id("in").Qual(h.ModelsPkg(), model),
		jen.List(jen.Id("data"), jen.Err()).Op(":=").Qual(gen.GinxPkg, "BindDocument").Call(jen.Id("c"), jen.Op("&").Id("in"), aliases),
		abortOnErr(),
	}
}

func listCall(call string, args ...jen.Code) []jen.Code {
	return []jen.Code{
		jen.List(jen.Id("out"), jen.Err()).Op(":=").Id("h").Dot("svc").Dot(call).Call(append([]jen.Code{reqCtx()}, args...)...),
		abortOnErr(),
		jen.Id("c").Dot("JSON").Call(jen.Qual(httpPkg, "StatusOK"), jen.Id("out")),
	}
}

func abortOnErr() *jen.Statement {
	return jen.If(jen.Err().Op("!=").Nil()).Block(
		jen.Qual(gen.GinxPkg, "WriteError").Call(jen.Id("c"), jen.Err()),
		jen.Return(),
	)
}

func reqCtx() jen.Code { return jen.Id("c").Dot("Request").Dot("Context").Call() }

func param(name string) *jen.Statement { return jen.Id("c").Dot("Param").Call(jen.Lit(name)) }

// methodConst returns the net/http constant of an HTTP method.
func methodConst(m string) string {
	switch m {
	case http.MethodPost:
		return "MethodPost"
	case http.MethodPut:
		return "MethodPut"
	case http.MethodPatch:
		return "MethodPatch"
	case http.MethodDelete:
		return "MethodDelete"
	case http.MethodHead:
		return "MethodHead"
	case http.MethodOptions:
		return "MethodOptions"
	default:
		return "MethodGet"
	}
}
