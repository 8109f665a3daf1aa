package ginapi

import (
	"maps"
	"slices"

	"github.com/dave/jennifer/jen"

	"github.com/syssam/crudgen/compiler/gen"
	"github.com/syssam/crudgen/crud"
)

// genService generates the service file ({entity}_service.go).
func genService(h gen.GeneratorHelper, t *gen.Type) *jen.File {
	f := h.NewFile(h.Config().Dirs.Services)
	svc := t.ServiceName()
	model := jen.Qual(h.ModelsPkg(), t.ModelName())

	genEntityVar(f, t)

	f.Commentf("%s provides data access to %s records.", svc, t.Title)
	f.Type().Id(svc).Struct(
		jen.Id("svc").Op("*").Qual(gen.CrudPkg, "Service"),
	)

	f.Commentf("New%s returns a %s backed by store.", svc, svc)
	f.Func().Id("New"+svc).Params(
		jen.Id("store").Qual(gen.DocstorePkg, "Store"),
		jen.Id("opts").Op("...").Qual(gen.CrudPkg, "Option"),
	).Op("*").Id(svc).Block(
		jen.Return(jen.Op("&").Id(svc).Values(jen.Dict{
			jen.Id("svc"): jen.Qual(gen.CrudPkg, "NewService").Call(jen.Id("store"), jen.Id(t.EntityVar()), jen.Id("opts").Op("...")),
		})),
	)

	f.Comment("Ensure creates the collection and its unique indexes when missing.")
	method(f, svc, "Ensure").Params(ctxParam()).Error().Block(
		jen.Return(jen.Id("s").Dot("svc").Dot("Ensure").Call(jen.Id("ctx"))),
	)

	for _, frag := range t.Fragments(gen.ArtifactService) {
		switch frag {
		case gen.FragCreate:
			f.Commentf("Create validates and stores a new %s record.", t.Title)
			method(f, svc, "Create").Params(ctxParam(), docParam("data")).
				Params(jen.Op("*").Add(model), jen.Error()).
				Block(decodeOne(t, "Create", jen.Id("ctx"), jen.Id("data"))...)
		case gen.FragList:
			f.Commentf("GetAll lists %s records in storage order.", t.Title)
			method(f, svc, "GetAll").Params(ctxParam(), jen.List(jen.Id("skip"), jen.Id("limit")).Int()).
				Params(jen.Index().Op("*").Add(model), jen.Error()).
				Block(decodeMany(t, "GetAll", jen.Id("ctx"), jen.Id("skip"), jen.Id("limit"))...)
		case gen.FragGet:
			f.Commentf("GetByKey returns the %s record stored under key.", t.Title)
			method(f, svc, "GetByKey").Params(ctxParam(), jen.Id("key").String()).
				Params(jen.Op("*").Add(model), jen.Error()).
				Block(decodeOne(t, "GetByKey", jen.Id("ctx"), jen.Id("key"))...)
		case gen.FragUpdate:
			f.Commentf("Update merges data into the %s record stored under key.", t.Title)
			method(f, svc, "Update").Params(ctxParam(), jen.Id("key").String(), docParam("data")).
				Params(jen.Op("*").Add(model), jen.Error()).
				Block(decodeOne(t, "Update", jen.Id("ctx"), jen.Id("key"), jen.Id("data"))...)
		case gen.FragDelete:
			f.Commentf("Delete removes the %s record stored under key.", t.Title)
			method(f, svc, "Delete").Params(ctxParam(), jen.Id("key").String()).Error().Block(
				jen.Return(jen.Id("s").Dot("svc").Dot("Delete").Call(jen.Id("ctx"), jen.Id("key"))),
			)
		case gen.FragFilter:
			f.Commentf("GetFiltered lists %s records matching every filter.", t.Title)
			f.Comment("Text fields match case-insensitive substrings; other fields match exactly.")
			method(f, svc, "GetFiltered").Params(
				ctxParam(),
				jen.Id("filters").Map(jen.String()).Any(),
				jen.List(jen.Id("skip"), jen.Id("limit")).Int(),
			).Params(jen.Index().Op("*").Add(model), jen.Error()).
				Block(decodeMany(t, "GetFiltered", jen.Id("ctx"), jen.Id("filters"), jen.Id("skip"), jen.Id("limit"))...)
		case gen.FragEdgeFrom:
			f.Commentf("GetByFrom lists the edges leaving the %s document fromKey.", t.From)
			method(f, svc, "GetByFrom").Params(ctxParam(), jen.Id("fromKey").String()).
				Params(jen.Index().Op("*").Add(model), jen.Error()).
				Block(decodeMany(t, "GetByFrom", jen.Id("ctx"), jen.Id("fromKey"))...)
		case gen.FragEdgeTo:
			f.Commentf("GetByTo lists the edges reaching the %s document toKey.", t.To)
			method(f, svc, "GetByTo").Params(ctxParam(), jen.Id("toKey").String()).
				Params(jen.Index().Op("*").Add(model), jen.Error()).
				Block(decodeMany(t, "GetByTo", jen.Id("ctx"), jen.Id("toKey"))...)
		case gen.FragEdgeFromTo:
			f.Comment("GetByFromTo lists the edges linking fromKey to toKey.")
			method(f, svc, "GetByFromTo").Params(ctxParam(), jen.List(jen.Id("fromKey"), jen.Id("toKey")).String()).
				Params(jen.Index().Op("*").Add(model), jen.Error()).
				Block(decodeMany(t, "GetByFromTo", jen.Id("ctx"), jen.Id("fromKey"), jen.Id("toKey"))...)
		}
	}

	return f
}

// genEntityVar generates the crud.Entity literal describing the collection.
func genEntityVar(f *jen.File, t *gen.Type) {
	d := jen.Dict{
		jen.Id("Name"): jen.Lit(t.Name),
	}
	if t.Edge {
		d[jen.Id("Edge")] = jen.True()
	}
	if t.From != "" {
		d[jen.Id("From")] = jen.Lit(t.From)
		d[jen.Id("To")] = jen.Lit(t.To)
	}
	if len(t.Required) > 0 {
		d[jen.Id("Required")] = stringSlice(t.Required)
	}
	if len(t.UniqueCombinations) > 0 {
		d[jen.Id("UniqueCombinations")] = jen.Index().Index().String().ValuesFunc(func(g *jen.Group) {
			for _, combo := range t.UniqueCombinations {
				g.Add(litValues(combo))
			}
		})
	}
	if len(t.SearchFields) > 0 {
		kinds := jen.Dict{}
		for _, name := range t.SearchFields {
			kinds[jen.Lit(name)] = jen.Qual(gen.CrudPkg, kindConst(t.SearchFieldKinds[name]))
		}
		d[jen.Id("SearchFields")] = jen.Map(jen.String()).Qual(gen.CrudPkg, "Kind").Values(kinds)
	}
	if len(t.Defaults) > 0 {
		defaults := jen.Dict{}
		for _, name := range slices.Sorted(maps.Keys(t.Defaults)) {
			defaults[jen.Lit(name)] = jen.Lit(t.Defaults[name])
		}
		d[jen.Id("Defaults")] = jen.Map(jen.String()).Any().Values(defaults)
	}
	if len(t.DeletionConstraints) > 0 {
		d[jen.Id("DeletionConstraints")] = stringSlice(t.DeletionConstraints)
	}
	f.Commentf("%s describes the %s collection.", t.EntityVar(), t.Name)
	f.Var().Id(t.EntityVar()).Op("=").Qual(gen.CrudPkg, "Entity").Values(d)
}

// method starts the declaration of a method on the service type.
func method(f *jen.File, svc, name string) *jen.Statement {
	return f.Func().Params(jen.Id("s").Op("*").Id(svc)).Id(name)
}

func ctxParam() jen.Code { return jen.Id("ctx").Qual("context", "Context") }

func docParam(name string) jen.Code { return jen.Id(name).Qual(gen.DocstorePkg, "Document") }

// decodeOne calls the crud method and decodes the single document it returns.
func decodeOne(t *gen.Type, call string, args ...jen.Code) []jen.Code {
	return []jen.Code{
		jen.List(jen.Id("doc"), jen.Err()).Op(":=").Id("s").Dot("svc").Dot(call).Call(args...),
		jen.If(jen.Err().Op("!=").Nil()).Block(jen.Return(jen.Nil(), jen.Err())),
		jen.Return(jen.Qual(gen.CrudPkg, "Decode").Types(jen.Qual(modelsPath(t), t.ModelName())).Call(jen.Id("doc"))),
	}
}

// decodeMany calls the crud method and decodes the documents it returns.
func decodeMany(t *gen.Type, call string, args ...jen.Code) []jen.Code {
	return []jen.Code{
		jen.List(jen.Id("docs"), jen.Err()).Op(":=").Id("s").Dot("svc").Dot(call).Call(args...),
		jen.If(jen.Err().Op("!=").Nil()).Block(jen.Return(jen.Nil(), jen.Err())),
		jen.Return(jen.Qual(gen.CrudPkg, "DecodeAll").Types(jen.Qual(modelsPath(t), t.ModelName())).Call(jen.Id("docs"))),
	}
}

func modelsPath(t *gen.Type) string { return t.ImportPath(t.Dirs.Models) }

func stringSlice(values []string) jen.Code {
	return jen.Index().String().Add(litValues(values))
}

func litValues(values []string) *jen.Statement {
	return jen.ValuesFunc(func(g *jen.Group) {
		for _, v := range values {
			g.Lit(v)
		}
	})
}

// kindConst returns the name of the crud constant of kind.
func kindConst(k crud.Kind) string {
	switch k {
	case crud.KindDateTime:
		return "KindDateTime"
	case crud.KindDate:
		return "KindDate"
	case crud.KindEmail:
		return "KindEmail"
	case crud.KindURI:
		return "KindURI"
	case crud.KindUUID:
		return "KindUUID"
	case crud.KindInteger:
		return "KindInteger"
	case crud.KindNumber:
		return "KindNumber"
	case crud.KindBoolean:
		return "KindBoolean"
	case crud.KindArray:
		return "KindArray"
	case crud.KindObject:
		return "KindObject"
	case crud.KindAny:
		return "KindAny"
	default:
		return "KindString"
	}
}
