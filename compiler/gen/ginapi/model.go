package ginapi

import (
	"fmt"
	"strings"

	"github.com/dave/jennifer/jen"

	"github.com/syssam/crudgen/compiler/gen"
	"github.com/syssam/crudgen/crud"
	"github.com/syssam/crudgen/docstore"
)

// genModel generates the models file ({entity}.go).
func genModel(h gen.GeneratorHelper, t *gen.Type) *jen.File {
	f := h.NewFile(h.Config().Dirs.Models)
	if t.Includes(gen.ArtifactModel, gen.FragCreate) {
		f.Commentf("%s is the input accepted when creating a %s record.", t.CreateName(), t.Title)
		if len(t.Required) > 0 {
			f.Commentf("Required fields: %s.", joinQuoted(t.Required))
		}
		f.Type().Id(t.CreateName()).StructFunc(func(group *jen.Group) {
			inputFields(h, group, t)
		})
	}

	if t.Includes(gen.ArtifactModel, gen.FragUpdate) {
		f.Commentf("%s is the input accepted when updating a %s record.", t.UpdateName(), t.Title)
		f.Comment("Every field is optional; absent fields keep their stored value.")
		f.Type().Id(t.UpdateName()).StructFunc(func(group *jen.Group) {
			inputFields(h, group, t)
		})
	}

	f.Commentf("%s is a stored %s record. Stored nulls are kept and fields", t.ModelName(), t.Title)
	f.Comment("never stored are omitted.")
	if t.Description != "" {
		f.Comment(oneLine(t.Description))
	}
	f.Type().Id(t.ModelName()).StructFunc(func(group *jen.Group) {
		group.Id("Key").String().Tag(map[string]string{"json": docstore.FieldKey})
		group.Id("ID").String().Tag(map[string]string{"json": docstore.FieldID})
		group.Id("Rev").String().Tag(map[string]string{"json": docstore.FieldRev + ",omitempty"})
		for _, fd := range t.InputFields() {
			group.Id(fd.StructField()).Qual(gen.CrudPkg, "Nullable").Types(h.GoType(fd)).Tag(map[string]string{"json": fd.Name + ",omitzero"})
		}
		group.Id("CreatedAt").Qual("time", "Time").Tag(map[string]string{"json": crud.FieldCreatedAt})
		group.Id("UpdatedAt").Qual("time", "Time").Tag(map[string]string{"json": crud.FieldUpdatedAt})
	})

	return f
}

// inputFields adds the caller-supplied fields to an input model.
func inputFields(h gen.GeneratorHelper, group *jen.Group, t *gen.Type) {
	for _, fd := range t.InputFields() {
		tags := map[string]string{"json": fd.Name + ",omitempty"}
		if tag := fd.BindingTag(); tag != "" {
			tags["binding"] = tag
		}
		code := jen.Id(fd.StructField()).Add(fieldType(h, fd)).Tag(tags)
		if fd.Description != "" {
			code.Comment(oneLine(fd.Description))
		}
		group.Add(code)
	}
}

// fieldType returns the model type of a field. Scalars are pointers so that
// absent and null values are distinguishable from zero values.
func fieldType(h gen.GeneratorHelper, fd *gen.Field) jen.Code {
	switch fd.Kind {
	case crud.KindArray, crud.KindObject, crud.KindAny:
		return h.GoType(fd)
	default:
		return jen.Op("*").Add(h.GoType(fd))
	}
}

func joinQuoted(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = fmt.Sprintf("%q", n)
	}
	return strings.Join(quoted, ", ")
}

// oneLine collapses whitespace so that text fits a line comment.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
