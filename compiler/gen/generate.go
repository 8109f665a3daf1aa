package gen

import (
	"bytes"
	"context"
	"fmt"

	"github.com/dave/jennifer/jen"
	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/imports"

	"github.com/syssam/crudgen/crud"
)

// Generator renders the artifacts of an entity with Jennifer. Rendering
// happens in memory; nothing touches the disk until an Emitter writes the
// result.
type Generator struct {
	cfg     *Config
	dialect Dialect
}

// NewGenerator creates a generator for the given configuration.
// You must call WithDialect() to set a dialect before rendering.
//
// Example:
//
//	import "github.com/syssam/crudgen/compiler/gen/ginapi"
//
//	g := gen.NewGenerator(cfg)
//	g.WithDialect(ginapi.NewDialect(g))
//	out, err := g.Render(ctx, t)
func NewGenerator(cfg *Config) *Generator {
	return &Generator{cfg: cfg}
}

// WithDialect sets the dialect generator.
func (g *Generator) WithDialect(d Dialect) *Generator {
	if d != nil {
		g.dialect = d
	}
	return g
}

// Dialect returns the configured dialect, or nil.
func (g *Generator) Dialect() Dialect { return g.dialect }

// File is a rendered source file.
type File struct {
	// Artifact is set for per-entity files.
	Artifact Artifact
	// Dir is the artifact sub-directory, Name the file name.
	Dir  string
	Name string
	// Content holds the formatted source.
	Content []byte
}

// Output holds the rendered per-entity artifacts of one entity.
type Output struct {
	Type  *Type
	Files []*File
}

// Render renders the model, service and routes artifacts of t. Custom
// endpoint templates are resolved first; the three artifacts are then
// rendered concurrently. Either every artifact is returned or none is.
func (g *Generator) Render(ctx context.Context, t *Type) (*Output, error) {
	if g.dialect == nil {
		return nil, NewConfigError("Dialect", nil, "no dialect set: call WithDialect() before Render()")
	}
	custom, err := renderCustom(t, g.cfg.Templates)
	if err != nil {
		return nil, err
	}
	tasks := []struct {
		artifact Artifact
		dir      string
		name     string
		gen      func(*Type) *jen.File
	}{
		{ArtifactModel, g.cfg.Dirs.Models, t.ModelFile(), g.dialect.GenModel},
		{ArtifactService, g.cfg.Dirs.Services, t.ServiceFile(), g.dialect.GenService},
		{ArtifactRoutes, g.cfg.Dirs.Routes, t.RoutesFile(), g.dialect.GenRoutes},
	}
	files := make([]*File, len(tasks))
	errg, ctx := errgroup.WithContext(ctx)
	errg.SetLimit(max(g.cfg.Workers, 1))
	for i, task := range tasks {
		errg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			content, err := g.render(task.gen(t), g.cfg.Path(task.dir, task.name), custom[task.artifact])
			if err != nil {
				return NewGenerationError(t.Name, string(task.artifact), err)
			}
			files[i] = &File{Artifact: task.artifact, Dir: task.dir, Name: task.name, Content: content}
			return nil
		})
	}
	if err := errg.Wait(); err != nil {
		return nil, err
	}
	return &Output{Type: t, Files: files}, nil
}

// RenderRegistry renders the route registry and the model index for m.
func (g *Generator) RenderRegistry(m *Manifest) ([]*File, error) {
	if g.dialect == nil {
		return nil, NewConfigError("Dialect", nil, "no dialect set: call WithDialect() before RenderRegistry()")
	}
	tasks := []struct {
		dir  string
		name string
		f    *jen.File
	}{
		{g.cfg.Dirs.Routes, RegistryFile, g.dialect.GenRouteRegistry(m)},
		{g.cfg.Dirs.Models, IndexFile, g.dialect.GenModelIndex(m)},
	}
	files := make([]*File, 0, len(tasks))
	for _, task := range tasks {
		content, err := g.render(task.f, g.cfg.Path(task.dir, task.name), nil)
		if err != nil {
			return nil, NewGenerationError("", task.name, err)
		}
		files = append(files, &File{Dir: task.dir, Name: task.name, Content: content})
	}
	return files, nil
}

// SourceError is returned when generated source cannot be formatted. It
// carries the unformatted source for debugging.
type SourceError struct {
	Path   string
	Source []byte
	Err    error
}

// Error implements the error interface.
func (e *SourceError) Error() string {
	return fmt.Sprintf("format %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *SourceError) Unwrap() error { return e.Err }

// render renders f and appends the custom source, if any. Sources with
// custom code are passed through goimports to resolve their imports.
func (g *Generator) render(f *jen.File, path string, custom []byte) ([]byte, error) {
	if f == nil {
		return nil, fmt.Errorf("dialect %s returned no file for %s", g.dialect.Name(), path)
	}
	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return nil, err
	}
	if len(custom) == 0 {
		return buf.Bytes(), nil
	}
	buf.Write(custom)
	formatted, err := imports.Process(path, buf.Bytes(), nil)
	if err != nil {
		return nil, &SourceError{Path: path, Source: buf.Bytes(), Err: err}
	}
	return formatted, nil
}

// =============================================================================
// GeneratorHelper interface implementation
// These exported methods allow dialect packages to access helper functionality.
// =============================================================================

// NewFile creates a new Jennifer file with the header comment.
func (g *Generator) NewFile(pkg string) *jen.File {
	f := jen.NewFile(pkg)
	if g.cfg.Header != "" {
		f.HeaderComment(g.cfg.Header)
	}
	return f
}

// GoType returns the Jennifer code for a field's Go type.
func (g *Generator) GoType(f *Field) jen.Code {
	switch f.Kind {
	case crud.KindDateTime:
		return jen.Qual("time", "Time")
	case crud.KindInteger:
		return jen.Int64()
	case crud.KindNumber:
		return jen.Float64()
	case crud.KindBoolean:
		return jen.Bool()
	case crud.KindArray:
		return jen.Index().Id("any")
	case crud.KindObject:
		return jen.Map(jen.String()).Id("any")
	case crud.KindAny:
		return jen.Id("any")
	default:
		return jen.String()
	}
}

// Config returns the generation configuration.
func (g *Generator) Config() *Config { return g.cfg }

// ModelsPkg returns the import path of the generated models package.
func (g *Generator) ModelsPkg() string { return g.cfg.ImportPath(g.cfg.Dirs.Models) }

// ServicesPkg returns the import path of the generated services package.
func (g *Generator) ServicesPkg() string { return g.cfg.ImportPath(g.cfg.Dirs.Services) }

// RoutesPkg returns the import path of the generated routes package.
func (g *Generator) RoutesPkg() string { return g.cfg.ImportPath(g.cfg.Dirs.Routes) }

// Verify Generator implements GeneratorHelper at compile time.
var _ GeneratorHelper = (*Generator)(nil)
