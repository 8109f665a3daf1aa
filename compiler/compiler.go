// Package compiler drives the generation pipeline: each schema is loaded,
// turned into an entity descriptor and emitted with the gin dialect.
//
//	cfg, err := gen.NewConfig(gen.WithPackage("example.com/shop/api"), gen.WithTarget("api"))
//	if err != nil {
//		return err
//	}
//	results, err := compiler.New(cfg).GenerateDir(ctx, "schemas")
package compiler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/syssam/crudgen/compiler/gen"
	"github.com/syssam/crudgen/compiler/gen/ginapi"
	"github.com/syssam/crudgen/compiler/load"
)

// ErrNoSchemas is returned by GenerateDir when the directory holds no
// schema documents.
var ErrNoSchemas = errors.New("compiler: no schemas found")

// Option configures a Compiler.
type Option func(*Compiler)

// WithLogger sets the logger reporting progress. The default discards.
func WithLogger(l *zap.Logger) Option {
	return func(c *Compiler) {
		if l != nil {
			c.log = l
		}
	}
}

// Compiler generates the API of entity schemas.
type Compiler struct {
	cfg     *gen.Config
	gen     *gen.Generator
	emitter *gen.Emitter
	log     *zap.Logger
}

// New returns a Compiler writing below cfg.Target.
func New(cfg *gen.Config, opts ...Option) *Compiler {
	g := gen.NewGenerator(cfg)
	g.WithDialect(ginapi.NewDialect(g))
	c := &Compiler{
		cfg:     cfg,
		gen:     g,
		emitter: gen.NewEmitter(g),
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Config returns the generation configuration.
func (c *Compiler) Config() *gen.Config { return c.cfg }

// Result reports the generation of one schema.
type Result struct {
	// Path is the schema document.
	Path string
	// Entity is the entity name, set once the schema has been read.
	Entity string
	// Files lists the paths written.
	Files []string
	// Debug is the path of the unformatted source written for inspection
	// when formatting failed.
	Debug string
	// Err is nil on success.
	Err error
}

// GenerateFile generates the artifacts of the schema at path. A schema that
// fails to load, to describe or to render leaves the target untouched.
func (c *Compiler) GenerateFile(ctx context.Context, path string) *Result {
	start := time.Now()
	res := &Result{Path: path, Entity: load.EntityName(path)}
	schema, err := load.Load(path)
	if err != nil {
		return c.fail(res, err)
	}
	t, err := gen.NewType(c.cfg, schema)
	if err != nil {
		return c.fail(res, err)
	}
	res.Files, err = c.emitter.Emit(ctx, t)
	if err != nil {
		res.Debug = c.emitter.WriteDebug(err)
		return c.fail(res, err)
	}
	c.log.Info("entity generated",
		zap.String("entity", t.Name),
		zap.Bool("edge", t.Edge),
		zap.Int("files", len(res.Files)),
		zap.Duration("took", time.Since(start)),
	)
	return res
}

// GenerateDir generates every schema of dir in name order. A failing schema
// does not stop the others; the returned error joins every failure.
func (c *Compiler) GenerateDir(ctx context.Context, dir string) ([]*Result, error) {
	paths, err := load.Glob(dir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoSchemas, dir)
	}
	results := make([]*Result, 0, len(paths))
	var errs []error
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res := c.GenerateFile(ctx, path)
		results = append(results, res)
		if res.Err != nil {
			errs = append(errs, res.Err)
		}
	}
	if len(errs) > 0 {
		return results, fmt.Errorf("compiler: %d of %d schemas failed: %w", len(errs), len(paths), errors.Join(errs...))
	}
	return results, nil
}

// Clean removes the artifacts of the named entities, or of every generated
// entity along with the registries when no name is given.
func (c *Compiler) Clean(names ...string) ([]string, error) {
	removed, err := c.emitter.Clean(names...)
	if err != nil {
		return removed, err
	}
	c.log.Info("generated files removed", zap.Strings("entities", names), zap.Int("files", len(removed)))
	return removed, nil
}

// CollectionsPath returns the path of the collection inventory.
func (c *Compiler) CollectionsPath() string {
	return c.cfg.Path(c.cfg.Dirs.Config, gen.CollectionsFile)
}

func (c *Compiler) fail(res *Result, err error) *Result {
	res.Err = err
	fields := []zap.Field{zap.String("entity", res.Entity), zap.String("schema", res.Path), zap.Error(err)}
	if res.Debug != "" {
		fields = append(fields, zap.String("debug", res.Debug))
	}
	c.log.Error("entity generation failed", fields...)
	return res
}
