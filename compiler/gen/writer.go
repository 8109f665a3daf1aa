package gen

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/syssam/crudgen/docstore"
)

// Emitter writes rendered artifacts to the target directory and keeps the
// shared registries in sync. Writes are sequential.
type Emitter struct {
	cfg *Config
	gen *Generator
}

// NewEmitter creates an emitter writing the output of g.
func NewEmitter(g *Generator) *Emitter {
	return &Emitter{cfg: g.Config(), gen: g}
}

// Emit renders t, writes its artifacts and registers it. Nothing is written
// when rendering fails. It returns the paths written.
func (e *Emitter) Emit(ctx context.Context, t *Type) ([]string, error) {
	out, err := e.gen.Render(ctx, t)
	if err != nil {
		return nil, err
	}
	written, err := e.Write(out)
	if err != nil {
		return written, err
	}
	registered, err := e.Register(t)
	return append(written, registered...), err
}

// Write writes the per-entity artifacts of out, replacing existing files.
func (e *Emitter) Write(out *Output) ([]string, error) {
	written := make([]string, 0, len(out.Files))
	for _, f := range out.Files {
		path, err := e.writeFile(f)
		if err != nil {
			return written, NewGenerationError(out.Type.Name, string(f.Artifact), err)
		}
		written = append(written, path)
	}
	return written, nil
}

// Register upserts t into the manifest and the collection inventory, then
// regenerates the route registry and the model index.
func (e *Emitter) Register(t *Type) ([]string, error) {
	m, err := LoadManifest(e.manifestPath())
	if err != nil {
		return nil, NewGenerationError(t.Name, ManifestFile, err)
	}
	m.Upsert(EntryOf(t))
	written, err := e.saveRegistry(m)
	if err != nil {
		return written, NewGenerationError(t.Name, "registry", err)
	}
	path := e.cfg.Path(e.cfg.Dirs.Config, CollectionsFile)
	colls, err := docstore.LoadCollections(path)
	if err != nil {
		return written, NewGenerationError(t.Name, CollectionsFile, err)
	}
	UpsertCollection(colls, t)
	if err := colls.Save(path); err != nil {
		return written, NewGenerationError(t.Name, CollectionsFile, err)
	}
	return append(written, path), nil
}

// Clean removes the artifacts of the named entities and drops them from the
// registries. Without names, every entity of the manifest is removed along
// with the registries themselves. It returns the paths removed.
func (e *Emitter) Clean(names ...string) ([]string, error) {
	m, err := LoadManifest(e.manifestPath())
	if err != nil {
		return nil, err
	}
	all := len(names) == 0
	if all {
		names = m.Names()
	}
	path := e.cfg.Path(e.cfg.Dirs.Config, CollectionsFile)
	colls, err := docstore.LoadCollections(path)
	if err != nil {
		return nil, err
	}
	var removed []string
	remove := func(p string) error {
		err := os.Remove(p)
		switch {
		case err == nil:
			removed = append(removed, p)
		case !errors.Is(err, fs.ErrNotExist):
			return err
		}
		return nil
	}
	for _, name := range names {
		for _, p := range []string{
			e.cfg.Path(e.cfg.Dirs.Models, modelFile(name)),
			e.cfg.Path(e.cfg.Dirs.Services, serviceFile(name)),
			e.cfg.Path(e.cfg.Dirs.Routes, routesFile(name)),
		} {
			if err := remove(p); err != nil {
				return removed, err
			}
		}
		m.Remove(name)
		colls.Remove(name)
	}
	if all {
		for _, p := range []string{
			e.manifestPath(),
			e.cfg.Path(e.cfg.Dirs.Routes, RegistryFile),
			e.cfg.Path(e.cfg.Dirs.Models, IndexFile),
			path,
		} {
			if err := remove(p); err != nil {
				return removed, err
			}
		}
		return removed, nil
	}
	if _, err := e.saveRegistry(m); err != nil {
		return removed, err
	}
	return removed, colls.Save(path)
}

// WriteDebug writes the unformatted source carried by err next to its
// target, with an .error suffix. It reports the path written, or "" when err
// carries no source.
func (e *Emitter) WriteDebug(err error) string {
	var serr *SourceError
	if !errors.As(err, &serr) {
		return ""
	}
	// Errors intentionally ignored as we're already in error state.
	debugPath := serr.Path + ".error"
	_ = os.MkdirAll(filepath.Dir(debugPath), 0o755)
	if os.WriteFile(debugPath, serr.Source, 0o644) != nil {
		return ""
	}
	return debugPath
}

func (e *Emitter) saveRegistry(m *Manifest) ([]string, error) {
	buf, err := m.Encode(e.cfg.Header)
	if err != nil {
		return nil, err
	}
	path := e.manifestPath()
	if err := writeBytes(path, buf); err != nil {
		return nil, err
	}
	written := []string{path}
	files, err := e.gen.RenderRegistry(m)
	if err != nil {
		return written, err
	}
	for _, f := range files {
		p, err := e.writeFile(f)
		if err != nil {
			return written, err
		}
		written = append(written, p)
	}
	return written, nil
}

func (e *Emitter) manifestPath() string {
	return e.cfg.Path(e.cfg.Dirs.Routes, ManifestFile)
}

func (e *Emitter) writeFile(f *File) (string, error) {
	path := e.cfg.Path(f.Dir, f.Name)
	return path, writeBytes(path, f.Content)
}

func writeBytes(path string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
