package gen

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/syssam/crudgen/docstore"
)

// Shared registry files.
const (
	// ManifestFile is the entity manifest kept in the routes directory.
	ManifestFile = "registry.yaml"
	// RegistryFile is the generated route registry.
	RegistryFile = "zz_registry.go"
	// IndexFile is the generated model index.
	IndexFile = "zz_index.go"
	// CollectionsFile is the collection inventory kept in the config directory.
	CollectionsFile = "collections.json"
)

// Manifest lists the generated entities. The route registry and the model
// index are rendered from it.
type Manifest struct {
	Entities []*ManifestEntry `yaml:"entities"`
}

// ManifestEntry records the generated names of one entity.
type ManifestEntry struct {
	Name     string `yaml:"name"`
	Route    string `yaml:"route"`
	Register string `yaml:"register"`
	Model    string `yaml:"model"`
	Create   string `yaml:"create"`
	Update   string `yaml:"update"`
	Edge     bool   `yaml:"edge,omitempty"`
	From     string `yaml:"from,omitempty"`
	To       string `yaml:"to,omitempty"`
}

// EntryOf returns the manifest entry of t.
func EntryOf(t *Type) *ManifestEntry {
	return &ManifestEntry{
		Name:     t.Name,
		Route:    t.RoutePath(),
		Register: t.RegisterFunc(),
		Model:    t.ModelName(),
		Create:   t.CreateName(),
		Update:   t.UpdateName(),
		Edge:     t.Edge,
		From:     t.From,
		To:       t.To,
	}
}

// LoadManifest reads a manifest file. A missing file yields an empty
// manifest.
func LoadManifest(path string) (*Manifest, error) {
	m := &Manifest{}
	buf, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return m, nil
	case err != nil:
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	if err := yaml.Unmarshal(buf, m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	m.sort()
	return m, nil
}

// Upsert adds e, replacing any entry with the same name.
func (m *Manifest) Upsert(e *ManifestEntry) {
	if i := m.index(e.Name); i >= 0 {
		m.Entities[i] = e
	} else {
		m.Entities = append(m.Entities, e)
	}
	m.sort()
}

// Remove deletes the named entry and reports whether it existed.
func (m *Manifest) Remove(name string) bool {
	i := m.index(name)
	if i < 0 {
		return false
	}
	m.Entities = slices.Delete(m.Entities, i, i+1)
	return true
}

// Entry returns the named entry, or nil.
func (m *Manifest) Entry(name string) *ManifestEntry {
	if i := m.index(name); i >= 0 {
		return m.Entities[i]
	}
	return nil
}

// Names returns the entity names in order.
func (m *Manifest) Names() []string {
	names := make([]string, len(m.Entities))
	for i, e := range m.Entities {
		names[i] = e.Name
	}
	return names
}

// Encode returns the YAML form of the manifest preceded by header, if any,
// as a comment.
func (m *Manifest) Encode(header string) ([]byte, error) {
	m.sort()
	var buf bytes.Buffer
	if header != "" {
		for _, line := range strings.Split(header, "\n") {
			buf.WriteString("# " + line + "\n")
		}
	}
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	return buf.Bytes(), nil
}

func (m *Manifest) index(name string) int {
	return slices.IndexFunc(m.Entities, func(e *ManifestEntry) bool { return e.Name == name })
}

func (m *Manifest) sort() {
	slices.SortFunc(m.Entities, func(a, b *ManifestEntry) int { return strings.Compare(a.Name, b.Name) })
}

// UpsertCollection records t in the collection inventory, replacing any
// previous classification of the same name.
func UpsertCollection(c *docstore.Collections, t *Type) {
	c.Remove(t.Name)
	if t.Edge {
		c.AddEdge(t.Name, t.From, t.To)
		return
	}
	c.AddDocument(t.Name)
}
