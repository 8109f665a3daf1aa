package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
)

// GraphEdge describes an edge collection and the document collections it
// links.
type GraphEdge struct {
	EdgeCollection  string   `json:"edge_collection"`
	FromCollections []string `json:"from_collections"`
	ToCollections   []string `json:"to_collections"`
}

// Collections is the collection inventory kept in config/collections.json.
type Collections struct {
	DocumentCollections []string    `json:"document_collections"`
	EdgeCollections     []string    `json:"edge_collections"`
	GraphEdges          []GraphEdge `json:"graph_edges"`
}

// LoadCollections reads a collections file. A missing file yields an empty
// inventory.
func LoadCollections(path string) (*Collections, error) {
	c := &Collections{}
	buf, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return c.normalize(), nil
	case err != nil:
		return nil, fmt.Errorf("docstore: read collections: %w", err)
	}
	if err := json.Unmarshal(buf, c); err != nil {
		return nil, fmt.Errorf("docstore: parse collections %s: %w", path, err)
	}
	return c.normalize(), nil
}

// Save writes the inventory to path, creating parent directories.
func (c *Collections) Save(path string) error {
	buf, err := json.MarshalIndent(c.normalize(), "", "  ")
	if err != nil {
		return fmt.Errorf("docstore: encode collections: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("docstore: create collections dir: %w", err)
	}
	return os.WriteFile(path, append(buf, '\n'), 0o644)
}

func (c *Collections) normalize() *Collections {
	if c.DocumentCollections == nil {
		c.DocumentCollections = []string{}
	}
	if c.EdgeCollections == nil {
		c.EdgeCollections = []string{}
	}
	if c.GraphEdges == nil {
		c.GraphEdges = []GraphEdge{}
	}
	return c
}

// AddDocument records a document collection. It is a no-op when the name is
// already present.
func (c *Collections) AddDocument(name string) {
	if !slices.Contains(c.DocumentCollections, name) {
		c.DocumentCollections = append(c.DocumentCollections, name)
	}
}

// AddEdge records an edge collection and, when both endpoints are known, the
// graph edge definition linking them.
func (c *Collections) AddEdge(name, from, to string) {
	if !slices.Contains(c.EdgeCollections, name) {
		c.EdgeCollections = append(c.EdgeCollections, name)
	}
	if from == "" || to == "" {
		return
	}
	for i := range c.GraphEdges {
		if c.GraphEdges[i].EdgeCollection == name {
			c.GraphEdges[i].FromCollections = []string{from}
			c.GraphEdges[i].ToCollections = []string{to}
			return
		}
	}
	c.GraphEdges = append(c.GraphEdges, GraphEdge{
		EdgeCollection:  name,
		FromCollections: []string{from},
		ToCollections:   []string{to},
	})
}

// Remove forgets every reference to the named collection.
func (c *Collections) Remove(name string) {
	c.DocumentCollections = slices.DeleteFunc(c.DocumentCollections, func(s string) bool { return s == name })
	c.EdgeCollections = slices.DeleteFunc(c.EdgeCollections, func(s string) bool { return s == name })
	c.GraphEdges = slices.DeleteFunc(c.GraphEdges, func(g GraphEdge) bool { return g.EdgeCollection == name })
}

// Bootstrap creates every collection of the inventory that does not exist
// yet. Edge collections are created with the edge flag.
func Bootstrap(ctx context.Context, s Store, c *Collections) error {
	create := func(name string, edge bool) error {
		ok, err := s.HasCollection(ctx, name)
		if err != nil {
			return fmt.Errorf("docstore: check collection %q: %w", name, err)
		}
		if ok {
			return nil
		}
		if err := s.CreateCollection(ctx, name, edge); err != nil {
			return fmt.Errorf("docstore: create collection %q: %w", name, err)
		}
		return nil
	}
	for _, name := range c.DocumentCollections {
		if err := create(name, false); err != nil {
			return err
		}
	}
	for _, name := range c.EdgeCollections {
		if err := create(name, true); err != nil {
			return err
		}
	}
	for _, g := range c.GraphEdges {
		for _, name := range slices.Concat(g.FromCollections, g.ToCollections) {
			if err := create(name, false); err != nil {
				return err
			}
		}
	}
	return nil
}

// Teardown drops every collection of the inventory that exists.
func Teardown(ctx context.Context, s Store, c *Collections) error {
	for _, name := range slices.Concat(c.EdgeCollections, c.DocumentCollections) {
		ok, err := s.HasCollection(ctx, name)
		if err != nil {
			return fmt.Errorf("docstore: check collection %q: %w", name, err)
		}
		if !ok {
			continue
		}
		if err := s.DropCollection(ctx, name); err != nil {
			return fmt.Errorf("docstore: drop collection %q: %w", name, err)
		}
	}
	return nil
}
