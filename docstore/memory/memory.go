// Package memory provides an in-process docstore.Store. Documents are kept in
// their JSON representation and returned in insertion order.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/syssam/crudgen/docstore"
)

// Option configures a Store.
type Option func(*Store)

// WithKeyFunc sets the generator used for documents inserted without a key.
func WithKeyFunc(f docstore.KeyFunc) Option {
	return func(s *Store) {
		if f != nil {
			s.newKey = f
		}
	}
}

// Store is a thread-safe in-memory document store.
type Store struct {
	mu     sync.RWMutex
	colls  map[string]*collection
	newKey docstore.KeyFunc
}

type collection struct {
	edge    bool
	order   []string
	docs    map[string]docstore.Document
	uniques [][]string
}

var _ docstore.Store = (*Store)(nil)

// New returns an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		colls:  make(map[string]*collection),
		newKey: docstore.ULIDKey,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IsEdge reports whether the named collection was created as an edge
// collection.
func (s *Store) IsEdge(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.colls[name]
	return ok && c.edge
}

// HasCollection implements docstore.Store.
func (s *Store) HasCollection(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.colls[name]
	return ok, nil
}

// CreateCollection implements docstore.Store. Creating an existing
// collection is a no-op.
func (s *Store) CreateCollection(_ context.Context, name string, edge bool) error {
	if err := docstore.CheckIdentifier(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.colls[name]; !ok {
		s.colls[name] = &collection{edge: edge, docs: make(map[string]docstore.Document)}
	}
	return nil
}

// DropCollection implements docstore.Store.
func (s *Store) DropCollection(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.colls[name]; !ok {
		return fmt.Errorf("%w: %q", docstore.ErrCollectionNotFound, name)
	}
	delete(s.colls, name)
	return nil
}

// EnsureUniqueIndex implements docstore.Store. It fails with
// docstore.ErrUniqueViolation when existing documents already collide.
func (s *Store) EnsureUniqueIndex(_ context.Context, name string, fields []string) error {
	if len(fields) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.collection(name)
	if err != nil {
		return err
	}
	for _, u := range c.uniques {
		if slices.Equal(u, fields) {
			return nil
		}
	}
	for i, k := range c.order {
		for _, other := range c.order[i+1:] {
			if sameValues(c.docs[k], c.docs[other], fields) {
				return fmt.Errorf("%w: existing documents collide on %v", docstore.ErrUniqueViolation, fields)
			}
		}
	}
	c.uniques = append(c.uniques, slices.Clone(fields))
	return nil
}

// Get implements docstore.Store.
func (s *Store) Get(_ context.Context, name, key string) (docstore.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, err := s.collection(name)
	if err != nil {
		return nil, err
	}
	doc, ok := c.docs[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", docstore.ErrNotFound, docstore.ID(name, key))
	}
	return doc.Clone(), nil
}

// Insert implements docstore.Store.
func (s *Store) Insert(_ context.Context, name string, doc docstore.Document) (docstore.Document, error) {
	stored, err := docstore.Normalize(doc)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.collection(name)
	if err != nil {
		return nil, err
	}
	key := stored.Key()
	if key == "" {
		key = s.newKey()
	}
	if _, ok := c.docs[key]; ok {
		return nil, fmt.Errorf("%w: key %q", docstore.ErrUniqueViolation, key)
	}
	docstore.Stamp(stored, name, key)
	if err := c.checkUnique(stored, ""); err != nil {
		return nil, err
	}
	c.docs[key] = stored
	c.order = append(c.order, key)
	return stored.Clone(), nil
}

// Replace implements docstore.Store.
func (s *Store) Replace(_ context.Context, name, key string, doc docstore.Document) (docstore.Document, error) {
	stored, err := docstore.Normalize(doc)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.collection(name)
	if err != nil {
		return nil, err
	}
	if _, ok := c.docs[key]; !ok {
		return nil, fmt.Errorf("%w: %s", docstore.ErrNotFound, docstore.ID(name, key))
	}
	docstore.Stamp(stored, name, key)
	if err := c.checkUnique(stored, key); err != nil {
		return nil, err
	}
	c.docs[key] = stored
	return stored.Clone(), nil
}

// Delete implements docstore.Store.
func (s *Store) Delete(_ context.Context, name, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.collection(name)
	if err != nil {
		return err
	}
	if _, ok := c.docs[key]; !ok {
		return fmt.Errorf("%w: %s", docstore.ErrNotFound, docstore.ID(name, key))
	}
	delete(c.docs, key)
	c.order = slices.DeleteFunc(c.order, func(k string) bool { return k == key })
	return nil
}

// Find implements docstore.Store. Unknown collections yield an empty result.
func (s *Store) Find(_ context.Context, name string, q docstore.Query) (docstore.Cursor, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.colls[name]
	if !ok {
		return docstore.SliceCursor(nil), nil
	}
	var (
		out     []docstore.Document
		skipped int
	)
	for _, k := range c.order {
		doc := c.docs[k]
		if !docstore.Match(doc, q.Where) {
			continue
		}
		if skipped < q.Offset {
			skipped++
			continue
		}
		out = append(out, doc.Clone())
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return docstore.SliceCursor(out), nil
}

// Close implements docstore.Store.
func (s *Store) Close(context.Context) error { return nil }

func (s *Store) collection(name string) (*collection, error) {
	c, ok := s.colls[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", docstore.ErrCollectionNotFound, name)
	}
	return c, nil
}

func (c *collection) checkUnique(doc docstore.Document, self string) error {
	for _, fields := range c.uniques {
		for k, other := range c.docs {
			if k != self && sameValues(doc, other, fields) {
				return fmt.Errorf("%w: %v", docstore.ErrUniqueViolation, fields)
			}
		}
	}
	return nil
}

// sameValues follows persistent-index semantics: a document missing any of
// the indexed fields never collides.
func sameValues(a, b docstore.Document, fields []string) bool {
	for _, f := range fields {
		va, oka := a[f]
		vb, okb := b[f]
		if !oka || !okb || va == nil || vb == nil || !docstore.Equal(va, vb) {
			return false
		}
	}
	return true
}
