package crud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/syssam/crudgen/crud/privacy"
	"github.com/syssam/crudgen/docstore"
)

// Pagination defaults shared by every list operation.
const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used to report unexpected datastore failures.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock sets the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithPolicy sets the privacy rule every operation is authorized against.
// Without one every operation is allowed.
func WithPolicy(rule privacy.Rule) Option {
	return func(s *Service) {
		s.policy = rule
	}
}

// Service implements the CRUD operations of one entity on top of a
// docstore.Store. It is safe for concurrent use.
type Service struct {
	store  docstore.Store
	entity Entity
	log    *zap.Logger
	now    func() time.Time
	policy privacy.Rule

	mu      sync.Mutex
	ensured bool
}

// NewService returns a Service for the given entity.
func NewService(store docstore.Store, e Entity, opts ...Option) *Service {
	s := &Service{
		store:  store,
		entity: e,
		log:    zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(zap.String("collection", e.Name))
	return s
}

// Entity returns the entity description of the service.
func (s *Service) Entity() Entity { return s.entity }

// Ensure creates the collection when it does not exist and installs a unique
// index for every unique combination. It runs at most once successfully.
func (s *Service) Ensure(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ensured {
		return nil
	}
	ok, err := s.store.HasCollection(ctx, s.entity.Name)
	if err != nil {
		return s.internal("ensure collection", err)
	}
	if !ok {
		if err := s.store.CreateCollection(ctx, s.entity.Name, s.entity.Edge); err != nil {
			return s.internal("create collection", err)
		}
		s.log.Info("collection created", zap.Bool("edge", s.entity.Edge))
	}
	for _, fields := range s.entity.UniqueCombinations {
		// Create still checks every combination, so a failed index only
		// loses the race protection.
		if err := s.store.EnsureUniqueIndex(ctx, s.entity.Name, fields); err != nil {
			s.log.Warn("unique index not installed", zap.Strings("fields", fields), zap.Error(err))
		}
	}
	s.ensured = true
	return nil
}

// Create validates and stores a new document.
func (s *Service) Create(ctx context.Context, data docstore.Document) (docstore.Document, error) {
	if err := s.authorize(ctx, privacy.OpCreate, "", data); err != nil {
		return nil, err
	}
	if err := s.Ensure(ctx); err != nil {
		return nil, err
	}
	doc := s.prepare(data)
	delete(doc, docstore.FieldID)
	delete(doc, docstore.FieldRev)
	for _, f := range s.entity.Required {
		if _, ok := doc[f]; !ok {
			return nil, NewMissingFieldError(s.entity.Name, f)
		}
	}
	if err := s.checkUnique(ctx, doc, ""); err != nil {
		return nil, err
	}
	for f, v := range s.entity.Defaults {
		if _, ok := doc[f]; !ok {
			doc[f] = v
		}
	}
	now := s.timestamp()
	doc[FieldCreatedAt] = now
	doc[FieldUpdatedAt] = now

	out, err := s.store.Insert(ctx, s.entity.Name, doc)
	switch {
	case errors.Is(err, docstore.ErrUniqueViolation):
		return nil, s.uniqueViolation()
	case err != nil:
		return nil, s.internal("insert", err)
	}
	return out, nil
}

// GetAll returns documents in storage order, skipping skip documents and
// returning at most limit.
func (s *Service) GetAll(ctx context.Context, skip, limit int) ([]docstore.Document, error) {
	return s.find(ctx, "get all", nil, skip, limit)
}

// GetFiltered returns documents matching every filter. Textual search fields
// match case-insensitively as substrings unless they hold identifiers; every
// other field matches exactly. On edge entities a bare key given for a link
// field is qualified with its endpoint collection. Nil filter values are
// ignored.
func (s *Service) GetFiltered(ctx context.Context, filters map[string]any, skip, limit int) ([]docstore.Document, error) {
	var where []docstore.Condition
	for field := range filters {
		if !s.entity.Searchable(field) {
			return nil, NewValidationError(s.entity.Name, field, "is not a search field")
		}
	}
	for _, field := range s.entity.searchFieldNames() {
		v, ok := filters[field]
		if !ok || v == nil {
			continue
		}
		if s.entity.Edge {
			switch field {
			case docstore.FieldFrom:
				v = endpointID(s.entity.From, fmt.Sprint(v))
			case docstore.FieldTo:
				v = endpointID(s.entity.To, fmt.Sprint(v))
			}
		}
		if s.entity.SearchFields[field].Textual() && !IsIdentifierField(field) {
			where = append(where, docstore.ContainsFold(field, fmt.Sprint(v)))
			continue
		}
		where = append(where, docstore.Eq(field, v))
	}
	return s.find(ctx, "get filtered", where, skip, limit)
}

// GetByKey returns the document stored under key.
func (s *Service) GetByKey(ctx context.Context, key string) (docstore.Document, error) {
	if err := s.authorize(ctx, privacy.OpRead, key, nil); err != nil {
		return nil, err
	}
	return s.get(ctx, key)
}

func (s *Service) get(ctx context.Context, key string) (docstore.Document, error) {
	if err := s.Ensure(ctx); err != nil {
		return nil, err
	}
	doc, err := s.store.Get(ctx, s.entity.Name, key)
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		return nil, NewNotFoundError(s.entity.Name, key)
	case err != nil:
		return nil, s.internal("get", err)
	}
	return doc, nil
}

// Update merges data onto the stored document and replaces it. Fields absent
// from data keep their stored values.
func (s *Service) Update(ctx context.Context, key string, data docstore.Document) (docstore.Document, error) {
	if err := s.authorize(ctx, privacy.OpUpdate, key, data); err != nil {
		return nil, err
	}
	existing, err := s.get(ctx, key)
	if err != nil {
		return nil, err
	}
	merged := existing.Clone()
	for k, v := range s.prepare(data) {
		merged[k] = v
	}
	merged[FieldUpdatedAt] = s.timestamp()
	delete(merged, docstore.FieldID)
	delete(merged, docstore.FieldRev)
	merged[docstore.FieldKey] = key

	if err := s.checkUnique(ctx, merged, key); err != nil {
		return nil, err
	}
	out, err := s.store.Replace(ctx, s.entity.Name, key, merged)
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		return nil, NewNotFoundError(s.entity.Name, key)
	case errors.Is(err, docstore.ErrUniqueViolation):
		return nil, s.uniqueViolation()
	case err != nil:
		return nil, s.internal("replace", err)
	}
	return out, nil
}

// Delete removes the document stored under key. It fails with a conflict
// when an edge of a constrained collection still references the document.
func (s *Service) Delete(ctx context.Context, key string) error {
	if err := s.authorize(ctx, privacy.OpDelete, key, nil); err != nil {
		return err
	}
	if _, err := s.get(ctx, key); err != nil {
		return err
	}
	id := docstore.ID(s.entity.Name, key)
	for _, coll := range s.entity.DeletionConstraints {
		for _, link := range []string{docstore.FieldFrom, docstore.FieldTo} {
			docs, err := s.findIn(ctx, coll, []docstore.Condition{docstore.Eq(link, id)}, 0, 1)
			if err != nil {
				return s.internal("check references", err)
			}
			if len(docs) > 0 {
				return NewReferencedError(s.entity.Name, key, coll)
			}
		}
	}
	switch err := s.store.Delete(ctx, s.entity.Name, key); {
	case errors.Is(err, docstore.ErrNotFound):
		return NewNotFoundError(s.entity.Name, key)
	case err != nil:
		return s.internal("delete", err)
	}
	return nil
}

// GetByFrom returns the edges leaving the given document of the From
// collection.
func (s *Service) GetByFrom(ctx context.Context, fromKey string) ([]docstore.Document, error) {
	if err := s.traversable(); err != nil {
		return nil, err
	}
	return s.find(ctx, "get by from", []docstore.Condition{
		docstore.Eq(docstore.FieldFrom, endpointID(s.entity.From, fromKey)),
	}, 0, 0)
}

// GetByTo returns the edges reaching the given document of the To
// collection.
func (s *Service) GetByTo(ctx context.Context, toKey string) ([]docstore.Document, error) {
	if err := s.traversable(); err != nil {
		return nil, err
	}
	return s.find(ctx, "get by to", []docstore.Condition{
		docstore.Eq(docstore.FieldTo, endpointID(s.entity.To, toKey)),
	}, 0, 0)
}

// GetByFromTo returns the edges linking the two given documents.
func (s *Service) GetByFromTo(ctx context.Context, fromKey, toKey string) ([]docstore.Document, error) {
	if err := s.traversable(); err != nil {
		return nil, err
	}
	return s.find(ctx, "get by from and to", []docstore.Condition{
		docstore.Eq(docstore.FieldFrom, endpointID(s.entity.From, fromKey)),
		docstore.Eq(docstore.FieldTo, endpointID(s.entity.To, toKey)),
	}, 0, 0)
}

func (s *Service) traversable() error {
	if !s.entity.Traversable() {
		return NewValidationError(s.entity.Name, "", "is not an edge entity with known endpoints")
	}
	return nil
}

// prepare copies data, renaming edge aliases and qualifying endpoint keys.
func (s *Service) prepare(data docstore.Document) docstore.Document {
	doc := data.Clone()
	if doc == nil {
		doc = docstore.Document{}
	}
	if !s.entity.Edge {
		return doc
	}
	for alias, field := range EdgeAliases {
		if v, ok := doc[alias]; ok {
			if _, set := doc[field]; !set {
				doc[field] = v
			}
			delete(doc, alias)
		}
	}
	if ref, ok := doc[docstore.FieldFrom].(string); ok {
		doc[docstore.FieldFrom] = endpointID(s.entity.From, ref)
	}
	if ref, ok := doc[docstore.FieldTo].(string); ok {
		doc[docstore.FieldTo] = endpointID(s.entity.To, ref)
	}
	return doc
}

// checkUnique rejects doc when another document shares the values of every
// field of a unique combination. Missing fields compare as null.
func (s *Service) checkUnique(ctx context.Context, doc docstore.Document, self string) error {
	for _, fields := range s.entity.UniqueCombinations {
		where := make([]docstore.Condition, 0, len(fields))
		for _, f := range fields {
			where = append(where, docstore.Eq(f, doc[f]))
		}
		docs, err := s.findIn(ctx, s.entity.Name, where, 0, 2)
		if err != nil {
			if errors.Is(err, docstore.ErrUnsupportedFilter) {
				return NewValidationError(s.entity.Name, "", fmt.Sprintf("unique fields %v must hold scalar values", fields))
			}
			return s.internal("check unique", err)
		}
		for _, d := range docs {
			if self == "" || d.Key() != self {
				return NewUniqueConflictError(s.entity.Name, fields)
			}
		}
	}
	return nil
}

// uniqueViolation reports a conflict raised by a storage-level index.
func (s *Service) uniqueViolation() error {
	if len(s.entity.UniqueCombinations) > 0 {
		return NewUniqueConflictError(s.entity.Name, s.entity.UniqueCombinations[0])
	}
	return NewUniqueConflictError(s.entity.Name, []string{docstore.FieldKey})
}

func (s *Service) find(ctx context.Context, op string, where []docstore.Condition, skip, limit int) ([]docstore.Document, error) {
	if err := s.authorize(ctx, privacy.OpRead, "", nil); err != nil {
		return nil, err
	}
	if err := s.Ensure(ctx); err != nil {
		return nil, err
	}
	docs, err := s.findIn(ctx, s.entity.Name, where, skip, limit)
	if err != nil {
		if errors.Is(err, docstore.ErrUnsupportedFilter) || errors.Is(err, docstore.ErrInvalidIdentifier) {
			return nil, NewValidationError(s.entity.Name, "", err.Error())
		}
		return nil, s.internal(op, err)
	}
	return docs, nil
}

func (s *Service) findIn(ctx context.Context, coll string, where []docstore.Condition, skip, limit int) ([]docstore.Document, error) {
	cur, err := s.store.Find(ctx, coll, docstore.Query{Where: where, Offset: max(skip, 0), Limit: limit})
	if err != nil {
		return nil, err
	}
	return docstore.All(ctx, cur)
}

// authorize evaluates the policy of the service for one operation.
func (s *Service) authorize(ctx context.Context, op privacy.Op, key string, data docstore.Document) error {
	if s.policy == nil {
		return nil
	}
	err := s.policy.Eval(ctx, &privacy.Request{Collection: s.entity.Name, Op: op, Key: key, Data: data})
	if err == nil || errors.Is(err, privacy.Allow) || errors.Is(err, privacy.Skip) {
		return nil
	}
	s.log.Debug("operation denied", zap.Stringer("op", op), zap.String("key", key), zap.Error(err))
	return NewForbiddenError(s.entity.Name, op.String(), err)
}

func (s *Service) internal(op string, err error) error {
	s.log.Error("datastore failure", zap.String("op", op), zap.Error(err))
	return NewInternalError(op, err)
}

func (s *Service) timestamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

// Decode converts a stored document into a generated model.
func Decode[T any](doc docstore.Document) (*T, error) {
	buf, err := json.Marshal(doc)
	if err != nil {
		return nil, NewInternalError("decode", err)
	}
	v := new(T)
	if err := json.Unmarshal(buf, v); err != nil {
		return nil, NewInternalError("decode", err)
	}
	return v, nil
}

// DecodeAll converts a slice of stored documents into generated models.
func DecodeAll[T any](docs []docstore.Document) ([]*T, error) {
	out := make([]*T, 0, len(docs))
	for _, doc := range docs {
		v, err := Decode[T](doc)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// ClampLimit applies the default and maximum page size.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}
