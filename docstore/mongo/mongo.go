// Package mongo implements docstore.Store on MongoDB. A document's _id is the
// "<collection>/<key>" identifier, so point reads use the primary index.
// Edge flags live in a catalog collection because MongoDB has no native edge
// collections.
package mongo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"

	"github.com/syssam/crudgen/docstore"
)

// catalog is the collection that records edge flags.
const catalog = "crudgen_collections"

// namespaceExists is the server error code for an existing collection.
const namespaceExists = 48

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

// WithLogger sets the logger used for connection events.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// Store is a docstore.Store backed by a MongoDB database.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	newKey docstore.KeyFunc
	log    *zap.Logger
}

var _ docstore.Store = (*Store)(nil)

// Open connects to uri, verifies the connection and returns a Store over the
// named database.
func Open(ctx context.Context, uri, database string, opts ...Option) (*Store, error) {
	if uri == "" {
		return nil, errors.New("docstore/mongo: uri is empty")
	}
	if database == "" {
		return nil, errors.New("docstore/mongo: database is empty")
	}
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("docstore/mongo: connect: %w", err)
	}
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("docstore/mongo: ping: %w", err)
	}
	s := New(client.Database(database), opts...)
	s.client = client
	s.log.Info("open mongodb success", zap.String("database", database))
	return s, nil
}

// New returns a Store over an existing database handle. Close does not
// disconnect clients it did not open.
func New(db *mongo.Database, opts ...Option) *Store {
	s := &Store{db: db, newKey: docstore.ULIDKey, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HasCollection implements docstore.Store.
func (s *Store) HasCollection(ctx context.Context, name string) (bool, error) {
	names, err := s.db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return false, fmt.Errorf("docstore/mongo: list collections: %w", err)
	}
	return len(names) > 0, nil
}

// IsEdge reports whether the named collection was created as an edge
// collection.
func (s *Store) IsEdge(ctx context.Context, name string) (bool, error) {
	var entry struct {
		Edge bool `bson:"edge"`
	}
	err := s.db.Collection(catalog).FindOne(ctx, bson.D{{Key: "_id", Value: name}}).Decode(&entry)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return false, fmt.Errorf("%w: %q", docstore.ErrCollectionNotFound, name)
	case err != nil:
		return false, fmt.Errorf("docstore/mongo: is edge: %w", err)
	}
	return entry.Edge, nil
}

// CreateCollection implements docstore.Store.
func (s *Store) CreateCollection(ctx context.Context, name string, edge bool) error {
	if err := docstore.CheckIdentifier(name); err != nil {
		return err
	}
	if err := s.db.CreateCollection(ctx, name); err != nil {
		var cmdErr mongo.CommandError
		if !errors.As(err, &cmdErr) || cmdErr.Code != namespaceExists {
			return fmt.Errorf("docstore/mongo: create collection: %w", err)
		}
	}
	_, err := s.db.Collection(catalog).ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: name}},
		bson.D{{Key: "_id", Value: name}, {Key: "edge", Value: edge}},
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("docstore/mongo: record collection: %w", err)
	}
	return nil
}

// DropCollection implements docstore.Store.
func (s *Store) DropCollection(ctx context.Context, name string) error {
	ok, err := s.HasCollection(ctx, name)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %q", docstore.ErrCollectionNotFound, name)
	}
	if err := s.db.Collection(name).Drop(ctx); err != nil {
		return fmt.Errorf("docstore/mongo: drop collection: %w", err)
	}
	if _, err := s.db.Collection(catalog).DeleteOne(ctx, bson.D{{Key: "_id", Value: name}}); err != nil {
		return fmt.Errorf("docstore/mongo: forget collection: %w", err)
	}
	return nil
}

// EnsureUniqueIndex implements docstore.Store. The index is partial so that
// documents missing any indexed field never collide.
func (s *Store) EnsureUniqueIndex(ctx context.Context, name string, fields []string) error {
	if len(fields) == 0 {
		return nil
	}
	keys := make(bson.D, 0, len(fields))
	partial := make(bson.D, 0, len(fields))
	for _, f := range fields {
		if err := docstore.CheckIdentifier(f); err != nil {
			return err
		}
		keys = append(keys, bson.E{Key: f, Value: 1})
		partial = append(partial, bson.E{Key: f, Value: bson.D{{Key: "$exists", Value: true}}})
	}
	_, err := s.db.Collection(name).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: keys,
		Options: options.Index().
			SetName("ux_" + strings.Join(fields, "_")).
			SetUnique(true).
			SetPartialFilterExpression(partial),
	})
	if err != nil {
		return mapError("ensure unique index", err)
	}
	return nil
}

// Get implements docstore.Store.
func (s *Store) Get(ctx context.Context, name, key string) (docstore.Document, error) {
	raw, err := s.db.Collection(name).FindOne(ctx, bson.D{{Key: "_id", Value: docstore.ID(name, key)}}).Raw()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s", docstore.ErrNotFound, docstore.ID(name, key))
	}
	if err != nil {
		return nil, mapError("get", err)
	}
	return decode(raw)
}

// Insert implements docstore.Store. MongoDB creates missing collections
// implicitly, so inserts into an unknown collection are rejected explicitly.
func (s *Store) Insert(ctx context.Context, name string, doc docstore.Document) (docstore.Document, error) {
	if err := s.mustExist(ctx, name); err != nil {
		return nil, err
	}
	stored, err := docstore.Normalize(doc)
	if err != nil {
		return nil, err
	}
	key := stored.Key()
	if key == "" {
		key = s.newKey()
	}
	docstore.Stamp(stored, name, key)
	if _, err := s.db.Collection(name).InsertOne(ctx, map[string]any(stored)); err != nil {
		return nil, mapError("insert", err)
	}
	return stored, nil
}

// Replace implements docstore.Store.
func (s *Store) Replace(ctx context.Context, name, key string, doc docstore.Document) (docstore.Document, error) {
	stored, err := docstore.Normalize(doc)
	if err != nil {
		return nil, err
	}
	docstore.Stamp(stored, name, key)
	res, err := s.db.Collection(name).ReplaceOne(ctx, bson.D{{Key: "_id", Value: docstore.ID(name, key)}}, map[string]any(stored))
	if err != nil {
		return nil, mapError("replace", err)
	}
	if res.MatchedCount == 0 {
		return nil, fmt.Errorf("%w: %s", docstore.ErrNotFound, docstore.ID(name, key))
	}
	return stored, nil
}

// Delete implements docstore.Store.
func (s *Store) Delete(ctx context.Context, name, key string) error {
	res, err := s.db.Collection(name).DeleteOne(ctx, bson.D{{Key: "_id", Value: docstore.ID(name, key)}})
	if err != nil {
		return mapError("delete", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", docstore.ErrNotFound, docstore.ID(name, key))
	}
	return nil
}

// Find implements docstore.Store.
func (s *Store) Find(ctx context.Context, name string, q docstore.Query) (docstore.Cursor, error) {
	filter, err := Filter(q)
	if err != nil {
		return nil, err
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "$natural", Value: 1}}).
		SetSkip(int64(q.Offset))
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}
	cur, err := s.db.Collection(name).Find(ctx, filter, opts)
	if err != nil {
		return nil, mapError("find", err)
	}
	return &cursor{cur: cur}, nil
}

// Close implements docstore.Store.
func (s *Store) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

func (s *Store) mustExist(ctx context.Context, name string) error {
	ok, err := s.HasCollection(ctx, name)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %q", docstore.ErrCollectionNotFound, name)
	}
	return nil
}

// Filter translates q into a MongoDB filter document.
func Filter(q docstore.Query) (bson.D, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if len(q.Where) == 0 {
		return bson.D{}, nil
	}
	and := make(bson.A, 0, len(q.Where))
	for _, c := range q.Where {
		switch c.Op {
		case docstore.OpEq:
			and = append(and, bson.D{{Key: c.Field, Value: c.Value}})
		case docstore.OpContainsFold:
			and = append(and, bson.D{{Key: c.Field, Value: bson.D{
				{Key: "$regex", Value: regexp.QuoteMeta(c.Value.(string))},
				{Key: "$options", Value: "i"},
			}}})
		}
	}
	return bson.D{{Key: "$and", Value: and}}, nil
}

type cursor struct {
	cur *mongo.Cursor
	doc docstore.Document
	err error
}

func (c *cursor) Next(ctx context.Context) bool {
	if c.err != nil || !c.cur.Next(ctx) {
		return false
	}
	c.doc, c.err = decode(c.cur.Current)
	return c.err == nil
}

func (c *cursor) Document() docstore.Document { return c.doc }

func (c *cursor) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.cur.Err()
}

func (c *cursor) Close(ctx context.Context) error { return c.cur.Close(ctx) }

// decode converts a BSON document to its JSON representation through
// relaxed extended JSON.
func decode(raw bson.Raw) (docstore.Document, error) {
	buf, err := bson.MarshalExtJSON(raw, false, false)
	if err != nil {
		return nil, fmt.Errorf("docstore/mongo: decode: %w", err)
	}
	var doc docstore.Document
	if err := json.Unmarshal(buf, &doc); err != nil {
		return nil, fmt.Errorf("docstore/mongo: decode: %w", err)
	}
	return doc, nil
}

func mapError(op string, err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %s: %v", docstore.ErrUniqueViolation, op, err)
	}
	return fmt.Errorf("docstore/mongo: %s: %w", op, err)
}
