// Package sqlite implements docstore.Store on SQLite using the pure Go
// modernc.org/sqlite driver. Every collection is a table holding one JSON
// document per row; filters and unique indexes are evaluated with json_extract.
package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"

	"github.com/syssam/crudgen/docstore"
)

// DriverName is the database/sql driver used by Open.
const DriverName = "sqlite"

// foldFunc is the SQL function applying docstore.Fold to a text value.
// SQLite's lower() and LIKE only fold ASCII.
const foldFunc = "crudgen_fold"

func init() {
	if err := sqlite.RegisterDeterministicScalarFunction(foldFunc, 1, fold); err != nil {
		panic(fmt.Sprintf("docstore/sqlite: register %s: %v", foldFunc, err))
	}
}

func fold(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return docstore.Fold(v), nil
	case []byte:
		return docstore.Fold(string(v)), nil
	default:
		return v, nil
	}
}

// metaTable records every collection and whether it is an edge collection.
const metaTable = "crudgen_collections"

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

// Store is a docstore.Store backed by a SQLite database.
type Store struct {
	db     *sql.DB
	conn   *conn
	newKey docstore.KeyFunc
}

var _ docstore.Store = (*Store)(nil)

// Open opens the database at dsn and prepares the collection catalog.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("docstore/sqlite: open: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes
	// writers.
	db.SetMaxOpenConns(1)
	s := NewDB(db, opts...)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewDB wraps an existing database handle. Callers must run Migrate before
// the first collection is created.
func NewDB(db *sql.DB, opts ...Option) *Store {
	s := &Store{db: db, conn: newConn(db), newKey: docstore.ULIDKey}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB { return s.db }

// Migrate creates the collection catalog table.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.conn.ExecContext(ctx, createMetaSQL); err != nil {
		return fmt.Errorf("docstore/sqlite: migrate: %w", err)
	}
	return nil
}

const (
	createMetaSQL  = `CREATE TABLE IF NOT EXISTS ` + metaTable + ` (name TEXT PRIMARY KEY, edge INTEGER NOT NULL DEFAULT 0)`
	selectMetaSQL  = `SELECT edge FROM ` + metaTable + ` WHERE name = ?`
	insertMetaSQL  = `INSERT INTO ` + metaTable + ` (name, edge) VALUES (?, ?) ON CONFLICT(name) DO NOTHING`
	deleteMetaSQL  = `DELETE FROM ` + metaTable + ` WHERE name = ?`
	createTableFmt = `CREATE TABLE IF NOT EXISTS %s (seq INTEGER PRIMARY KEY AUTOINCREMENT, key TEXT NOT NULL UNIQUE, doc TEXT NOT NULL)`
)

// HasCollection implements docstore.Store.
func (s *Store) HasCollection(ctx context.Context, name string) (bool, error) {
	var edge bool
	switch err := s.conn.QueryRowContext(ctx, selectMetaSQL, name).Scan(&edge); {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("docstore/sqlite: has collection: %w", err)
	}
	return true, nil
}

// IsEdge reports whether the named collection was created as an edge
// collection.
func (s *Store) IsEdge(ctx context.Context, name string) (bool, error) {
	var edge bool
	if err := s.conn.QueryRowContext(ctx, selectMetaSQL, name).Scan(&edge); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, fmt.Errorf("%w: %q", docstore.ErrCollectionNotFound, name)
		}
		return false, fmt.Errorf("docstore/sqlite: is edge: %w", err)
	}
	return edge, nil
}

// CreateCollection implements docstore.Store.
func (s *Store) CreateCollection(ctx context.Context, name string, edge bool) error {
	if err := docstore.CheckIdentifier(name); err != nil {
		return err
	}
	return s.tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(createTableFmt, table(name))); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, insertMetaSQL, name, edge)
		return err
	})
}

// DropCollection implements docstore.Store.
func (s *Store) DropCollection(ctx context.Context, name string) error {
	if err := docstore.CheckIdentifier(name); err != nil {
		return err
	}
	ok, err := s.HasCollection(ctx, name)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %q", docstore.ErrCollectionNotFound, name)
	}
	return s.tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+table(name)); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, deleteMetaSQL, name)
		return err
	})
}

// EnsureUniqueIndex implements docstore.Store.
func (s *Store) EnsureUniqueIndex(ctx context.Context, name string, fields []string) error {
	if len(fields) == 0 {
		return nil
	}
	if err := docstore.CheckIdentifier(name); err != nil {
		return err
	}
	exprs := make([]string, len(fields))
	for i, f := range fields {
		if err := docstore.CheckIdentifier(f); err != nil {
			return err
		}
		exprs[i] = extract(f)
	}
	query := fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (%s)",
		quote("ux_"+name+"_"+strings.Join(fields, "_")), table(name), strings.Join(exprs, ", "))
	if _, err := s.conn.ExecContext(ctx, query); err != nil {
		return mapError("ensure unique index", err)
	}
	return nil
}

// Get implements docstore.Store.
func (s *Store) Get(ctx context.Context, name, key string) (docstore.Document, error) {
	if err := docstore.CheckIdentifier(name); err != nil {
		return nil, err
	}
	var raw string
	err := s.conn.QueryRowContext(ctx, "SELECT doc FROM "+table(name)+" WHERE key = ?", key).Scan(&raw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("%w: %s", docstore.ErrNotFound, docstore.ID(name, key))
	case err != nil:
		return nil, mapError("get", err)
	}
	return decode(raw)
}

// Insert implements docstore.Store.
func (s *Store) Insert(ctx context.Context, name string, doc docstore.Document) (docstore.Document, error) {
	if err := docstore.CheckIdentifier(name); err != nil {
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
	buf, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("docstore/sqlite: encode: %w", err)
	}
	if _, err := s.conn.ExecContext(ctx, "INSERT INTO "+table(name)+" (key, doc) VALUES (?, ?)", key, string(buf)); err != nil {
		return nil, mapError("insert", err)
	}
	return stored, nil
}

// Replace implements docstore.Store.
func (s *Store) Replace(ctx context.Context, name, key string, doc docstore.Document) (docstore.Document, error) {
	if err := docstore.CheckIdentifier(name); err != nil {
		return nil, err
	}
	stored, err := docstore.Normalize(doc)
	if err != nil {
		return nil, err
	}
	docstore.Stamp(stored, name, key)
	buf, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("docstore/sqlite: encode: %w", err)
	}
	res, err := s.conn.ExecContext(ctx, "UPDATE "+table(name)+" SET doc = ? WHERE key = ?", string(buf), key)
	if err != nil {
		return nil, mapError("replace", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, mapError("replace", err)
	} else if n == 0 {
		return nil, fmt.Errorf("%w: %s", docstore.ErrNotFound, docstore.ID(name, key))
	}
	return stored, nil
}

// Delete implements docstore.Store.
func (s *Store) Delete(ctx context.Context, name, key string) error {
	if err := docstore.CheckIdentifier(name); err != nil {
		return err
	}
	res, err := s.conn.ExecContext(ctx, "DELETE FROM "+table(name)+" WHERE key = ?", key)
	if err != nil {
		return mapError("delete", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return mapError("delete", err)
	} else if n == 0 {
		return fmt.Errorf("%w: %s", docstore.ErrNotFound, docstore.ID(name, key))
	}
	return nil
}

// Find implements docstore.Store. Unknown collections yield an empty result.
func (s *Store) Find(ctx context.Context, name string, q docstore.Query) (docstore.Cursor, error) {
	if err := docstore.CheckIdentifier(name); err != nil {
		return nil, err
	}
	query, args, err := selectQuery(name, q)
	if err != nil {
		return nil, err
	}
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		if err = mapError("find", err); errors.Is(err, docstore.ErrCollectionNotFound) {
			return docstore.SliceCursor(nil), nil
		}
		return nil, err
	}
	return &cursor{rows: rows}, nil
}

// Stats returns the statement statistics of the store.
func (s *Store) Stats() StatsSnapshot { return s.conn.stats.Snapshot() }

// ResetStats sets the statement statistics to zero.
func (s *Store) ResetStats() { s.conn.stats.Reset() }

// Close implements docstore.Store.
func (s *Store) Close(context.Context) error { return s.db.Close() }

func (s *Store) tx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("docstore/sqlite: begin: %w", err)
	}
	if err := fn(tx); err != nil {
		return errors.Join(mapError("exec", err), tx.Rollback())
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("docstore/sqlite: commit: %w", err)
	}
	return nil
}

// selectQuery builds the statement for q. Field names are validated
// identifiers; every value is bound as a parameter.
func selectQuery(name string, q docstore.Query) (string, []any, error) {
	if err := q.Validate(); err != nil {
		return "", nil, err
	}
	var (
		b     strings.Builder
		args  []any
		where []string
	)
	for _, c := range q.Where {
		col := extract(c.Field)
		switch c.Op {
		case docstore.OpEq:
			switch v := c.Value.(type) {
			case nil:
				where = append(where, col+" IS NULL")
			case bool:
				where = append(where, fmt.Sprintf("json_type(doc, '$.%s') = ?", c.Field))
				args = append(args, map[bool]string{true: "true", false: "false"}[v])
			default:
				where = append(where, col+" = ?")
				args = append(args, v)
			}
		case docstore.OpContainsFold:
			where = append(where, fmt.Sprintf("json_type(doc, '$.%s') = 'text' AND %s(%s) LIKE ? ESCAPE '\\'", c.Field, foldFunc, col))
			args = append(args, "%"+escapeLike(docstore.Fold(c.Value.(string)))+"%")
		}
	}
	b.WriteString("SELECT doc FROM " + table(name))
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY seq LIMIT ? OFFSET ?")
	limit := q.Limit
	if limit <= 0 {
		limit = -1
	}
	return b.String(), append(args, limit, q.Offset), nil
}

type cursor struct {
	rows *sql.Rows
	doc  docstore.Document
	err  error
}

func (c *cursor) Next(context.Context) bool {
	if c.err != nil || !c.rows.Next() {
		return false
	}
	var raw string
	if err := c.rows.Scan(&raw); err != nil {
		c.err = fmt.Errorf("docstore/sqlite: scan: %w", err)
		return false
	}
	c.doc, c.err = decode(raw)
	return c.err == nil
}

func (c *cursor) Document() docstore.Document { return c.doc }

func (c *cursor) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.rows.Err()
}

func (c *cursor) Close(context.Context) error { return c.rows.Close() }

func decode(raw string) (docstore.Document, error) {
	var doc docstore.Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("docstore/sqlite: decode: %w", err)
	}
	return doc, nil
}

// mapError translates driver errors into docstore sentinels.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return fmt.Errorf("%w: %s: %v", docstore.ErrUniqueViolation, op, err)
	case strings.Contains(msg, "no such table"):
		return fmt.Errorf("%w: %s: %v", docstore.ErrCollectionNotFound, op, err)
	default:
		return fmt.Errorf("docstore/sqlite: %s: %w", op, err)
	}
}

func table(name string) string { return quote("c_" + name) }

func quote(ident string) string { return `"` + ident + `"` }

func extract(field string) string { return fmt.Sprintf("json_extract(doc, '$.%s')", field) }

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
