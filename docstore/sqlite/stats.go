package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// DefaultSlowThreshold is the duration above which a statement counts as
// slow.
const DefaultSlowThreshold = 100 * time.Millisecond

// WithSlowQueryLog logs statements slower than threshold to l. A zero
// threshold keeps DefaultSlowThreshold.
func WithSlowQueryLog(l *zap.Logger, threshold time.Duration) Option {
	return func(s *Store) {
		if l != nil {
			s.conn.log = l
		}
		if threshold > 0 {
			s.conn.slow = threshold
		}
	}
}

// QueryStats holds statement statistics.
type QueryStats struct {
	queries  atomic.Int64
	execs    atomic.Int64
	duration atomic.Int64 // nanoseconds
	slow     atomic.Int64
	errors   atomic.Int64
}

// Snapshot returns the current statistics.
func (s *QueryStats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Queries:  s.queries.Load(),
		Execs:    s.execs.Load(),
		Duration: time.Duration(s.duration.Load()),
		Slow:     s.slow.Load(),
		Errors:   s.errors.Load(),
	}
}

// Reset sets every counter to zero.
func (s *QueryStats) Reset() {
	s.queries.Store(0)
	s.execs.Store(0)
	s.duration.Store(0)
	s.slow.Store(0)
	s.errors.Store(0)
}

// StatsSnapshot is a point-in-time copy of QueryStats.
type StatsSnapshot struct {
	Queries  int64
	Execs    int64
	Duration time.Duration
	Slow     int64
	Errors   int64
}

// AvgDuration returns the mean statement duration.
func (s StatsSnapshot) AvgDuration() time.Duration {
	total := s.Queries + s.Execs
	if total == 0 {
		return 0
	}
	return s.Duration / time.Duration(total)
}

// String returns a one-line summary.
func (s StatsSnapshot) String() string {
	return fmt.Sprintf("queries=%d execs=%d duration=%s avg=%s slow=%d errors=%d",
		s.Queries, s.Execs, s.Duration, s.AvgDuration(), s.Slow, s.Errors)
}

// conn runs statements on the database handle and records their
// statistics. Statements run inside transactions are not recorded.
type conn struct {
	db    *sql.DB
	stats QueryStats
	slow  time.Duration
	log   *zap.Logger
}

func newConn(db *sql.DB) *conn {
	return &conn{db: db, slow: DefaultSlowThreshold, log: zap.NewNop()}
}

func (c *conn) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	res, err := c.db.ExecContext(ctx, query, args...)
	c.record(query, args, start, err, false)
	return res, err
}

func (c *conn) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := c.db.QueryContext(ctx, query, args...)
	c.record(query, args, start, err, true)
	return rows, err
}

// QueryRowContext defers errors to Scan, so they are not counted.
func (c *conn) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	start := time.Now()
	row := c.db.QueryRowContext(ctx, query, args...)
	c.record(query, args, start, nil, true)
	return row
}

func (c *conn) record(query string, args []any, start time.Time, err error, isQuery bool) {
	d := time.Since(start)
	if isQuery {
		c.stats.queries.Add(1)
	} else {
		c.stats.execs.Add(1)
	}
	c.stats.duration.Add(int64(d))
	if err != nil {
		c.stats.errors.Add(1)
	}
	if d > c.slow {
		c.stats.slow.Add(1)
		c.log.Warn("slow query", zap.Duration("took", d), zap.String("query", query), zap.Int("args", len(args)))
	}
}
