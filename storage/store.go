// Package storage persists the Beaver catalog in SQLite or Postgres.
// Queries are written with '?' placeholders and rebound per dialect.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/archbeaver/beaver/db"
	"github.com/archbeaver/beaver/errors"
)

// querier is satisfied by *sql.DB and *sql.Tx.
// SQLite runs with a single connection, so statements inside a transaction
// must go through the transaction or they block on the pool.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Store implements catalog persistence on database/sql
type Store struct {
	db      *sql.DB
	dialect db.Dialect
	logger  *zap.SugaredLogger
	now     func() time.Time
}

// New creates a store on an opened, migrated connection
func New(conn *db.DB, logger *zap.SugaredLogger) *Store {
	return NewWithDialect(conn.DB, conn.Dialect, logger)
}

// NewWithDialect creates a store on a raw connection
func NewWithDialect(raw *sql.DB, dialect db.Dialect, logger *zap.SugaredLogger) *Store {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Store{
		db:      raw,
		dialect: dialect,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Ping checks the connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) rebind(query string) string {
	return db.Rebind(s.dialect, query)
}

func (s *Store) exec(ctx context.Context, q querier, query string, args ...interface{}) (sql.Result, error) {
	return q.ExecContext(ctx, s.rebind(query), args...)
}

func (s *Store) query(ctx context.Context, q querier, query string, args ...interface{}) (*sql.Rows, error) {
	return q.QueryContext(ctx, s.rebind(query), args...)
}

func (s *Store) queryRow(ctx context.Context, q querier, query string, args ...interface{}) *sql.Row {
	return q.QueryRowContext(ctx, s.rebind(query), args...)
}

// insert runs an INSERT ... RETURNING id and returns the new id
func (s *Store) insert(ctx context.Context, q querier, query string, args ...interface{}) (int64, error) {
	var id int64
	if err := s.queryRow(ctx, q, query+" RETURNING id", args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// withTx runs fn in a transaction, rolling back on error
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Warnw("Rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}

// affected turns a zero-row UPDATE/DELETE into a NotFoundError
func affected(res sql.Result, entity string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read affected rows")
	}
	if n == 0 {
		return errors.NewNotFoundError("%s %d not found", entity, id)
	}
	return nil
}

func marshalTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal tags")
	}
	return string(b), nil
}

func unmarshalTags(raw string) ([]string, error) {
	tags := []string{}
	if raw == "" {
		return tags, nil
	}
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal tags")
	}
	return tags, nil
}

func marshalSpecs(specs map[string]interface{}) (string, error) {
	if specs == nil {
		specs = map[string]interface{}{}
	}
	b, err := json.Marshal(specs)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal specs")
	}
	return string(b), nil
}

func unmarshalSpecs(raw string) (map[string]interface{}, error) {
	specs := map[string]interface{}{}
	if raw == "" {
		return specs, nil
	}
	if err := json.Unmarshal([]byte(raw), &specs); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal specs")
	}
	return specs, nil
}

func nullInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func ptrInt64(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}
