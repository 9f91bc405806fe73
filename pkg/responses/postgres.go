package responses

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx driver
)

// PostgresStore inserts rows into a Postgres table through the pgx
// database/sql driver. Multi-valued columns are text[].
type PostgresStore struct {
	db     *sql.DB
	schema Schema
	insert string
}

var sqlOpen = sql.Open

// OpenPostgres connects to dsn and verifies the connection. When ensure is
// set the response table is created if missing.
func OpenPostgres(ctx context.Context, dsn string, schema Schema, ensure bool) (*PostgresStore, error) {
	if dsn == "" {
		return nil, errors.New("responses: postgres DSN is required")
	}
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	db, err := sqlOpen("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("responses: open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("responses: ping postgres: %w", err)
	}
	store := NewPostgresStore(db, schema)
	if ensure {
		if err := store.EnsureTable(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return store, nil
}

// NewPostgresStore wraps an open database handle.
func NewPostgresStore(db *sql.DB, schema Schema) *PostgresStore {
	return &PostgresStore{
		db:     db,
		schema: schema,
		insert: insertSQL(schema, func(i int) string { return "$" + strconv.Itoa(i) }),
	}
}

// EnsureTable creates the response table if it does not exist.
func (s *PostgresStore) EnsureTable(ctx context.Context) error {
	ddl := createTableSQL(s.schema, "id BIGSERIAL PRIMARY KEY", postgresType)
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("responses: create table %s: %w", s.schema.Table, err)
	}
	return nil
}

func (s *PostgresStore) Insert(ctx context.Context, row Row) error {
	args, err := insertArgs(s.schema, row, func(_ Column, v any) (any, error) { return v, nil })
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, s.insert, args...); err != nil {
		return fmt.Errorf("responses: insert: %w", err)
	}
	return nil
}

// DB exposes the underlying handle.
func (s *PostgresStore) DB() *sql.DB { return s.db }

func (s *PostgresStore) Close() error { return s.db.Close() }

func postgresType(col Column) string {
	if col.Multi {
		return "TEXT[] NOT NULL DEFAULT '{}'"
	}
	return "TEXT"
}
