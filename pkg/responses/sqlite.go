package responses

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // register sqlite driver
)

// SQLiteStore inserts rows into a SQLite file. Multi-valued columns are
// stored as JSON arrays in TEXT columns.
type SQLiteStore struct {
	db     *sql.DB
	schema Schema
	insert string
}

// OpenSQLite opens (creating if needed) the database at path and ensures the
// response table exists.
func OpenSQLite(ctx context.Context, path string, schema Schema) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("responses: sqlite path is required")
	}
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("responses: create sqlite dir: %w", err)
		}
	}
	db, err := sqlOpen("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("responses: open sqlite: %w", err)
	}
	// one writer; also keeps ":memory:" on a single connection
	db.SetMaxOpenConns(1)
	store := &SQLiteStore{
		db:     db,
		schema: schema,
		insert: insertSQL(schema, func(int) string { return "?" }),
	}
	ddl := createTableSQL(schema, "id INTEGER PRIMARY KEY AUTOINCREMENT", sqliteType)
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("responses: create table %s: %w", schema.Table, err)
	}
	return store, nil
}

func (s *SQLiteStore) Insert(ctx context.Context, row Row) error {
	args, err := insertArgs(s.schema, row, sqliteValue)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, s.insert, args...); err != nil {
		return fmt.Errorf("responses: insert: %w", err)
	}
	return nil
}

// Rows reads back every stored row in insert order.
func (s *SQLiteStore) Rows(ctx context.Context) ([]Row, error) {
	names := make([]string, len(s.schema.Columns))
	for i, col := range s.schema.Columns {
		names[i] = col.Name
	}
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY id", strings.Join(names, ", "), s.schema.Table)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("responses: query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Row
	for rows.Next() {
		cells := make([]sql.NullString, len(names))
		dest := make([]any, len(names))
		for i := range cells {
			dest[i] = &cells[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("responses: scan: %w", err)
		}
		row := make(Row, len(names))
		for i, col := range s.schema.Columns {
			switch {
			case col.Multi:
				items := []string{}
				if cells[i].Valid && cells[i].String != "" {
					if err := json.Unmarshal([]byte(cells[i].String), &items); err != nil {
						return nil, fmt.Errorf("responses: decode %s: %w", col.Name, err)
					}
				}
				row[col.Name] = items
			case cells[i].Valid:
				row[col.Name] = cells[i].String
			default:
				row[col.Name] = nil
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func sqliteType(col Column) string {
	if col.Multi {
		return "TEXT NOT NULL DEFAULT '[]'"
	}
	return "TEXT"
}

func sqliteValue(col Column, v any) (any, error) {
	if !col.Multi {
		return v, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}
