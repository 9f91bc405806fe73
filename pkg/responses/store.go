package responses

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Driver names accepted by Open.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverREST     = "rest"
)

// ErrUnknownDriver is returned by Open for unsupported drivers.
var ErrUnknownDriver = errors.New("responses: unknown driver")

// Store appends response rows. Implementations insert each row as a single
// statement and never update or delete.
type Store interface {
	Insert(ctx context.Context, row Row) error
	Close() error
}

// Config selects and configures a Store.
type Config struct {
	Driver string
	// DSN is the Postgres connection string or the SQLite file path.
	DSN string
	// URL and Key address a PostgREST endpoint such as Supabase.
	URL        string
	Key        string
	HTTPClient *http.Client
	// EnsureTable creates the table when missing (SQL drivers).
	EnsureTable bool
}

// Open builds the store named by cfg.Driver.
func Open(ctx context.Context, cfg Config, schema Schema) (Store, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", DriverMemory:
		return NewMemoryStore(schema), nil
	case DriverPostgres, "pgx":
		return OpenPostgres(ctx, cfg.DSN, schema, cfg.EnsureTable)
	case DriverSQLite:
		return OpenSQLite(ctx, cfg.DSN, schema)
	case DriverREST, "supabase":
		return NewRESTStore(cfg.URL, cfg.Key, schema, cfg.HTTPClient)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
