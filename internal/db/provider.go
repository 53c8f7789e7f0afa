package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// Dialect selects the GORM dialector and migration set.
type Dialect int

const (
	DialectSQLite Dialect = iota
	DialectPostgres
)

func (d Dialect) String() string {
	switch d {
	case DialectPostgres:
		return "postgres"
	default:
		return "sqlite"
	}
}

// Provider is a storage backend a Context can be bound to.
type Provider interface {
	Name() string
	Dialect() Dialect
	// GeneratesIdentity reports whether the store assigns integer keys
	// when a record is inserted with a zero identity.
	GeneratesIdentity() bool
	Open(ctx context.Context) (*sql.DB, error)
}

// PoolConfig holds connection pool settings applied by file and server
// backed providers.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// SQLiteProvider stores data in a SQLite database file with foreign keys
// enforced.
type SQLiteProvider struct {
	Path string
	Pool PoolConfig
}

func (p SQLiteProvider) Name() string            { return "sqlite:" + p.Path }
func (p SQLiteProvider) Dialect() Dialect        { return DialectSQLite }
func (p SQLiteProvider) GeneratesIdentity() bool { return true }

func (p SQLiteProvider) Open(ctx context.Context) (*sql.DB, error) {
	if p.Path == "" {
		return nil, ErrNoConnectionString
	}
	if dir := filepath.Dir(p.Path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := p.Path + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=1"
	log.Debug("Opening database connection", "provider", "sqlite", "path", p.Path)
	database, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	applyPool(database, p.Pool)

	if err := database.PingContext(ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return database, nil
}

// MemoryProvider is a named in-memory store. Stores with different names
// never share data; the same name shares one store for as long as a
// connection to it stays open. It enforces primary keys only and never
// generates identities.
type MemoryProvider struct {
	Database string
}

// NewMemoryProvider returns an in-memory provider for the logical database name.
func NewMemoryProvider(name string) MemoryProvider {
	return MemoryProvider{Database: name}
}

func (p MemoryProvider) Name() string            { return "memory:" + p.Database }
func (p MemoryProvider) Dialect() Dialect        { return DialectSQLite }
func (p MemoryProvider) GeneratesIdentity() bool { return false }

func (p MemoryProvider) Open(ctx context.Context) (*sql.DB, error) {
	if p.Database == "" {
		return nil, fmt.Errorf("memory provider requires a database name: %w", ErrNoConnectionString)
	}

	dsn := "file:" + url.PathEscape(p.Database) + "?mode=memory&cache=shared&_foreign_keys=0"
	log.Debug("Opening database connection", "provider", "memory", "name", p.Database)
	database, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open memory database: %w", err)
	}

	// The store lives as long as one connection does.
	database.SetMaxOpenConns(1)
	database.SetMaxIdleConns(1)
	database.SetConnMaxLifetime(0)
	database.SetConnMaxIdleTime(0)

	if err := database.PingContext(ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to ping memory database: %w", err)
	}
	return database, nil
}

// PostgresProvider connects to a PostgreSQL server through pgx.
type PostgresProvider struct {
	DSN  string
	Pool PoolConfig
}

func (p PostgresProvider) Name() string            { return "postgres" }
func (p PostgresProvider) Dialect() Dialect        { return DialectPostgres }
func (p PostgresProvider) GeneratesIdentity() bool { return true }

func (p PostgresProvider) Open(ctx context.Context) (*sql.DB, error) {
	if p.DSN == "" {
		return nil, ErrNoConnectionString
	}

	log.Debug("Opening database connection", "provider", "postgres")
	database, err := sql.Open("pgx", p.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	applyPool(database, p.Pool)

	if err := database.PingContext(ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return database, nil
}

func applyPool(database *sql.DB, pool PoolConfig) {
	if pool.MaxOpenConns > 0 {
		database.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		database.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		database.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}
	log.Debug("Configured database connection pool", "max_open_conns", pool.MaxOpenConns, "max_idle_conns", pool.MaxIdleConns, "conn_max_lifetime", pool.ConnMaxLifetime)
}

// ProviderFromConnectionString selects a provider from a connection string:
//
//	memory:<name>               named in-memory store
//	postgres://... postgresql:// PostgreSQL server
//	sqlite:<path> or <path>     SQLite database file
func ProviderFromConnectionString(connString string, pool PoolConfig) (Provider, error) {
	connString = strings.TrimSpace(connString)
	switch {
	case connString == "":
		return nil, ErrNoConnectionString
	case strings.HasPrefix(connString, "memory:"):
		return NewMemoryProvider(strings.TrimPrefix(connString, "memory:")), nil
	case strings.HasPrefix(connString, "postgres://"), strings.HasPrefix(connString, "postgresql://"):
		return PostgresProvider{DSN: connString, Pool: pool}, nil
	case strings.HasPrefix(connString, "sqlite:"):
		return SQLiteProvider{Path: strings.TrimPrefix(connString, "sqlite:"), Pool: pool}, nil
	case strings.Contains(connString, "://"):
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, connString[:strings.Index(connString, "://")])
	default:
		return SQLiteProvider{Path: connString, Pool: pool}, nil
	}
}
