package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // SQLite driver
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrations embed.FS

// Dialect selects the SQL flavour of the durable store
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// DB wraps the database connection
type DB struct {
	*sql.DB
	Dialect Dialect
}

// Config holds database configuration
type Config struct {
	Driver          string        `env:"DRIVER" envDefault:"sqlite" yaml:"driver"`
	Path            string        `env:"PATH" envDefault:"app.db" yaml:"path"`
	Host            string        `env:"HOST" envDefault:"localhost" yaml:"host"`
	Port            string        `env:"PORT" envDefault:"5432" yaml:"port"`
	User            string        `env:"USER" envDefault:"scruffy" yaml:"user"`
	Password        string        `env:"PASSWORD" envDefault:"scruffy_password" yaml:"password"`
	DBName          string        `env:"NAME" envDefault:"scruffy_db" yaml:"name"`
	SSLMode         string        `env:"SSLMODE" envDefault:"disable" yaml:"sslmode"`
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS" envDefault:"25" yaml:"max_open_conns"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS" envDefault:"5" yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"5m" yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `env:"CONN_MAX_IDLE_TIME" envDefault:"10m" yaml:"conn_max_idle_time"`
}

// DSN returns the driver specific connection string.
func (c *Config) DSN() string {
	if Dialect(c.Driver) == DialectPostgres {
		return fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
		)
	}
	return "file:" + filepath.Clean(c.Path) +
		"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// Validate reports unsupported drivers or missing connection details.
func (c *Config) Validate() error {
	switch Dialect(c.Driver) {
	case DialectSQLite:
		if strings.TrimSpace(c.Path) == "" {
			return fmt.Errorf("database path is required for sqlite")
		}
	case DialectPostgres:
		if c.Host == "" || c.DBName == "" {
			return fmt.Errorf("database host and name are required for postgres")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Driver)
	}
	return nil
}

// Open connects to the configured database, tunes the pool and applies the
// embedded migrations for its dialect.
func Open(ctx context.Context, config *Config) (*DB, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	dialect := Dialect(config.Driver)

	db, err := sql.Open(string(dialect), config.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	out := &DB{DB: db, Dialect: dialect}
	if err := out.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return out, nil
}

// Migrate applies all pending migrations for the connection's dialect.
func (db *DB) Migrate(ctx context.Context) error {
	dir := "migrations/sqlite"
	gooseDialect := goose.DialectSQLite3
	if db.Dialect == DialectPostgres {
		dir = "migrations/postgres"
		gooseDialect = goose.DialectPostgres
	}

	fsys, err := fs.Sub(migrations, dir)
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	provider, err := goose.NewProvider(gooseDialect, db.DB, fsys)
	if err != nil {
		return fmt.Errorf("failed to prepare migrations: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Store returns the durable store bound to this connection pool.
func (db *DB) Store() *Store {
	return NewStore(db.DB, db.Dialect)
}

// rebind rewrites ? placeholders into $n for PostgreSQL.
func rebind(dialect Dialect, query string) string {
	if dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
