package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/libcirc/internal/common"
	"github.com/dmitrijs2005/libcirc/internal/filex"
	"github.com/dmitrijs2005/libcirc/internal/repositories/repomanager"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Options select and size a backend.
type Options struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// Open connects to the configured backend and brings its schema up to date.
// Any failure here is a connection problem, reported as ErrConnectionLost.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case DriverMemory:
		return NewMemoryStore(), nil
	case DriverPostgres:
		return openSQL(ctx, "pgx", opts.DSN, repomanager.DialectPostgres, func(db *sql.DB) {
			db.SetMaxOpenConns(opts.MaxOpenConns)
			db.SetMaxIdleConns(opts.MaxOpenConns)
			db.SetConnMaxLifetime(opts.ConnMaxLifetime)
			db.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
		})
	case DriverSQLite:
		if path := sqliteFile(opts.DSN); path != "" {
			if _, err := filex.EnsureParentDir(path); err != nil {
				return nil, fmt.Errorf("%w: %w", common.ErrConnectionLost, err)
			}
		}
		// one connection: SQLite has a single writer anyway, and in-memory
		// databases live only as long as their connection
		return openSQL(ctx, "sqlite", SQLiteDSN(opts.DSN), repomanager.DialectSQLite, func(db *sql.DB) {
			db.SetMaxOpenConns(1)
		})
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}

func openSQL(ctx context.Context, driverName, dsn, dialect string, tune func(*sql.DB)) (Store, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: db open error: %w", common.ErrConnectionLost, err)
	}
	tune(db)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: db ping error: %w", common.ErrConnectionLost, err)
	}

	rm, err := repomanager.NewSQLRepositoryManager(dialect)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %w", common.ErrConnectionLost, err)
	}

	return NewSQLStore(db, rm), nil
}

// SQLiteDSN adds the pragmas the store relies on unless the DSN sets them:
// a busy timeout, enforced foreign keys and IMMEDIATE transactions, so a
// transaction takes the write lock before its first read.
func SQLiteDSN(dsn string) string {
	params := []string{}
	if !strings.Contains(dsn, "busy_timeout") {
		params = append(params, "_pragma=busy_timeout(5000)")
	}
	if !strings.Contains(dsn, "foreign_keys") {
		params = append(params, "_pragma=foreign_keys(1)")
	}
	if !strings.Contains(dsn, "_txlock") {
		params = append(params, "_txlock=immediate")
	}
	if len(params) == 0 {
		return dsn
	}

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}

// sqliteFile is the on-disk path named by dsn, or "" for in-memory databases.
func sqliteFile(dsn string) string {
	path, query, _ := strings.Cut(strings.TrimPrefix(dsn, "file:"), "?")
	if path == "" || path == ":memory:" || strings.Contains(query, "mode=memory") {
		return ""
	}
	return path
}
