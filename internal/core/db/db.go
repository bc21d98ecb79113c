// Package db provides the record store: connection management, embedded
// migrations, named queries and the message/rule-run adapters.
//
// Supports SQLite (development, tests) and PostgreSQL (production) via sqlx.
// Queries are written with "?" placeholders and rebound per driver.
package db

import (
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// sqliteDriver is go-sqlite3 with LOWER replaced by a Unicode-aware
// version, so store-native filters fold case exactly like strings.ToLower.
const sqliteDriver = "sqlite3_inboxkeeper"

func init() {
	sql.Register(sqliteDriver, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("lower", unicodeLower, true)
		},
	})
	sqlx.BindDriver(sqliteDriver, sqlx.QUESTION)
}

// unicodeLower lowers TEXT and BLOB values; NULL and numbers pass through.
func unicodeLower(v any) any {
	switch s := v.(type) {
	case string:
		return strings.ToLower(s)
	case []byte:
		if s == nil {
			return nil
		}
		return strings.ToLower(string(s))
	default:
		return v
	}
}

func isSQLite(driverName string) bool { return driverName == sqliteDriver }

// Pool limits sized for a single worker process; the engine runs rule
// passes sequentially so a handful of connections is plenty.
const (
	maxOpenConns    = 8
	maxIdleConns    = 2
	connMaxIdleTime = 5 * time.Minute
	connMaxLifetime = 30 * time.Minute
)

// Open establishes a database connection from a URL and configures pooling.
// Supported URL schemes: sqlite://, postgres://, postgresql://
// SQLite URLs: sqlite://path/to/file.db or sqlite:///absolute/path, with
// driver options passed through as the query string.
func Open(dbURL string) (*sqlx.DB, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return nil, fmt.Errorf("invalid database URL: %w", err)
	}

	var driverName, dataSource string

	switch u.Scheme {
	case "sqlite":
		driverName = sqliteDriver
		// sqlite://file.db is host+path (relative), sqlite:///abs is path-only
		if u.Host != "" {
			dataSource = u.Host + u.Path
		} else {
			dataSource = u.Path
		}
		if u.RawQuery != "" {
			dataSource += "?" + u.RawQuery
		}
	case "postgres", "postgresql":
		driverName = "postgres"
		dataSource = dbURL
	default:
		return nil, fmt.Errorf("unsupported database scheme: %s (expected sqlite or postgres)", u.Scheme)
	}

	db, err := sqlx.Open(driverName, dataSource)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxIdleTime(connMaxIdleTime)
	db.SetConnMaxLifetime(connMaxLifetime)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
