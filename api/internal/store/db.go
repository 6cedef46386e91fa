package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	_ "modernc.org/sqlite"             // sqlite driver
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Open connects to Postgres (pgx) or SQLite (modernc), pings and ensures the schema.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverPostgres:
		drvName = "pgx"
		if dsn == "" {
			return nil, fmt.Errorf("database DSN is empty: set DATABASE_URL or POSTGRES_* env vars")
		}
	case DriverSQLite:
		drvName = "sqlite"
		if dsn == "" {
			dsn = "file:quizbot.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(time.Hour)
	}

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db.Ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return db, nil
}

// schema is portable between Postgres and SQLite: times are Unix seconds.
const schema = `
CREATE TABLE IF NOT EXISTS authorized_users (
  user_id    BIGINT PRIMARY KEY,
  added_by   BIGINT NOT NULL,
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS extractions (
  id         TEXT PRIMARY KEY,
  chat_id    BIGINT NOT NULL,
  nid        TEXT NOT NULL,
  variants   TEXT NOT NULL,
  questions  INTEGER NOT NULL DEFAULT 0,
  outcome    TEXT NOT NULL,
  error      TEXT NOT NULL DEFAULT '',
  created_at BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS extractions_created_at_idx ON extractions (created_at);
CREATE INDEX IF NOT EXISTS extractions_chat_idx ON extractions (chat_id, created_at);
`
