package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"notesync/pkg/logger"
)

const (
	Postgres = "postgres"
	SQLite   = "sqlite3"
)

var (
	pingAttempts = 5
	pingDelay    = 2 * time.Second
)

// Connect opens the database and waits for it to answer, retrying a few
// times to ride out temporary network trouble.
func Connect(driver, dsn string) (*sql.DB, error) {
	switch driver {
	case Postgres, SQLite:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	if driver == SQLite {
		// SQLite allows a single writer.
		db.SetMaxOpenConns(1)
	}

	for i := 0; i < pingAttempts; i++ {
		if err = db.Ping(); err == nil {
			logger.Sugar.Infof("Successfully connected to the %s database", driver)
			return db, nil
		}
		logger.Sugar.Infof("Database connection failed, retrying in %s... (%v)", pingDelay, err)
		time.Sleep(pingDelay)
	}
	db.Close()
	return nil, fmt.Errorf("could not connect to database after %d attempts: %w", pingAttempts, err)
}
