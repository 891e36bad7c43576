package db

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/osintlab/WDX/errors"
)

// Open opens the SQLite resolution cache at the specified path with settings
// tuned for the pipeline's access pattern: many concurrent reads, serialized
// writes. If logger is provided, logs database operations; otherwise
// operates silently.
func Open(path string, logger *zap.SugaredLogger) (*sql.DB, error) {
	if logger != nil {
		logger.Debugw("Opening resolution cache database", "path", path)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.WrapCacheIO(err, "open database")
	}

	// WAL mode lets resolver workers read while a put is in flight
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, errors.WrapCacheIO(err, "enable WAL mode")
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, errors.WrapCacheIO(err, "enable foreign keys")
	}

	// NORMAL is durable enough here: a crash loses at most the last
	// unsynced batch, never corrupts existing entries, and a future run
	// simply re-resolves whatever is missing.
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		db.Close()
		return nil, errors.WrapCacheIO(err, "set synchronous mode")
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, errors.WrapCacheIO(err, "set busy timeout")
	}

	if logger != nil {
		logger.Infow("Resolution cache database opened",
			"path", path,
			"wal_mode", true,
		)
	}

	return db, nil
}

// OpenWithMigrations opens the database and applies any pending schema
// migrations. This is what commands use; Open alone is for tests that
// manage schema themselves.
func OpenWithMigrations(path string, logger *zap.SugaredLogger) (*sql.DB, error) {
	db, err := Open(path, logger)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db, logger); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
