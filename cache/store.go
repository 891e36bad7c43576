// Package cache is the persistent memo backing property resolution. It is
// the single owner of persisted resolution state: the resolver reads and
// writes through it, nothing else touches the table.
package cache

import (
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/osintlab/WDX/db"
	"github.com/osintlab/WDX/errors"
)

// Store is a persistent (entity_id, property_id) → value memo on SQLite.
// Reads of distinct keys proceed concurrently under WAL; writes to the same
// key serialize on the primary key, with a second put overwriting (refresh),
// never duplicating.
type Store struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

// Entry is one persisted resolution.
type Entry struct {
	EntityID   string    `json:"entity_id"`
	PropertyID string    `json:"property_id"`
	Value      string    `json:"value"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// Stats summarizes cache contents for the `wdx cache stats` command.
type Stats struct {
	Entries  int        `json:"entries"`
	Entities int        `json:"entities"`
	Oldest   *time.Time `json:"oldest,omitempty"`
	Newest   *time.Time `json:"newest,omitempty"`
}

// NewStore wraps an already-opened and migrated database.
func NewStore(db *sql.DB, logger *zap.SugaredLogger) *Store {
	return &Store{db: db, logger: logger}
}

// Get returns the cached value for (entityID, propertyID). The second
// return is false on a miss. Any database error is a cache I/O failure and
// fatal to the run: silently degrading to cache-less operation would
// re-resolve every property against the external service. The exception is
// a closed connection, which means a shutdown is racing the lookup; that
// degrades to a non-fatal error so the in-flight resolution lands as
// unresolved instead of failing the run.
func (s *Store) Get(entityID, propertyID string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(
		"SELECT value FROM resolutions WHERE entity_id = ? AND property_id = ?",
		entityID, propertyID,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, s.wrapErr(err, "cache get")
	}
	return value, true, nil
}

// Put stores a resolved value, overwriting any previous resolution for the
// same key and refreshing its timestamp. Durable once the statement
// returns; a subsequent Get within the run or in a future run sees it.
func (s *Store) Put(entityID, propertyID, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO resolutions (entity_id, property_id, value, resolved_at)
		 VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (entity_id, property_id)
		 DO UPDATE SET value = excluded.value, resolved_at = CURRENT_TIMESTAMP`,
		entityID, propertyID, value,
	)
	if err != nil {
		return s.wrapErr(err, "cache put")
	}
	if s.logger != nil {
		s.logger.Debugw("Cached resolution",
			"entity_id", entityID,
			"property_id", propertyID,
		)
	}
	return nil
}

// wrapErr classifies a database error: a closed connection maps onto the
// non-fatal db.ErrDatabaseClosed sentinel, everything else is a fatal
// cache I/O failure.
func (s *Store) wrapErr(err error, context string) error {
	if db.IsDatabaseClosed(err) {
		return errors.Wrap(db.ErrDatabaseClosed, context)
	}
	return errors.WrapCacheIO(err, context)
}

// Lookup returns the full entry for a key, for the `wdx cache get` command.
func (s *Store) Lookup(entityID, propertyID string) (*Entry, error) {
	var e Entry
	err := s.db.QueryRow(
		"SELECT entity_id, property_id, value, resolved_at FROM resolutions WHERE entity_id = ? AND property_id = ?",
		entityID, propertyID,
	).Scan(&e.EntityID, &e.PropertyID, &e.Value, &e.ResolvedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WrapCacheIO(err, "cache lookup")
	}
	return &e, nil
}

// Stats reports entry counts and the resolution time range.
func (s *Store) Stats() (*Stats, error) {
	var st Stats
	err := s.db.QueryRow(
		"SELECT COUNT(*), COUNT(DISTINCT entity_id) FROM resolutions",
	).Scan(&st.Entries, &st.Entities)
	if err != nil {
		return nil, errors.WrapCacheIO(err, "cache stats")
	}

	// Aggregates lose the column's declared type under go-sqlite3, so the
	// range boundaries are read as plain column values.
	if st.Entries > 0 {
		var oldest, newest time.Time
		err = s.db.QueryRow(
			"SELECT resolved_at FROM resolutions ORDER BY resolved_at ASC LIMIT 1",
		).Scan(&oldest)
		if err != nil {
			return nil, errors.WrapCacheIO(err, "cache stats range")
		}
		err = s.db.QueryRow(
			"SELECT resolved_at FROM resolutions ORDER BY resolved_at DESC LIMIT 1",
		).Scan(&newest)
		if err != nil {
			return nil, errors.WrapCacheIO(err, "cache stats range")
		}
		st.Oldest = &oldest
		st.Newest = &newest
	}
	return &st, nil
}
