package cache

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osintlab/WDX/db"
	"github.com/osintlab/WDX/errors"
	wdxtesting "github.com/osintlab/WDX/internal/testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	conn := wdxtesting.CreateTestDB(t)
	require.NoError(t, db.Migrate(conn, nil))
	return NewStore(conn, nil)
}

func TestStoreGetMiss(t *testing.T) {
	store := newTestStore(t)

	value, ok, err := store.Get("Q42", "P18")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, value)
}

func TestStorePutThenGet(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Put("Q42", "P18", "Douglas adams portrait.jpg"))

	value, ok, err := store.Get("Q42", "P18")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Douglas adams portrait.jpg", value)
}

func TestStorePutOverwrites(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Put("Q42", "P27", "United Kingdom"))
	require.NoError(t, store.Put("Q42", "P27", "England"))

	value, ok, err := store.Get("Q42", "P27")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "England", value)

	stats, err := store.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Entries)
}

func TestStoreKeysAreIndependent(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Put("Q42", "P27", "United Kingdom"))
	require.NoError(t, store.Put("Q42", "P106", "writer"))
	require.NoError(t, store.Put("Q5", "P27", "unrelated"))

	value, ok, err := store.Get("Q42", "P106")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "writer", value)

	stats, err := store.Stats()
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Entries)
	assert.Equal(t, 2, stats.Entities)
	require.NotNil(t, stats.Oldest)
	require.NotNil(t, stats.Newest)
}

func TestStoreLookup(t *testing.T) {
	store := newTestStore(t)

	entry, err := store.Lookup("Q42", "P18")
	require.NoError(t, err)
	assert.Nil(t, entry)

	require.NoError(t, store.Put("Q42", "P18", "portrait.jpg"))

	entry, err = store.Lookup("Q42", "P18")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "Q42", entry.EntityID)
	assert.Equal(t, "P18", entry.PropertyID)
	assert.Equal(t, "portrait.jpg", entry.Value)
	assert.False(t, entry.ResolvedAt.IsZero())
}

func TestStoreClosedConnectionIsNotFatal(t *testing.T) {
	conn := wdxtesting.CreateTestDB(t)
	require.NoError(t, db.Migrate(conn, nil))
	store := NewStore(conn, nil)
	require.NoError(t, conn.Close())

	_, _, err := store.Get("Q42", "P18")
	require.Error(t, err)
	assert.True(t, db.IsDatabaseClosed(err))
	assert.False(t, errors.IsFatal(err))

	err = store.Put("Q42", "P18", "x")
	require.Error(t, err)
	assert.True(t, db.IsDatabaseClosed(err))
	assert.False(t, errors.IsFatal(err))
}

func TestStoreGetIOFailure(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectQuery("SELECT value FROM resolutions").
		WillReturnError(assert.AnError)

	store := NewStore(conn, nil)
	_, _, err = store.Get("Q42", "P18")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCacheIO))
	assert.True(t, errors.IsFatal(err))
}

func TestStorePutIOFailure(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectExec("INSERT INTO resolutions").
		WillReturnError(assert.AnError)

	store := NewStore(conn, nil)
	err = store.Put("Q42", "P18", "x")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCacheIO))
}
