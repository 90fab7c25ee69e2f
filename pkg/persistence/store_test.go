package persistence

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testAggregate struct {
	ThreadID string    `json:"thread_id"`
	Content  string    `json:"content"`
	Approved bool      `json:"approved"`
	SavedAt  time.Time `json:"saved_at"`
}

func newTestSQLStore(t *testing.T, namespace string) *SQLStore {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "draftflow.db")
	db, err := OpenDatabase(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewSQLStore(db, namespace)
}

func TestSQLStoreSaveLoadRoundTrip(t *testing.T) {
	store := newTestSQLStore(t, NamespaceDraftSessions)

	saved := testAggregate{
		ThreadID: "thread-1",
		Content:  "<p>draft</p>",
		Approved: true,
		SavedAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.Save("sess-1", saved))

	var loaded testAggregate
	require.NoError(t, store.Load("sess-1", &loaded))
	assert.Equal(t, saved, loaded)
}

func TestSQLStoreLoadMissingKey(t *testing.T) {
	store := newTestSQLStore(t, NamespaceStageSessions)

	var dest testAggregate
	err := store.Load("missing", &dest)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSQLStoreSaveOverwrites(t *testing.T) {
	store := newTestSQLStore(t, NamespaceDraftSessions)

	require.NoError(t, store.Save("k", testAggregate{Content: "first"}))
	require.NoError(t, store.Save("k", testAggregate{Content: "second"}))

	var loaded testAggregate
	require.NoError(t, store.Load("k", &loaded))
	assert.Equal(t, "second", loaded.Content)
}

func TestSQLStoreNamespaceIsolation(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "draftflow.db")
	db, err := OpenDatabase(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	stages := NewSQLStore(db, NamespaceStageSessions)
	drafts := NewSQLStore(db, NamespaceDraftSessions)

	require.NoError(t, stages.Save("shared-key", testAggregate{Content: "stage"}))
	require.NoError(t, drafts.Save("shared-key", testAggregate{Content: "draft"}))

	var fromStages, fromDrafts testAggregate
	require.NoError(t, stages.Load("shared-key", &fromStages))
	require.NoError(t, drafts.Load("shared-key", &fromDrafts))
	assert.Equal(t, "stage", fromStages.Content)
	assert.Equal(t, "draft", fromDrafts.Content)

	// Clearing one namespace leaves the other intact.
	require.NoError(t, stages.Clear())
	require.ErrorIs(t, stages.Load("shared-key", &fromStages), ErrNotFound)
	require.NoError(t, drafts.Load("shared-key", &fromDrafts))
}

func TestSQLStoreLatestKey(t *testing.T) {
	store := newTestSQLStore(t, NamespaceStageSessions)

	_, err := store.LatestKey()
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Save("older", testAggregate{Content: "a"}))
	// SQLite timestamps have millisecond resolution; space out the writes.
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, store.Save("newer", testAggregate{Content: "b"}))

	key, err := store.LatestKey()
	require.NoError(t, err)
	assert.Equal(t, "newer", key)

	// Re-saving the older record makes it the most recent.
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, store.Save("older", testAggregate{Content: "a2"}))
	key, err = store.LatestKey()
	require.NoError(t, err)
	assert.Equal(t, "older", key)
}

func TestSQLStoreListAndDelete(t *testing.T) {
	store := newTestSQLStore(t, NamespaceDraftSessions)

	require.NoError(t, store.Save("b", testAggregate{}))
	require.NoError(t, store.Save("a", testAggregate{}))

	keys, err := store.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)

	require.NoError(t, store.Delete("a"))
	// Deleting a missing key is not an error.
	require.NoError(t, store.Delete("a"))

	keys, err = store.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, keys)
}

func TestMemStoreBehavesLikeSQLStore(t *testing.T) {
	store := NewMemStore()

	saved := testAggregate{ThreadID: "t", Content: "c"}
	require.NoError(t, store.Save("k1", saved))

	var loaded testAggregate
	require.NoError(t, store.Load("k1", &loaded))
	assert.Equal(t, saved, loaded)

	require.ErrorIs(t, store.Load("nope", &loaded), ErrNotFound)

	require.NoError(t, store.Save("k2", testAggregate{}))
	key, err := store.LatestKey()
	require.NoError(t, err)
	assert.Equal(t, "k2", key)

	keys, err := store.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"k1", "k2"}, keys)

	require.NoError(t, store.Clear())
	_, err = store.LatestKey()
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemStoreFailWrites(t *testing.T) {
	store := NewMemStore()
	store.FailWrites = true

	err := store.Save("k", testAggregate{})
	require.Error(t, err)

	var dest testAggregate
	require.ErrorIs(t, store.Load("k", &dest), ErrNotFound)
}

func TestEmptyKeyRejected(t *testing.T) {
	sqlStore := newTestSQLStore(t, NamespaceStageSessions)
	require.Error(t, sqlStore.Save("", testAggregate{}))

	memStore := NewMemStore()
	require.Error(t, memStore.Save("", testAggregate{}))
}
