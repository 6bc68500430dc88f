package session_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-todo-client/session"
)

func TestFileStoreRoundTrip(t *testing.T) {
	store := session.NewFileStore(t.TempDir())

	record := &session.PersistedSession{
		User:            &session.User{ID: "user-1", Email: "a@b.com"},
		AccessToken:     "access-1",
		RefreshToken:    "refresh-1",
		IsAuthenticated: true,
	}
	require.NoError(t, store.Save(record))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, record, loaded)
}

func TestFileStoreLoadMissingFileReturnsNil(t *testing.T) {
	store := session.NewFileStore(t.TempDir())

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Nil(t, loaded)
}

func TestFileStoreClearRemovesRecord(t *testing.T) {
	store := session.NewFileStore(t.TempDir())
	require.NoError(t, store.Save(&session.PersistedSession{AccessToken: "access-1"}))
	require.NoError(t, store.Clear())

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Nil(t, loaded)

	// Clearing an already-empty store is not an error.
	require.NoError(t, store.Clear())
}

func TestFileStorePersistsOnlyDurableFields(t *testing.T) {
	dir := t.TempDir()
	store := session.NewFileStore(dir)
	require.NoError(t, store.Save(&session.PersistedSession{
		User:            &session.User{ID: "user-1"},
		AccessToken:     "access-1",
		RefreshToken:    "refresh-1",
		IsAuthenticated: true,
	}))

	raw, err := os.ReadFile(filepath.Join(dir, session.StorageName+".json"))
	require.NoError(t, err)

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &fields))
	require.Contains(t, fields, "user")
	require.Contains(t, fields, "accessToken")
	require.Contains(t, fields, "refreshToken")
	require.Contains(t, fields, "isAuthenticated")
	require.NotContains(t, fields, "isLoading")
	require.NotContains(t, fields, "error")
}

func TestFileStoreLoadCorruptRecordFails(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, session.StorageName+".json"), []byte("{not json"), 0o600))

	store := session.NewFileStore(dir)
	_, err := store.Load()
	require.Error(t, err)
}
