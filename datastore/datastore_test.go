package datastore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*DataStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.json")
	cfg := DefaultConfig(path)
	cfg.AutoSaveInterval = 0 // saves are explicit in tests
	ds, err := NewWithConfig(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { ds.Close() })
	return ds, path
}

func TestAddGetDelete(t *testing.T) {
	ds, _ := newStore(t)

	_, exists := ds.Get("missing")
	assert.False(t, exists)

	ds.Add("k", "v")
	val, exists := ds.Get("k")
	require.True(t, exists)
	assert.Equal(t, "v", val)

	ds.Delete("k")
	_, exists = ds.Get("k")
	assert.False(t, exists)
}

func TestKeysSorted(t *testing.T) {
	ds, _ := newStore(t)
	ds.Add("b", 1)
	ds.Add("a", 2)
	ds.Add("c", 3)
	assert.Equal(t, []string{"a", "b", "c"}, ds.Keys())
}

func TestPersistenceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")

	cfg := DefaultConfig(path)
	cfg.AutoSaveInterval = 0
	ds, err := NewWithConfig(cfg)
	require.NoError(t, err)
	ds.Add("guild:1", map[string]any{"name": "test"})
	require.NoError(t, ds.Close())

	cfg2 := DefaultConfig(path)
	cfg2.AutoSaveInterval = 0
	reopened, err := NewWithConfig(cfg2)
	require.NoError(t, err)
	defer reopened.Close()

	val, exists := reopened.Get("guild:1")
	require.True(t, exists)
	assert.Equal(t, map[string]any{"name": "test"}, val)
}

func TestLoadRejectsInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := New(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid JSON")
}

func TestConfigValidation(t *testing.T) {
	_, err := NewWithConfig(nil)
	assert.Error(t, err)

	_, err = NewWithConfig(&Config{FilePath: ""})
	assert.Error(t, err)
}

func TestSaveSkipsUnchangedData(t *testing.T) {
	ds, path := newStore(t)
	ds.Add("k", "v")
	require.NoError(t, ds.SaveToFile())

	first, err := os.Stat(path)
	require.NoError(t, err)

	// A second save with identical content must not rewrite the file.
	require.NoError(t, ds.SaveToFile())
	second, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, first.ModTime(), second.ModTime())
}

func TestBackupRotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	cfg := DefaultConfig(path)
	cfg.AutoSaveInterval = 0
	cfg.BackupCount = 2
	ds, err := NewWithConfig(cfg)
	require.NoError(t, err)
	defer ds.Close()

	for i := 0; i < 5; i++ {
		ds.Add("counter", i)
		require.NoError(t, ds.SaveToFile())
	}

	backups, err := filepath.Glob(path + ".backup.*")
	require.NoError(t, err)
	assert.LessOrEqual(t, len(backups), 2)
}

func TestOperationsAfterClose(t *testing.T) {
	ds, _ := newStore(t)
	require.NoError(t, ds.Close())

	ds.Add("k", "v")
	_, exists := ds.Get("k")
	assert.False(t, exists)
	assert.Error(t, ds.SaveToFile())
	assert.NoError(t, ds.Close(), "double close is a no-op")
}
