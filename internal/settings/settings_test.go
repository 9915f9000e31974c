package settings

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnabled(t *testing.T) {
	tests := []struct {
		name string
		s    Settings
		err  error
		want bool
	}{
		{"missing key", Settings{}, nil, true},
		{"stored true", Settings{TranslationEnabled: Bool(true)}, nil, true},
		{"stored false", Settings{TranslationEnabled: Bool(false)}, nil, false},
		{"read error", Settings{TranslationEnabled: Bool(false)}, errors.New("boom"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Enabled(tt.s, tt.err))
		})
	}
}

// testStore 每种后端共用的读写行为
func testStore(t *testing.T, store Store) {
	ctx := context.Background()

	s, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, s.TranslationEnabled, "fresh store has no value")

	require.NoError(t, store.Save(ctx, Settings{TranslationEnabled: Bool(false)}))
	s, err = store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, s.TranslationEnabled)
	assert.False(t, *s.TranslationEnabled)

	require.NoError(t, store.Save(ctx, Settings{TranslationEnabled: Bool(true)}))
	s, err = store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, s.TranslationEnabled)
	assert.True(t, *s.TranslationEnabled)

	require.NoError(t, store.Save(ctx, Settings{}))
	s, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, s.TranslationEnabled, "saving an empty value clears it")
}

func TestStores(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		testStore(t, NewMemory())
	})

	t.Run("file", func(t *testing.T) {
		store, err := NewFile(filepath.Join(t.TempDir(), "nested", "settings.yaml"))
		require.NoError(t, err)
		testStore(t, store)
	})

	t.Run("sqlite", func(t *testing.T) {
		store, err := OpenSQLite(filepath.Join(t.TempDir(), "settings.db"))
		require.NoError(t, err)
		defer store.Close()
		testStore(t, store)
	})

	t.Run("sqlite in memory", func(t *testing.T) {
		store, err := OpenSQLite(":memory:")
		require.NoError(t, err)
		defer store.Close()
		testStore(t, store)
	})
}

func TestMemoryCopiesValues(t *testing.T) {
	v := true
	m := NewMemoryWith(Settings{TranslationEnabled: &v})
	v = false

	s, err := m.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, *s.TranslationEnabled)

	*s.TranslationEnabled = false
	s, _ = m.Load(context.Background())
	assert.True(t, *s.TranslationEnabled)
}

func TestFilePersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	ctx := context.Background()

	first, err := NewFile(path)
	require.NoError(t, err)
	require.NoError(t, first.Save(ctx, Settings{TranslationEnabled: Bool(false)}))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "translationEnabled: false")

	second, err := NewFile(path)
	require.NoError(t, err)
	s, err := second.Load(ctx)
	require.NoError(t, err)
	assert.False(t, Enabled(s, err))

	t.Run("corrupt file", func(t *testing.T) {
		require.NoError(t, os.WriteFile(path, []byte("translationEnabled: [oops"), 0o644))
		_, err := second.Load(ctx)
		assert.Error(t, err)
	})

	t.Run("empty path", func(t *testing.T) {
		_, err := NewFile("")
		assert.Error(t, err)
	})
}

func TestSQLitePersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.db")
	ctx := context.Background()

	first, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, first.Save(ctx, Settings{TranslationEnabled: Bool(false)}))
	require.NoError(t, first.Close())

	second, err := OpenSQLite(path)
	require.NoError(t, err)
	defer second.Close()
	s, err := second.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, s.TranslationEnabled)
	assert.False(t, *s.TranslationEnabled)

	t.Run("invalid stored value", func(t *testing.T) {
		_, err := second.db.ExecContext(ctx, `UPDATE settings SET value = 'maybe' WHERE key = ?`, KeyTranslationEnabled)
		require.NoError(t, err)
		_, err = second.Load(ctx)
		assert.Error(t, err)
	})
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	for _, driver := range []string{"memory", "file", "sqlite", "SQLite"} {
		t.Run("driver "+driver, func(t *testing.T) {
			store, err := Open(driver, filepath.Join(dir, driver+".store"))
			require.NoError(t, err)
			assert.NoError(t, store.Close())
		})
	}

	for _, driver := range []string{"redis", ""} {
		_, err := Open(driver, "")
		assert.Error(t, err, "driver %q", driver)
	}
}
