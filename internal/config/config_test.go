package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "overlay.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "dictionary.toml", cfg.DictionaryPath)
	assert.Equal(t, "file", cfg.Settings.Driver)
	assert.Equal(t, "settings.yaml", filepath.Base(cfg.Settings.Path))
	assert.Equal(t, 64, cfg.Loop.QueueSize)
	assert.Equal(t, 16, cfg.Loop.MaxDeliveryRounds)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfig(t, `
dictionary_path: /srv/words.yaml
normalize_dictionary: true
settings:
  driver: sqlite
  path: /tmp/overlay.db
server:
  addr: 0.0.0.0:9000
  read_timeout: 30s
loop:
  queue_size: 8
log_level: debug
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/words.yaml", cfg.DictionaryPath)
	assert.True(t, cfg.NormalizeDictionary)
	assert.Equal(t, SettingsConfig{Driver: "sqlite", Path: "/tmp/overlay.db"}, cfg.Settings)
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 15*time.Second, cfg.Server.WriteTimeout, "unset keys keep defaults")
	assert.Equal(t, 8, cfg.Loop.QueueSize)
	assert.Equal(t, 16, cfg.Loop.MaxDeliveryRounds)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfigDefaultSettingsPath(t *testing.T) {
	path := writeConfig(t, "settings:\n  driver: sqlite\n")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "settings.db", filepath.Base(cfg.Settings.Path))

	path = writeConfig(t, "settings:\n  driver: memory\n")
	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.Settings.Path)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	path := writeConfig(t, "loop:\n  queue_size: 8\n")
	t.Setenv("OVERLAY_LOOP_QUEUE_SIZE", "32")
	t.Setenv("OVERLAY_DICTIONARY_PATH", "env.json")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.Loop.QueueSize)
	assert.Equal(t, "env.json", cfg.DictionaryPath)
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown driver", "settings:\n  driver: redis\n"},
		{"empty driver", "settings:\n  driver: \"\"\n"},
		{"zero queue", "loop:\n  queue_size: 0\n"},
		{"negative rounds", "loop:\n  max_delivery_rounds: -1\n"},
		{"empty addr", "server:\n  addr: \"\"\n"},
		{"malformed yaml", "loop: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}

	t.Run("missing explicit file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Settings = SettingsConfig{Driver: "file"}
	assert.Error(t, cfg.Validate(), "file driver needs a path")

	cfg.Settings = SettingsConfig{Driver: "memory"}
	assert.NoError(t, cfg.Validate())
}
