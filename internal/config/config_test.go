package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultGamePort, cfg.GamePort)
	assert.Equal(t, DefaultRequeryWindowTicks, cfg.Requery.WindowTicks)
	assert.Equal(t, DefaultMaxRequeryAttempts, cfg.Requery.MaxAttempts)
	assert.Equal(t, DefaultRefreshWindows, cfg.Requery.RefreshWindows)
	assert.Equal(t, 30*time.Millisecond, cfg.TickInterval())
}

func TestLoadFromFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "browser.json")

	cfg := DefaultConfig()
	cfg.GamePort = 4000
	cfg.Requery.WindowTicks = 120
	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 4000, loaded.GamePort)
	assert.Equal(t, 120, loaded.Requery.WindowTicks)
}

func TestLoadFromFile_PartialFileGetsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "browser.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"game_port": 4000}`), 0o644))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 4000, loaded.GamePort)
	assert.Equal(t, DefaultRequeryWindowTicks, loaded.Requery.WindowTicks)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero game port", func(c *Config) { c.GamePort = 0 }},
		{"negative tick interval", func(c *Config) { c.TickIntervalMS = -1 }},
		{"zero window", func(c *Config) { c.Requery.WindowTicks = 0 }},
		{"zero attempts", func(c *Config) { c.Requery.MaxAttempts = 0 }},
		{"refresh below cap", func(c *Config) { c.Requery.RefreshWindows = 5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoader_ReloadOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "browser.json")
	require.NoError(t, SaveConfig(DefaultConfig(), path))

	loader, err := NewLoader(path, testLogger())
	require.NoError(t, err)
	defer loader.Stop()

	_, err = loader.Load()
	require.NoError(t, err)

	reloaded := make(chan *Config, 1)
	require.NoError(t, loader.StartWatching(func(cfg *Config) error {
		select {
		case reloaded <- cfg:
		default:
		}
		return nil
	}))

	updated := DefaultConfig()
	updated.GamePort = 4000
	require.NoError(t, SaveConfig(updated, path))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, 4000, cfg.GamePort)
	case <-time.After(3 * time.Second):
		t.Fatal("configuration change not observed")
	}
}

func TestLoader_SaveSkipsOwnReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "browser.json")
	require.NoError(t, SaveConfig(DefaultConfig(), path))

	loader, err := NewLoader(path, testLogger())
	require.NoError(t, err)
	defer loader.Stop()

	_, err = loader.Load()
	require.NoError(t, err)

	reloads := make(chan struct{}, 4)
	require.NoError(t, loader.StartWatching(func(*Config) error {
		reloads <- struct{}{}
		return nil
	}))

	updated := DefaultConfig()
	updated.GamePort = 4001
	require.NoError(t, loader.Save(updated))
	assert.Equal(t, 4001, loader.GetConfig().GamePort)

	select {
	case <-reloads:
		t.Fatal("programmatic save must not trigger a reload")
	case <-time.After(500 * time.Millisecond):
	}
}
