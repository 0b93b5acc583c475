package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingTokenIsFatal(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")

	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestLoadDefaultsAndEnvOverrides(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "tok")
	t.Setenv("RENDER_WEBHOOK_SECRET", "sec")
	t.Setenv("PORT", "8088")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)

	assert.Equal(t, "tok", cfg.Bot.Token)
	assert.Equal(t, "sec", cfg.Webhook.Secret)
	assert.Equal(t, 8088, cfg.Webhook.Port)
	assert.Equal(t, "file", cfg.Storage.Backend)
}

func TestLoadFileThenEnvWins(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"bot":{"token":"from-file"},"webhook":{"port":4000}}`), 0644))

	t.Setenv("DISCORD_TOKEN", "from-env")
	t.Setenv("RENDER_WEBHOOK_SECRET", "")
	t.Setenv("PORT", "")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Bot.Token)
	assert.Equal(t, 4000, cfg.Webhook.Port)
}

func TestLoadDefaultPort(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "tok")
	t.Setenv("PORT", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Webhook.Port)
}
