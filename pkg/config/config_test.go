package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgaunet/tapbump/pkg/config"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, "warn", cfg.DuplicateMode)
	assert.Empty(t, cfg.Tap)
}

func TestLoadFromMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := config.LoadFrom(filepath.Join(t.TempDir(), "absent.yml"))
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.DuplicateMode)
}

func TestLoadFromValidFile(t *testing.T) {
	path := writeConfig(t, `
tap: taporg/homebrew-tools
duplicate_mode: strict
bot_user: tap-bot
api_base: https://github.example.com/api/v3
commit_name: Tap Bot
commit_email: bot@example.com
`)

	cfg, err := config.LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "taporg/homebrew-tools", cfg.Tap)
	assert.Equal(t, "strict", cfg.DuplicateMode)
	assert.Equal(t, "tap-bot", cfg.BotUser)
	assert.Equal(t, "https://github.example.com/api/v3", cfg.APIBase)
	assert.Equal(t, "Tap Bot", cfg.CommitName)
	assert.Equal(t, "bot@example.com", cfg.CommitEmail)
}

func TestLoadFromPartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "tap: taporg/homebrew-tools\n")

	cfg, err := config.LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "taporg/homebrew-tools", cfg.Tap)
	assert.Equal(t, "warn", cfg.DuplicateMode)
}

func TestLoadFromInvalidDuplicateMode(t *testing.T) {
	path := writeConfig(t, "duplicate_mode: yolo\n")

	_, err := config.LoadFrom(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate_mode")
}

func TestLoadFromInvalidYAML(t *testing.T) {
	path := writeConfig(t, "tap: [unclosed\n")

	_, err := config.LoadFrom(path)
	assert.Error(t, err)
}

func TestEnvOverridesBotUser(t *testing.T) {
	t.Setenv("TAPBUMP_BOT_USER", "env-bot")

	path := writeConfig(t, "bot_user: file-bot\n")
	cfg, err := config.LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "env-bot", cfg.BotUser)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		mode    string
		wantErr bool
	}{
		{mode: "strict"},
		{mode: "warn"},
		{mode: "prompt"},
		{mode: "", wantErr: true},
		{mode: "abort", wantErr: true},
	}

	for _, tt := range tests {
		t.Run("mode "+tt.mode, func(t *testing.T) {
			cfg := config.Default()
			cfg.DuplicateMode = tt.mode
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
