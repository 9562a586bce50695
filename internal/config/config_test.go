package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("debug: true\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.True(t, cfg.Debug)
	assert.Equal(t, 8092, cfg.Port)
	assert.Equal(t, 50, cfg.Conversation.MaxTurns)
	assert.Equal(t, 10, cfg.Conversation.MaxSessions)
	assert.Equal(t, "usage.bolt", cfg.UsageStatisticsPath)
	assert.Equal(t, "https://www.perplexity.ai/rest/sse/perplexity_ask", cfg.Perplexity.APIURL)
	assert.NotEmpty(t, cfg.Perplexity.Models)
	assert.Equal(t, cfg.Perplexity.Models[0], cfg.Perplexity.DefaultModel)
}

func TestLoadConfigKeepsExplicitValues(t *testing.T) {
	raw := `
port: 9000
api-keys:
  - key-1
conversation:
  max-turns: 5
  max-sessions: 3
perplexity:
  cookie: "session=abc"
  models:
    - sonar-pro
  default-model: sonar-pro
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, []string{"key-1"}, cfg.APIKeys)
	assert.Equal(t, 5, cfg.Conversation.MaxTurns)
	assert.Equal(t, 3, cfg.Conversation.MaxSessions)
	assert.Equal(t, "session=abc", cfg.Perplexity.Cookie)
	assert.Equal(t, []string{"sonar-pro"}, cfg.Perplexity.Models)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadConfigMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [\n"), 0o600))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := &Config{Port: 9100, Debug: true}
	cfg.Perplexity.Cookie = "session=xyz"
	cfg.ApplyDefaults()
	require.NoError(t, SaveConfig(path, cfg))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
