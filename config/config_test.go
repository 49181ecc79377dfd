package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kgeesawor/discord-intel/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:11434/v1", cfg.Embedding.Host)
	assert.Equal(t, "embeddinggemma", cfg.Embedding.Model)
	assert.Equal(t, core.DefaultCollection, cfg.Index.Collection)
	assert.Equal(t, 64, cfg.Index.BatchSize)
	assert.Equal(t, 1, cfg.Index.Workers)
	require.NoError(t, cfg.Validate())
}

func TestLoad_File(t *testing.T) {
	t.Setenv("DISCORD_INTEL_TEST_KEY", "sk-secret")
	path := writeConfig(t, `
embedding:
  host: http://embed.internal:8080
  model: text-embedding-3-small
  api_key: ${DISCORD_INTEL_TEST_KEY}
index:
  collection: community
  workers: 4
  retry_delay: 250ms
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://embed.internal:8080", cfg.Embedding.Host)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedding.Model)
	assert.Equal(t, "sk-secret", cfg.Embedding.APIKey)
	assert.Equal(t, "community", cfg.Index.Collection)
	assert.Equal(t, 4, cfg.Index.Workers)
	assert.Equal(t, 250*time.Millisecond, cfg.Index.RetryDelay)
	assert.Equal(t, 64, cfg.Index.BatchSize, "missing keys keep defaults")

	a := cfg.AI()
	require.NoError(t, a.Validate())
	assert.Equal(t, "http://embed.internal:8080/v1", a.EmbeddingHost)
	assert.Equal(t, "sk-secret", a.APIKey)

	ix := cfg.Indexing()
	assert.Equal(t, "community", ix.Collection)
	assert.Equal(t, 4, ix.Workers)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "embedding: [not, a, map]"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "embeding:\n  host: typo\n"))
	assert.Error(t, err, "unknown keys are rejected")
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Index.Workers = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Embedding.Model = ""
	assert.Error(t, cfg.Validate())
}
