package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.Chunker.Size)
	assert.Equal(t, 50, cfg.Chunker.Overlap)
	assert.Equal(t, 5, cfg.Retrieval.AnswerTopK)
	assert.Equal(t, 10, cfg.Retrieval.StudyTopK)
	assert.Equal(t, 10, cfg.Retrieval.HistoryTurns)
	assert.Equal(t, "mock", cfg.Generation.Provider)
	require.NotNil(t, cfg.Generation.MaxRetries)
	assert.Equal(t, 2, *cfg.Generation.MaxRetries)
	assert.Equal(t, 10, cfg.Generation.BaseDelaySecs)
	assert.Equal(t, "memory", cfg.Transcript.Type)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.False(t, cfg.Server.DevAuth)
}

func TestLoad_PartialFileFilled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
chunker:
  size: 200
  overlap: 20
generation:
  provider: openai
  openai:
    model: gpt-4.1-mini
transcript:
  type: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 200, cfg.Chunker.Size)
	assert.Equal(t, 20, cfg.Chunker.Overlap)
	require.NotNil(t, cfg.Generation.OpenAI)
	assert.Equal(t, "gpt-4.1-mini", cfg.Generation.OpenAI.Model)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Generation.OpenAI.APIKeyEnv)
	assert.Equal(t, "https://api.openai.com/v1", cfg.Generation.OpenAI.BaseURL)
	assert.Equal(t, "askmynotes.db", cfg.Transcript.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoad_ZeroRetriesKept(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("generation:\n  max_retries: 0\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.Generation.MaxRetries)
	assert.Equal(t, 0, *cfg.Generation.MaxRetries)
	assert.False(t, cfg.Server.DevAuth)
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chunker: [oops"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := defaultConfig()
	cfg.Watcher.Dir = "/notes"
	cfg.Watcher.User = "me"
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestLoadDefault_WritesUserConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())

	cfg, path, err := LoadDefault()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "askmynotes", "config.yaml"), path)
	assert.FileExists(t, path)
	assert.Equal(t, 500, cfg.Chunker.Size)
}
