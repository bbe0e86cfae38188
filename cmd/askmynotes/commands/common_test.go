package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"askmynotes/internal/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestNewAppContext_MockAndSQLite(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, "generation:\n  provider: mock\n"+
		"transcript:\n  type: sqlite\n  path: "+filepath.Join(dir, "t.db")+"\n"+
		"object_store:\n  dir: "+filepath.Join(dir, "objects")+"\n")

	appCtx, err := NewAppContext(context.Background(), "", cfg)
	require.NoError(t, err)
	defer appCtx.Close()

	notes := filepath.Join(dir, "cells.txt")
	require.NoError(t, os.WriteFile(notes, []byte("Mitochondria produce ATP for the cell."), 0o644))

	text, err := ingestFiles(context.Background(), appCtx, "bio", []string{notes})
	require.NoError(t, err)
	assert.Contains(t, text, "Mitochondria")

	ans, err := appCtx.Service.Ask(context.Background(), localTenant("bio"), "bio", "What produces ATP?")
	require.NoError(t, err)
	require.NotEmpty(t, ans.Citations)
	assert.Equal(t, "cells.txt", ans.Citations[0].File)

	hist, err := appCtx.Service.History(context.Background(), localTenant("bio"))
	require.NoError(t, err)
	assert.Len(t, hist, 2)
}

func TestNewAppContext_UnknownProvider(t *testing.T) {
	cfg := writeConfig(t, "generation:\n  provider: carrier-pigeon\n")
	_, err := NewAppContext(context.Background(), "", cfg)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestNewAppContext_OpenAIWithoutKey(t *testing.T) {
	t.Setenv("ASKMYNOTES_TEST_KEY", "")
	cfg := writeConfig(t, "generation:\n  provider: openai\n  openai:\n    api_key_env: ASKMYNOTES_TEST_KEY\n")
	_, err := NewAppContext(context.Background(), "", cfg)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestIngestFiles_NoFiles(t *testing.T) {
	_, err := ingestFiles(context.Background(), &AppContext{}, "bio", nil)
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "a b", truncate("a\n  b", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}

func TestWriteCitations(t *testing.T) {
	var buf bytes.Buffer
	err := writeCitations(&buf, &domain.GroundedAnswer{
		Citations: []domain.Citation{
			{File: "cells.txt", Page: mo.Some(2), Chunk: 1},
			{File: "notes.md", Chunk: 3},
		},
		Evidence: []string{"Mitochondria produce ATP."},
	})
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "cells.txt p.2 #1")
	assert.Contains(t, out, "Mitochondria produce ATP.")
	assert.Contains(t, out, "notes.md p.? #3")
}
