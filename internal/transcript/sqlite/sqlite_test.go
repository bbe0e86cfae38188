package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"askmynotes/internal/domain"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "transcripts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_AppendAndHistoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	err := s.Append(ctx, "u1/bio",
		domain.ConversationTurn{Role: domain.RoleUser, Content: "what is ATP?", Timestamp: at},
		domain.ConversationTurn{
			Role:    domain.RoleAssistant,
			Content: "Energy currency.",
			Citations: []domain.Citation{
				{File: "bio.pdf", Page: mo.Some(3), Chunk: 7},
				{File: "notes.txt", Page: mo.None[int](), Chunk: 0},
			},
			Confidence: domain.ConfidenceHigh,
			Evidence:   []string{"ATP stores energy"},
			Timestamp:  at,
		},
	)
	require.NoError(t, err)

	hist, err := s.History(ctx, "u1/bio")
	require.NoError(t, err)
	require.Len(t, hist, 2)

	assert.Equal(t, domain.RoleUser, hist[0].Role)
	assert.Equal(t, "what is ATP?", hist[0].Content)
	assert.Empty(t, hist[0].Citations)

	a := hist[1]
	assert.Equal(t, domain.RoleAssistant, a.Role)
	assert.Equal(t, domain.ConfidenceHigh, a.Confidence)
	assert.Equal(t, []string{"ATP stores energy"}, a.Evidence)
	require.Len(t, a.Citations, 2)
	assert.Equal(t, mo.Some(3), a.Citations[0].Page)
	assert.True(t, a.Citations[1].Page.IsAbsent())
	assert.True(t, a.Timestamp.Equal(at))
}

func TestStore_RecentReturnsNewestOldestFirst(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	for _, c := range []string{"q1", "a1", "q2", "a2"} {
		require.NoError(t, s.Append(ctx, "t", domain.ConversationTurn{Role: domain.RoleUser, Content: c}))
	}

	recent, err := s.Recent(ctx, "t", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "q2", recent[0].Content)
	assert.Equal(t, "a2", recent[1].Content)

	none, err := s.Recent(ctx, "t", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_ClearIsPerTenant(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	require.NoError(t, s.Append(ctx, "a", domain.ConversationTurn{Role: domain.RoleUser, Content: "x"}))
	require.NoError(t, s.Append(ctx, "b", domain.ConversationTurn{Role: domain.RoleUser, Content: "y"}))

	require.NoError(t, s.Clear(ctx, "a"))

	a, err := s.History(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, a)
	b, err := s.History(ctx, "b")
	require.NoError(t, err)
	assert.Len(t, b, 1)
}

func TestOpen_InMemory(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Append(context.Background(), "t", domain.ConversationTurn{Role: domain.RoleUser, Content: "q"}))
	hist, err := s.History(context.Background(), "t")
	require.NoError(t, err)
	assert.Len(t, hist, 1)
}
