package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"askmynotes/internal/domain"
)

type stubChat struct {
	answer *domain.GroundedAnswer
	err    error
	asked  []string
}

func (s *stubChat) Ask(_ context.Context, tenant, subject, q string) (*domain.GroundedAnswer, error) {
	s.asked = append(s.asked, tenant+"|"+subject+"|"+q)
	return s.answer, s.err
}

func typeAndSubmit(t *testing.T, m Model, text string) (Model, tea.Cmd) {
	t.Helper()
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	m = next.(Model)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return next.(Model), cmd
}

func TestModel_AskFlow(t *testing.T) {
	stub := &stubChat{answer: &domain.GroundedAnswer{
		Answer:     "Mitochondria make ATP.",
		Citations:  []domain.Citation{{File: "cell.txt", Page: mo.Some(2), Chunk: 4}},
		Confidence: domain.ConfidenceHigh,
	}}
	m := New(context.Background(), stub, "local/bio", "Biology", "summary")
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	m = next.(Model)

	m, cmd := typeAndSubmit(t, m, "what makes ATP?")
	require.NotNil(t, cmd)
	assert.True(t, m.pending)
	assert.Equal(t, "Thinking...", m.status)
	assert.Empty(t, m.input.Value())

	next, _ = m.Update(cmd())
	m = next.(Model)
	assert.False(t, m.pending)
	assert.Equal(t, []string{"local/bio|Biology|what makes ATP?"}, stub.asked)
	require.Len(t, m.history, 1)
	assert.Contains(t, m.renderHistory(), "cell.txt p.2 #4")
	assert.Contains(t, m.renderHistory(), "Confidence: High")
	assert.Contains(t, m.status, "High")
}

func TestModel_ErrorShown(t *testing.T) {
	stub := &stubChat{err: errors.New("provider down")}
	m := New(context.Background(), stub, "local/bio", "Biology", "")
	m, cmd := typeAndSubmit(t, m, "q")
	next, _ := m.Update(cmd())
	m = next.(Model)
	assert.Equal(t, "Error: provider down", m.status)
	assert.Contains(t, m.renderHistory(), "provider down")
}

func TestModel_EmptyInputIgnored(t *testing.T) {
	m := New(context.Background(), &stubChat{}, "t", "s", "")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.False(t, next.(Model).pending)
}

func TestFormatCitation(t *testing.T) {
	assert.Equal(t, "a.pdf p.3 #1", FormatCitation(domain.Citation{File: "a.pdf", Page: mo.Some(3), Chunk: 1}))
	assert.Equal(t, "b.txt p.? #0", FormatCitation(domain.Citation{File: "b.txt"}))
}

func TestHighlightBestSentence_PlainWithoutQuery(t *testing.T) {
	assert.Equal(t, "One. Two.", highlightBestSentence("One. Two.", ""))
}

func TestSplitSentences_KeepsUnterminatedTail(t *testing.T) {
	assert.Equal(t,
		[]string{"The mitochondria is the powerhouse.", "It produces ATP for the cell"},
		splitSentences("The mitochondria is the powerhouse. It produces ATP for the cell"))
	assert.Equal(t, []string{"no punctuation at all"}, splitSentences("  no punctuation at all "))
}

func TestHighlightBestSentence_RendersUnterminatedTail(t *testing.T) {
	out := highlightBestSentence("The mitochondria is the powerhouse. It produces ATP for the cell", "what produces ATP")
	assert.Contains(t, out, "The mitochondria is the powerhouse.")
	assert.Contains(t, out, "It produces ATP for the cell")
}
