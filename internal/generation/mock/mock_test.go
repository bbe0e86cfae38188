package mock

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"askmynotes/internal/domain"
	"askmynotes/internal/generation"
)

const sentinel = `{"answer":"Not found in your notes for Physics.","citations":[],"confidence":"Low","evidence":[]}`

func TestModel_NoContextReturnsSentinel(t *testing.T) {
	system := "Answer only from context.\nIf unsure reply with:\n" + sentinel + "\n\nReturn JSON."
	out, err := New().Complete(context.Background(), system, nil, "CONTEXT:\n(no matching notes)\n\nQUESTION: what is gravity?")
	require.NoError(t, err)
	assert.Equal(t, sentinel, out)
}

func TestModel_CitesFirstChunk(t *testing.T) {
	prompt := "CONTEXT:\n" +
		"[Chunk 1 | File: cell.pdf | Page: 3 | Index: 7]\nMitochondria make ATP. They have two membranes." +
		"\n\n---\n\n" +
		"[Chunk 2 | File: notes.txt | Page: N/A | Index: 0]\nRibosomes build proteins." +
		"\n\nQUESTION: what makes ATP?"

	out, err := New().Complete(context.Background(), "", nil, prompt)
	require.NoError(t, err)

	var ans domain.GroundedAnswer
	require.NoError(t, json.Unmarshal([]byte(out), &ans))
	assert.Equal(t, "Mitochondria make ATP.", ans.Answer)
	assert.Equal(t, domain.ConfidenceMedium, ans.Confidence)
	require.Len(t, ans.Citations, 1)
	assert.Equal(t, "cell.pdf", ans.Citations[0].File)
	assert.Equal(t, 3, ans.Citations[0].Page.OrEmpty())
	assert.Equal(t, 7, ans.Citations[0].Chunk)
}

func TestModel_PageNAIsAbsent(t *testing.T) {
	chunks := parseContext("[Chunk 1 | File: a.txt | Page: N/A | Index: 2]\nhello\n\nTOPIC: x")
	require.Len(t, chunks, 1)
	assert.True(t, chunks[0].citation.Page.IsAbsent())
	assert.Equal(t, "hello", chunks[0].text)
}

func TestModel_StudySetRecoverable(t *testing.T) {
	prompt := "CONTEXT:\n[Chunk 1 | File: a.txt | Page: 1 | Index: 0]\nAtoms have protons.\n\nTOPIC: atoms\n\nGenerate study questions now."
	out, err := New().Complete(context.Background(), "", nil, prompt)
	require.NoError(t, err)

	set, err := generation.ExtractJSON[domain.StudySet](out)
	require.NoError(t, err)
	assert.Len(t, set.MCQs, 5)
	assert.Len(t, set.ShortAnswers, 3)
	for _, q := range set.MCQs {
		assert.Len(t, q.Options, 4)
		assert.Equal(t, "A", q.Correct)
	}
}
