package generation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"askmynotes/internal/domain"
)

type scriptedModel struct {
	errs    []error
	reply   string
	calls   int
	history []domain.Message
	system  string
	prompt  string
}

func (m *scriptedModel) Complete(_ context.Context, system string, history []domain.Message, prompt string) (string, error) {
	m.calls++
	m.system, m.history, m.prompt = system, history, prompt
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		return "", err
	}
	return m.reply, nil
}

func TestClient_PassesRequestThrough(t *testing.T) {
	m := &scriptedModel{reply: "hi"}
	c := NewClient(m, WithPolicy(fastPolicy()))

	hist := []domain.Message{{Role: domain.RoleUser, Content: "q1"}, {Role: domain.RoleAssistant, Content: "a1"}}
	got, err := c.Complete(context.Background(), Request{System: "sys", History: hist, Prompt: "q2"})
	require.NoError(t, err)
	assert.Equal(t, "hi", got)
	assert.Equal(t, "sys", m.system)
	assert.Equal(t, hist, m.history)
	assert.Equal(t, "q2", m.prompt)
}

func TestClient_RateLimitedAlways(t *testing.T) {
	m := &scriptedModel{errs: []error{domain.ErrRateLimited, domain.ErrRateLimited, domain.ErrRateLimited, domain.ErrRateLimited}}
	retries := 0
	p := fastPolicy()
	p.OnRetry = func(int, error, time.Duration) { retries++ }
	c := NewClient(m, WithPolicy(p))

	_, err := c.Complete(context.Background(), Request{Prompt: "q"})
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.NotErrorIs(t, err, domain.ErrProvider)
	assert.Equal(t, 3, m.calls)
	assert.Equal(t, 2, retries)
}

func TestClient_ProviderErrorWrapped(t *testing.T) {
	cause := errors.New("500 internal")
	m := &scriptedModel{errs: []error{cause}}
	c := NewClient(m, WithPolicy(fastPolicy()))

	_, err := c.Complete(context.Background(), Request{Prompt: "q"})
	assert.ErrorIs(t, err, domain.ErrProvider)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 1, m.calls)
}
