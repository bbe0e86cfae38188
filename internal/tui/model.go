package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"askmynotes/internal/domain"
	"askmynotes/internal/embedding/tf"
)

// ChatPort is the TUI-facing subset of the notes service.
type ChatPort interface {
	Ask(ctx context.Context, tenantID, subject, question string) (*domain.GroundedAnswer, error)
}

type exchange struct {
	question string
	answer   *domain.GroundedAnswer
	err      error
}

type answerMsg struct {
	question string
	answer   *domain.GroundedAnswer
	err      error
}

// Model is the Bubble Tea model for the chat application.
type Model struct {
	ctx      context.Context
	service  ChatPort
	tenant   string
	subject  string
	input    textinput.Model
	viewport viewport.Model
	history  []exchange
	summary  string
	status   string
	pending  bool
	ready    bool
}

// New creates a chat model for one subject. summary is shown under the title.
func New(ctx context.Context, service ChatPort, tenant, subject, summary string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question about your notes and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		ctx:      ctx,
		service:  service,
		tenant:   tenant,
		subject:  subject,
		input:    ti,
		viewport: vp,
		summary:  summary,
		status:   "Loaded. Ask away.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) ask(question string) tea.Cmd {
	return func() tea.Msg {
		ans, err := m.service.Ask(m.ctx, m.tenant, m.subject, question)
		return answerMsg{question: question, answer: ans, err: err}
	}
}

// Update handles key, window and answer events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		totalHeaderLines := 2                                    // header + summary
		totalFooterLines := 1                                    // status
		reserved := totalHeaderLines + totalFooterLines + qh + 1 // 1 spacer
		vh := msg.Height - reserved
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.refresh()
		return m, nil
	case answerMsg:
		m.pending = false
		m.history = append(m.history, exchange{question: msg.question, answer: msg.answer, err: msg.err})
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
		} else {
			m.status = fmt.Sprintf("Answered with %s confidence", msg.answer.Confidence)
		}
		m.refresh()
		m.viewport.GotoBottom()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.pending {
				return m, nil
			}
			m.pending = true
			m.input.SetValue("")
			m.status = "Thinking..."
			return m, m.ask(q)
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the TUI layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("AskMyNotes: " + m.subject)
	summary := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.summary)
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + summary + "\n" + results + "\n" + input + "\n" + status
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderHistory())
}

func (m Model) renderHistory() string {
	if len(m.history) == 0 {
		return "No questions yet."
	}
	blocks := make([]string, len(m.history))
	for i, ex := range m.history {
		blocks[i] = renderExchange(ex)
	}
	return strings.Join(blocks, "\n\n")
}

func renderExchange(ex exchange) string {
	var sb strings.Builder
	sb.WriteString(questionStyle.Render("You: " + ex.question))
	sb.WriteString("\n")
	if ex.err != nil {
		sb.WriteString(errorStyle.Render(ex.err.Error()))
		return sb.String()
	}
	a := ex.answer
	sb.WriteString(highlightBestSentence(a.Answer, ex.question))
	sb.WriteString("\n")
	sb.WriteString(confidenceStyle(a.Confidence).Render("Confidence: " + string(a.Confidence)))
	for _, c := range a.Citations {
		sb.WriteString("\n")
		sb.WriteString(citationStyle.Render("  " + FormatCitation(c)))
	}
	return sb.String()
}

// FormatCitation renders a citation as "file p.N #chunk".
func FormatCitation(c domain.Citation) string {
	page := "p.?"
	if p, ok := c.Page.Get(); ok {
		page = fmt.Sprintf("p.%d", p)
	}
	return fmt.Sprintf("%s %s #%d", c.File, page, c.Chunk)
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	questionStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	citationStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	sentenceRe     = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)
)

func confidenceStyle(c domain.Confidence) lipgloss.Style {
	switch c {
	case domain.ConfidenceHigh:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	case domain.ConfidenceMedium:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	}
}

// highlightBestSentence emphasises the answer sentence sharing the most
// terms with the question.
func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences := splitSentences(text)
	qTokens := toTokenSet(query)
	if len(qTokens) == 0 {
		return strings.Join(sentences, " ")
	}
	bestIdx := 0
	bestScore := -1
	for i, s := range sentences {
		score := tokenOverlapScore(qTokens, s)
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	sentences[bestIdx] = highlightStyle.Render(sentences[bestIdx])
	return strings.Join(sentences, " ")
}

// splitSentences splits on terminal punctuation and keeps any unterminated
// tail as a final sentence.
func splitSentences(text string) []string {
	var out []string
	last := 0
	for _, loc := range sentenceRe.FindAllStringIndex(text, -1) {
		if s := strings.TrimSpace(text[loc[0]:loc[1]]); s != "" {
			out = append(out, s)
		}
		last = loc[1]
	}
	if tail := strings.TrimSpace(text[last:]); tail != "" {
		out = append(out, tail)
	}
	return out
}

func toTokenSet(s string) map[string]struct{} {
	tokens := tf.Tokenize(s)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	seen := make(map[string]struct{})
	for _, t := range tf.Tokenize(sentence) {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}
