package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/samber/mo"

	"askmynotes/internal/domain"
)

// Model answers offline from the context block of the prompt. It picks the
// first labelled chunk, quotes its first sentence and cites it; with no
// context it returns the "not found" object from the system prompt.
type Model struct{}

// New returns an offline model.
func New() *Model { return &Model{} }

var (
	chunkHeaderRe = regexp.MustCompile(`(?m)^\[Chunk \d+ \| File: (.*?) \| Page: (\S+) \| Index: (\d+)\]\n`)
	sentinelRe    = regexp.MustCompile(`(?m)^\{"answer":"Not found in your notes for .*\}$`)
	sentenceRe    = regexp.MustCompile(`(?s)^.*?[.!?](\s|$)`)
)

type contextChunk struct {
	citation domain.Citation
	text     string
}

// Complete implements domain.Model.
func (m *Model) Complete(_ context.Context, systemPrompt string, _ []domain.Message, userPrompt string) (string, error) {
	chunks := parseContext(userPrompt)
	if strings.Contains(userPrompt, "Generate study questions") {
		return studySet(chunks)
	}
	if len(chunks) == 0 {
		if s := sentinelRe.FindString(systemPrompt); s != "" {
			return s, nil
		}
		return `{"answer":"Not found in your notes.","citations":[],"confidence":"Low","evidence":[]}`, nil
	}
	first := chunks[0]
	quote := firstSentence(first.text)
	out, err := json.Marshal(domain.GroundedAnswer{
		Answer:     quote,
		Citations:  []domain.Citation{first.citation},
		Confidence: domain.ConfidenceMedium,
		Evidence:   []string{quote},
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func parseContext(prompt string) []contextChunk {
	locs := chunkHeaderRe.FindAllStringSubmatchIndex(prompt, -1)
	chunks := make([]contextChunk, 0, len(locs))
	for i, loc := range locs {
		end := len(prompt)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		body := prompt[loc[1]:end]
		body = strings.TrimSuffix(strings.TrimSpace(body), "---")
		for _, marker := range []string{"\n\nQUESTION:", "\n\nTOPIC:"} {
			if j := strings.Index(body, marker); j >= 0 {
				body = body[:j]
			}
		}

		c := domain.Citation{File: prompt[loc[2]:loc[3]]}
		if page, err := strconv.Atoi(prompt[loc[4]:loc[5]]); err == nil {
			c.Page = mo.Some(page)
		}
		c.Chunk, _ = strconv.Atoi(prompt[loc[6]:loc[7]])
		chunks = append(chunks, contextChunk{citation: c, text: strings.TrimSpace(body)})
	}
	return chunks
}

func firstSentence(text string) string {
	if s := sentenceRe.FindString(text); s != "" {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(text)
}

func studySet(chunks []contextChunk) (string, error) {
	if len(chunks) == 0 {
		return "I could not find any notes to build questions from.", nil
	}
	set := domain.StudySet{}
	for i := 0; i < 5; i++ {
		c := chunks[i%len(chunks)]
		set.MCQs = append(set.MCQs, domain.MultipleChoiceQuestion{
			Question: fmt.Sprintf("Which statement appears in %s?", c.citation.File),
			Options: []string{
				"A. " + firstSentence(c.text),
				"B. None of the notes mention this topic.",
				"C. The notes contradict this statement.",
				"D. The statement is only an opinion.",
			},
			Correct:     "A",
			Explanation: "Quoted directly from the notes.",
			Citation:    c.citation,
		})
	}
	for i := 0; i < 3; i++ {
		c := chunks[i%len(chunks)]
		set.ShortAnswers = append(set.ShortAnswers, domain.ShortAnswerQuestion{
			Question:       fmt.Sprintf("Summarise the key point of chunk %d of %s.", c.citation.Chunk, c.citation.File),
			ExpectedAnswer: firstSentence(c.text),
			Citation:       c.citation,
		})
	}
	out, err := json.Marshal(set)
	if err != nil {
		return "", err
	}
	return "```json\n" + string(out) + "\n```", nil
}

var _ domain.Model = (*Model)(nil)
