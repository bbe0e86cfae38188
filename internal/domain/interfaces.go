package domain

import (
	"context"
	"io"
	"time"

	"github.com/samber/mo"
)

// Page is the extracted text of one page of an uploaded document.
type Page struct {
	Number int
	Text   string
}

// ParsedDocument is the output of a Parser.
type ParsedDocument struct {
	Pages []Page
}

// ChunkMetadata records where a chunk came from.
type ChunkMetadata struct {
	SourceName string `json:"sourceName"`
	Page       int    `json:"page"`
	ChunkIndex int    `json:"chunkIndex"`
	SourceID   string `json:"sourceId"`
}

// Chunk is a bounded span of source text used for retrieval and citation.
type Chunk struct {
	Content  string        `json:"content"`
	Metadata ChunkMetadata `json:"metadata"`
}

// SearchResult represents a matching chunk with a relevance score in [0,1].
type SearchResult struct {
	ID    string
	Chunk Chunk
	Score float64
}

// SourceInfo summarises one ingested document inside a tenant collection.
type SourceInfo struct {
	SourceID   string `json:"sourceId"`
	SourceName string `json:"sourceName"`
	Chunks     int    `json:"chunks"`
}

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Confidence is the coarse grounding signal attached to an answer.
type Confidence string

const (
	ConfidenceHigh   Confidence = "High"
	ConfidenceMedium Confidence = "Medium"
	ConfidenceLow    Confidence = "Low"
)

// Valid reports whether c is one of the three known levels.
func (c Confidence) Valid() bool {
	switch c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return true
	}
	return false
}

// Citation points at the chunk an answer was drawn from. Page is absent
// when the model could not attribute a page.
type Citation struct {
	File  string         `json:"file"`
	Page  mo.Option[int] `json:"page"`
	Chunk int            `json:"chunk"`
}

// GroundedAnswer is the contract every answer must satisfy, either as
// produced by the model or synthesised as a fallback.
type GroundedAnswer struct {
	Answer     string     `json:"answer"`
	Citations  []Citation `json:"citations"`
	Confidence Confidence `json:"confidence"`
	Evidence   []string   `json:"evidence"`
}

// ConversationTurn is one message of a tenant transcript.
type ConversationTurn struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	Citations  []Citation `json:"citations"`
	Confidence Confidence `json:"confidence,omitempty"`
	Evidence   []string   `json:"evidence"`
	Timestamp  time.Time  `json:"timestamp"`
}

// MultipleChoiceQuestion is a generated MCQ with four lettered options.
type MultipleChoiceQuestion struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	Correct     string   `json:"correct"`
	Explanation string   `json:"explanation"`
	Citation    Citation `json:"citation"`
}

// ShortAnswerQuestion is a generated open question with its expected answer.
type ShortAnswerQuestion struct {
	Question       string   `json:"question"`
	ExpectedAnswer string   `json:"expectedAnswer"`
	Citation       Citation `json:"citation"`
}

// StudySet is the result of study-question generation. Raw carries the
// model output when it could not be read as a valid set.
type StudySet struct {
	MCQs         []MultipleChoiceQuestion `json:"mcqs"`
	ShortAnswers []ShortAnswerQuestion    `json:"shortAnswers"`
	Raw          string                   `json:"raw,omitempty"`
}

// IngestResult is returned by a successful ingestion.
type IngestResult struct {
	SourceID   string `json:"sourceId"`
	ChunkCount int    `json:"chunkCount"`
}

// Message is one prior turn handed to the model as history.
type Message struct {
	Role    Role
	Content string
}

// Chunker splits parsed pages into retrievable chunks.
type Chunker interface {
	Chunk(pages []Page, sourceName string) ([]Chunk, error)
}

// Parser extracts per-page text from an uploaded file. Unknown formats
// fail with ErrUnsupportedFormat.
type Parser interface {
	Parse(ctx context.Context, file io.Reader, originalName string) (*ParsedDocument, error)
}

// ObjectStore keeps a best-effort durable copy of uploaded files.
type ObjectStore interface {
	Put(ctx context.Context, tenantID, sourceID, name string, data []byte) (string, error)
	Delete(ctx context.Context, tenantID, sourceID string) error
	DeleteTenant(ctx context.Context, tenantID string) error
}

// TranscriptStore owns per-tenant conversation history. Append must store
// all given turns contiguously and in order.
type TranscriptStore interface {
	Recent(ctx context.Context, tenantID string, n int) ([]ConversationTurn, error)
	Append(ctx context.Context, tenantID string, turns ...ConversationTurn) error
	History(ctx context.Context, tenantID string) ([]ConversationTurn, error)
	Clear(ctx context.Context, tenantID string) error
}

// Model is the external generative model. Implementations return
// ErrRateLimited when the provider asks the caller to slow down.
type Model interface {
	Complete(ctx context.Context, systemPrompt string, history []Message, userPrompt string) (string, error)
}
