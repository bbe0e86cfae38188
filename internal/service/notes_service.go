package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"askmynotes/internal/domain"
	"askmynotes/internal/generation"
	"askmynotes/internal/vectorstore"
)

const (
	DefaultAnswerTopK   = 5
	DefaultStudyTopK    = 10
	DefaultHistoryTurns = 10
)

// Stage names the step a request is in; it is only used for logging.
type Stage string

const (
	StageValidating Stage = "validating"
	StageRetrieving Stage = "retrieving"
	StageGenerating Stage = "generating"
	StageRecovering Stage = "recovering"
	StagePersisting Stage = "persisting"
	StageDone       Stage = "done"
)

// Generator is the part of generation.Client the service needs.
type Generator interface {
	Complete(ctx context.Context, req generation.Request) (string, error)
}

// NotesService composes parsing, chunking, retrieval and generation into
// the ingestion, grounded Q&A and study-set workflows.
type NotesService struct {
	parser      domain.Parser
	chunker     domain.Chunker
	index       vectorstore.Storage
	transcripts domain.TranscriptStore
	generator   Generator
	objects     domain.ObjectStore
	logger      *slog.Logger

	answerTopK   int
	studyTopK    int
	historyTurns int
	now          func() time.Time
}

// Option configures a NotesService.
type Option func(*NotesService)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *NotesService) {
		s.logger = logger
	}
}

// WithObjectStore enables best-effort durable copies of uploads.
func WithObjectStore(store domain.ObjectStore) Option {
	return func(s *NotesService) {
		s.objects = store
	}
}

// WithLimits overrides retrieval depth and history window. Non-positive
// values keep the defaults.
func WithLimits(answerTopK, studyTopK, historyTurns int) Option {
	return func(s *NotesService) {
		if answerTopK > 0 {
			s.answerTopK = answerTopK
		}
		if studyTopK > 0 {
			s.studyTopK = studyTopK
		}
		if historyTurns > 0 {
			s.historyTurns = historyTurns
		}
	}
}

// WithClock replaces time.Now for turn timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *NotesService) {
		s.now = now
	}
}

// NewNotesService wires the core collaborators together.
func NewNotesService(
	parser domain.Parser,
	chunker domain.Chunker,
	index vectorstore.Storage,
	transcripts domain.TranscriptStore,
	generator Generator,
	opts ...Option,
) *NotesService {
	s := &NotesService{
		parser:       parser,
		chunker:      chunker,
		index:        index,
		transcripts:  transcripts,
		generator:    generator,
		logger:       slog.Default(),
		answerTopK:   DefaultAnswerTopK,
		studyTopK:    DefaultStudyTopK,
		historyTurns: DefaultHistoryTurns,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Ingest parses, chunks and indexes one document. The object store copy is
// best effort: its failure is logged and ingestion continues.
func (s *NotesService) Ingest(ctx context.Context, tenantID, sourceID string, file io.Reader, originalName string) (*domain.IngestResult, error) {
	if tenantID == "" || sourceID == "" {
		return nil, fmt.Errorf("%w: tenant and source ids are required", domain.ErrInvalidArgument)
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	doc, err := s.parser.Parse(ctx, bytes.NewReader(data), originalName)
	if err != nil {
		return nil, err
	}
	chunks, err := s.chunker.Chunk(doc.Pages, originalName)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", originalName, err)
	}
	s.logger.Info("document parsed",
		"tenantID", tenantID,
		"sourceID", sourceID,
		"file", originalName,
		"pages", len(doc.Pages),
		"chunks", len(chunks),
	)
	if len(chunks) == 0 {
		return nil, domain.ErrNoText
	}

	if s.objects != nil {
		location, err := s.objects.Put(ctx, tenantID, sourceID, originalName, data)
		if err != nil {
			s.logger.Warn("object store upload failed, continuing without it",
				"tenantID", tenantID,
				"sourceID", sourceID,
				"error", err,
			)
		} else {
			s.logger.Debug("object stored", "sourceID", sourceID, "location", location)
		}
	}

	if err := s.index.AddChunks(tenantID, chunks, sourceID); err != nil {
		return nil, fmt.Errorf("index %s: %w", originalName, err)
	}
	return &domain.IngestResult{SourceID: sourceID, ChunkCount: len(chunks)}, nil
}

// RemoveSource purges one document from the tenant index and object store.
func (s *NotesService) RemoveSource(ctx context.Context, tenantID, sourceID string) error {
	if err := s.index.RemoveBySource(tenantID, sourceID); err != nil {
		return fmt.Errorf("remove source %s: %w", sourceID, err)
	}
	if s.objects != nil {
		if err := s.objects.Delete(ctx, tenantID, sourceID); err != nil {
			s.logger.Warn("object store delete failed", "tenantID", tenantID, "sourceID", sourceID, "error", err)
		}
	}
	s.logger.Info("source removed", "tenantID", tenantID, "sourceID", sourceID)
	return nil
}

// RemoveTenant drops the tenant collection, its transcript and stored files.
func (s *NotesService) RemoveTenant(ctx context.Context, tenantID string) error {
	if err := s.index.DeleteTenant(tenantID); err != nil {
		return fmt.Errorf("delete tenant %s: %w", tenantID, err)
	}
	if err := s.transcripts.Clear(ctx, tenantID); err != nil {
		s.logger.Warn("transcript clear failed", "tenantID", tenantID, "error", err)
	}
	if s.objects != nil {
		if err := s.objects.DeleteTenant(ctx, tenantID); err != nil {
			s.logger.Warn("object store tenant delete failed", "tenantID", tenantID, "error", err)
		}
	}
	s.logger.Info("tenant removed", "tenantID", tenantID)
	return nil
}

// Sources lists the documents indexed for a tenant.
func (s *NotesService) Sources(tenantID string) []domain.SourceInfo {
	return s.index.Sources(tenantID)
}

// History returns the full transcript of a tenant.
func (s *NotesService) History(ctx context.Context, tenantID string) ([]domain.ConversationTurn, error) {
	return s.transcripts.History(ctx, tenantID)
}

// ClearHistory deletes the transcript of a tenant.
func (s *NotesService) ClearHistory(ctx context.Context, tenantID string) error {
	return s.transcripts.Clear(ctx, tenantID)
}

// Ask answers question from the tenant's notes. A model reply that cannot
// be read as a GroundedAnswer degrades to a low-confidence, uncited answer
// carrying the raw text; only provider failures are returned as errors.
func (s *NotesService) Ask(ctx context.Context, tenantID, subject, question string) (*domain.GroundedAnswer, error) {
	log := s.logger.With("tenantID", tenantID, "op", "ask")

	s.stage(log, StageValidating)
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.ErrEmptyQuestion
	}

	s.stage(log, StageRetrieving)
	results, err := s.index.Query(tenantID, question, s.answerTopK)
	if err != nil {
		return nil, fmt.Errorf("retrieve context: %w", err)
	}
	recent, err := s.transcripts.Recent(ctx, tenantID, s.historyTurns)
	if err != nil {
		return nil, fmt.Errorf("load transcript: %w", err)
	}
	log.Info("context retrieved", "chunks", len(results), "historyTurns", len(recent))

	s.stage(log, StageGenerating)
	raw, err := s.generator.Complete(ctx, generation.Request{
		System:  BuildAnswerSystemPrompt(subject),
		History: toMessages(recent),
		Prompt:  BuildAnswerPrompt(results, question),
	})
	if err != nil {
		log.Error("generation failed", "error", err)
		return nil, err
	}

	s.stage(log, StageRecovering)
	answer, err := generation.ExtractJSON[domain.GroundedAnswer](raw)
	if err == nil && strings.TrimSpace(answer.Answer) == "" {
		err = fmt.Errorf("%w: recovered object has no answer", domain.ErrMalformedOutput)
	}
	if err != nil {
		log.Warn("model output not recoverable, using raw text", "error", err, "responseLength", len(raw))
		answer = domain.GroundedAnswer{Answer: raw, Confidence: domain.ConfidenceLow}
	}
	normalizeAnswer(&answer)

	s.stage(log, StagePersisting)
	now := s.now()
	turns := []domain.ConversationTurn{
		{Role: domain.RoleUser, Content: question, Citations: []domain.Citation{}, Evidence: []string{}, Timestamp: now},
		{
			Role:       domain.RoleAssistant,
			Content:    answer.Answer,
			Citations:  answer.Citations,
			Confidence: answer.Confidence,
			Evidence:   answer.Evidence,
			Timestamp:  now,
		},
	}
	if err := s.transcripts.Append(ctx, tenantID, turns...); err != nil {
		return nil, fmt.Errorf("save transcript: %w", err)
	}

	s.stage(log, StageDone)
	log.Info("question answered", "confidence", answer.Confidence, "citations", len(answer.Citations))
	return &answer, nil
}

func (s *NotesService) stage(log *slog.Logger, st Stage) {
	log.Debug("request stage", "stage", st)
}

// toMessages maps stored turns to model history. Anything that is not a
// user turn is treated as an assistant turn.
func toMessages(turns []domain.ConversationTurn) []domain.Message {
	out := make([]domain.Message, len(turns))
	for i, t := range turns {
		role := domain.RoleAssistant
		if t.Role == domain.RoleUser {
			role = domain.RoleUser
		}
		out[i] = domain.Message{Role: role, Content: t.Content}
	}
	return out
}

func normalizeAnswer(a *domain.GroundedAnswer) {
	if a.Citations == nil {
		a.Citations = []domain.Citation{}
	}
	if a.Evidence == nil {
		a.Evidence = []string{}
	}
	if !a.Confidence.Valid() {
		a.Confidence = domain.ConfidenceLow
	}
}
