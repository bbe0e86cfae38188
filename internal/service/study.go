package service

import (
	"context"
	"fmt"
	"strings"

	"askmynotes/internal/domain"
	"askmynotes/internal/generation"
)

const (
	StudyMCQCount         = 5
	StudyShortAnswerCount = 3
	mcqOptionCount        = 4
)

// GenerateStudySet builds multiple-choice and short-answer questions from
// the tenant's notes. The topic hint steers retrieval and defaults to the
// subject label. A tenant without notes gets domain.ErrNothingToStudy and
// no generation call is made. Output that breaks the study-set contract
// comes back as an empty set with the raw text attached.
func (s *NotesService) GenerateStudySet(ctx context.Context, tenantID, subject, topicHint string) (*domain.StudySet, error) {
	log := s.logger.With("tenantID", tenantID, "op", "study")

	s.stage(log, StageValidating)
	if len(s.index.Sources(tenantID)) == 0 {
		return nil, domain.ErrNothingToStudy
	}
	topic := strings.TrimSpace(topicHint)
	if topic == "" {
		topic = subject
	}

	s.stage(log, StageRetrieving)
	results, err := s.index.Query(tenantID, topic, s.studyTopK)
	if err != nil {
		return nil, fmt.Errorf("retrieve context: %w", err)
	}
	if len(results) == 0 {
		return nil, domain.ErrNothingToStudy
	}

	s.stage(log, StageGenerating)
	raw, err := s.generator.Complete(ctx, generation.Request{
		System: BuildStudySystemPrompt(subject),
		Prompt: BuildStudyPrompt(results, topic),
	})
	if err != nil {
		log.Error("generation failed", "error", err)
		return nil, err
	}

	s.stage(log, StageRecovering)
	set, err := generation.ExtractJSON[domain.StudySet](raw)
	if err == nil {
		err = validateStudySet(&set)
	}
	if err != nil {
		log.Warn("study set rejected", "error", err, "responseLength", len(raw))
		return &domain.StudySet{
			MCQs:         []domain.MultipleChoiceQuestion{},
			ShortAnswers: []domain.ShortAnswerQuestion{},
			Raw:          raw,
		}, nil
	}

	s.stage(log, StageDone)
	log.Info("study set generated", "mcqs", len(set.MCQs), "shortAnswers", len(set.ShortAnswers))
	return &set, nil
}

// validateStudySet enforces the structural contract and normalises the
// correct-answer letters to upper case.
func validateStudySet(set *domain.StudySet) error {
	if len(set.MCQs) != StudyMCQCount {
		return fmt.Errorf("%w: want %d mcqs, got %d", domain.ErrMalformedOutput, StudyMCQCount, len(set.MCQs))
	}
	if len(set.ShortAnswers) != StudyShortAnswerCount {
		return fmt.Errorf("%w: want %d short answers, got %d", domain.ErrMalformedOutput, StudyShortAnswerCount, len(set.ShortAnswers))
	}
	for i := range set.MCQs {
		q := &set.MCQs[i]
		if strings.TrimSpace(q.Question) == "" {
			return fmt.Errorf("%w: mcq %d has no question", domain.ErrMalformedOutput, i+1)
		}
		if len(q.Options) != mcqOptionCount {
			return fmt.Errorf("%w: mcq %d has %d options", domain.ErrMalformedOutput, i+1, len(q.Options))
		}
		q.Correct = strings.ToUpper(strings.TrimSpace(q.Correct))
		if len(q.Correct) != 1 || q.Correct[0] < 'A' || q.Correct[0] > 'D' {
			return fmt.Errorf("%w: mcq %d has correct answer %q", domain.ErrMalformedOutput, i+1, q.Correct)
		}
		if strings.TrimSpace(q.Explanation) == "" {
			return fmt.Errorf("%w: mcq %d has no explanation", domain.ErrMalformedOutput, i+1)
		}
		if strings.TrimSpace(q.Citation.File) == "" {
			return fmt.Errorf("%w: mcq %d has no citation", domain.ErrMalformedOutput, i+1)
		}
	}
	for i, q := range set.ShortAnswers {
		if strings.TrimSpace(q.Question) == "" || strings.TrimSpace(q.ExpectedAnswer) == "" {
			return fmt.Errorf("%w: short answer %d is incomplete", domain.ErrMalformedOutput, i+1)
		}
		if strings.TrimSpace(q.Citation.File) == "" {
			return fmt.Errorf("%w: short answer %d has no citation", domain.ErrMalformedOutput, i+1)
		}
	}
	set.Raw = ""
	return nil
}
