package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"askmynotes/internal/domain"
)

// turnRow is one persisted conversation turn. Rows of a tenant are read
// back in primary key order, which is insertion order.
type turnRow struct {
	ID         uint   `gorm:"primaryKey"`
	TenantID   string `gorm:"index;not null"`
	Role       string `gorm:"not null"`
	Content    string
	Citations  string
	Confidence string
	Evidence   string
	CreatedAt  time.Time
}

func (turnRow) TableName() string { return "conversation_turns" }

// Store persists transcripts in a SQLite database.
type Store struct {
	db *gorm.DB
}

// Open opens (or creates) the database at path and migrates the schema.
// Use ":memory:" for a throwaway database.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if path == ":memory:" {
		// every pooled connection would otherwise see its own empty database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return New(db)
}

// New wraps an existing gorm handle.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&turnRow{}); err != nil {
		return nil, fmt.Errorf("migrate transcript schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Recent returns at most n of the newest turns, oldest first.
func (s *Store) Recent(ctx context.Context, tenantID string, n int) ([]domain.ConversationTurn, error) {
	if n <= 0 {
		return []domain.ConversationTurn{}, nil
	}
	var rows []turnRow
	err := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("id desc").
		Limit(n).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load recent turns: %w", err)
	}
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return toTurns(rows)
}

// Append stores turns in one transaction so a question and its answer are
// never separated.
func (s *Store) Append(ctx context.Context, tenantID string, turns ...domain.ConversationTurn) error {
	if tenantID == "" {
		return domain.ErrInvalidArgument
	}
	if len(turns) == 0 {
		return nil
	}
	rows := make([]turnRow, len(turns))
	for i, t := range turns {
		row, err := toRow(tenantID, t)
		if err != nil {
			return err
		}
		rows[i] = row
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range rows {
			if err := tx.Create(&rows[i]).Error; err != nil {
				return fmt.Errorf("insert turn: %w", err)
			}
		}
		return nil
	})
}

func (s *Store) History(ctx context.Context, tenantID string) ([]domain.ConversationTurn, error) {
	var rows []turnRow
	err := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("id asc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return toTurns(rows)
}

func (s *Store) Clear(ctx context.Context, tenantID string) error {
	err := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Delete(&turnRow{}).Error
	if err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

func toRow(tenantID string, t domain.ConversationTurn) (turnRow, error) {
	citations := t.Citations
	if citations == nil {
		citations = []domain.Citation{}
	}
	evidence := t.Evidence
	if evidence == nil {
		evidence = []string{}
	}
	c, err := json.Marshal(citations)
	if err != nil {
		return turnRow{}, fmt.Errorf("encode citations: %w", err)
	}
	e, err := json.Marshal(evidence)
	if err != nil {
		return turnRow{}, fmt.Errorf("encode evidence: %w", err)
	}
	created := t.Timestamp
	if created.IsZero() {
		created = time.Now()
	}
	return turnRow{
		TenantID:   tenantID,
		Role:       string(t.Role),
		Content:    t.Content,
		Citations:  string(c),
		Confidence: string(t.Confidence),
		Evidence:   string(e),
		CreatedAt:  created.UTC(),
	}, nil
}

func toTurns(rows []turnRow) ([]domain.ConversationTurn, error) {
	out := make([]domain.ConversationTurn, len(rows))
	for i, r := range rows {
		t := domain.ConversationTurn{
			Role:       domain.Role(r.Role),
			Content:    r.Content,
			Confidence: domain.Confidence(r.Confidence),
			Citations:  []domain.Citation{},
			Evidence:   []string{},
			Timestamp:  r.CreatedAt,
		}
		if r.Citations != "" {
			if err := json.Unmarshal([]byte(r.Citations), &t.Citations); err != nil {
				return nil, fmt.Errorf("decode citations of turn %d: %w", r.ID, err)
			}
		}
		if r.Evidence != "" {
			if err := json.Unmarshal([]byte(r.Evidence), &t.Evidence); err != nil {
				return nil, fmt.Errorf("decode evidence of turn %d: %w", r.ID, err)
			}
		}
		out[i] = t
	}
	return out, nil
}
