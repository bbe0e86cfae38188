package vectorstore

import "askmynotes/internal/domain"

// Storage keeps per-tenant chunk collections and answers relevance
// queries. Mutations and queries on one tenant are serialised; different
// tenants never block each other.
type Storage interface {
	AddChunks(tenantID string, chunks []domain.Chunk, sourceID string) error
	Query(tenantID, text string, topK int) ([]domain.SearchResult, error)
	RemoveBySource(tenantID, sourceID string) error
	DeleteTenant(tenantID string) error
	Sources(tenantID string) []domain.SourceInfo
	Len(tenantID string) int
}
