package memory

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"askmynotes/internal/domain"
	"askmynotes/internal/embedding"
)

const defaultTopK = 5

type entry struct {
	id     string
	chunk  domain.Chunk
	vector embedding.Vector
}

// collection holds one tenant's chunks in insertion order.
type collection struct {
	mu      sync.RWMutex
	entries []entry
	nextSeq map[string]int
	dropped bool
}

// Storage is an in-memory, per-tenant chunk store with brute-force cosine
// ranking over term vectors computed once at insertion.
type Storage struct {
	mu          sync.Mutex
	collections map[string]*collection
	embedder    embedding.Embedder
	logger      *slog.Logger
}

// Option configures a Storage.
type Option func(*Storage)

// WithLogger sets the logger used for index events.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Storage) {
		s.logger = logger
	}
}

// NewStorage creates an empty store that vectorises text with embedder.
func NewStorage(embedder embedding.Embedder, opts ...Option) *Storage {
	s := &Storage{
		collections: make(map[string]*collection),
		embedder:    embedder,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// lookup returns the tenant collection, creating it when create is set.
func (s *Storage) lookup(tenantID string, create bool) *collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	col, ok := s.collections[tenantID]
	if !ok && create {
		col = &collection{nextSeq: make(map[string]int)}
		s.collections[tenantID] = col
	}
	return col
}

// AddChunks appends chunks to the tenant collection, stamping each with
// sourceID and an ID of the form "<sourceID>_chunk_<n>". Callers must not
// submit the same source twice.
func (s *Storage) AddChunks(tenantID string, chunks []domain.Chunk, sourceID string) error {
	if tenantID == "" {
		return fmt.Errorf("%w: empty tenant id", domain.ErrInvalidArgument)
	}
	if sourceID == "" {
		return fmt.Errorf("%w: empty source id", domain.ErrInvalidArgument)
	}
	if len(chunks) == 0 {
		return nil
	}

	// vectorise outside the lock
	vectors := make([]embedding.Vector, len(chunks))
	for i := range chunks {
		vectors[i] = s.embedder.Embed(chunks[i].Content)
	}

	for {
		col := s.lookup(tenantID, true)
		col.mu.Lock()
		if col.dropped {
			// lost a race with DeleteTenant; retry on the fresh collection
			col.mu.Unlock()
			continue
		}
		seq := col.nextSeq[sourceID]
		for i, ch := range chunks {
			ch.Metadata.SourceID = sourceID
			col.entries = append(col.entries, entry{
				id:     fmt.Sprintf("%s_chunk_%d", sourceID, seq),
				chunk:  ch,
				vector: vectors[i],
			})
			seq++
		}
		col.nextSeq[sourceID] = seq
		total := len(col.entries)
		col.mu.Unlock()

		s.logger.Debug("chunks indexed",
			"tenantID", tenantID,
			"sourceID", sourceID,
			"added", len(chunks),
			"total", total,
		)
		return nil
	}
}

// Query ranks every chunk of the tenant by cosine similarity to text and
// returns the best topK, ties kept in insertion order. Unknown or empty
// tenants yield an empty result.
func (s *Storage) Query(tenantID, text string, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = defaultTopK
	}
	col := s.lookup(tenantID, false)
	if col == nil {
		return []domain.SearchResult{}, nil
	}
	query := s.embedder.Embed(text)

	col.mu.RLock()
	results := make([]domain.SearchResult, len(col.entries))
	for i, e := range col.entries {
		results[i] = domain.SearchResult{
			ID:    e.id,
			Chunk: e.chunk,
			Score: embedding.Cosine(query, e.vector),
		}
	}
	col.mu.RUnlock()

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if topK > len(results) {
		topK = len(results)
	}
	return results[:topK], nil
}

// RemoveBySource drops every chunk of sourceID from the tenant collection.
func (s *Storage) RemoveBySource(tenantID, sourceID string) error {
	col := s.lookup(tenantID, false)
	if col == nil {
		return nil
	}
	col.mu.Lock()
	kept := col.entries[:0]
	for _, e := range col.entries {
		if e.chunk.Metadata.SourceID != sourceID {
			kept = append(kept, e)
		}
	}
	removed := len(col.entries) - len(kept)
	// clear the tail so dropped chunks can be collected
	for i := len(kept); i < len(col.entries); i++ {
		col.entries[i] = entry{}
	}
	col.entries = kept
	delete(col.nextSeq, sourceID)
	col.mu.Unlock()

	s.logger.Debug("source removed", "tenantID", tenantID, "sourceID", sourceID, "removed", removed)
	return nil
}

// DeleteTenant drops the whole tenant collection.
func (s *Storage) DeleteTenant(tenantID string) error {
	s.mu.Lock()
	col, ok := s.collections[tenantID]
	delete(s.collections, tenantID)
	s.mu.Unlock()
	if !ok {
		return nil
	}
	col.mu.Lock()
	col.dropped = true
	col.entries = nil
	col.nextSeq = nil
	col.mu.Unlock()

	s.logger.Debug("tenant collection deleted", "tenantID", tenantID)
	return nil
}

// Sources lists the documents of a tenant in first-insertion order.
func (s *Storage) Sources(tenantID string) []domain.SourceInfo {
	col := s.lookup(tenantID, false)
	if col == nil {
		return nil
	}
	col.mu.RLock()
	defer col.mu.RUnlock()

	var out []domain.SourceInfo
	pos := make(map[string]int)
	for _, e := range col.entries {
		id := e.chunk.Metadata.SourceID
		i, ok := pos[id]
		if !ok {
			i = len(out)
			pos[id] = i
			out = append(out, domain.SourceInfo{SourceID: id, SourceName: e.chunk.Metadata.SourceName})
		}
		out[i].Chunks++
	}
	return out
}

// Len returns the number of chunks stored for the tenant.
func (s *Storage) Len(tenantID string) int {
	col := s.lookup(tenantID, false)
	if col == nil {
		return 0
	}
	col.mu.RLock()
	defer col.mu.RUnlock()
	return len(col.entries)
}
