package chunker

import (
	"fmt"
	"strings"

	"askmynotes/internal/domain"
)

const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 50
)

// WindowChunker slices page text into fixed-size character windows that
// overlap by a fixed number of characters.
type WindowChunker struct {
	size    int
	overlap int
}

// NewWindowChunker validates the window geometry. An overlap that is not
// strictly smaller than the size would never advance, so it is rejected.
func NewWindowChunker(size, overlap int) (*WindowChunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidConfig, size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: chunk overlap must not be negative, got %d", domain.ErrInvalidConfig, overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("%w: chunk overlap %d must be smaller than size %d", domain.ErrInvalidConfig, overlap, size)
	}
	return &WindowChunker{size: size, overlap: overlap}, nil
}

// Size returns the window length in characters.
func (c *WindowChunker) Size() int { return c.size }

// Overlap returns the number of characters shared by consecutive windows.
func (c *WindowChunker) Overlap() int { return c.overlap }

// Chunk returns the chunks of all pages in page order. ChunkIndex counts
// across the whole document. SourceID is left empty; the index assigns it.
func (c *WindowChunker) Chunk(pages []domain.Page, sourceName string) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	idx := 0
	for _, p := range pages {
		runes := []rune(p.Text)
		for _, w := range windows(len(runes), c.size, c.overlap) {
			text := strings.TrimSpace(string(runes[w.start:w.end]))
			if text == "" {
				continue
			}
			chunks = append(chunks, domain.Chunk{
				Content: text,
				Metadata: domain.ChunkMetadata{
					SourceName: sourceName,
					Page:       p.Number,
					ChunkIndex: idx,
				},
			})
			idx++
		}
	}
	return chunks, nil
}

type span struct{ start, end int }

// windows returns the [start,end) rune ranges covering a text of length n.
func windows(n, size, overlap int) []span {
	if n == 0 {
		return nil
	}
	step := size - overlap
	var out []span
	for start := 0; start < n; start += step {
		end := start + size
		if end > n {
			end = n
		}
		out = append(out, span{start, end})
		if end == n {
			break
		}
	}
	return out
}
