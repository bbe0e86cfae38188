package chunker

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"askmynotes/internal/domain"
)

func TestNewWindowChunker_RejectsBadGeometry(t *testing.T) {
	cases := []struct {
		name          string
		size, overlap int
	}{
		{"overlap equals size", 10, 10},
		{"overlap larger than size", 10, 20},
		{"zero size", 0, 0},
		{"negative overlap", 10, -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := NewWindowChunker(tc.size, tc.overlap)
			assert.Nil(t, c)
			assert.ErrorIs(t, err, domain.ErrInvalidConfig)
		})
	}
}

func TestWindowChunker_ShortPageYieldsOneChunk(t *testing.T) {
	c, err := NewWindowChunker(DefaultChunkSize, DefaultChunkOverlap)
	require.NoError(t, err)

	chunks, err := c.Chunk([]domain.Page{{Number: 1, Text: "The mitochondria is the powerhouse of the cell."}}, "bio.txt")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "The mitochondria is the powerhouse of the cell.", chunks[0].Content)
	assert.Equal(t, domain.ChunkMetadata{SourceName: "bio.txt", Page: 1, ChunkIndex: 0}, chunks[0].Metadata)
}

func TestWindowChunker_EmptyPagesYieldNothing(t *testing.T) {
	c, err := NewWindowChunker(10, 2)
	require.NoError(t, err)

	chunks, err := c.Chunk([]domain.Page{{Number: 1, Text: ""}, {Number: 2, Text: "   \n\t "}}, "empty.txt")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestWindowChunker_IndexSpansPages(t *testing.T) {
	c, err := NewWindowChunker(4, 1)
	require.NoError(t, err)

	pages := []domain.Page{
		{Number: 1, Text: "abcdefg"},
		{Number: 2, Text: "hijk"},
	}
	chunks, err := c.Chunk(pages, "doc.pdf")
	require.NoError(t, err)

	var got []string
	for i, ch := range chunks {
		got = append(got, ch.Content)
		assert.Equal(t, i, ch.Metadata.ChunkIndex)
	}
	assert.Equal(t, []string{"abcd", "defg", "hijk"}, got)
	assert.Equal(t, 1, chunks[1].Metadata.Page)
	assert.Equal(t, 2, chunks[2].Metadata.Page)
}

func TestWindowChunker_Deterministic(t *testing.T) {
	c, err := NewWindowChunker(50, 7)
	require.NoError(t, err)
	pages := []domain.Page{{Number: 1, Text: strings.Repeat("lorem ipsum dolor sit amet ", 40)}}

	first, err := c.Chunk(pages, "a.txt")
	require.NoError(t, err)
	second, err := c.Chunk(pages, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestWindows_CoverText(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		n := rng.Intn(400)
		size := 1 + rng.Intn(60)
		overlap := rng.Intn(size)
		text := randomText(rng, n)

		var rebuilt strings.Builder
		spans := windows(len(text), size, overlap)
		for j, w := range spans {
			start := w.start
			if j > 0 {
				// skip the part shared with the previous window
				start = spans[j-1].end
			}
			rebuilt.WriteString(text[start:w.end])
		}
		require.Equal(t, text, rebuilt.String(), "n=%d size=%d overlap=%d", n, size, overlap)
		for j := 1; j < len(spans); j++ {
			assert.Equal(t, overlap, spans[j-1].end-spans[j].start)
		}
	}
}

func randomText(rng *rand.Rand, n int) string {
	const alphabet = "abcdefghij klmnop\n"
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[rng.Intn(len(alphabet))]
	}
	return string(b)
}
