package tf

import (
	"strings"

	"askmynotes/internal/embedding"
)

// Embedder builds normalised term-frequency vectors. Unlike TF-IDF it keeps
// no vocabulary, so every text is embedded independently of the corpus.
type Embedder struct{}

// NewEmbedder creates a term-frequency embedder.
func NewEmbedder() *Embedder { return &Embedder{} }

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "tf" }

// Embed maps each token to its count divided by the token count of text.
// Text without tokens yields an empty vector.
func (e *Embedder) Embed(text string) embedding.Vector {
	tokens := Tokenize(text)
	vec := make(embedding.Vector, len(tokens))
	if len(tokens) == 0 {
		return vec
	}
	for _, tok := range tokens {
		vec[tok]++
	}
	total := float64(len(tokens))
	for term, count := range vec {
		vec[term] = count / total
	}
	return vec
}

// Tokenize lowercases text, drops every character outside [a-z0-9] and
// whitespace, and splits on whitespace.
func Tokenize(text string) []string {
	lower := strings.ToLower(text)
	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case isSpace(r):
			b.WriteRune(' ')
		}
	}
	fields := strings.Fields(b.String())
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// isSpace matches the ASCII whitespace class plus the Unicode spaces that
// a \s character class treats as separators.
func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\f', '\v', 0x85, 0xA0, 0x1680, 0x2028, 0x2029, 0x202F, 0x205F, 0x3000, 0xFEFF:
		return true
	}
	return r >= 0x2000 && r <= 0x200A
}
