package embedding

import "math"

// Vector is a sparse term-weight vector keyed by token.
type Vector map[string]float64

// Embedder converts free text into a sparse vector representation.
// Implementations must not depend on corpus-wide statistics so that
// vectors can be computed once at insertion time.
type Embedder interface {
	Name() string
	Embed(text string) Vector
}

// Magnitude returns the Euclidean norm of v.
func (v Vector) Magnitude() float64 {
	sum := 0.0
	for _, w := range v {
		sum += w * w
	}
	return math.Sqrt(sum)
}

// Cosine returns the cosine similarity of a and b. Terms missing from one
// side contribute zero, so only shared terms enter the dot product. When
// either vector has zero magnitude the similarity is 0.
func Cosine(a, b Vector) float64 {
	magA, magB := a.Magnitude(), b.Magnitude()
	if magA == 0 || magB == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	dot := 0.0
	for term, w := range small {
		dot += w * large[term]
	}
	sim := dot / (magA * magB)
	// rounding can push identical vectors a hair past 1
	if sim > 1 {
		sim = 1
	}
	if sim < 0 {
		sim = 0
	}
	return sim
}
