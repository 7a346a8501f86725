// Package similarity scores how close two profile texts are.
//
// Scores are only comparable within one index: a Scorer builds a single
// shared vocabulary (or embedding batch) per matching run.
package similarity

import (
	"context"
	"errors"
	"math"
)

// ErrMalformedText is returned when a document is not valid UTF-8.
var ErrMalformedText = errors.New("malformed profile text")

// Document is one user's text, identified by the user ID.
type Document struct {
	ID   int64
	Text string
}

// Scores holds pairwise similarities of the documents passed to Index,
// addressed by their position. Score(i, j) == Score(j, i) and lies in [0, 1];
// NaN means the similarity could not be computed.
type Scores interface {
	Len() int
	Score(i, j int) float64
}

// Scorer builds a similarity index over one run's documents.
type Scorer interface {
	Index(ctx context.Context, docs []Document) (Scores, error)
}

// Score compares two texts with a fresh two-document TF-IDF index.
func Score(a, b string) (float64, error) {
	scores, err := NewTFIDF().Index(context.Background(), []Document{{ID: 1, Text: a}, {ID: 2, Text: b}})
	if err != nil {
		return 0, err
	}
	return scores.Score(0, 1), nil
}

// vectorScores scores dense embeddings by cosine similarity mapped into [0, 1].
type vectorScores struct {
	vectors [][]float32
}

// NewVectorScores wraps dense embeddings, one per document.
//
//nolint:ireturn
func NewVectorScores(vectors [][]float32) Scores {
	return &vectorScores{vectors: vectors}
}

func (v *vectorScores) Len() int { return len(v.vectors) }

// Score returns NaN when the two vectors have different dimensions.
func (v *vectorScores) Score(i, j int) float64 {
	a, b := v.vectors[i], v.vectors[j]
	if len(a) != len(b) || len(a) == 0 {
		return math.NaN()
	}
	if i > j {
		a, b = b, a
	}
	return clamp01((cosine(a, b) + 1) / 2)
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x := float64(a[i])
		y := float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func clamp01(x float64) float64 {
	switch {
	case x < 0:
		return 0
	case x > 1:
		return 1
	default:
		return x
	}
}
