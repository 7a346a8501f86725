package similarity

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// TFIDF scores documents by cosine similarity of their TF-IDF vectors.
// Raw term counts are weighted by the smoothed idf ln((1+N)/(1+df))+1 and
// every vector is L2-normalized, so scores fall in [0, 1].
type TFIDF struct {
	stopWords map[string]struct{}
}

// NewTFIDF creates a scorer with the built-in English and Russian stop words.
func NewTFIDF() *TFIDF {
	return &TFIDF{stopWords: defaultStopWords}
}

// term is one non-zero vector component. Vectors are sorted by index.
type term struct {
	index  int
	weight float64
}

type tfidfScores struct {
	vectors [][]term
}

// Index tokenizes every document, builds one vocabulary for the whole set and
// returns the pairwise scores.
func (t *TFIDF) Index(ctx context.Context, docs []Document) (Scores, error) {
	vocab := make(map[string]int)
	counts := make([]map[int]int, len(docs))
	docFreq := make(map[int]int)

	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !utf8.ValidString(doc.Text) {
			return nil, fmt.Errorf("%w: document for user %d is not valid UTF-8", ErrMalformedText, doc.ID)
		}

		counts[i] = make(map[int]int)
		for _, token := range t.Tokenize(doc.Text) {
			idx, ok := vocab[token]
			if !ok {
				idx = len(vocab)
				vocab[token] = idx
			}
			if counts[i][idx] == 0 {
				docFreq[idx]++
			}
			counts[i][idx]++
		}
	}

	n := float64(len(docs))
	vectors := make([][]term, len(docs))
	for i, tf := range counts {
		vec := make([]term, 0, len(tf))
		var norm float64
		for idx, count := range tf {
			idf := math.Log((1+n)/(1+float64(docFreq[idx]))) + 1
			w := float64(count) * idf
			vec = append(vec, term{index: idx, weight: w})
			norm += w * w
		}
		sort.Slice(vec, func(a, b int) bool { return vec[a].index < vec[b].index })

		if norm > 0 {
			norm = math.Sqrt(norm)
			for k := range vec {
				vec[k].weight /= norm
			}
		}
		vectors[i] = vec
	}

	return &tfidfScores{vectors: vectors}, nil
}

func (s *tfidfScores) Len() int { return len(s.vectors) }

// Score merges the two sorted vectors. Products are accumulated in index
// order regardless of argument order, so Score(i, j) == Score(j, i) exactly.
func (s *tfidfScores) Score(i, j int) float64 {
	a, b := s.vectors[i], s.vectors[j]
	var dot float64
	for x, y := 0, 0; x < len(a) && y < len(b); {
		switch {
		case a[x].index < b[y].index:
			x++
		case a[x].index > b[y].index:
			y++
		default:
			dot += a[x].weight * b[y].weight
			x++
			y++
		}
	}
	return clamp01(dot)
}

// Tokenize lowercases text, splits it on anything that is not a letter or a
// digit, and drops stop words and single-rune tokens.
func (t *TFIDF) Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) < 2 {
			continue
		}
		if _, stop := t.stopWords[f]; stop {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}
