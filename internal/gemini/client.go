// Package gemini implements an embedding-based similarity backend on top of
// Google's Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
	"google.golang.org/genai"

	"github.com/edgard/aurorabot/internal/config"
	"github.com/edgard/aurorabot/internal/similarity"
)

const (
	taskTypeSimilarity = "SEMANTIC_SIMILARITY"
	maxParallelBatches = 4
)

// ErrEmbeddingMismatch is returned when the API answers with a different
// number of embeddings than texts sent.
var ErrEmbeddingMismatch = errors.New("embedding count mismatch")

// embedAPI is the subset of genai.Models used by the Embedder.
type embedAPI interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// Embedder scores documents by cosine similarity of their Gemini embeddings.
// It implements similarity.Scorer.
type Embedder struct {
	api        embedAPI
	log        *slog.Logger
	model      string
	batchSize  int
	maxRetries int
	retryDelay time.Duration
}

var _ similarity.Scorer = (*Embedder)(nil)

// NewEmbedder creates a Gemini embedding client with the provided configuration.
func NewEmbedder(ctx context.Context, cfg config.GeminiConfig, log *slog.Logger) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	gi, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	e := newEmbedder(gi.Models, cfg, log)
	e.log.Info("Gemini embedder initialized", "model", cfg.EmbeddingModel, "batch_size", e.batchSize)
	return e, nil
}

func newEmbedder(api embedAPI, cfg config.GeminiConfig, log *slog.Logger) *Embedder {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Embedder{
		api:        api,
		log:        log.With("component", "gemini_embedder"),
		model:      cfg.EmbeddingModel,
		batchSize:  batchSize,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay(),
	}
}

// Index embeds every document and returns cosine scores over the vectors.
// Any failed batch fails the whole index.
func (e *Embedder) Index(ctx context.Context, docs []similarity.Document) (similarity.Scores, error) {
	for _, d := range docs {
		if !utf8.ValidString(d.Text) {
			return nil, fmt.Errorf("%w: document %d", similarity.ErrMalformedText, d.ID)
		}
	}

	vectors := make([][]float32, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelBatches)

	for start := 0; start < len(docs); start += e.batchSize {
		end := min(start+e.batchSize, len(docs))
		g.Go(func() error {
			return e.embedBatch(gctx, docs[start:end], vectors[start:end])
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	e.log.DebugContext(ctx, "Embedded documents", "documents", len(docs), "model", e.model)
	return similarity.NewVectorScores(vectors), nil
}

func (e *Embedder) embedBatch(ctx context.Context, docs []similarity.Document, out [][]float32) error {
	contents := make([]*genai.Content, len(docs))
	for i, d := range docs {
		contents[i] = genai.NewContentFromText(d.Text, genai.RoleUser)
	}

	resp, err := e.embedWithRetries(ctx, contents)
	if err != nil {
		return err
	}
	if len(resp.Embeddings) != len(docs) {
		return fmt.Errorf("%w: sent %d texts, got %d embeddings", ErrEmbeddingMismatch, len(docs), len(resp.Embeddings))
	}
	for i, emb := range resp.Embeddings {
		if emb != nil {
			out[i] = emb.Values
		}
	}
	return nil
}

func (e *Embedder) embedWithRetries(ctx context.Context, contents []*genai.Content) (*genai.EmbedContentResponse, error) {
	cfg := &genai.EmbedContentConfig{TaskType: taskTypeSimilarity}

	for attempt := 0; ; attempt++ {
		resp, err := e.api.EmbedContent(ctx, e.model, contents, cfg)
		if err == nil {
			return resp, nil
		}

		code, retriable := retriableCode(err)
		if !retriable {
			e.log.ErrorContext(ctx, "Gemini embedding call failed with non-retriable error", "error", err)
			return nil, fmt.Errorf("gemini embedding call failed: %w", err)
		}
		if attempt >= e.maxRetries {
			e.log.ErrorContext(ctx, "Gemini embedding call failed after max retries", "code", code, "error", err)
			return nil, fmt.Errorf("gemini embedding call failed after %d retries (APIError code %d): %w", e.maxRetries, code, err)
		}

		e.log.WarnContext(ctx, "Retrying Gemini embedding call", "attempt", attempt+1, "max_retries", e.maxRetries, "code", code, "delay", e.retryDelay)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(e.retryDelay):
		}
	}
}

// retriableCode reports the HTTP code of a genai.APIError and whether it is
// worth retrying.
func retriableCode(err error) (int, bool) {
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	var code int
	switch {
	case errors.As(err, &apiErr):
		code = apiErr.Code
	case errors.As(err, &apiErrPtr) && apiErrPtr != nil:
		code = apiErrPtr.Code
	default:
		return 0, false
	}
	return code, code == 500 || code == 503
}
