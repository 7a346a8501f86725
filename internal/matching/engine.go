// Package matching pairs users by profile similarity and runs the weekly
// introduction job.
package matching

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"slices"

	"github.com/edgard/aurorabot/internal/database"
	"github.com/edgard/aurorabot/internal/similarity"
)

var (
	// ErrIncompleteSimilarity is returned when missing scores leave more than
	// one user without a partner.
	ErrIncompleteSimilarity = errors.New("incomplete similarity data")

	// ErrDuplicateUser is returned when the same user appears twice in one run.
	ErrDuplicateUser = errors.New("duplicate user in matching population")
)

// Pair is an accepted introduction. UserA is always the smaller ID.
type Pair struct {
	UserA int64
	UserB int64
	Score float64
}

// String renders the pair the way matching runs record it.
func (p Pair) String() string {
	return fmt.Sprintf("%d <-> %d", p.UserA, p.UserB)
}

// Result is the outcome of Match. Unpaired holds at most one user.
type Result struct {
	Pairs    []Pair
	Unpaired []int64
}

// Engine greedily pairs the most similar users.
type Engine struct {
	scorer similarity.Scorer
	logger *slog.Logger
}

// NewEngine creates an Engine scoring with scorer.
func NewEngine(scorer similarity.Scorer, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{scorer: scorer, logger: logger.With("component", "matching_engine")}
}

// ProfileText is the text a profile is scored on.
func ProfileText(p *database.UserProfile) string {
	return p.DiscussionTopic + " " + p.FunFact
}

// Match scores every pair of users, sorts candidates by descending score
// (ties by ascending UserA, then UserB) and accepts a pair when neither
// member is taken yet. The result depends only on the set of users and their
// texts, not on input order.
func (e *Engine) Match(ctx context.Context, users []*database.UserProfile) (Result, error) {
	sorted := slices.Clone(users)
	slices.SortFunc(sorted, func(a, b *database.UserProfile) int { return cmp.Compare(a.UserID, b.UserID) })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].UserID == sorted[i-1].UserID {
			return Result{}, fmt.Errorf("%w: user %d", ErrDuplicateUser, sorted[i].UserID)
		}
	}

	if len(sorted) < 2 {
		result := Result{}
		for _, u := range sorted {
			result.Unpaired = append(result.Unpaired, u.UserID)
		}
		return result, nil
	}

	docs := make([]similarity.Document, len(sorted))
	for i, u := range sorted {
		docs[i] = similarity.Document{ID: u.UserID, Text: ProfileText(u)}
	}
	scores, err := e.scorer.Index(ctx, docs)
	if err != nil {
		return Result{}, fmt.Errorf("failed to compute similarity: %w", err)
	}

	candidates := make([]Pair, 0, len(sorted)*(len(sorted)-1)/2)
	missing := 0
	for i := range sorted {
		for j := i + 1; j < len(sorted); j++ {
			score := scores.Score(i, j)
			if math.IsNaN(score) {
				missing++
				continue
			}
			candidates = append(candidates, Pair{UserA: sorted[i].UserID, UserB: sorted[j].UserID, Score: score})
		}
	}
	slices.SortStableFunc(candidates, comparePairs)

	assigned := make(map[int64]bool, len(sorted))
	var result Result
	for _, c := range candidates {
		if assigned[c.UserA] || assigned[c.UserB] {
			continue
		}
		assigned[c.UserA] = true
		assigned[c.UserB] = true
		result.Pairs = append(result.Pairs, c)
	}

	for _, u := range sorted {
		if !assigned[u.UserID] {
			result.Unpaired = append(result.Unpaired, u.UserID)
		}
	}

	e.logger.DebugContext(ctx, "Pairing computed",
		"users", len(sorted), "candidates", len(candidates), "missing_scores", missing,
		"pairs", len(result.Pairs), "unpaired", len(result.Unpaired))

	if len(result.Unpaired) > 1 {
		return Result{}, fmt.Errorf("%w: %d users left unpaired", ErrIncompleteSimilarity, len(result.Unpaired))
	}
	return result, nil
}

func comparePairs(a, b Pair) int {
	if c := cmp.Compare(b.Score, a.Score); c != 0 {
		return c
	}
	if c := cmp.Compare(a.UserA, b.UserA); c != 0 {
		return c
	}
	return cmp.Compare(a.UserB, b.UserB)
}
