package throttle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/edgard/aurorabot/internal/database"
)

type fakeFinder struct {
	last *database.SupportRequest
	err  error
}

func (f *fakeFinder) GetLastSupportRequest(context.Context, int64) (*database.SupportRequest, error) {
	return f.last, f.err
}

func TestEvaluate(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		elapsed time.Duration
		want    Decision
	}{
		{"just submitted", 0, Decision{MinutesRemaining: 15}},
		{"under a minute", 59 * time.Second, Decision{MinutesRemaining: 15}},
		{"one minute", time.Minute, Decision{MinutesRemaining: 14}},
		{"seven and a half minutes", 7*time.Minute + 30*time.Second, Decision{MinutesRemaining: 8}},
		{"last minute", 14*time.Minute + 59*time.Second, Decision{MinutesRemaining: 1}},
		{"window elapsed", Window, Decision{Allowed: true}},
		{"long ago", 48 * time.Hour, Decision{Allowed: true}},
		{"clock skew", -5 * time.Minute, Decision{MinutesRemaining: 15}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Evaluate(now.Add(-tt.elapsed), now); got != tt.want {
				t.Errorf("Evaluate(elapsed=%v) = %+v, want %+v", tt.elapsed, got, tt.want)
			}
		})
	}
}

func TestCheck(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	start := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("no history", func(t *testing.T) {
		t.Parallel()
		th := New(&fakeFinder{}, clockwork.NewFakeClockAt(start))
		got, err := th.Check(ctx, 1)
		if err != nil || !got.Allowed {
			t.Fatalf("Check() = %+v, %v; want allowed", got, err)
		}
	})

	t.Run("both checks agree on the same timestamp", func(t *testing.T) {
		t.Parallel()
		clock := clockwork.NewFakeClockAt(start)
		th := New(&fakeFinder{last: &database.SupportRequest{CreatedAt: start}}, clock)

		clock.Advance(3 * time.Minute)
		first, err := th.Check(ctx, 1)
		if err != nil {
			t.Fatal(err)
		}
		second, err := th.Check(ctx, 1)
		if err != nil {
			t.Fatal(err)
		}
		if first != second || first.Allowed || first.MinutesRemaining != 12 {
			t.Fatalf("checks disagree or wrong: %+v vs %+v", first, second)
		}

		clock.Advance(12 * time.Minute)
		got, _ := th.Check(ctx, 1)
		if !got.Allowed {
			t.Fatalf("expected allowed after the window, got %+v", got)
		}
	})

	t.Run("lookup failure", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("db down")
		th := New(&fakeFinder{err: boom}, clockwork.NewFakeClockAt(start))
		if _, err := th.Check(ctx, 1); !errors.Is(err, boom) {
			t.Fatalf("Check() error = %v, want %v", err, boom)
		}
	})
}
