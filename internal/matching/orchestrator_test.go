package matching

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/edgard/aurorabot/internal/config"
	"github.com/edgard/aurorabot/internal/database"
	"github.com/edgard/aurorabot/internal/dialog"
	"github.com/edgard/aurorabot/internal/similarity"
)

const fallbackID = int64(999)

type fakeStore struct {
	mu       sync.Mutex
	profiles []*database.UserProfile
	loadErr  error
	runs     []*database.MatchingRun
	blocked  []int64
}

func (s *fakeStore) GetVisibleUserProfiles(context.Context) ([]*database.UserProfile, error) {
	return s.profiles, s.loadErr
}

func (s *fakeStore) GetUserProfile(_ context.Context, userID int64) (*database.UserProfile, error) {
	for _, p := range s.profiles {
		if p.UserID == userID {
			return p, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) SaveMatchingRun(_ context.Context, run *database.MatchingRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, run)
	return nil
}

func (s *fakeStore) MarkBotBlocked(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocked = append(s.blocked, userID)
	return nil
}

type sentText struct {
	userID int64
	text   string
}

type fakeMessenger struct {
	mu      sync.Mutex
	texts   []sentText
	photos  []int64
	blocked map[int64]bool
	onSend  func(ctx context.Context)
}

func (m *fakeMessenger) SendText(ctx context.Context, userID int64, text string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.onSend != nil {
		m.onSend(ctx)
	}
	if m.blocked[userID] {
		return 0, dialog.ErrRecipientBlocked
	}
	m.texts = append(m.texts, sentText{userID: userID, text: text})
	return len(m.texts), nil
}

func (m *fakeMessenger) SendTextWithButtons(ctx context.Context, userID int64, text string, _ []dialog.Button) (int, error) {
	return m.SendText(ctx, userID, text)
}

func (m *fakeMessenger) EditText(context.Context, int64, int, string, []dialog.Button) error {
	return nil
}

func (m *fakeMessenger) SendPhoto(_ context.Context, userID int64, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.photos = append(m.photos, userID)
	return nil
}

func (m *fakeMessenger) ProfilePhoto(_ context.Context, userID int64) (string, error) {
	if userID == 1 {
		return "photo-of-1", nil
	}
	return "", nil
}

func (m *fakeMessenger) recipients() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int64, len(m.texts))
	for i, t := range m.texts {
		out[i] = t.userID
	}
	return out
}

func namedProfile(id int64, name string) *database.UserProfile {
	return &database.UserProfile{UserID: id, Name: name, IsVisible: true}
}

func newOrchestrator(store *fakeStore, messenger *fakeMessenger, scorer similarity.Scorer) *Orchestrator {
	return NewOrchestrator(OrchestratorDeps{
		Store:          store,
		Engine:         NewEngine(scorer, nil),
		Messenger:      messenger,
		Messages:       config.DefaultMessages(),
		FallbackUserID: fallbackID,
		Clock:          clockwork.NewFakeClockAt(time.Date(2025, 5, 5, 11, 0, 0, 0, time.UTC)),
	})
}

func fiveUserStore() *fakeStore {
	return &fakeStore{profiles: []*database.UserProfile{
		namedProfile(1, "Ann"),
		namedProfile(2, "Ben"),
		namedProfile(3, "Cat"),
		namedProfile(4, "Dan"),
		namedProfile(5, "Eve"),
		namedProfile(fallbackID, "Host"),
	}}
}

func fiveUserScorer() matrixScorer {
	return matrixScorer{scores: fullMatrix([]int64{1, 2, 3, 4, 5}, 0.1, map[[2]int64]float64{
		{1, 2}: 0.9,
		{3, 4}: 0.8,
	})}
}

func TestOrchestratorRun(t *testing.T) {
	t.Parallel()
	store := fiveUserStore()
	messenger := &fakeMessenger{}
	orch := newOrchestrator(store, messenger, fiveUserScorer())

	run, err := orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if run.Status != database.RunSuccess {
		t.Errorf("status = %s, want SUCCESS", run.Status)
	}
	if _, err := uuid.Parse(run.ID); err != nil {
		t.Errorf("run ID %q is not a UUID: %v", run.ID, err)
	}
	if diff := cmp.Diff(database.StringList{"1 <-> 2", "3 <-> 4"}, run.Pairs); diff != "" {
		t.Errorf("pairs mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(database.Int64List{5}, run.Unpaired); diff != "" {
		t.Errorf("unpaired mismatch (-want +got):\n%s", diff)
	}
	if len(store.runs) != 1 || store.runs[0] != run {
		t.Fatalf("run should be recorded once, got %d", len(store.runs))
	}

	// Pairs go out back to back, then the fallback exchange.
	wantRecipients := []int64{1, 2, 3, 4, fallbackID, 5}
	if diff := cmp.Diff(wantRecipients, messenger.recipients()); diff != "" {
		t.Errorf("recipients mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(messenger.texts[0].text, "Ben") || !strings.Contains(messenger.texts[1].text, "Ann") {
		t.Errorf("pair members should receive each other's profile: %+v", messenger.texts[:2])
	}
	if !strings.Contains(messenger.texts[4].text, "Eve") || !strings.Contains(messenger.texts[5].text, "Host") {
		t.Errorf("fallback exchange mismatch: %+v", messenger.texts[4:])
	}
	if diff := cmp.Diff([]int64{2}, messenger.photos); diff != "" {
		t.Errorf("only the partner of user 1 should get a photo (-want +got):\n%s", diff)
	}
}

func TestOrchestratorFailures(t *testing.T) {
	t.Parallel()

	t.Run("similarity failure sends nothing", func(t *testing.T) {
		t.Parallel()
		store := fiveUserStore()
		messenger := &fakeMessenger{}
		orch := newOrchestrator(store, messenger, matrixScorer{err: similarity.ErrMalformedText})

		run, err := orch.Run(context.Background())
		if !errors.Is(err, similarity.ErrMalformedText) {
			t.Fatalf("Run() error = %v, want ErrMalformedText", err)
		}
		if run.Status != database.RunFailed || run.ErrorMessage == "" {
			t.Errorf("unexpected run: %+v", run)
		}
		if len(run.Pairs) != 0 || len(run.Unpaired) != 0 {
			t.Errorf("failed run must not carry pairs: %+v", run)
		}
		if len(store.runs) != 1 {
			t.Errorf("failed run should be recorded")
		}
		if n := len(messenger.recipients()); n != 0 {
			t.Errorf("nothing should be sent, got %d messages", n)
		}
	})

	t.Run("load failure", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("db down")
		store := &fakeStore{loadErr: boom}
		messenger := &fakeMessenger{}
		orch := newOrchestrator(store, messenger, fiveUserScorer())

		run, err := orch.Run(context.Background())
		if !errors.Is(err, boom) || run == nil || run.Status != database.RunFailed {
			t.Fatalf("Run() = %+v, %v", run, err)
		}
		if len(messenger.recipients()) != 0 {
			t.Error("nothing should be sent")
		}
	})

	t.Run("overlapping run is rejected", func(t *testing.T) {
		t.Parallel()
		orch := newOrchestrator(fiveUserStore(), &fakeMessenger{}, fiveUserScorer())
		orch.mu.Lock()
		defer orch.mu.Unlock()

		if _, err := orch.Run(context.Background()); !errors.Is(err, ErrRunInProgress) {
			t.Fatalf("Run() error = %v, want ErrRunInProgress", err)
		}
	})
}

func TestOrchestratorDispatch(t *testing.T) {
	t.Parallel()

	t.Run("blocked recipient is flagged", func(t *testing.T) {
		t.Parallel()
		store := fiveUserStore()
		messenger := &fakeMessenger{blocked: map[int64]bool{3: true}}
		orch := newOrchestrator(store, messenger, fiveUserScorer())

		run, err := orch.Run(context.Background())
		if err != nil || run.Status != database.RunSuccess {
			t.Fatalf("Run() = %+v, %v", run, err)
		}
		if diff := cmp.Diff([]int64{3}, store.blocked); diff != "" {
			t.Errorf("blocked users mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff([]int64{1, 2, 4, fallbackID, 5}, messenger.recipients()); diff != "" {
			t.Errorf("other introductions should still go out (-want +got):\n%s", diff)
		}
	})

	t.Run("cancellation does not stop a started dispatch", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		store := fiveUserStore()
		var sawCancelled bool
		messenger := &fakeMessenger{onSend: func(sendCtx context.Context) {
			cancel()
			if sendCtx.Err() != nil {
				sawCancelled = true
			}
		}}
		orch := newOrchestrator(store, messenger, fiveUserScorer())

		run, err := orch.Run(ctx)
		if err != nil || run.Status != database.RunSuccess {
			t.Fatalf("Run() = %+v, %v", run, err)
		}
		if sawCancelled {
			t.Error("dispatch context should not be cancelled")
		}
		if n := len(messenger.recipients()); n != 6 {
			t.Errorf("expected all 6 introductions, got %d", n)
		}
	})

	t.Run("no fallback configured", func(t *testing.T) {
		t.Parallel()
		store := fiveUserStore()
		messenger := &fakeMessenger{}
		orch := newOrchestrator(store, messenger, matrixScorer{scores: fullMatrix([]int64{1, 2, 3, 4, 5, fallbackID}, 0.1, map[[2]int64]float64{
			{1, 2}: 0.9,
			{3, 4}: 0.8,
		})})
		orch.fallbackUserID = 0

		run, err := orch.Run(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		// The former fallback user is now an ordinary participant: 6 users, 3 pairs.
		if len(run.Pairs) != 3 || len(run.Unpaired) != 0 {
			t.Errorf("unexpected run: %+v", run)
		}
	})
}
