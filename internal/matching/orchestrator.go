package matching

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/edgard/aurorabot/internal/config"
	"github.com/edgard/aurorabot/internal/database"
	"github.com/edgard/aurorabot/internal/dialog"
)

// ErrRunInProgress is returned by Run while another run is active.
var ErrRunInProgress = errors.New("matching run already in progress")

// Store is the persistence used by a matching run.
type Store interface {
	GetVisibleUserProfiles(ctx context.Context) ([]*database.UserProfile, error)
	GetUserProfile(ctx context.Context, userID int64) (*database.UserProfile, error)
	SaveMatchingRun(ctx context.Context, run *database.MatchingRun) error
	MarkBotBlocked(ctx context.Context, userID int64) error
}

// OrchestratorDeps holds the collaborators of an Orchestrator.
type OrchestratorDeps struct {
	Store          Store
	Engine         *Engine
	Messenger      dialog.Messenger
	Messages       config.MessagesConfig
	FallbackUserID int64
	Clock          clockwork.Clock
	Logger         *slog.Logger
}

// Orchestrator runs one matching job at a time: load eligible users, pair
// them, send the introductions and record the run.
type Orchestrator struct {
	store          Store
	engine         *Engine
	messenger      dialog.Messenger
	msgs           config.MessagesConfig
	fallbackUserID int64
	clock          clockwork.Clock
	logger         *slog.Logger

	mu sync.Mutex
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(deps OrchestratorDeps) *Orchestrator {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Orchestrator{
		store:          deps.Store,
		engine:         deps.Engine,
		messenger:      deps.Messenger,
		msgs:           deps.Messages,
		fallbackUserID: deps.FallbackUserID,
		clock:          deps.Clock,
		logger:         deps.Logger.With("component", "matching"),
	}
}

// introduction tells recipient about partner.
type introduction struct {
	recipient int64
	partner   *database.UserProfile
}

// Run executes one matching run and returns its recorded result. Pairing is
// all or nothing: if loading or scoring fails, a FAILED run is recorded and
// no message is sent. Once dispatch starts it is not cancelled by ctx.
func (o *Orchestrator) Run(ctx context.Context) (*database.MatchingRun, error) {
	if !o.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer o.mu.Unlock()

	start := o.clock.Now()
	run := &database.MatchingRun{
		ID:         uuid.NewString(),
		ExecutedAt: start.UTC(),
		Pairs:      database.StringList{},
		Unpaired:   database.Int64List{},
	}
	log := o.logger.With("run_id", run.ID)
	log.InfoContext(ctx, "Starting matching run")

	intros, err := o.plan(ctx, run)
	if err != nil {
		return o.fail(ctx, log, run, err)
	}

	dispatchCtx := context.WithoutCancel(ctx)
	o.dispatch(dispatchCtx, log, intros)

	run.Status = database.RunSuccess
	if err := o.store.SaveMatchingRun(dispatchCtx, run); err != nil {
		log.ErrorContext(ctx, "Failed to record matching run", "error", err)
		return run, fmt.Errorf("failed to record matching run: %w", err)
	}

	log.InfoContext(ctx, "Matching run completed",
		"pairs", len(run.Pairs), "unpaired", len(run.Unpaired), "duration", o.clock.Since(start))
	return run, nil
}

// plan computes every introduction without sending anything and fills in the
// run's pairs and leftover.
func (o *Orchestrator) plan(ctx context.Context, run *database.MatchingRun) ([]introduction, error) {
	loaded, err := o.store.GetVisibleUserProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load eligible users: %w", err)
	}

	profiles := make(map[int64]*database.UserProfile, len(loaded))
	users := make([]*database.UserProfile, 0, len(loaded))
	for _, u := range loaded {
		if u.UserID == o.fallbackUserID {
			continue
		}
		profiles[u.UserID] = u
		users = append(users, u)
	}

	result, err := o.engine.Match(ctx, users)
	if err != nil {
		return nil, err
	}

	intros := make([]introduction, 0, 2*len(result.Pairs)+2)
	for _, p := range result.Pairs {
		run.Pairs = append(run.Pairs, p.String())
		intros = append(intros,
			introduction{recipient: p.UserA, partner: profiles[p.UserB]},
			introduction{recipient: p.UserB, partner: profiles[p.UserA]},
		)
	}

	if len(result.Unpaired) == 0 {
		return intros, nil
	}

	leftover := profiles[result.Unpaired[0]]
	run.Unpaired = append(run.Unpaired, leftover.UserID)
	if o.fallbackUserID == 0 {
		o.logger.WarnContext(ctx, "No fallback user configured, leftover gets no introduction", "user_id", leftover.UserID)
		return intros, nil
	}

	intros = append(intros, introduction{recipient: o.fallbackUserID, partner: leftover})
	fallback, err := o.store.GetUserProfile(ctx, o.fallbackUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load fallback user: %w", err)
	}
	if fallback != nil {
		intros = append(intros, introduction{recipient: leftover.UserID, partner: fallback})
	}
	return intros, nil
}

// dispatch sends the planned introductions in order, so both halves of a pair
// go out back to back. Send failures are logged and do not stop the run.
func (o *Orchestrator) dispatch(ctx context.Context, log *slog.Logger, intros []introduction) {
	sent := 0
	for _, intro := range intros {
		err := o.introduce(ctx, intro)
		switch {
		case err == nil:
			sent++
		case errors.Is(err, dialog.ErrRecipientBlocked):
			log.WarnContext(ctx, "Recipient blocked the bot", "user_id", intro.recipient)
			if markErr := o.store.MarkBotBlocked(ctx, intro.recipient); markErr != nil {
				log.ErrorContext(ctx, "Failed to mark user as bot-blocked", "user_id", intro.recipient, "error", markErr)
			}
		default:
			log.ErrorContext(ctx, "Failed to send introduction",
				"user_id", intro.recipient, "partner_id", intro.partner.UserID, "error", err)
		}
	}
	log.InfoContext(ctx, "Introductions dispatched", "sent", sent, "planned", len(intros))
}

func (o *Orchestrator) introduce(ctx context.Context, intro introduction) error {
	photo, err := o.messenger.ProfilePhoto(ctx, intro.partner.UserID)
	if err != nil {
		o.logger.DebugContext(ctx, "No partner photo", "partner_id", intro.partner.UserID, "error", err)
	}
	if photo != "" {
		if err := o.messenger.SendPhoto(ctx, intro.recipient, photo); err != nil {
			return err
		}
	}

	text := fmt.Sprintf(o.msgs.MatchIntroFmt, dialog.FormatProfile(o.msgs, intro.partner))
	_, err = o.messenger.SendText(ctx, intro.recipient, text)
	return err
}

func (o *Orchestrator) fail(ctx context.Context, log *slog.Logger, run *database.MatchingRun, cause error) (*database.MatchingRun, error) {
	run.Status = database.RunFailed
	run.ErrorMessage = cause.Error()
	run.Pairs = database.StringList{}
	run.Unpaired = database.Int64List{}

	log.ErrorContext(ctx, "Matching run failed", "error", cause)

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := o.store.SaveMatchingRun(saveCtx, run); err != nil {
		log.ErrorContext(ctx, "Failed to record failed matching run", "error", err)
		return run, errors.Join(cause, fmt.Errorf("failed to record matching run: %w", err))
	}
	return run, cause
}
