package dialog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jonboulle/clockwork"

	"github.com/edgard/aurorabot/internal/config"
)

// Input length limits, in runes.
const (
	MaxProfileAnswerLength  = 255
	MaxSupportMessageLength = 2000
)

// Callback tokens attached to inline buttons.
const (
	CallbackStart            = "start"
	CallbackAccepted         = "accepted"
	CallbackToggleVisibility = "toggle_visibility"
)

// Incoming is one update from a user's private chat. Callback is set for
// button presses, in which case MessageID is the message carrying the button.
type Incoming struct {
	UserID    int64
	Username  string
	Text      string
	Callback  string
	MessageID int
}

// Deps holds the collaborators of a Machine.
type Deps struct {
	Sessions  *SessionStore
	Profiles  ProfileRepository
	Support   SupportRepository
	Throttle  Throttler
	Messenger Messenger
	Messages  config.MessagesConfig
	Clock     clockwork.Clock
	Logger    *slog.Logger
}

// Machine routes incoming updates through commands, callbacks and the active
// session's flow.
type Machine struct {
	sessions  *SessionStore
	profiles  ProfileRepository
	support   SupportRepository
	throttle  Throttler
	messenger Messenger
	msgs      config.MessagesConfig
	clock     clockwork.Clock
	logger    *slog.Logger
	validate  *validator.Validate
}

// NewMachine creates a Machine. A nil Sessions, Clock or Logger gets a default.
func NewMachine(deps Deps) *Machine {
	if deps.Sessions == nil {
		deps.Sessions = NewSessionStore()
	}
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Machine{
		sessions:  deps.Sessions,
		profiles:  deps.Profiles,
		support:   deps.Support,
		throttle:  deps.Throttle,
		messenger: deps.Messenger,
		msgs:      deps.Messages,
		clock:     deps.Clock,
		logger:    deps.Logger.With("component", "dialog"),
		validate:  validator.New(),
	}
}

// Sessions exposes the session store.
func (m *Machine) Sessions() *SessionStore {
	return m.sessions
}

// Handle processes one update. User-facing failures are answered in the chat
// and also returned so the caller can log them. Updates of one user are
// handled one at a time.
func (m *Machine) Handle(ctx context.Context, in Incoming) error {
	unlock := m.sessions.Lock(in.UserID)
	defer unlock()

	switch {
	case strings.HasPrefix(in.Text, "/"):
		return m.handleCommand(ctx, in)
	case in.Callback != "":
		return m.handleCallback(ctx, in)
	case in.Text == "":
		return nil
	}

	session, ok := m.sessions.Get(in.UserID)
	if !ok {
		return m.sendText(ctx, in.UserID, m.msgs.StartFirst)
	}

	switch session.Mode {
	case ModeProfile:
		return m.handleProfileAnswer(ctx, in, session)
	case ModeSupport:
		return m.handleSupportMessage(ctx, in)
	default:
		m.sessions.Remove(in.UserID)
		return m.sendText(ctx, in.UserID, m.msgs.StartFirst)
	}
}

// ValidateLength fails with ErrInputTooLong when text exceeds limit runes.
func (m *Machine) ValidateLength(text string, limit int) error {
	if err := m.validate.Var(text, fmt.Sprintf("max=%d", limit)); err != nil {
		return fmt.Errorf("%w: limit is %d characters", ErrInputTooLong, limit)
	}
	return nil
}

func (m *Machine) sendText(ctx context.Context, userID int64, text string) error {
	if _, err := m.messenger.SendText(ctx, userID, text); err != nil {
		return fmt.Errorf("failed to send message to user %d: %w", userID, err)
	}
	return nil
}

func (m *Machine) sendButtons(ctx context.Context, userID int64, text string, buttons ...Button) error {
	if _, err := m.messenger.SendTextWithButtons(ctx, userID, text, buttons); err != nil {
		return fmt.Errorf("failed to send message to user %d: %w", userID, err)
	}
	return nil
}

// reportError tells the user something went wrong and returns cause.
func (m *Machine) reportError(ctx context.Context, userID int64, text string, cause error) error {
	if err := m.sendText(ctx, userID, text); err != nil {
		m.logger.WarnContext(ctx, "Failed to report error to user", "user_id", userID, "error", err)
	}
	return cause
}
