package dialog

import (
	"context"
	"fmt"
	"strings"
)

// Commands handled by the dialog.
const (
	CommandStart   = "start"
	CommandProfile = "profile"
	CommandHelp    = "help"
	CommandRestart = "restart"
	CommandSupport = "support"
)

// ParseCommand returns the command name of text without the leading slash
// and any @botname suffix, or "" if text is not a command.
func ParseCommand(text string) string {
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	name := strings.Fields(text)[0][1:]
	name, _, _ = strings.Cut(name, "@")
	return strings.ToLower(name)
}

func (m *Machine) handleCommand(ctx context.Context, in Incoming) error {
	command := ParseCommand(in.Text)
	m.logger.DebugContext(ctx, "Handling command", "user_id", in.UserID, "command", command)

	switch command {
	case CommandStart:
		return m.sendButtons(ctx, in.UserID, m.msgs.Start, Button{Label: m.msgs.StartButton, Callback: CallbackStart})
	case CommandProfile:
		return m.handleProfileCommand(ctx, in)
	case CommandHelp:
		return m.sendText(ctx, in.UserID, m.msgs.Help)
	case CommandRestart:
		return m.handleRestartCommand(ctx, in)
	case CommandSupport:
		return m.handleSupportCommand(ctx, in)
	default:
		return m.sendText(ctx, in.UserID, m.msgs.UnknownCommand)
	}
}

// handleProfileCommand shows the stored profile. It also cancels a pending
// support request, which the support prompt advertises.
func (m *Machine) handleProfileCommand(ctx context.Context, in Incoming) error {
	if session, ok := m.sessions.Get(in.UserID); ok && session.Mode == ModeSupport {
		m.sessions.Remove(in.UserID)
	}

	profile, err := m.profiles.GetUserProfile(ctx, in.UserID)
	if err != nil {
		return m.reportError(ctx, in.UserID, m.msgs.GeneralError, fmt.Errorf("failed to load profile: %w", err))
	}
	if profile == nil {
		return m.sendText(ctx, in.UserID, m.msgs.ProfileNotFound)
	}
	return m.sendProfileView(ctx, profile)
}

// handleRestartCommand deletes the stored profile and starts the
// questionnaire from scratch.
func (m *Machine) handleRestartCommand(ctx context.Context, in Incoming) error {
	if err := m.profiles.DeleteUserProfile(ctx, in.UserID); err != nil {
		return m.reportError(ctx, in.UserID, m.msgs.GeneralError, fmt.Errorf("failed to delete profile: %w", err))
	}
	m.sessions.Remove(in.UserID)
	m.logger.InfoContext(ctx, "Profile deleted on restart", "user_id", in.UserID)
	return m.askName(ctx, in)
}

func (m *Machine) handleSupportCommand(ctx context.Context, in Incoming) error {
	decision, err := m.throttle.Check(ctx, in.UserID)
	if err != nil {
		return m.reportError(ctx, in.UserID, m.msgs.GeneralError, err)
	}
	if !decision.Allowed {
		return m.sendText(ctx, in.UserID, fmt.Sprintf(m.msgs.SupportWaitFmt, decision.MinutesRemaining))
	}

	m.sessions.Put(in.UserID, NewSupportSession())
	return m.sendText(ctx, in.UserID, m.msgs.SupportPrompt)
}
