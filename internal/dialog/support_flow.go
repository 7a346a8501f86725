package dialog

import (
	"context"
	"fmt"

	"github.com/edgard/aurorabot/internal/database"
)

// handleSupportMessage saves the user's support message. Oversized input and
// throttled submissions keep the session so the user can try again.
func (m *Machine) handleSupportMessage(ctx context.Context, in Incoming) error {
	if err := m.ValidateLength(in.Text, MaxSupportMessageLength); err != nil {
		m.logger.DebugContext(ctx, "Rejected support message", "user_id", in.UserID, "error", err)
		text := fmt.Sprintf(m.msgs.SupportTooLongFmt, MaxSupportMessageLength) + "\n\n" + m.msgs.SupportPrompt
		return m.sendText(ctx, in.UserID, text)
	}

	decision, err := m.throttle.Check(ctx, in.UserID)
	if err != nil {
		return m.reportError(ctx, in.UserID, m.msgs.GeneralError, err)
	}
	if !decision.Allowed {
		return m.sendText(ctx, in.UserID, fmt.Sprintf(m.msgs.SupportResubmitFmt, decision.MinutesRemaining))
	}

	request := &database.SupportRequest{
		UserID:    in.UserID,
		Message:   in.Text,
		Status:    database.RequestOpen,
		CreatedAt: m.clock.Now().UTC(),
	}
	if err := m.support.SaveSupportRequest(ctx, request); err != nil {
		return m.reportError(ctx, in.UserID, m.msgs.SupportSaveError,
			fmt.Errorf("failed to save support request for user %d: %w", in.UserID, err))
	}

	m.sessions.Remove(in.UserID)
	return m.sendText(ctx, in.UserID, m.msgs.SupportSent)
}
