package dialog

import (
	"context"
	"fmt"
)

func (m *Machine) handleCallback(ctx context.Context, in Incoming) error {
	m.logger.DebugContext(ctx, "Handling callback", "user_id", in.UserID, "callback", in.Callback)

	switch in.Callback {
	case CallbackStart:
		m.acknowledge(ctx, in, m.msgs.Start, m.msgs.StartAcknowledged)
		return m.sendButtons(ctx, in.UserID, m.msgs.Info, Button{Label: m.msgs.InfoButton, Callback: CallbackAccepted})
	case CallbackAccepted:
		m.acknowledge(ctx, in, m.msgs.Info, m.msgs.InfoAcknowledged)
		return m.askName(ctx, in)
	case CallbackToggleVisibility:
		return m.handleToggleVisibility(ctx, in)
	default:
		return m.sendText(ctx, in.UserID, m.msgs.UnknownCommand)
	}
}

// acknowledge strips the buttons from the pressed message and appends the
// acknowledgement line. Edit failures are logged, not returned.
func (m *Machine) acknowledge(ctx context.Context, in Incoming, text, ack string) {
	if in.MessageID == 0 {
		return
	}
	if ack != "" {
		text += "\n\n" + ack
	}
	if err := m.messenger.EditText(ctx, in.UserID, in.MessageID, text, nil); err != nil {
		m.logger.WarnContext(ctx, "Failed to acknowledge button press",
			"user_id", in.UserID, "message_id", in.MessageID, "error", err)
	}
}

// handleToggleVisibility flips the stored flag and re-renders the profile
// view in place. The dialog session is left alone.
func (m *Machine) handleToggleVisibility(ctx context.Context, in Incoming) error {
	profile, err := m.profiles.ToggleVisibility(ctx, in.UserID)
	if err != nil {
		return m.reportError(ctx, in.UserID, m.msgs.GeneralError, fmt.Errorf("failed to toggle visibility: %w", err))
	}
	if profile == nil {
		return m.sendText(ctx, in.UserID, m.msgs.ProfileNotFound)
	}

	if in.MessageID == 0 {
		return m.sendProfileView(ctx, profile)
	}
	if err := m.messenger.EditText(ctx, in.UserID, in.MessageID, m.profileViewText(profile), m.profileViewButtons()); err != nil {
		return fmt.Errorf("failed to update profile view for user %d: %w", in.UserID, err)
	}
	return nil
}
