package dialog

import (
	"context"
	"fmt"
	"html"

	"github.com/edgard/aurorabot/internal/config"
	"github.com/edgard/aurorabot/internal/database"
)

// FormatProfile renders a profile card as Telegram HTML. It is the text a
// conversation partner receives.
func FormatProfile(msgs config.MessagesConfig, p *database.UserProfile) string {
	return fmt.Sprintf(msgs.ProfileFmt,
		html.EscapeString(p.Name),
		html.EscapeString(p.Age),
		html.EscapeString(p.DiscussionTopic),
		html.EscapeString(p.FunFact),
		ContactLine(msgs, p),
	)
}

// ContactLine is the @username, or a tg:// link for users without one.
func ContactLine(msgs config.MessagesConfig, p *database.UserProfile) string {
	if p.Username != "" {
		return "@" + html.EscapeString(p.Username)
	}
	return fmt.Sprintf(msgs.ContactLinkFmt, p.UserID)
}

func (m *Machine) profileViewText(p *database.UserProfile) string {
	status := m.msgs.ProfileHidden
	if p.IsVisible {
		status = m.msgs.ProfileVisible
	}
	return m.msgs.ProfilePreviewHeader + "\n" + FormatProfile(m.msgs, p) + "\n\n" + status
}

func (m *Machine) profileViewButtons() []Button {
	return []Button{
		{Label: m.msgs.EditButton, Callback: CallbackAccepted},
		{Label: m.msgs.ToggleButton, Callback: CallbackToggleVisibility},
	}
}

// sendProfileView sends the user's avatar, when there is one, followed by the
// profile preview with the Edit and Toggle buttons.
func (m *Machine) sendProfileView(ctx context.Context, p *database.UserProfile) error {
	photo, err := m.messenger.ProfilePhoto(ctx, p.UserID)
	if err != nil {
		m.logger.WarnContext(ctx, "Failed to look up profile photo", "user_id", p.UserID, "error", err)
	}
	if photo != "" {
		if err := m.messenger.SendPhoto(ctx, p.UserID, photo); err != nil {
			m.logger.WarnContext(ctx, "Failed to send profile photo", "user_id", p.UserID, "error", err)
		}
	}
	return m.sendButtons(ctx, p.UserID, m.profileViewText(p), m.profileViewButtons()...)
}
