package dialog

import (
	"context"
	"fmt"

	"github.com/edgard/aurorabot/internal/database"
)

// askName enters the questionnaire. The draft starts from the stored profile
// when there is one; new users also get the name-prompt photo.
func (m *Machine) askName(ctx context.Context, in Incoming) error {
	existing, err := m.profiles.GetUserProfile(ctx, in.UserID)
	if err != nil {
		return m.reportError(ctx, in.UserID, m.msgs.GeneralError, fmt.Errorf("failed to load profile: %w", err))
	}

	var draft database.UserProfile
	if existing != nil {
		draft = *existing
	} else {
		draft = database.UserProfile{UserID: in.UserID, IsVisible: true}
		if m.msgs.AskNamePhoto != "" {
			if err := m.messenger.SendPhoto(ctx, in.UserID, m.msgs.AskNamePhoto); err != nil {
				m.logger.WarnContext(ctx, "Failed to send name prompt photo", "user_id", in.UserID, "error", err)
			}
		}
	}
	if in.Username != "" {
		draft.Username = in.Username
	}

	m.sessions.Put(in.UserID, NewProfileSession(draft))
	return m.sendText(ctx, in.UserID, m.msgs.AskName)
}

func (m *Machine) stepPrompt(step int) string {
	switch step {
	case StepName:
		return m.msgs.AskName
	case StepAge:
		return m.msgs.AskAge
	case StepDiscussionTopic:
		return m.msgs.AskDiscussionTopic
	default:
		return m.msgs.AskFunFact
	}
}

// handleProfileAnswer records the answer for the current step. Oversized
// input re-asks the same step and leaves the session untouched.
func (m *Machine) handleProfileAnswer(ctx context.Context, in Incoming, session Session) error {
	if err := m.ValidateLength(in.Text, MaxProfileAnswerLength); err != nil {
		m.logger.DebugContext(ctx, "Rejected profile answer", "user_id", in.UserID, "step", session.Step, "error", err)
		text := fmt.Sprintf(m.msgs.InputTooLongFmt, MaxProfileAnswerLength) + "\n\n" + m.stepPrompt(session.Step)
		return m.sendText(ctx, in.UserID, text)
	}

	next := session
	switch session.Step {
	case StepName:
		next.Draft.Name = in.Text
	case StepAge:
		next.Draft.Age = in.Text
	case StepDiscussionTopic:
		next.Draft.DiscussionTopic = in.Text
	case StepFunFact:
		next.Draft.FunFact = in.Text
		return m.completeProfile(ctx, in, next.Draft)
	default:
		m.logger.WarnContext(ctx, "Profile session in unknown step, restarting", "user_id", in.UserID, "step", session.Step)
		return m.askName(ctx, in)
	}

	next.Step++
	m.sessions.Put(in.UserID, next)
	return m.sendText(ctx, in.UserID, m.stepPrompt(next.Step))
}

// completeProfile persists the finished draft. On failure the session stays
// at the last step so the user can send the answer again.
func (m *Machine) completeProfile(ctx context.Context, in Incoming, draft database.UserProfile) error {
	profile := draft
	profile.IsBotBlocked = false
	if in.Username != "" {
		profile.Username = in.Username
	}

	if err := m.profiles.SaveUserProfile(ctx, &profile); err != nil {
		return m.reportError(ctx, in.UserID, m.msgs.ProfileSaveError,
			fmt.Errorf("failed to save profile for user %d: %w", in.UserID, err))
	}

	m.sessions.Remove(in.UserID)
	m.logger.InfoContext(ctx, "Profile completed", "user_id", in.UserID)
	return m.sendProfileView(ctx, &profile)
}
