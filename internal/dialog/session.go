// Package dialog implements the per-user conversation flow: the profile
// questionnaire, support requests, and the commands and buttons around them.
package dialog

import "github.com/edgard/aurorabot/internal/database"

// Mode is the active flow of a session.
type Mode int

const (
	// ModeNone is never stored. A missing session means no active flow.
	ModeNone Mode = iota
	ModeProfile
	ModeSupport
)

func (m Mode) String() string {
	switch m {
	case ModeProfile:
		return "profile"
	case ModeSupport:
		return "support"
	default:
		return "none"
	}
}

// Profile questionnaire steps.
const (
	StepName = iota + 1
	StepAge
	StepDiscussionTopic
	StepFunFact
)

// Session is the transient dialog state of one user. Step is set only in
// ModeProfile; Draft holds the answers collected so far and is persisted
// only when the last step succeeds.
type Session struct {
	Mode  Mode
	Step  int
	Draft database.UserProfile
}

// NewProfileSession starts the questionnaire at the first step.
func NewProfileSession(draft database.UserProfile) Session {
	return Session{Mode: ModeProfile, Step: StepName, Draft: draft}
}

// NewSupportSession waits for a single support message.
func NewSupportSession() Session {
	return Session{Mode: ModeSupport}
}
