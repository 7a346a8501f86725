package dialog

import (
	"context"
	"errors"

	"github.com/edgard/aurorabot/internal/database"
	"github.com/edgard/aurorabot/internal/throttle"
)

var (
	// ErrInputTooLong is returned by ValidateLength for oversized input.
	ErrInputTooLong = errors.New("input too long")

	// ErrRecipientBlocked is returned by a Messenger when the user blocked the bot.
	ErrRecipientBlocked = errors.New("recipient blocked the bot")
)

// Button is an inline keyboard button carrying a callback token.
type Button struct {
	Label    string
	Callback string
}

// Messenger delivers messages to a user's private chat. Send methods return
// the ID of the sent message.
type Messenger interface {
	SendText(ctx context.Context, userID int64, text string) (int, error)
	SendTextWithButtons(ctx context.Context, userID int64, text string, buttons []Button) (int, error)
	// EditText replaces a message's text; nil buttons remove the keyboard.
	EditText(ctx context.Context, userID int64, messageID int, text string, buttons []Button) error
	SendPhoto(ctx context.Context, userID int64, photoRef string) error
	// ProfilePhoto returns a reference to the user's current avatar, or "" if none.
	ProfilePhoto(ctx context.Context, userID int64) (string, error)
}

// ProfileRepository persists user profiles. GetUserProfile and
// ToggleVisibility return nil, nil for a missing profile.
type ProfileRepository interface {
	GetUserProfile(ctx context.Context, userID int64) (*database.UserProfile, error)
	SaveUserProfile(ctx context.Context, profile *database.UserProfile) error
	DeleteUserProfile(ctx context.Context, userID int64) error
	ToggleVisibility(ctx context.Context, userID int64) (*database.UserProfile, error)
}

// SupportRepository persists support requests. GetLastSupportRequest
// returns nil, nil when the user has none.
type SupportRepository interface {
	SaveSupportRequest(ctx context.Context, request *database.SupportRequest) error
	GetLastSupportRequest(ctx context.Context, userID int64) (*database.SupportRequest, error)
}

// Throttler rate-limits support requests.
type Throttler interface {
	Check(ctx context.Context, userID int64) (throttle.Decision, error)
}
