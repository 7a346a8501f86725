package database

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// UserProfile is the answer sheet a user fills in through the profile dialog.
// Age is free text and is never parsed.
type UserProfile struct {
	UserID          int64     `db:"user_id"`
	Username        string    `db:"username"` // Telegram alias without '@', may be empty
	Name            string    `db:"name"`
	Age             string    `db:"age"`
	DiscussionTopic string    `db:"discussion_topic"`
	FunFact         string    `db:"fun_fact"`
	IsVisible       bool      `db:"is_visible"`
	IsBanned        bool      `db:"is_banned"`
	IsBotBlocked    bool      `db:"is_bot_blocked"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

// Eligible reports whether the profile may take part in a matching run.
func (p *UserProfile) Eligible() bool {
	return p.IsVisible && !p.IsBanned && !p.IsBotBlocked
}

// RequestStatus is the lifecycle state of a support request.
type RequestStatus string

// Support request states.
const (
	RequestOpen       RequestStatus = "OPEN"
	RequestInProgress RequestStatus = "IN_PROGRESS"
	RequestClosed     RequestStatus = "CLOSED"
)

// SupportRequest is a single message a user sent to support.
type SupportRequest struct {
	ID        int64         `db:"id"`
	UserID    int64         `db:"user_id"`
	Message   string        `db:"message"`
	Status    RequestStatus `db:"status"`
	CreatedAt time.Time     `db:"created_at"`
}

// RunStatus is the outcome of a matching run.
type RunStatus string

// Matching run outcomes.
const (
	RunSuccess RunStatus = "SUCCESS"
	RunFailed  RunStatus = "FAILED"
)

// MatchingRun records one execution of the weekly matching job.
// Pairs are stored as "a <-> b" strings.
type MatchingRun struct {
	ID           string     `db:"id"`
	ExecutedAt   time.Time  `db:"executed_at"`
	Pairs        StringList `db:"pairs"`
	Unpaired     Int64List  `db:"unpaired"`
	Status       RunStatus  `db:"status"`
	ErrorMessage string     `db:"error_message"`
}

// ProfileCounts is a live snapshot of the profile table.
type ProfileCounts struct {
	Total      int `db:"total_profiles"`
	Visible    int `db:"visible_profiles"`
	Banned     int `db:"banned_profiles"`
	BotBlocked int `db:"bot_blocked_profiles"`
	Eligible   int `db:"eligible_profiles"`
}

// ProfileStatistics is a persisted ProfileCounts snapshot.
type ProfileStatistics struct {
	ID   int64     `db:"id"`
	Date time.Time `db:"date"`
	ProfileCounts
}

// DailyMessage is a queued broadcast text.
type DailyMessage struct {
	ID        int64     `db:"id"`
	Text      string    `db:"text"`
	Sent      bool      `db:"sent"`
	CreatedAt time.Time `db:"created_at"`
}

// StringList is a []string stored as a JSON array.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	return marshalList(l)
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(src any) error {
	return unmarshalList(src, l)
}

// Int64List is a []int64 stored as a JSON array.
type Int64List []int64

// Value implements driver.Valuer.
func (l Int64List) Value() (driver.Value, error) {
	return marshalList(l)
}

// Scan implements sql.Scanner.
func (l *Int64List) Scan(src any) error {
	return unmarshalList(src, l)
}

func marshalList[T any](list []T) (driver.Value, error) {
	if list == nil {
		return "[]", nil
	}
	data, err := json.Marshal(list)
	if err != nil {
		return nil, fmt.Errorf("failed to encode list: %w", err)
	}
	return string(data), nil
}

func unmarshalList(src, dest any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("unsupported list column type %T", src)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to decode list: %w", err)
	}
	return nil
}
