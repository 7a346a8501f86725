// Package throttle limits how often a user may contact support.
package throttle

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/edgard/aurorabot/internal/database"
)

// Window is the minimum gap between two support requests of one user.
const Window = 15 * time.Minute

// LastRequestFinder looks up the newest support request of a user.
// It returns nil, nil when the user has none.
type LastRequestFinder interface {
	GetLastSupportRequest(ctx context.Context, userID int64) (*database.SupportRequest, error)
}

// Decision is the outcome of a throttle check. MinutesRemaining is positive
// only when Allowed is false.
type Decision struct {
	Allowed          bool
	MinutesRemaining int
}

// Throttle decides whether a user may submit another support request.
type Throttle struct {
	requests LastRequestFinder
	clock    clockwork.Clock
}

// New creates a Throttle reading request history from requests.
func New(requests LastRequestFinder, clock clockwork.Clock) *Throttle {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Throttle{requests: requests, clock: clock}
}

// Check reports whether userID is outside the throttle window. It does not
// record anything; the caller saves the request once it is accepted.
func (t *Throttle) Check(ctx context.Context, userID int64) (Decision, error) {
	last, err := t.requests.GetLastSupportRequest(ctx, userID)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to load last support request: %w", err)
	}
	if last == nil {
		return Decision{Allowed: true}, nil
	}
	return Evaluate(last.CreatedAt, t.clock.Now()), nil
}

// Evaluate applies the window to a last request time. Clock skew that puts
// last in the future counts as zero elapsed time.
func Evaluate(last, now time.Time) Decision {
	elapsed := max(now.Sub(last), 0)
	if elapsed >= Window {
		return Decision{Allowed: true}
	}

	remaining := int(Window/time.Minute) - int(elapsed/time.Minute)
	return Decision{MinutesRemaining: max(remaining, 1)}
}
