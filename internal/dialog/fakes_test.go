package dialog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/edgard/aurorabot/internal/config"
	"github.com/edgard/aurorabot/internal/database"
	"github.com/edgard/aurorabot/internal/throttle"
)

var errStoreDown = errors.New("store down")

type outgoing struct {
	Kind      string // text, buttons, edit, photo
	UserID    int64
	MessageID int
	Text      string
	Buttons   []Button
}

type fakeMessenger struct {
	mu     sync.Mutex
	sent   []outgoing
	nextID int
	photo  string
}

func (f *fakeMessenger) record(o outgoing) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	if o.MessageID == 0 {
		o.MessageID = f.nextID
	}
	f.sent = append(f.sent, o)
	return o.MessageID
}

func (f *fakeMessenger) SendText(_ context.Context, userID int64, text string) (int, error) {
	return f.record(outgoing{Kind: "text", UserID: userID, Text: text}), nil
}

func (f *fakeMessenger) SendTextWithButtons(_ context.Context, userID int64, text string, buttons []Button) (int, error) {
	return f.record(outgoing{Kind: "buttons", UserID: userID, Text: text, Buttons: buttons}), nil
}

func (f *fakeMessenger) EditText(_ context.Context, userID int64, messageID int, text string, buttons []Button) error {
	f.record(outgoing{Kind: "edit", UserID: userID, MessageID: messageID, Text: text, Buttons: buttons})
	return nil
}

func (f *fakeMessenger) SendPhoto(_ context.Context, userID int64, photoRef string) error {
	f.record(outgoing{Kind: "photo", UserID: userID, Text: photoRef})
	return nil
}

func (f *fakeMessenger) ProfilePhoto(context.Context, int64) (string, error) {
	return f.photo, nil
}

func (f *fakeMessenger) last(t *testing.T) outgoing {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		t.Fatal("no messages were sent")
	}
	return f.sent[len(f.sent)-1]
}

func (f *fakeMessenger) all() []outgoing {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]outgoing(nil), f.sent...)
}

func (f *fakeMessenger) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = nil
}

type fakeRepo struct {
	mu       sync.Mutex
	profiles map[int64]database.UserProfile
	requests []database.SupportRequest
	saveErr  error
	saves    int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{profiles: make(map[int64]database.UserProfile)}
}

func (r *fakeRepo) GetUserProfile(_ context.Context, userID int64) (*database.UserProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[userID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *fakeRepo) SaveUserProfile(_ context.Context, profile *database.UserProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saves++
	r.profiles[profile.UserID] = *profile
	return nil
}

func (r *fakeRepo) DeleteUserProfile(_ context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.profiles, userID)
	return nil
}

func (r *fakeRepo) ToggleVisibility(_ context.Context, userID int64) (*database.UserProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[userID]
	if !ok {
		return nil, nil
	}
	p.IsVisible = !p.IsVisible
	r.profiles[userID] = p
	return &p, nil
}

func (r *fakeRepo) SaveSupportRequest(_ context.Context, request *database.SupportRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	request.ID = int64(len(r.requests) + 1)
	r.requests = append(r.requests, *request)
	return nil
}

func (r *fakeRepo) GetLastSupportRequest(_ context.Context, userID int64) (*database.SupportRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.requests) - 1; i >= 0; i-- {
		if r.requests[i].UserID == userID {
			req := r.requests[i]
			return &req, nil
		}
	}
	return nil, nil
}

type harness struct {
	machine   *Machine
	messenger *fakeMessenger
	repo      *fakeRepo
	clock     *clockwork.FakeClock
	msgs      config.MessagesConfig
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC))
	repo := newFakeRepo()
	messenger := &fakeMessenger{}
	msgs := config.DefaultMessages()

	machine := NewMachine(Deps{
		Profiles:  repo,
		Support:   repo,
		Throttle:  throttle.New(repo, clock),
		Messenger: messenger,
		Messages:  msgs,
		Clock:     clock,
	})
	return &harness{machine: machine, messenger: messenger, repo: repo, clock: clock, msgs: msgs}
}

func (h *harness) send(t *testing.T, in Incoming) {
	t.Helper()
	if err := h.machine.Handle(context.Background(), in); err != nil {
		t.Fatalf("Handle(%+v) error = %v", in, err)
	}
}

func (h *harness) session(userID int64) (Session, bool) {
	return h.machine.Sessions().Get(userID)
}

func testDraft(userID int64) database.UserProfile {
	return database.UserProfile{UserID: userID, IsVisible: true}
}
