package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path"
	"strings"
	"sync"
	"testing"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/go-cmp/cmp"

	"github.com/edgard/aurorabot/internal/config"
	"github.com/edgard/aurorabot/internal/database"
	"github.com/edgard/aurorabot/internal/dialog"
	"github.com/edgard/aurorabot/internal/matching"
)

const adminID = int64(7)

type apiCall struct {
	Method string
	Body   string
}

// telegramServer is a fake Bot API endpoint recording every call.
type telegramServer struct {
	mu    sync.Mutex
	calls []apiCall
}

func (s *telegramServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	method := path.Base(r.URL.Path)

	s.mu.Lock()
	s.calls = append(s.calls, apiCall{Method: method, Body: string(body)})
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if method == "answerCallbackQuery" {
		_, _ = io.WriteString(w, `{"ok":true,"result":true}`)
		return
	}
	_, _ = io.WriteString(w, `{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":1,"type":"private"}}}`)
}

func (s *telegramServer) methods() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.calls))
	for i, c := range s.calls {
		out[i] = c.Method
	}
	return out
}

func (s *telegramServer) lastBody(t *testing.T) string {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.calls) == 0 {
		t.Fatal("no Bot API calls recorded")
	}
	return s.calls[len(s.calls)-1].Body
}

func newTestBot(t *testing.T) (*tgbot.Bot, *telegramServer) {
	t.Helper()
	srv := &telegramServer{}
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	b, err := tgbot.New("test-token", tgbot.WithServerURL(ts.URL), tgbot.WithSkipGetMe())
	if err != nil {
		t.Fatalf("failed to create bot: %v", err)
	}
	return b, srv
}

func newTestStore(t *testing.T) database.Store {
	t.Helper()
	db, err := database.NewDB(":memory:")
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	t.Cleanup(func() { database.CloseDB(db) })
	return database.NewStore(db, nil)
}

func newTestDeps(t *testing.T) HandlerDeps {
	t.Helper()
	return HandlerDeps{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Config: &config.Config{
			Telegram: config.TelegramConfig{AdminUserID: adminID},
			Messages: config.DefaultMessages(),
		},
		Store: newTestStore(t),
	}
}

func privateMessage(from int64, text string) *models.Update {
	return &models.Update{
		ID: 1,
		Message: &models.Message{
			ID:   10,
			From: &models.User{ID: from, Username: "user"},
			Chat: models.Chat{ID: from, Type: models.ChatTypePrivate},
			Text: text,
		},
	}
}

func TestIncomingFromUpdate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		update *models.Update
		want   dialog.Incoming
		wantOK bool
	}{
		{
			name:   "private text",
			update: privateMessage(5, "hello"),
			want:   dialog.Incoming{UserID: 5, Username: "user", Text: "hello"},
			wantOK: true,
		},
		{
			name: "group message is ignored",
			update: &models.Update{Message: &models.Message{
				From: &models.User{ID: 5},
				Chat: models.Chat{ID: -100, Type: models.ChatTypeGroup},
				Text: "hello",
			}},
		},
		{
			name: "button press",
			update: &models.Update{CallbackQuery: &models.CallbackQuery{
				ID:   "cb",
				From: models.User{ID: 5, Username: "user"},
				Data: dialog.CallbackToggleVisibility,
				Message: models.MaybeInaccessibleMessage{
					Message: &models.Message{ID: 33, Chat: models.Chat{ID: 5, Type: models.ChatTypePrivate}},
				},
			}},
			want:   dialog.Incoming{UserID: 5, Username: "user", Callback: dialog.CallbackToggleVisibility, MessageID: 33},
			wantOK: true,
		},
		{
			name: "button press without data",
			update: &models.Update{CallbackQuery: &models.CallbackQuery{
				ID:   "cb",
				From: models.User{ID: 5},
			}},
		},
		{
			name:   "other update",
			update: &models.Update{ID: 9},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := incomingFromUpdate(tt.update)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("incoming mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCommandArgs(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"/broadcast":                  "",
		"/broadcast   ":               "",
		"/broadcast hello all":        "hello all",
		"/broadcast\nline one\nline2": "line one\nline2",
	}
	for in, want := range tests {
		if got := commandArgs(in); got != want {
			t.Errorf("commandArgs(%q) = %q, want %q", in, got, want)
		}
	}
}

type fakeDialog struct {
	mu   sync.Mutex
	seen []dialog.Incoming
	err  error
}

func (f *fakeDialog) Handle(_ context.Context, in dialog.Incoming) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, in)
	return f.err
}

func TestDialogHandler(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("messages reach the dialog", func(t *testing.T) {
		t.Parallel()
		b, srv := newTestBot(t)
		deps := newTestDeps(t)
		fd := &fakeDialog{}
		deps.Dialog = fd

		NewDialogHandler(deps)(ctx, b, privateMessage(5, "/start"))
		if len(fd.seen) != 1 || fd.seen[0].Text != "/start" {
			t.Fatalf("dialog saw %+v", fd.seen)
		}
		if len(srv.methods()) != 0 {
			t.Errorf("plain messages need no Bot API call, got %v", srv.methods())
		}
	})

	t.Run("button presses are answered", func(t *testing.T) {
		t.Parallel()
		b, srv := newTestBot(t)
		deps := newTestDeps(t)
		fd := &fakeDialog{}
		deps.Dialog = fd

		NewDialogHandler(deps)(ctx, b, &models.Update{CallbackQuery: &models.CallbackQuery{
			ID:   "cb-1",
			From: models.User{ID: 5},
			Data: dialog.CallbackStart,
		}})
		if diff := cmp.Diff([]string{"answerCallbackQuery"}, srv.methods()); diff != "" {
			t.Errorf("api calls mismatch (-want +got):\n%s", diff)
		}
		if len(fd.seen) != 1 || fd.seen[0].Callback != dialog.CallbackStart {
			t.Errorf("dialog saw %+v", fd.seen)
		}
	})

	t.Run("button presses without data are answered and ignored", func(t *testing.T) {
		t.Parallel()
		b, srv := newTestBot(t)
		deps := newTestDeps(t)
		fd := &fakeDialog{}
		deps.Dialog = fd

		NewDialogHandler(deps)(ctx, b, &models.Update{CallbackQuery: &models.CallbackQuery{
			ID:   "cb-2",
			From: models.User{ID: 5},
		}})
		if diff := cmp.Diff([]string{"answerCallbackQuery"}, srv.methods()); diff != "" {
			t.Errorf("api calls mismatch (-want +got):\n%s", diff)
		}
		if len(fd.seen) != 0 {
			t.Errorf("dialog should not see an empty button press, got %+v", fd.seen)
		}
	})

	t.Run("blocked user is flagged", func(t *testing.T) {
		t.Parallel()
		b, _ := newTestBot(t)
		deps := newTestDeps(t)
		deps.Dialog = &fakeDialog{err: dialog.ErrRecipientBlocked}
		if err := deps.Store.SaveUserProfile(ctx, &database.UserProfile{UserID: 5, Name: "x", IsVisible: true}); err != nil {
			t.Fatal(err)
		}

		NewDialogHandler(deps)(ctx, b, privateMessage(5, "hello"))

		p, err := deps.Store.GetUserProfile(ctx, 5)
		if err != nil || p == nil || !p.IsBotBlocked {
			t.Errorf("profile should be bot-blocked: %+v, %v", p, err)
		}
	})
}

func TestAdminOnly(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := []struct {
		name     string
		admin    int64
		from     int64
		wantNext bool
	}{
		{name: "admin passes", admin: adminID, from: adminID, wantNext: true},
		{name: "other user is rejected", admin: adminID, from: 99},
		{name: "no admin configured", admin: 0, from: 99},
		{name: "zero sender never matches an unset admin", admin: 0, from: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b, srv := newTestBot(t)
			deps := newTestDeps(t)
			deps.Config.Telegram.AdminUserID = tt.admin

			called := false
			next := func(context.Context, *tgbot.Bot, *models.Update) { called = true }
			AdminOnly(deps)(next)(ctx, b, privateMessage(tt.from, "/stats"))

			if called != tt.wantNext {
				t.Fatalf("next called = %v, want %v", called, tt.wantNext)
			}
			if !tt.wantNext && !strings.Contains(srv.lastBody(t), "not authorized") {
				t.Errorf("rejection should send the not-authorized text, got %q", srv.lastBody(t))
			}
		})
	}
}

func TestStatsHandler(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	b, srv := newTestBot(t)
	deps := newTestDeps(t)
	for _, p := range []*database.UserProfile{
		{UserID: 1, Name: "a", IsVisible: true},
		{UserID: 2, Name: "b", IsVisible: true, IsBotBlocked: true},
	} {
		if err := deps.Store.SaveUserProfile(ctx, p); err != nil {
			t.Fatal(err)
		}
	}

	NewStatsHandler(deps)(ctx, b, privateMessage(adminID, "/stats"))

	body := srv.lastBody(t)
	for _, want := range []string{"Profiles: 2", "Visible: 2", "Blocked the bot: 1", "Eligible for matching: 1"} {
		if !strings.Contains(body, want) {
			t.Errorf("stats reply missing %q:\n%s", want, body)
		}
	}
}

func TestBroadcastHandler(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("usage without text", func(t *testing.T) {
		t.Parallel()
		b, srv := newTestBot(t)
		deps := newTestDeps(t)

		NewBroadcastHandler(deps)(ctx, b, privateMessage(adminID, "/broadcast"))
		if !strings.Contains(srv.lastBody(t), "Usage: /broadcast") {
			t.Errorf("expected usage text, got %q", srv.lastBody(t))
		}
		if msg, _ := deps.Store.GetUnsentDailyMessage(ctx); msg != nil {
			t.Errorf("nothing should be queued, got %+v", msg)
		}
	})

	t.Run("queues the text", func(t *testing.T) {
		t.Parallel()
		b, srv := newTestBot(t)
		deps := newTestDeps(t)

		NewBroadcastHandler(deps)(ctx, b, privateMessage(adminID, "/broadcast See you on Monday"))
		msg, err := deps.Store.GetUnsentDailyMessage(ctx)
		if err != nil || msg == nil || msg.Text != "See you on Monday" {
			t.Fatalf("queued message = %+v, %v", msg, err)
		}
		if !strings.Contains(srv.lastBody(t), "Broadcast queued") {
			t.Errorf("expected confirmation, got %q", srv.lastBody(t))
		}
	})

	t.Run("escapes HTML markup", func(t *testing.T) {
		t.Parallel()
		b, _ := newTestBot(t)
		deps := newTestDeps(t)

		NewBroadcastHandler(deps)(ctx, b, privateMessage(adminID, "/broadcast Drinks <free> & snacks"))
		msg, err := deps.Store.GetUnsentDailyMessage(ctx)
		if err != nil || msg == nil {
			t.Fatalf("queued message = %+v, %v", msg, err)
		}
		if want := "Drinks &lt;free&gt; &amp; snacks"; msg.Text != want {
			t.Errorf("queued text = %q, want %q", msg.Text, want)
		}
	})
}

type fakeMatcher struct {
	run *database.MatchingRun
	err error
}

func (f fakeMatcher) Run(context.Context) (*database.MatchingRun, error) {
	return f.run, f.err
}

func TestMatchNowHandler(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := []struct {
		name    string
		matcher fakeMatcher
		want    string
	}{
		{
			name: "success",
			matcher: fakeMatcher{run: &database.MatchingRun{
				ID:       "run-42",
				Pairs:    database.StringList{"1 <-> 2"},
				Unpaired: database.Int64List{3},
			}},
			want: "run-42 finished: 1 pairs, 1 unpaired",
		},
		{name: "busy", matcher: fakeMatcher{err: matching.ErrRunInProgress}, want: "already in progress"},
		{
			name:    "failure",
			matcher: fakeMatcher{run: &database.MatchingRun{ID: "run-43", Status: database.RunFailed}, err: errors.New("boom")},
			want:    "Something went wrong",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b, srv := newTestBot(t)
			deps := newTestDeps(t)
			deps.Matcher = tt.matcher

			NewMatchNowHandler(deps)(ctx, b, privateMessage(adminID, "/match_now"))
			if !strings.Contains(srv.lastBody(t), tt.want) {
				t.Errorf("reply %q does not contain %q", srv.lastBody(t), tt.want)
			}
		})
	}
}

func TestRegisterAllCommands(t *testing.T) {
	t.Parallel()
	got := RegisterAllCommands(newTestDeps(t))

	for _, name := range []string{"/stats", "/broadcast", "/match_now"} {
		h, ok := got[name]
		if !ok {
			t.Errorf("command %s is not registered", name)
			continue
		}
		if h.Handler == nil || len(h.Middleware) != 1 {
			t.Errorf("command %s should have a handler and the admin middleware", name)
		}
		if "/"+h.Pattern != name {
			t.Errorf("command %s has pattern %q", name, h.Pattern)
		}
	}
}
