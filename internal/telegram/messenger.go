package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/aurorabot/internal/dialog"
)

// api is the subset of *bot.Bot the Messenger needs.
type api interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	EditMessageText(ctx context.Context, params *bot.EditMessageTextParams) (*models.Message, error)
	SendPhoto(ctx context.Context, params *bot.SendPhotoParams) (*models.Message, error)
	GetUserProfilePhotos(ctx context.Context, params *bot.GetUserProfilePhotosParams) (*models.UserProfilePhotos, error)
}

// Messenger delivers HTML messages to private chats. In a private chat the
// chat ID equals the user ID.
type Messenger struct {
	api api
	log *slog.Logger
}

var _ dialog.Messenger = (*Messenger)(nil)

// NewMessenger creates a Messenger sending through b.
func NewMessenger(b *bot.Bot, logger *slog.Logger) *Messenger {
	return newMessenger(b, logger)
}

func newMessenger(a api, logger *slog.Logger) *Messenger {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Messenger{api: a, log: logger.With("component", "messenger")}
}

// SendText sends an HTML message.
func (m *Messenger) SendText(ctx context.Context, userID int64, text string) (int, error) {
	return m.send(ctx, &bot.SendMessageParams{ChatID: userID, Text: text, ParseMode: models.ParseModeHTML})
}

// SendTextWithButtons sends an HTML message with an inline keyboard, one button per row.
func (m *Messenger) SendTextWithButtons(ctx context.Context, userID int64, text string, buttons []dialog.Button) (int, error) {
	params := &bot.SendMessageParams{ChatID: userID, Text: text, ParseMode: models.ParseModeHTML}
	if len(buttons) > 0 {
		params.ReplyMarkup = keyboard(buttons)
	}
	return m.send(ctx, params)
}

// EditText replaces the text of a sent message. Without buttons the inline
// keyboard is removed.
func (m *Messenger) EditText(ctx context.Context, userID int64, messageID int, text string, buttons []dialog.Button) error {
	params := &bot.EditMessageTextParams{ChatID: userID, MessageID: messageID, Text: text, ParseMode: models.ParseModeHTML}
	if len(buttons) > 0 {
		params.ReplyMarkup = keyboard(buttons)
	}
	if _, err := m.api.EditMessageText(ctx, params); err != nil {
		return m.classify(ctx, userID, "edit message", err)
	}
	return nil
}

// SendPhoto sends an already uploaded photo by its Telegram file ID.
func (m *Messenger) SendPhoto(ctx context.Context, userID int64, photoRef string) error {
	_, err := m.api.SendPhoto(ctx, &bot.SendPhotoParams{
		ChatID: userID,
		Photo:  &models.InputFileString{Data: photoRef},
	})
	if err != nil {
		return m.classify(ctx, userID, "send photo", err)
	}
	return nil
}

// ProfilePhoto returns the file ID of the largest size of the user's current
// avatar, or "" if the user has none.
func (m *Messenger) ProfilePhoto(ctx context.Context, userID int64) (string, error) {
	photos, err := m.api.GetUserProfilePhotos(ctx, &bot.GetUserProfilePhotosParams{UserID: userID, Limit: 1})
	if err != nil {
		return "", fmt.Errorf("failed to get profile photos: %w", err)
	}
	if photos == nil || len(photos.Photos) == 0 || len(photos.Photos[0]) == 0 {
		return "", nil
	}

	sizes := photos.Photos[0]
	largest := sizes[0]
	for _, s := range sizes[1:] {
		if s.Width*s.Height > largest.Width*largest.Height {
			largest = s
		}
	}
	return largest.FileID, nil
}

func (m *Messenger) send(ctx context.Context, params *bot.SendMessageParams) (int, error) {
	userID, _ := params.ChatID.(int64)
	msg, err := m.api.SendMessage(ctx, params)
	if err != nil {
		return 0, m.classify(ctx, userID, "send message", err)
	}
	if msg == nil {
		return 0, nil
	}
	return msg.ID, nil
}

// classify maps a 403 from Telegram to dialog.ErrRecipientBlocked.
func (m *Messenger) classify(ctx context.Context, userID int64, op string, err error) error {
	if errors.Is(err, bot.ErrorForbidden) {
		m.log.DebugContext(ctx, "Recipient blocked the bot", "user_id", userID, "op", op)
		return fmt.Errorf("failed to %s: %w: %w", op, dialog.ErrRecipientBlocked, err)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func keyboard(buttons []dialog.Button) *models.InlineKeyboardMarkup {
	rows := make([][]models.InlineKeyboardButton, len(buttons))
	for i, b := range buttons {
		rows[i] = []models.InlineKeyboardButton{{Text: b.Label, CallbackData: b.Callback}}
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}
