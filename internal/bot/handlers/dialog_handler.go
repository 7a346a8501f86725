package handlers

import (
	"context"
	"errors"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/aurorabot/internal/dialog"
)

// NewDialogHandler returns the default handler feeding private-chat messages
// and button presses into the dialog.
func NewDialogHandler(deps HandlerDeps) bot.HandlerFunc {
	return dialogHandler{deps}.Handle
}

type dialogHandler struct {
	deps HandlerDeps
}

func (h dialogHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "dialog")

	// Button presses are always answered, including ones ignored below.
	if cq := update.CallbackQuery; cq != nil {
		if _, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: cq.ID}); err != nil {
			log.WarnContext(ctx, "Failed to answer callback query", "error", err, "user_id", cq.From.ID)
		}
	}

	in, ok := incomingFromUpdate(update)
	if !ok {
		log.DebugContext(ctx, "Ignoring update outside private chats", "update_id", update.ID)
		return
	}

	err := h.deps.Dialog.Handle(ctx, in)
	switch {
	case err == nil:
	case errors.Is(err, dialog.ErrRecipientBlocked):
		log.WarnContext(ctx, "User blocked the bot", "user_id", in.UserID)
		if markErr := h.deps.Store.MarkBotBlocked(ctx, in.UserID); markErr != nil {
			log.ErrorContext(ctx, "Failed to mark user as bot-blocked", "user_id", in.UserID, "error", markErr)
		}
	default:
		log.ErrorContext(ctx, "Failed to handle dialog update", "user_id", in.UserID, "error", err)
	}
}

// incomingFromUpdate extracts a dialog update from a private-chat message or
// a button press.
func incomingFromUpdate(update *models.Update) (dialog.Incoming, bool) {
	switch {
	case update.Message != nil:
		msg := update.Message
		if msg.From == nil || msg.Chat.Type != models.ChatTypePrivate {
			return dialog.Incoming{}, false
		}
		return dialog.Incoming{
			UserID:   msg.From.ID,
			Username: msg.From.Username,
			Text:     msg.Text,
		}, true

	case update.CallbackQuery != nil:
		cq := update.CallbackQuery
		if cq.Data == "" {
			return dialog.Incoming{}, false
		}
		in := dialog.Incoming{
			UserID:   cq.From.ID,
			Username: cq.From.Username,
			Callback: cq.Data,
		}
		if cq.Message.Message != nil {
			if cq.Message.Message.Chat.Type != models.ChatTypePrivate {
				return dialog.Incoming{}, false
			}
			in.MessageID = cq.Message.Message.ID
		}
		return in, true

	default:
		return dialog.Incoming{}, false
	}
}
