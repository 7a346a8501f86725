package handlers

import (
	"context"
	"html"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/aurorabot/internal/database"
)

// NewBroadcastHandler returns a handler for the /broadcast command.
func NewBroadcastHandler(deps HandlerDeps) bot.HandlerFunc {
	return broadcastHandler{deps}.Handle
}

// broadcastHandler queues a message for the next daily broadcast.
type broadcastHandler struct {
	deps HandlerDeps
}

func (h broadcastHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "broadcast")
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	msgs := h.deps.Config.Messages

	text := commandArgs(update.Message.Text)
	if text == "" {
		reply(ctx, b, log, chatID, msgs.BroadcastUsage)
		return
	}

	// Broadcasts are delivered in HTML parse mode; the admin's text is taken literally.
	msg := &database.DailyMessage{Text: html.EscapeString(text)}
	if err := h.deps.Store.SaveDailyMessage(ctx, msg); err != nil {
		log.ErrorContext(ctx, "Failed to queue broadcast", "error", err)
		reply(ctx, b, log, chatID, msgs.GeneralError)
		return
	}

	log.InfoContext(ctx, "Broadcast queued", "message_id", msg.ID)
	reply(ctx, b, log, chatID, msgs.BroadcastQueued)
}

// commandArgs returns the text after the leading command token.
func commandArgs(text string) string {
	text = strings.TrimSpace(text)
	idx := strings.IndexAny(text, " \n\t")
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(text[idx+1:])
}
