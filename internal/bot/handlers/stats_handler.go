package handlers

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewStatsHandler returns a handler for the /stats command.
func NewStatsHandler(deps HandlerDeps) bot.HandlerFunc {
	return statsHandler{deps}.Handle
}

// statsHandler shows live profile counts to the admin.
type statsHandler struct {
	deps HandlerDeps
}

func (h statsHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "stats")
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	counts, err := h.deps.Store.CountProfiles(ctx)
	if err != nil {
		log.ErrorContext(ctx, "Failed to count profiles", "error", err)
		reply(ctx, b, log, chatID, h.deps.Config.Messages.GeneralError)
		return
	}

	msgs := h.deps.Config.Messages
	reply(ctx, b, log, chatID, fmt.Sprintf(msgs.StatsFmt,
		counts.Total, counts.Visible, counts.Banned, counts.BotBlocked, counts.Eligible))
}
