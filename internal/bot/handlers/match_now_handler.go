package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/aurorabot/internal/matching"
)

// NewMatchNowHandler returns a handler for the /match_now command.
func NewMatchNowHandler(deps HandlerDeps) bot.HandlerFunc {
	return matchNowHandler{deps}.Handle
}

// matchNowHandler triggers a matching run outside the weekly schedule.
type matchNowHandler struct {
	deps HandlerDeps
}

func (h matchNowHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "match_now")
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	msgs := h.deps.Config.Messages

	log.InfoContext(ctx, "Matching run requested by admin", "user_id", chatID)
	run, err := h.deps.Matcher.Run(ctx)
	switch {
	case errors.Is(err, matching.ErrRunInProgress):
		reply(ctx, b, log, chatID, msgs.MatchNowBusy)
		return
	case err != nil:
		log.ErrorContext(ctx, "Matching run failed", "error", err)
		reply(ctx, b, log, chatID, msgs.GeneralError)
		return
	}

	reply(ctx, b, log, chatID, fmt.Sprintf(msgs.MatchNowDoneFmt, run.ID, len(run.Pairs), len(run.Unpaired)))
}

func reply(ctx context.Context, b *bot.Bot, log *slog.Logger, chatID int64, text string) {
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		log.ErrorContext(ctx, "Failed to send reply", "error", err, "chat_id", chatID)
	}
}
