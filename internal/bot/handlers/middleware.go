// Package handlers contains the Telegram update handlers of the bot: the
// default handler that feeds the private-chat dialog and the admin commands.
package handlers

import (
	"context"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// isAdmin reports whether userID is the configured operator. An unset
// admin_user_id matches nobody.
func (d HandlerDeps) isAdmin(userID int64) bool {
	adminID := d.Config.Telegram.AdminUserID
	return adminID != 0 && userID == adminID
}

// AdminOnly guards the operator commands (/stats, /broadcast, /match_now).
// Updates without a sender are dropped; any other sender gets the
// not-authorized reply.
func AdminOnly(deps HandlerDeps) tgbot.Middleware {
	log := deps.Logger.With("middleware", "admin_only")

	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
			msg := update.Message
			if msg == nil || msg.From == nil {
				return
			}
			if deps.isAdmin(msg.From.ID) {
				next(ctx, b, update)
				return
			}

			log.WarnContext(ctx, "Rejected admin command", "user_id", msg.From.ID, "chat_id", msg.Chat.ID, "text", msg.Text)
			reply(ctx, b, log, msg.Chat.ID, deps.Config.Messages.NotAuthorized)
		}
	}
}
