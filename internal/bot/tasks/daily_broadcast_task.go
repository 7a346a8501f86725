package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/edgard/aurorabot/internal/config"
	"github.com/edgard/aurorabot/internal/dialog"
)

// newDailyBroadcastTask creates the task delivering the oldest queued
// broadcast to every user who has not blocked the bot.
func newDailyBroadcastTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", config.TaskDailyBroadcast)

	return func(ctx context.Context) error {
		msg, err := deps.Store.GetUnsentDailyMessage(ctx)
		if err != nil {
			return fmt.Errorf("failed to load daily message: %w", err)
		}
		if msg == nil {
			log.InfoContext(ctx, "No unsent daily messages found")
			return nil
		}

		users, err := deps.Store.GetAllUserProfiles(ctx)
		if err != nil {
			return fmt.Errorf("failed to load users: %w", err)
		}

		// Delivery is not interrupted halfway, so the message is never sent twice.
		sendCtx := context.WithoutCancel(ctx)
		sent, blocked, failed := 0, 0, 0
		for _, u := range users {
			if u.IsBotBlocked || u.IsBanned {
				continue
			}
			_, err := deps.Messenger.SendText(sendCtx, u.UserID, msg.Text)
			switch {
			case err == nil:
				sent++
			case errors.Is(err, dialog.ErrRecipientBlocked):
				blocked++
				if markErr := deps.Store.MarkBotBlocked(sendCtx, u.UserID); markErr != nil {
					log.ErrorContext(ctx, "Failed to mark user as bot-blocked", "user_id", u.UserID, "error", markErr)
				}
			default:
				failed++
				log.WarnContext(ctx, "Failed to deliver daily message", "user_id", u.UserID, "error", err)
			}
		}

		if err := deps.Store.MarkDailyMessageSent(sendCtx, msg.ID); err != nil {
			return fmt.Errorf("failed to mark daily message %d as sent: %w", msg.ID, err)
		}

		log.InfoContext(ctx, "Daily message sent", "message_id", msg.ID, "sent", sent, "blocked", blocked, "failed", failed)
		return nil
	}
}
