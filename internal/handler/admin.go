package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/starsbot/internal/middleware"
)

// handleRewards: admin-only pending/completed reward counts for a user.
// Usage: /rewards <telegram_id>
func (h *Handler) handleRewards(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	user := middleware.GetUser(ctx)
	if user == nil || !h.cfg.IsAdmin(user.TelegramID) {
		return
	}
	chatID := update.Message.Chat.ID

	parts := strings.Fields(update.Message.Text)
	if len(parts) < 2 {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "Использование: /rewards <telegram_id>",
		})
		return
	}
	targetID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "Некорректный ID.",
		})
		return
	}

	pending, completed, err := h.ledger.Counts(ctx, targetID)
	if err != nil {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "Не удалось получить данные.",
		})
		return
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text: fmt.Sprintf("Пользователь %d\nОжидают: %d\nВыплачено: %d",
			targetID, pending, completed),
	})
}

// handleDelTask: admin-only kill switch for a funded task.
// Usage: /deltask <task_id>
func (h *Handler) handleDelTask(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	user := middleware.GetUser(ctx)
	if user == nil || !h.cfg.IsAdmin(user.TelegramID) {
		return
	}
	chatID := update.Message.Chat.ID

	parts := strings.Fields(update.Message.Text)
	if len(parts) < 2 {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "Использование: /deltask <task_id>",
		})
		return
	}
	taskID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "Некорректный ID задания.",
		})
		return
	}

	if err := h.localTasks.Deactivate(ctx, taskID); err != nil {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "Не удалось деактивировать задание.",
		})
		return
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   fmt.Sprintf("Задание %d деактивировано.", taskID),
	})
}
