package handler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/starsbot/internal/middleware"
	tg "github.com/set-night/starsbot/internal/telegram"
)

// handleProfile serves both the /profile command and the "profile" callback.
func (h *Handler) handleProfile(ctx context.Context, b *bot.Bot, update *models.Update) {
	user := middleware.GetUser(ctx)
	if user == nil {
		return
	}

	var chatID int64
	if update.Message != nil {
		chatID = update.Message.Chat.ID
	} else if update.CallbackQuery != nil {
		b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: update.CallbackQuery.ID})
		chatID, _ = callbackOrigin(update)
	}
	if chatID == 0 {
		return
	}

	active, waiting, err := h.userService.ReferralStats(ctx, user.TelegramID)
	if err != nil {
		slog.Error("referral stats", "user_id", user.TelegramID, "error", err)
	}

	pending, completed, err := h.ledger.Counts(ctx, user.TelegramID)
	if err != nil {
		slog.Error("reward counts", "user_id", user.TelegramID, "error", err)
	}

	refLink := fmt.Sprintf("https://t.me/%s?start=%d", h.botUsername, user.TelegramID)

	text := fmt.Sprintf(
		"👤 <b>Профиль</b>\n\n"+
			"🆔 ID: <code>%d</code>\n"+
			"💎 Баланс: <b>%d алмазов</b>\n"+
			"✅ Заданий выполнено: %d\n"+
			"⏳ Наград в ожидании: %d\n"+
			"💰 Наград выплачено: %d\n\n"+
			"👥 <b>Рефералы</b>\n"+
			"Активных: %d\n"+
			"Ожидают активации: %d\n\n"+
			"🔗 Ваша ссылка:\n<code>%s</code>\n\n"+
			"За активацию реферала: +3 💎 и 10%% от всех его наград.",
		user.TelegramID, user.Balance, user.TasksCompleted,
		pending, completed, active, waiting, refLink,
	)

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
		ReplyMarkup: tg.InlineKeyboard(
			tg.ButtonRow(tg.InlineButton("💎 Заработать", "tasks")),
		),
	})
}
