package handler

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/starsbot/internal/middleware"
	tg "github.com/set-night/starsbot/internal/telegram"
)

func (h *Handler) handleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Chat.Type != "private" {
		return
	}

	user := middleware.GetUser(ctx)
	if user == nil {
		return
	}

	chatID := update.Message.Chat.ID

	// Deep-link referral payload: /start <referrerID>
	parts := strings.SplitN(update.Message.Text, " ", 2)
	if len(parts) > 1 && !user.HasReferrer() {
		referrerID, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
		if err == nil {
			attached, err := h.userService.AttachReferrer(ctx, user.TelegramID, referrerID)
			if err != nil {
				slog.Error("attach referrer", "user_id", user.TelegramID, "error", err)
			} else if attached {
				user.ReferrerID = &referrerID
			}
		}
	}

	text := fmt.Sprintf(
		"👋 Привет, <b>%s</b>!\n\n"+
			"💎 Выполняй задания и зарабатывай алмазы.\n"+
			"Награда начисляется через 3 дня после проверки.\n\n"+
			"📋 <b>Команды:</b>\n"+
			"/profile — Профиль и рефералы\n"+
			"/addtask — Продвижение своего канала\n\n"+
			"Жми кнопку и начинай!",
		displayName(user.Username, user.TelegramID),
	)

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
		ReplyMarkup: tg.InlineKeyboard(
			tg.ButtonRow(tg.InlineButton("💎 Заработать", "tasks")),
			tg.ButtonRow(tg.InlineButton("👤 Профиль", "profile")),
		),
	})
}

func displayName(username string, telegramID int64) string {
	if username != "" {
		return "@" + username
	}
	return fmt.Sprintf("ID%d", telegramID)
}
