package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/starsbot/internal/domain"
	"github.com/set-night/starsbot/internal/middleware"
	"github.com/set-night/starsbot/internal/service"
	tg "github.com/set-night/starsbot/internal/telegram"
)

func (h *Handler) handleTasks(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: update.CallbackQuery.ID})

	user := middleware.GetUser(ctx)
	if user == nil {
		return
	}
	chatID, messageID := callbackOrigin(update)
	if chatID == 0 {
		return
	}

	session := h.aggregator.LoadQueue(ctx, callbackViewer(update, chatID))
	h.renderSession(ctx, b, chatID, messageID, session)
}

func (h *Handler) handleTasksRefresh(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: update.CallbackQuery.ID,
		Text:            "🔄 Обновляю список...",
	})

	user := middleware.GetUser(ctx)
	if user == nil {
		return
	}
	chatID, messageID := callbackOrigin(update)
	if chatID == 0 {
		return
	}

	session := h.aggregator.Refresh(ctx, callbackViewer(update, chatID))
	h.renderSession(ctx, b, chatID, messageID, session)
}

func (h *Handler) handleTaskNext(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.moveCursor(ctx, b, update, func(s *service.BrowseSession) { s.Skip() })
}

func (h *Handler) handleTaskPrev(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.moveCursor(ctx, b, update, func(s *service.BrowseSession) { s.Previous() })
}

func (h *Handler) moveCursor(ctx context.Context, b *bot.Bot, update *models.Update, move func(*service.BrowseSession)) {
	if update.CallbackQuery == nil {
		return
	}
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: update.CallbackQuery.ID})

	user := middleware.GetUser(ctx)
	if user == nil {
		return
	}
	chatID, messageID := callbackOrigin(update)

	session, ok := h.aggregator.Session(user.TelegramID)
	if !ok {
		session = h.aggregator.LoadQueue(ctx, callbackViewer(update, chatID))
	} else {
		move(session)
	}
	h.renderSession(ctx, b, chatID, messageID, session)
}

func (h *Handler) handleTaskCheck(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}

	user := middleware.GetUser(ctx)
	if user == nil {
		return
	}
	chatID, messageID := callbackOrigin(update)

	session, ok := h.aggregator.Session(user.TelegramID)
	if !ok {
		h.answerAlert(ctx, b, update, "Сессия устарела, откройте задания заново.")
		return
	}
	current, ok := session.Current()
	if !ok {
		h.answerAlert(ctx, b, update, "Нет активного задания.")
		return
	}

	source, ok := h.aggregator.VerifierFor(current)
	if !ok {
		h.answerAlert(ctx, b, update, "⚠️ Сервис временно недоступен, попробуйте позже.")
		return
	}

	result, err := source.Verify(ctx, callbackViewer(update, chatID), current)
	switch {
	case errors.Is(err, domain.ErrTaskAlreadyDone):
		h.answerAlert(ctx, b, update, "✅ Уже получено!")
		session.Advance()
		h.renderSession(ctx, b, chatID, messageID, session)
		return
	case errors.Is(err, domain.ErrFraudDetected):
		h.answerAlert(ctx, b, update, "⚠️ Накрутка! Награда отменена.")
		h.tgLogger.LogFraud(user.TelegramID, user.Username, current.ChatID)
		session.Advance()
		h.renderSession(ctx, b, chatID, messageID, session)
		return
	case errors.Is(err, domain.ErrProviderHighRisk):
		h.answerAlert(ctx, b, update, "⚠️ Задания этого сервиса вам недоступны.")
		session.Advance()
		h.renderSession(ctx, b, chatID, messageID, session)
		return
	case errors.Is(err, domain.ErrTaskNotFound):
		h.answerAlert(ctx, b, update, "Задание больше не активно.")
		session.Advance()
		h.renderSession(ctx, b, chatID, messageID, session)
		return
	case err != nil:
		slog.Error("task verification failed",
			"user_id", user.TelegramID, "task_key", current.Key(), "error", err)
		h.answerAlert(ctx, b, update, "⚠️ Сервис временно недоступен, попробуйте позже.")
		return
	}

	switch result {
	case domain.VerificationCompleted:
		created, err := h.ledger.Schedule(ctx, user.TelegramID, current.Key(), current.Title(), current.Reward)
		if err != nil {
			slog.Error("failed to schedule reward",
				"user_id", user.TelegramID, "task_key", current.Key(), "error", err)
			h.answerAlert(ctx, b, update, "⚠️ Сервис временно недоступен, попробуйте позже.")
			return
		}
		if !created {
			h.answerAlert(ctx, b, update, "✅ Уже получено!")
		} else {
			h.answerAlert(ctx, b, update,
				fmt.Sprintf("✅ Выполнено! 💎 %d алмазов будут начислены через 3 дня.", current.Reward))
		}
		session.Advance()
		h.renderSession(ctx, b, chatID, messageID, session)
	case domain.VerificationPending:
		h.answerAlert(ctx, b, update, "⏳ Проверка выполняется, попробуйте чуть позже.")
	case domain.VerificationUnavailable:
		h.answerAlert(ctx, b, update, "⚠️ Сервис временно недоступен, попробуйте позже.")
	default:
		h.answerAlert(ctx, b, update, "❌ Не выполнено. Подпишитесь и нажмите проверку ещё раз.")
	}
}

func (h *Handler) handleBack(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: update.CallbackQuery.ID})

	user := middleware.GetUser(ctx)
	if user == nil {
		return
	}
	h.aggregator.Drop(user.TelegramID)

	chatID, messageID := callbackOrigin(update)
	b.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    chatID,
		MessageID: messageID,
		Text:      "💎 Выполняй задания и зарабатывай алмазы.",
		ReplyMarkup: tg.InlineKeyboard(
			tg.ButtonRow(tg.InlineButton("💎 Заработать", "tasks")),
			tg.ButtonRow(tg.InlineButton("👤 Профиль", "profile")),
		),
	})
}

// renderSession draws the current browsing screen in place of the origin
// message.
func (h *Handler) renderSession(ctx context.Context, b *bot.Bot, chatID int64, messageID int, session *service.BrowseSession) {
	switch session.State() {
	case service.StateQueueEmpty:
		b.EditMessageText(ctx, &bot.EditMessageTextParams{
			ChatID:    chatID,
			MessageID: messageID,
			Text:      "📭 Сейчас нет доступных заданий.\n\nЗагляните позже — задания появляются в течение дня.",
			ReplyMarkup: tg.InlineKeyboard(
				tg.ButtonRow(tg.InlineButton("🔄 Обновить", "tasks_refresh")),
				tg.ButtonRow(tg.InlineButton("🔙 Назад", "back")),
			),
		})
		return
	case service.StateAllCompleted:
		b.EditMessageText(ctx, &bot.EditMessageTextParams{
			ChatID:    chatID,
			MessageID: messageID,
			Text:      "🎉 Все задания просмотрены!\n\nОбновите список, чтобы проверить новые.",
			ReplyMarkup: tg.InlineKeyboard(
				tg.ButtonRow(tg.InlineButton("🔄 Обновить", "tasks_refresh")),
				tg.ButtonRow(tg.InlineButton("🔙 Назад", "back")),
			),
		})
		return
	}

	current, ok := session.Current()
	if !ok {
		return
	}
	idx, total := session.Position()

	text := fmt.Sprintf(
		"📋 <b>Задание %d из %d</b>\n\n"+
			"📢 Подпишитесь на канал <b>%s</b>\n"+
			"💎 Награда: <b>%d алмазов</b>\n\n"+
			"Награда начисляется через 3 дня после проверки.",
		idx+1, total, current.Channel, current.Reward,
	)

	rows := [][]models.InlineKeyboardButton{
		tg.ButtonRow(tg.URLButton("📢 Перейти", current.Link)),
		tg.ButtonRow(tg.InlineButton("✅ Проверить", "task_check")),
		tg.TaskNavRow(idx, total),
		tg.ButtonRow(
			tg.InlineButton("🔄 Обновить", "tasks_refresh"),
			tg.InlineButton("🔙 Назад", "back"),
		),
	}

	_, err := b.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:      chatID,
		MessageID:   messageID,
		Text:        text,
		ParseMode:   models.ParseModeHTML,
		ReplyMarkup: tg.InlineKeyboard(rows...),
	})
	if err != nil {
		slog.Debug("failed to edit task screen", "chat_id", chatID, "error", err)
	}
}

func (h *Handler) answerAlert(ctx context.Context, b *bot.Bot, update *models.Update, text string) {
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: update.CallbackQuery.ID,
		Text:            text,
		ShowAlert:       true,
	})
}

func callbackOrigin(update *models.Update) (chatID int64, messageID int) {
	if update.CallbackQuery == nil || update.CallbackQuery.Message.Message == nil {
		return 0, 0
	}
	msg := update.CallbackQuery.Message.Message
	return msg.Chat.ID, msg.ID
}

// callbackViewer carries the requester's account profile to the task sources;
// the ad networks expect it with every call.
func callbackViewer(update *models.Update, chatID int64) service.Viewer {
	from := update.CallbackQuery.From
	return service.Viewer{
		ID:           from.ID,
		ChatID:       chatID,
		FirstName:    from.FirstName,
		LanguageCode: from.LanguageCode,
		Premium:      from.IsPremium,
	}
}
