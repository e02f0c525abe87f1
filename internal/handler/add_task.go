package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/starsbot/internal/config"
	"github.com/set-night/starsbot/internal/domain"
	"github.com/set-night/starsbot/internal/middleware"
	tg "github.com/set-night/starsbot/internal/telegram"
)

type addTaskStep int

const (
	stepChannel addTaskStep = iota
	stepTarget
)

type addTaskState struct {
	Step            addTaskStep
	ChannelUsername string
	InviteLink      string
}

// addTaskFlow keeps the per-user conversational state of task creation. The
// state is in-process only; a restart simply drops unfinished dialogs.
// States are stored and returned by value, so handlers mutate a private copy
// and publish it back through set; the map is only touched under the mutex.
type addTaskFlow struct {
	mu     sync.Mutex
	states map[int64]addTaskState
}

func newAddTaskFlow() *addTaskFlow {
	return &addTaskFlow{states: make(map[int64]addTaskState)}
}

func (f *addTaskFlow) get(userID int64) (addTaskState, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.states[userID]
	return s, ok
}

func (f *addTaskFlow) set(userID int64, s addTaskState) {
	f.mu.Lock()
	f.states[userID] = s
	f.mu.Unlock()
}

func (f *addTaskFlow) drop(userID int64) {
	f.mu.Lock()
	delete(f.states, userID)
	f.mu.Unlock()
}

func (h *Handler) handleAddTask(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Chat.Type != "private" {
		return
	}
	user := middleware.GetUser(ctx)
	if user == nil {
		return
	}

	h.addTask.set(user.TelegramID, addTaskState{Step: stepChannel})

	text := fmt.Sprintf(
		"📢 <b>Продвижение канала</b>\n\n"+
			"Стоимость: <b>%d алмаза за подписчика</b>\n"+
			"Цель: от %d до %d подписчиков\n"+
			"Бот должен быть администратором канала.\n\n"+
			"Отправьте ссылку на канал (@username или t.me/...):",
		config.PerPersonCost, config.MinTargetSubs, config.MaxTargetSubs,
	)
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    update.Message.Chat.ID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
		ReplyMarkup: tg.InlineKeyboard(
			tg.ButtonRow(tg.InlineButton("❌ Отмена", "cancel_task_creation")),
		),
	})
}

func (h *Handler) handleCancelTaskCreation(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: update.CallbackQuery.ID})

	user := middleware.GetUser(ctx)
	if user == nil {
		return
	}
	h.addTask.drop(user.TelegramID)

	chatID, messageID := callbackOrigin(update)
	b.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    chatID,
		MessageID: messageID,
		Text:      "Создание задания отменено.",
	})
}

// HandleTextPrivate consumes free text in private chats; only the add-task
// dialog cares about it.
func (h *Handler) HandleTextPrivate(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	user := middleware.GetUser(ctx)
	if user == nil {
		return
	}

	state, ok := h.addTask.get(user.TelegramID)
	if !ok {
		return
	}

	chatID := update.Message.Chat.ID
	text := strings.TrimSpace(update.Message.Text)

	switch state.Step {
	case stepChannel:
		username, ok := parseChannelRef(text)
		if !ok {
			b.SendMessage(ctx, &bot.SendMessageParams{
				ChatID: chatID,
				Text:   "❌ Не похоже на ссылку. Отправьте @username или t.me/username канала.",
			})
			return
		}
		state.ChannelUsername = username
		state.InviteLink = "https://t.me/" + username
		state.Step = stepTarget
		h.addTask.set(user.TelegramID, state)

		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text: fmt.Sprintf("Сколько подписчиков нужно? (от %d до %d)",
				config.MinTargetSubs, config.MaxTargetSubs),
			ReplyMarkup: tg.InlineKeyboard(
				tg.ButtonRow(tg.InlineButton("❌ Отмена", "cancel_task_creation")),
			),
		})

	case stepTarget:
		target, err := strconv.Atoi(text)
		if err != nil || target < config.MinTargetSubs || target > config.MaxTargetSubs {
			b.SendMessage(ctx, &bot.SendMessageParams{
				ChatID: chatID,
				Text: fmt.Sprintf("❌ Введите число от %d до %d.",
					config.MinTargetSubs, config.MaxTargetSubs),
			})
			return
		}
		h.finishTaskCreation(ctx, b, chatID, user.TelegramID, state, target)
	}
}

func (h *Handler) finishTaskCreation(ctx context.Context, b *bot.Bot, chatID, userID int64, state addTaskState, target int) {
	task, err := h.localTasks.Fund(ctx, userID, state.ChannelUsername, state.InviteLink, target)
	if err != nil {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   fundErrorText(err, target),
		})
		if !errors.Is(err, domain.ErrInsufficientBalance) &&
			!errors.Is(err, domain.ErrTaskExists) &&
			!errors.Is(err, domain.ErrNotChannelAdmin) &&
			!errors.Is(err, domain.ErrInvalidTarget) {
			slog.Error("task funding failed", "user_id", userID, "error", err)
		}
		h.addTask.drop(userID)
		return
	}

	h.addTask.drop(userID)

	cost := int64(target) * config.PerPersonCost
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text: fmt.Sprintf(
			"✅ <b>Задание создано!</b>\n\n"+
				"📢 Канал: %s\n"+
				"🎯 Цель: %d подписчиков\n"+
				"💎 Списано: %d алмазов",
			state.InviteLink, target, cost),
		ParseMode: models.ParseModeHTML,
	})

	h.tgLogger.LogTaskFunded(userID, task.ChatID, target, cost)
}

func fundErrorText(err error, target int) string {
	switch {
	case errors.Is(err, domain.ErrInsufficientBalance):
		return fmt.Sprintf("❌ Недостаточно алмазов. Нужно %d.", int64(target)*config.PerPersonCost)
	case errors.Is(err, domain.ErrTaskExists):
		return "❌ Для этого канала уже есть активное задание."
	case errors.Is(err, domain.ErrNotChannelAdmin):
		return "❌ Бот не администратор канала. Добавьте бота в администраторы и попробуйте снова."
	case errors.Is(err, domain.ErrInvalidTarget):
		return fmt.Sprintf("❌ Цель должна быть от %d до %d подписчиков.",
			config.MinTargetSubs, config.MaxTargetSubs)
	}
	return "❌ Не удалось создать задание. Проверьте ссылку и попробуйте позже."
}

// parseChannelRef extracts a channel username from @name, t.me/name or
// https://t.me/name forms.
func parseChannelRef(s string) (string, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "t.me/")
	s = strings.TrimPrefix(s, "@")
	if i := strings.IndexAny(s, "/?"); i >= 0 {
		s = s[:i]
	}
	if s == "" || strings.ContainsAny(s, " \t") {
		return "", false
	}
	return s, true
}
