package handler

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Register registers all command and callback handlers on the bot instance.
func (h *Handler) Register() {
	// Commands
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, h.handleStart)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/profile", bot.MatchTypePrefix, h.handleProfile)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/addtask", bot.MatchTypePrefix, h.handleAddTask)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/rewards", bot.MatchTypePrefix, h.handleRewards)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/deltask", bot.MatchTypePrefix, h.handleDelTask)

	// Task browsing callbacks
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "tasks_refresh", bot.MatchTypeExact, h.handleTasksRefresh)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "tasks", bot.MatchTypeExact, h.handleTasks)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "task_check", bot.MatchTypeExact, h.handleTaskCheck)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "task_next", bot.MatchTypeExact, h.handleTaskNext)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "task_prev", bot.MatchTypeExact, h.handleTaskPrev)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "back", bot.MatchTypeExact, h.handleBack)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "cur", bot.MatchTypeExact, h.handleNoop)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "profile", bot.MatchTypeExact, h.handleProfile)

	// Add-task flow callbacks
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "cancel_task_creation", bot.MatchTypeExact, h.handleCancelTaskCreation)
}

// handleNoop acknowledges non-interactive inline buttons.
func (h *Handler) handleNoop(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery != nil {
		b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
			CallbackQueryID: update.CallbackQuery.ID,
		})
	}
}
