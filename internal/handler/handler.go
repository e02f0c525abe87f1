package handler

import (
	"github.com/go-telegram/bot"
	"github.com/set-night/starsbot/internal/config"
	"github.com/set-night/starsbot/internal/service"
	"github.com/set-night/starsbot/internal/telegram"
)

// Handler holds all dependencies needed by command and callback handlers.
type Handler struct {
	bot         *bot.Bot
	cfg         *config.Config
	userService *service.UserService
	aggregator  *service.Aggregator
	ledger      *service.RewardLedger
	localTasks  *service.LocalTaskService
	tgLogger    *telegram.TelegramLogger
	botUsername string

	addTask *addTaskFlow
}

// Deps contains all dependencies required to construct a Handler.
type Deps struct {
	Bot         *bot.Bot
	Cfg         *config.Config
	UserService *service.UserService
	Aggregator  *service.Aggregator
	Ledger      *service.RewardLedger
	LocalTasks  *service.LocalTaskService
	TgLogger    *telegram.TelegramLogger
	BotUsername string
}

// New creates a new Handler from the provided dependencies.
func New(deps Deps) *Handler {
	return &Handler{
		bot:         deps.Bot,
		cfg:         deps.Cfg,
		userService: deps.UserService,
		aggregator:  deps.Aggregator,
		ledger:      deps.Ledger,
		localTasks:  deps.LocalTasks,
		tgLogger:    deps.TgLogger,
		botUsername: deps.BotUsername,
		addTask:     newAddTaskFlow(),
	}
}
