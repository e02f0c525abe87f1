package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/set-night/starsbot/internal/config"
)

const MaxMessageLen = 4096

// TelegramLogger mirrors important events into a forum-style log chat with
// one topic per event class. Disabled when no log chat is configured.
type TelegramLogger struct {
	bot *bot.Bot
	cfg *config.Config
}

func NewTelegramLogger(b *bot.Bot, cfg *config.Config) *TelegramLogger {
	return &TelegramLogger{bot: b, cfg: cfg}
}

type LogType string

const (
	LogTypeFraud   LogType = "fraud"
	LogTypeTasks   LogType = "tasks"
	LogTypeRewards LogType = "rewards"
)

func (l *TelegramLogger) Log(logType LogType, message string) {
	if l.cfg.LogTelegramChatID == 0 {
		return
	}

	topicID := l.getTopicID(logType)
	if topicID == 0 {
		return
	}

	if len([]rune(message)) > MaxMessageLen {
		message = string([]rune(message)[:MaxMessageLen-20]) + "\n\n... (truncated)"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := l.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:          l.cfg.LogTelegramChatID,
		Text:            message,
		ParseMode:       "Markdown",
		MessageThreadID: topicID,
	})
	if err != nil {
		slog.Error("failed to send telegram log", "type", logType, "error", err)
	}
}

func (l *TelegramLogger) LogFraud(telegramID int64, username string, chatID int64) {
	msg := fmt.Sprintf("🚨 *Fraud Detected*\n\n*User:* `%d` @%s\n*Channel:* `%d`\n*Time:* %s",
		telegramID, username, chatID, time.Now().Format("2006-01-02 15:04:05"))
	l.Log(LogTypeFraud, msg)
}

func (l *TelegramLogger) LogTaskFunded(ownerID, chatID int64, target int, cost int64) {
	msg := fmt.Sprintf("📢 *Task Funded*\n\n*Owner:* `%d`\n*Channel:* `%d`\n*Target:* %d\n*Cost:* %d 💎",
		ownerID, chatID, target, cost)
	l.Log(LogTypeTasks, msg)
}

func (l *TelegramLogger) LogRewardPaid(telegramID, diamonds int64, taskKey string) {
	msg := fmt.Sprintf("💎 *Reward Paid*\n\n*User:* `%d`\n*Task:* `%s`\n*Amount:* %d",
		telegramID, taskKey, diamonds)
	l.Log(LogTypeRewards, msg)
}

func (l *TelegramLogger) getTopicID(logType LogType) int {
	switch logType {
	case LogTypeFraud:
		return l.cfg.LogTopicFraud
	case LogTypeTasks:
		return l.cfg.LogTopicTasks
	case LogTypeRewards:
		return l.cfg.LogTopicRewards
	default:
		return 0
	}
}
