package telegram

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/starsbot/internal/service"
)

// Client adapts *bot.Bot to the narrow chat and notification contracts the
// services consume. botID is resolved once at startup via GetMe.
type Client struct {
	bot   *bot.Bot
	botID int64
}

func NewClient(b *bot.Bot, botID int64) *Client {
	return &Client{bot: b, botID: botID}
}

// MemberStatus resolves a user's membership status in a chat to its wire
// string ("member", "left", ...).
func (c *Client) MemberStatus(ctx context.Context, chatID, userID int64) (string, error) {
	member, err := c.bot.GetChatMember(ctx, &bot.GetChatMemberParams{
		ChatID: chatID,
		UserID: userID,
	})
	if err != nil {
		return "", fmt.Errorf("get chat member: %w", err)
	}
	return memberStatus(member), nil
}

func memberStatus(m *models.ChatMember) string {
	switch {
	case m == nil:
		return ""
	case m.Owner != nil:
		return "creator"
	case m.Administrator != nil:
		return "administrator"
	case m.Member != nil:
		return "member"
	case m.Restricted != nil:
		return "restricted"
	case m.Left != nil:
		return "left"
	case m.Banned != nil:
		return "kicked"
	}
	return ""
}

func (c *Client) ChatTitle(ctx context.Context, chatID int64) (string, error) {
	chat, err := c.bot.GetChat(ctx, &bot.GetChatParams{ChatID: chatID})
	if err != nil {
		return "", fmt.Errorf("get chat: %w", err)
	}
	return chat.Title, nil
}

// ChatByUsername resolves @username (or a bare username) to chat metadata.
func (c *Client) ChatByUsername(ctx context.Context, username string) (service.ChatInfo, error) {
	if len(username) > 0 && username[0] != '@' {
		username = "@" + username
	}
	chat, err := c.bot.GetChat(ctx, &bot.GetChatParams{ChatID: username})
	if err != nil {
		return service.ChatInfo{}, fmt.Errorf("get chat %s: %w", username, err)
	}
	return service.ChatInfo{
		ID:    chat.ID,
		Title: chat.Title,
		Type:  string(chat.Type),
	}, nil
}

// IsBotAdmin reports whether the bot itself holds admin rights in the chat.
func (c *Client) IsBotAdmin(ctx context.Context, chatID int64) (bool, error) {
	status, err := c.MemberStatus(ctx, chatID, c.botID)
	if err != nil {
		return false, err
	}
	return status == "administrator" || status == "creator", nil
}

// Notify sends a plain HTML message to a user's private chat.
func (c *Client) Notify(ctx context.Context, userID int64, text string) error {
	_, err := c.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    userID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		return fmt.Errorf("notify %d: %w", userID, err)
	}
	return nil
}
