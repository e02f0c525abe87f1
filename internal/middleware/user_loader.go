package middleware

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/starsbot/internal/domain"
	"github.com/set-night/starsbot/internal/service"
)

type ctxKey string

const UserKey ctxKey = "user"

// GetUser extracts the loaded user from context.
func GetUser(ctx context.Context) *domain.User {
	u, ok := ctx.Value(UserKey).(*domain.User)
	if !ok {
		return nil
	}
	return u
}

// UserLoader returns middleware that upserts the sender and loads the user
// row into context. Referrer attachment happens in the /start handler, not
// here.
func UserLoader(userService *service.UserService) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			var from *models.User
			if update.Message != nil {
				from = update.Message.From
			} else if update.CallbackQuery != nil {
				from = &update.CallbackQuery.From
			}

			if from == nil || from.IsBot {
				next(ctx, b, update)
				return
			}

			user, err := userService.FindOrCreate(ctx, from.ID, from.Username)
			if err == nil {
				ctx = context.WithValue(ctx, UserKey, &user)
			}

			next(ctx, b, update)
		}
	}
}
