package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/set-night/starsbot/internal/config"
	"github.com/set-night/starsbot/internal/domain"
	"github.com/shopspring/decimal"
)

type referralUserStore interface {
	ActivateReferral(ctx context.Context, telegramID int64) (bool, error)
	PayReferralActivation(ctx context.Context, referrerID, amount int64) (bool, error)
}

// Commission is the referrer's cut of one task reward: 10%, rounded half up
// to whole diamonds.
func Commission(reward int64) int64 {
	return decimal.NewFromInt(reward).
		Mul(decimal.NewFromFloat(config.ReferralCommissionRate)).
		Round(0).
		IntPart()
}

// ReferralEngine governs the one-time activation transition of a referred
// user. The recurring 10% commission after activation is a standing rule
// applied where rewards are matured, not here.
type ReferralEngine struct {
	users    referralUserStore
	notifier Notifier
}

func NewReferralEngine(users referralUserStore, notifier Notifier) *ReferralEngine {
	return &ReferralEngine{users: users, notifier: notifier}
}

// Apply activates the referral once the user has completed enough tasks and
// pays the referrer the activation bonus plus the commission of the
// triggering reward. The conditional flag flip is the idempotency gate: a
// lost race means another maturation already paid.
func (e *ReferralEngine) Apply(ctx context.Context, user *domain.User, taskReward int64) {
	if user.ReferralIsActive || user.TasksCompleted < config.ReferralActivationTasks || !user.HasReferrer() {
		return
	}

	activated, err := e.users.ActivateReferral(ctx, user.TelegramID)
	if err != nil {
		slog.Error("referral activation failed", "user_id", user.TelegramID, "error", err)
		return
	}
	if !activated {
		return
	}

	bonus := Commission(taskReward)
	total := config.ReferralActivationBonus + bonus
	referrerID := *user.ReferrerID

	paid, err := e.users.PayReferralActivation(ctx, referrerID, total)
	if err != nil {
		slog.Error("referral activation payout failed",
			"referrer_id", referrerID, "user_id", user.TelegramID, "error", err)
		return
	}
	if !paid {
		slog.Warn("referrer missing, activation bonus dropped",
			"referrer_id", referrerID, "user_id", user.TelegramID)
		return
	}

	slog.Info("referral activated",
		"user_id", user.TelegramID, "referrer_id", referrerID, "diamonds", total)

	name := user.Username
	if name == "" {
		name = fmt.Sprintf("ID%d", user.TelegramID)
	}
	text := fmt.Sprintf(
		"🎉 <b>Ваш реферал стал активным!</b>\n\n"+
			"👤 Реферал: @%s\n"+
			"💎 Награда за активацию: +%d алмазов\n"+
			"💰 Бонус от задания: +%d алмазов\n\n"+
			"Теперь вы будете получать 10%% от всех его наград!",
		name, config.ReferralActivationBonus, bonus)
	if err := e.notifier.Notify(ctx, referrerID, text); err != nil {
		slog.Warn("failed to notify referrer", "referrer_id", referrerID, "error", err)
	}
}
