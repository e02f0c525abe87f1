package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/set-night/starsbot/internal/config"
	"github.com/set-night/starsbot/internal/domain"
	"github.com/set-night/starsbot/internal/repository"
)

type rewardStore interface {
	CreatePendingReward(ctx context.Context, p repository.CreateRewardParams) (bool, error)
	GetReward(ctx context.Context, id int64) (domain.PendingReward, error)
	ClaimReward(ctx context.Context, id int64) (bool, error)
	RewardCounts(ctx context.Context, userID int64) (pending, completed int64, err error)
}

type ledgerUserStore interface {
	GetUser(ctx context.Context, telegramID int64) (domain.User, error)
	CreditTaskReward(ctx context.Context, telegramID, diamonds int64) (bool, error)
	AddBalance(ctx context.Context, telegramID, amount int64) (bool, error)
}

// RewardLedger owns the pending-reward rows: it schedules delayed rewards at
// verification time and matures them after the delay. The unique
// (user, task_key) constraint in the store is the sole dedup mechanism, so
// replays across process restarts and concurrent checks collapse safely.
type RewardLedger struct {
	rewards  rewardStore
	users    ledgerUserStore
	referral *ReferralEngine

	delay time.Duration
	now   func() time.Time
}

func NewRewardLedger(rewards rewardStore, users ledgerUserStore, referral *ReferralEngine) *RewardLedger {
	return &RewardLedger{
		rewards:  rewards,
		users:    users,
		referral: referral,
		delay:    config.RewardDelay,
		now:      time.Now,
	}
}

// Schedule records a verified completion as a pending reward maturing after
// the fixed delay. Returns created=false when the (user, task_key) pair
// already has a ledger row; callers treat that as an already-claimed no-op.
func (l *RewardLedger) Schedule(ctx context.Context, userID int64, taskKey, title string, diamonds int64) (bool, error) {
	if taskKey == "" || diamonds <= 0 {
		return false, nil
	}

	verifiedAt := l.now()
	created, err := l.rewards.CreatePendingReward(ctx, repository.CreateRewardParams{
		UserID:      userID,
		TaskKey:     taskKey,
		TaskTitle:   title,
		Diamonds:    diamonds,
		ScheduledAt: verifiedAt.Add(l.delay),
	})
	if err != nil {
		return false, fmt.Errorf("schedule reward: %w", err)
	}
	if created {
		slog.Info("reward scheduled", "user_id", userID, "task_key", taskKey, "diamonds", diamonds)
	}
	return created, nil
}

// Mature transitions one reward pending -> completed and credits the user.
// Idempotent: the conditional status claim makes repeated calls no-ops. A
// reward whose user no longer exists is completed without payout instead of
// being retried forever. Returns whether this call performed the credit.
func (l *RewardLedger) Mature(ctx context.Context, rewardID int64) (bool, error) {
	reward, err := l.rewards.GetReward(ctx, rewardID)
	if err != nil {
		return false, fmt.Errorf("load reward %d: %w", rewardID, err)
	}

	claimed, err := l.rewards.ClaimReward(ctx, reward.ID)
	if err != nil {
		return false, fmt.Errorf("claim reward %d: %w", rewardID, err)
	}
	if !claimed {
		return false, nil
	}

	credited, err := l.users.CreditTaskReward(ctx, reward.UserID, reward.Diamonds)
	if err != nil {
		return false, fmt.Errorf("credit reward %d: %w", rewardID, err)
	}
	if !credited {
		// Owner is gone; the row stays completed so it is never retried.
		slog.Warn("reward completed without payout, user missing",
			"reward_id", reward.ID, "user_id", reward.UserID)
		return false, nil
	}

	l.settleReferral(ctx, reward)
	return true, nil
}

// settleReferral pays the standing 10% commission for activated referrals,
// or runs the one-time activation for the rest. Referral failures never fail
// the maturation itself.
func (l *RewardLedger) settleReferral(ctx context.Context, reward domain.PendingReward) {
	user, err := l.users.GetUser(ctx, reward.UserID)
	if err != nil {
		slog.Error("referral settlement: load user", "user_id", reward.UserID, "error", err)
		return
	}
	if !user.HasReferrer() {
		return
	}

	if !user.ReferralIsActive {
		l.referral.Apply(ctx, &user, reward.Diamonds)
		return
	}

	commission := Commission(reward.Diamonds)
	if commission <= 0 {
		return
	}
	if _, err := l.users.AddBalance(ctx, *user.ReferrerID, commission); err != nil {
		slog.Error("referral commission failed",
			"referrer_id", *user.ReferrerID, "user_id", user.TelegramID, "error", err)
		return
	}
	slog.Info("referral commission paid",
		"referrer_id", *user.ReferrerID, "user_id", user.TelegramID, "diamonds", commission)
}

// Counts reports per-user pending/completed reward totals for support
// tooling.
func (l *RewardLedger) Counts(ctx context.Context, userID int64) (pending, completed int64, err error) {
	return l.rewards.RewardCounts(ctx, userID)
}
