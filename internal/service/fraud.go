package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/set-night/starsbot/internal/config"
)

type fraudSubscriptionStore interface {
	CountRecentSubscriptions(ctx context.Context, userID, channelID int64, since time.Time) (int64, error)
	PurgeUserSubscriptions(ctx context.Context, userID int64) error
}

type fraudUserStore interface {
	ApplyFraudPenalty(ctx context.Context, telegramID int64, balancePenalty, counterPenalty int64) error
}

// FraudGuard detects repeated-verification abuse on local channel tasks: a
// verification attempt for a channel whose completion was logged inside the
// trailing window can only come from automation replaying the check, never
// from the natural completion flow.
type FraudGuard struct {
	subs  fraudSubscriptionStore
	users fraudUserStore

	window time.Duration
	now    func() time.Time
}

func NewFraudGuard(subs fraudSubscriptionStore, users fraudUserStore) *FraudGuard {
	return &FraudGuard{
		subs:   subs,
		users:  users,
		window: config.FraudWindow,
		now:    time.Now,
	}
}

// Check reports whether a verification attempt for (user, channel) is
// fraudulent.
func (g *FraudGuard) Check(ctx context.Context, userID, channelID int64) (bool, error) {
	since := g.now().Add(-g.window)
	n, err := g.subs.CountRecentSubscriptions(ctx, userID, channelID, since)
	if err != nil {
		return false, fmt.Errorf("fraud check: %w", err)
	}
	return n >= 1, nil
}

// Penalize applies the blunt deterrent: clamp the balance and counters down
// and purge every completion record of the user, not just the offending
// channel.
func (g *FraudGuard) Penalize(ctx context.Context, userID int64) error {
	if err := g.users.ApplyFraudPenalty(ctx, userID, config.FraudBalancePenalty, config.FraudCounterPenalty); err != nil {
		return fmt.Errorf("fraud penalty: %w", err)
	}
	if err := g.subs.PurgeUserSubscriptions(ctx, userID); err != nil {
		return fmt.Errorf("fraud purge: %w", err)
	}
	slog.Warn("fraud penalty applied", "user_id", userID)
	return nil
}
