package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/set-night/starsbot/internal/domain"
)

type dueRewardStore interface {
	DueRewards(ctx context.Context, now time.Time) ([]domain.PendingReward, error)
}

// rewardAudit mirrors the admin-channel logger; a nil audit disables it.
type rewardAudit interface {
	LogRewardPaid(telegramID, diamonds int64, taskKey string)
}

// SettlementWorker is the single background loop maturing due rewards. One
// failing row never aborts the batch, and the loop itself only stops with
// the process.
type SettlementWorker struct {
	ledger   *RewardLedger
	rewards  dueRewardStore
	notifier Notifier
	audit    rewardAudit

	period time.Duration
	now    func() time.Time
}

func NewSettlementWorker(ledger *RewardLedger, rewards dueRewardStore, notifier Notifier, audit rewardAudit, period time.Duration) *SettlementWorker {
	return &SettlementWorker{
		ledger:   ledger,
		rewards:  rewards,
		notifier: notifier,
		audit:    audit,
		period:   period,
		now:      time.Now,
	}
}

// Start launches the loop; it runs until ctx is cancelled.
func (w *SettlementWorker) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(w.period)
		defer ticker.Stop()

		slog.Info("settlement worker started", "period", w.period)
		for {
			select {
			case <-ctx.Done():
				slog.Info("settlement worker stopped")
				return
			case <-ticker.C:
				if err := w.RunOnce(ctx); err != nil {
					slog.Error("settlement tick failed", "error", err)
				}
			}
		}
	}()
}

// RunOnce matures every due reward. Exported so tests and admin tooling can
// drive a tick directly.
func (w *SettlementWorker) RunOnce(ctx context.Context) error {
	due, err := w.rewards.DueRewards(ctx, w.now())
	if err != nil {
		return fmt.Errorf("select due rewards: %w", err)
	}

	for _, reward := range due {
		credited, err := w.ledger.Mature(ctx, reward.ID)
		if err != nil {
			slog.Error("reward maturation failed", "reward_id", reward.ID, "error", err)
			continue
		}
		if !credited {
			continue
		}

		title := reward.TaskTitle
		if title == "" {
			title = "задание"
		}
		text := fmt.Sprintf("💎 +%d алмазов за %s", reward.Diamonds, title)
		if err := w.notifier.Notify(ctx, reward.UserID, text); err != nil {
			slog.Debug("reward notification failed", "user_id", reward.UserID, "error", err)
		}
		if w.audit != nil {
			w.audit.LogRewardPaid(reward.UserID, reward.Diamonds, reward.TaskKey)
		}
	}
	return nil
}
