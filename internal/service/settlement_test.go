package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/set-night/starsbot/internal/domain"
)

type fakeDueStore struct {
	due []domain.PendingReward
	err error
}

func (f *fakeDueStore) DueRewards(_ context.Context, _ time.Time) ([]domain.PendingReward, error) {
	return f.due, f.err
}

type fakeRewardAudit struct {
	paid []string
}

func (f *fakeRewardAudit) LogRewardPaid(telegramID, diamonds int64, taskKey string) {
	f.paid = append(f.paid, taskKey)
}

func TestRunOnceMaturesAndNotifies(t *testing.T) {
	rewards := newFakeRewardStore()
	user := &domain.User{TelegramID: 7}
	users := newFakeUserStore(user)
	ledger := newTestLedger(rewards, users)

	ledger.Schedule(context.Background(), 7, "local:1", "задание «Подписка на канал X»", 2)

	due := &fakeDueStore{due: []domain.PendingReward{*rewards.rewards[1]}}
	notifier := &fakeNotifier{}
	audit := &fakeRewardAudit{}
	w := NewSettlementWorker(ledger, due, notifier, audit, time.Minute)

	if err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}

	if user.Balance != 2 {
		t.Errorf("balance = %d, want 2", user.Balance)
	}
	if len(notifier.sent) != 1 {
		t.Fatalf("notifications = %d, want 1", len(notifier.sent))
	}
	if !strings.Contains(notifier.sent[0], "+2") {
		t.Errorf("notification = %q, want credited amount", notifier.sent[0])
	}
	if len(audit.paid) != 1 || audit.paid[0] != "local:1" {
		t.Errorf("audit log = %v, want one local:1 entry", audit.paid)
	}

	// The same batch replayed must not credit, notify or log again.
	if err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("second RunOnce() error = %v", err)
	}
	if user.Balance != 2 || len(notifier.sent) != 1 || len(audit.paid) != 1 {
		t.Errorf("replay changed state: balance %d, notifications %d, audit %d",
			user.Balance, len(notifier.sent), len(audit.paid))
	}
}

func TestRunOncePerRowIsolation(t *testing.T) {
	rewards := newFakeRewardStore()
	user := &domain.User{TelegramID: 7}
	users := newFakeUserStore(user)
	ledger := newTestLedger(rewards, users)

	ledger.Schedule(context.Background(), 7, "local:1", "задание", 2)

	// A row whose reward no longer exists fails Mature but must not stop the
	// batch.
	due := &fakeDueStore{due: []domain.PendingReward{
		{ID: 999, UserID: 7, Diamonds: 2},
		*rewards.rewards[1],
	}}
	notifier := &fakeNotifier{}
	w := NewSettlementWorker(ledger, due, notifier, nil, time.Minute)

	if err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if user.Balance != 2 {
		t.Errorf("balance = %d, want 2 (second row still matured)", user.Balance)
	}
}

func TestRunOnceSelectFailure(t *testing.T) {
	ledger := newTestLedger(newFakeRewardStore(), newFakeUserStore())
	due := &fakeDueStore{err: errors.New("db down")}
	w := NewSettlementWorker(ledger, due, &fakeNotifier{}, nil, time.Minute)

	if err := w.RunOnce(context.Background()); err == nil {
		t.Error("RunOnce() error = nil, want select failure surfaced")
	}
}
