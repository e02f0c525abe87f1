package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/set-night/starsbot/internal/domain"
	"github.com/set-night/starsbot/internal/repository"
)

type fakeRewardStore struct {
	rewards map[int64]*domain.PendingReward
	pairs   map[string]int64
	nextID  int64
}

func newFakeRewardStore() *fakeRewardStore {
	return &fakeRewardStore{
		rewards: make(map[int64]*domain.PendingReward),
		pairs:   make(map[string]int64),
	}
}

func (f *fakeRewardStore) CreatePendingReward(_ context.Context, p repository.CreateRewardParams) (bool, error) {
	pair := fmt.Sprintf("%d|%s", p.UserID, p.TaskKey)
	if _, ok := f.pairs[pair]; ok {
		return false, nil
	}
	f.nextID++
	f.pairs[pair] = f.nextID
	f.rewards[f.nextID] = &domain.PendingReward{
		ID:          f.nextID,
		UserID:      p.UserID,
		TaskKey:     p.TaskKey,
		TaskTitle:   p.TaskTitle,
		Diamonds:    p.Diamonds,
		Status:      domain.RewardPending,
		ScheduledAt: p.ScheduledAt,
	}
	return true, nil
}

func (f *fakeRewardStore) GetReward(_ context.Context, id int64) (domain.PendingReward, error) {
	r, ok := f.rewards[id]
	if !ok {
		return domain.PendingReward{}, fmt.Errorf("reward %d not found", id)
	}
	return *r, nil
}

func (f *fakeRewardStore) ClaimReward(_ context.Context, id int64) (bool, error) {
	r, ok := f.rewards[id]
	if !ok || r.Status != domain.RewardPending {
		return false, nil
	}
	r.Status = domain.RewardCompleted
	return true, nil
}

func (f *fakeRewardStore) RewardCounts(_ context.Context, userID int64) (pending, completed int64, err error) {
	for _, r := range f.rewards {
		if r.UserID != userID {
			continue
		}
		switch r.Status {
		case domain.RewardPending:
			pending++
		case domain.RewardCompleted:
			completed++
		}
	}
	return pending, completed, nil
}

type fakeUserStore struct {
	users map[int64]*domain.User

	activations int
	payouts     map[int64]int64
}

func newFakeUserStore(users ...*domain.User) *fakeUserStore {
	f := &fakeUserStore{
		users:   make(map[int64]*domain.User),
		payouts: make(map[int64]int64),
	}
	for _, u := range users {
		f.users[u.TelegramID] = u
	}
	return f
}

func (f *fakeUserStore) GetUser(_ context.Context, id int64) (domain.User, error) {
	u, ok := f.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return *u, nil
}

func (f *fakeUserStore) CreditTaskReward(_ context.Context, id, diamonds int64) (bool, error) {
	u, ok := f.users[id]
	if !ok {
		return false, nil
	}
	u.Balance += diamonds
	u.TasksCompleted++
	u.CumulativeTaskDiamonds += diamonds
	return true, nil
}

func (f *fakeUserStore) AddBalance(_ context.Context, id, amount int64) (bool, error) {
	u, ok := f.users[id]
	if !ok {
		return false, nil
	}
	u.Balance += amount
	return true, nil
}

func (f *fakeUserStore) ActivateReferral(_ context.Context, id int64) (bool, error) {
	u, ok := f.users[id]
	if !ok || u.ReferralIsActive {
		return false, nil
	}
	u.ReferralIsActive = true
	f.activations++
	return true, nil
}

func (f *fakeUserStore) PayReferralActivation(_ context.Context, referrerID, amount int64) (bool, error) {
	u, ok := f.users[referrerID]
	if !ok {
		return false, nil
	}
	u.Balance += amount
	u.ReferralCount++
	f.payouts[referrerID] += amount
	return true, nil
}

type fakeNotifier struct {
	sent []string
}

func (f *fakeNotifier) Notify(_ context.Context, userID int64, text string) error {
	f.sent = append(f.sent, fmt.Sprintf("%d:%s", userID, text))
	return nil
}

func newTestLedger(rewards *fakeRewardStore, users *fakeUserStore) *RewardLedger {
	referral := NewReferralEngine(users, &fakeNotifier{})
	l := NewRewardLedger(rewards, users, referral)
	l.now = func() time.Time { return time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC) }
	return l
}

func TestScheduleDeduplicates(t *testing.T) {
	rewards := newFakeRewardStore()
	users := newFakeUserStore(&domain.User{TelegramID: 1})
	l := newTestLedger(rewards, users)

	created, err := l.Schedule(context.Background(), 1, "subgram:https://t.me/ch", "задание", 2)
	if err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}
	if !created {
		t.Fatal("first Schedule() created = false, want true")
	}

	created, err = l.Schedule(context.Background(), 1, "subgram:https://t.me/ch", "задание", 2)
	if err != nil {
		t.Fatalf("second Schedule() error = %v", err)
	}
	if created {
		t.Fatal("second Schedule() created = true, want false")
	}

	r := rewards.rewards[1]
	wantAt := l.now().Add(l.delay)
	if !r.ScheduledAt.Equal(wantAt) {
		t.Errorf("ScheduledAt = %v, want %v", r.ScheduledAt, wantAt)
	}
}

func TestScheduleRejectsInvalidInput(t *testing.T) {
	l := newTestLedger(newFakeRewardStore(), newFakeUserStore())

	tests := []struct {
		name     string
		key      string
		diamonds int64
	}{
		{"empty key", "", 2},
		{"zero reward", "local:1", 0},
		{"negative reward", "local:1", -5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			created, err := l.Schedule(context.Background(), 1, tt.key, "задание", tt.diamonds)
			if err != nil {
				t.Fatalf("Schedule() error = %v", err)
			}
			if created {
				t.Error("Schedule() created = true, want false")
			}
		})
	}
}

func TestMatureCreditsOnce(t *testing.T) {
	rewards := newFakeRewardStore()
	user := &domain.User{TelegramID: 7}
	users := newFakeUserStore(user)
	l := newTestLedger(rewards, users)

	l.Schedule(context.Background(), 7, "flyer:42", "задание", 5)

	credited, err := l.Mature(context.Background(), 1)
	if err != nil {
		t.Fatalf("Mature() error = %v", err)
	}
	if !credited {
		t.Fatal("first Mature() credited = false, want true")
	}
	if user.Balance != 5 || user.TasksCompleted != 1 || user.CumulativeTaskDiamonds != 5 {
		t.Errorf("user after credit = balance %d, tasks %d, cumulative %d; want 5, 1, 5",
			user.Balance, user.TasksCompleted, user.CumulativeTaskDiamonds)
	}

	credited, err = l.Mature(context.Background(), 1)
	if err != nil {
		t.Fatalf("second Mature() error = %v", err)
	}
	if credited {
		t.Fatal("second Mature() credited = true, want false")
	}
	if user.Balance != 5 {
		t.Errorf("balance after replay = %d, want 5", user.Balance)
	}
}

func TestMatureMissingUserCompletesWithoutPayout(t *testing.T) {
	rewards := newFakeRewardStore()
	users := newFakeUserStore(&domain.User{TelegramID: 7})
	l := newTestLedger(rewards, users)

	l.Schedule(context.Background(), 7, "local:9", "задание", 2)
	delete(users.users, 7)

	credited, err := l.Mature(context.Background(), 1)
	if err != nil {
		t.Fatalf("Mature() error = %v", err)
	}
	if credited {
		t.Error("Mature() credited = true for missing user, want false")
	}
	if rewards.rewards[1].Status != domain.RewardCompleted {
		t.Errorf("reward status = %s, want completed (never retried)", rewards.rewards[1].Status)
	}
}

func TestMaturePaysStandingCommission(t *testing.T) {
	rewards := newFakeRewardStore()
	referrer := &domain.User{TelegramID: 1, Balance: 100}
	referrerID := referrer.TelegramID
	referred := &domain.User{TelegramID: 2, ReferrerID: &referrerID, ReferralIsActive: true}
	users := newFakeUserStore(referrer, referred)
	l := newTestLedger(rewards, users)

	l.Schedule(context.Background(), 2, "subgram:https://t.me/x", "задание", 25)

	if _, err := l.Mature(context.Background(), 1); err != nil {
		t.Fatalf("Mature() error = %v", err)
	}

	// 10% of 25, round half up.
	if referrer.Balance != 103 {
		t.Errorf("referrer balance = %d, want 103", referrer.Balance)
	}
	if users.activations != 0 {
		t.Errorf("activations = %d, want 0 for already-active referral", users.activations)
	}
}
