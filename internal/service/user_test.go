package service

import (
	"context"
	"testing"

	"github.com/set-night/starsbot/internal/domain"
)

type fakeRegistry struct {
	users    map[int64]*domain.User
	attached map[int64]int64
}

func newFakeRegistry(ids ...int64) *fakeRegistry {
	f := &fakeRegistry{
		users:    make(map[int64]*domain.User),
		attached: make(map[int64]int64),
	}
	for _, id := range ids {
		f.users[id] = &domain.User{TelegramID: id}
	}
	return f
}

func (f *fakeRegistry) GetUser(_ context.Context, id int64) (domain.User, error) {
	u, ok := f.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return *u, nil
}

func (f *fakeRegistry) UserExists(_ context.Context, id int64) (bool, error) {
	_, ok := f.users[id]
	return ok, nil
}

func (f *fakeRegistry) CreateUser(_ context.Context, id int64, username string, referrerID *int64) (domain.User, error) {
	if u, ok := f.users[id]; ok {
		return *u, nil
	}
	u := &domain.User{TelegramID: id, Username: username, ReferrerID: referrerID}
	f.users[id] = u
	return *u, nil
}

func (f *fakeRegistry) TouchUser(_ context.Context, id int64, username string) error {
	if u, ok := f.users[id]; ok {
		u.Username = username
	}
	return nil
}

func (f *fakeRegistry) AttachReferrer(_ context.Context, id, referrerID int64) (bool, error) {
	u, ok := f.users[id]
	if !ok || u.ReferrerID != nil || id == referrerID {
		return false, nil
	}
	u.ReferrerID = &referrerID
	f.attached[id] = referrerID
	return true, nil
}

func (f *fakeRegistry) CountReferrals(_ context.Context, id int64) (active, waiting int64, err error) {
	for _, u := range f.users {
		if u.ReferrerID == nil || *u.ReferrerID != id {
			continue
		}
		if u.ReferralIsActive {
			active++
		} else {
			waiting++
		}
	}
	return active, waiting, nil
}

func TestFindOrCreateUpserts(t *testing.T) {
	reg := newFakeRegistry()
	s := NewUserService(reg)

	u, err := s.FindOrCreate(context.Background(), 7, "alice")
	if err != nil {
		t.Fatalf("FindOrCreate() error = %v", err)
	}
	if u.TelegramID != 7 || u.Username != "alice" {
		t.Errorf("user = %+v", u)
	}

	// Second call with a renamed account refreshes the username.
	u, err = s.FindOrCreate(context.Background(), 7, "alice_new")
	if err != nil {
		t.Fatalf("second FindOrCreate() error = %v", err)
	}
	if u.Username != "alice_new" {
		t.Errorf("username = %s, want refreshed", u.Username)
	}
	if len(reg.users) != 1 {
		t.Errorf("users = %d, want 1", len(reg.users))
	}
}

func TestAttachReferrerRules(t *testing.T) {
	tests := []struct {
		name       string
		userID     int64
		referrerID int64
		seed       []int64
		want       bool
	}{
		{"valid", 2, 1, []int64{1, 2}, true},
		{"self referral", 2, 2, []int64{2}, false},
		{"unknown referrer", 2, 99, []int64{2}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := newFakeRegistry(tt.seed...)
			s := NewUserService(reg)

			attached, err := s.AttachReferrer(context.Background(), tt.userID, tt.referrerID)
			if err != nil {
				t.Fatalf("AttachReferrer() error = %v", err)
			}
			if attached != tt.want {
				t.Errorf("AttachReferrer() = %v, want %v", attached, tt.want)
			}
		})
	}
}

func TestAttachReferrerFirstWriteWins(t *testing.T) {
	reg := newFakeRegistry(1, 2, 3)
	s := NewUserService(reg)

	if attached, _ := s.AttachReferrer(context.Background(), 3, 1); !attached {
		t.Fatal("first attach rejected")
	}
	if attached, _ := s.AttachReferrer(context.Background(), 3, 2); attached {
		t.Error("second attach succeeded, want first-write-wins")
	}
	if got := reg.attached[3]; got != 1 {
		t.Errorf("referrer = %d, want 1", got)
	}
}
