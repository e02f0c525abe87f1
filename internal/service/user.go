package service

import (
	"context"
	"log/slog"

	"github.com/set-night/starsbot/internal/domain"
)

type userStore interface {
	GetUser(ctx context.Context, telegramID int64) (domain.User, error)
	UserExists(ctx context.Context, telegramID int64) (bool, error)
	CreateUser(ctx context.Context, telegramID int64, username string, referrerID *int64) (domain.User, error)
	TouchUser(ctx context.Context, telegramID int64, username string) error
	AttachReferrer(ctx context.Context, telegramID, referrerID int64) (bool, error)
	CountReferrals(ctx context.Context, telegramID int64) (active, waiting int64, err error)
}

// UserService owns user lifecycle: registration, activity tracking and the
// referrer attachment from deep links.
type UserService struct {
	users userStore
}

func NewUserService(users userStore) *UserService {
	return &UserService{users: users}
}

// FindOrCreate upserts the user row and refreshes the username. Safe to call
// on every update.
func (s *UserService) FindOrCreate(ctx context.Context, telegramID int64, username string) (domain.User, error) {
	user, err := s.users.CreateUser(ctx, telegramID, username, nil)
	if err != nil {
		return domain.User{}, err
	}
	if user.Username != username {
		if err := s.users.TouchUser(ctx, telegramID, username); err != nil {
			slog.Debug("failed to refresh username", "user_id", telegramID, "error", err)
		}
		user.Username = username
	}
	return user, nil
}

// AttachReferrer binds the user to a referrer from a /start deep link.
// First-write-wins; self-referrals and unknown referrers are ignored
// silently, matching the forgiving deep-link UX.
func (s *UserService) AttachReferrer(ctx context.Context, userID, referrerID int64) (bool, error) {
	if userID == referrerID {
		return false, nil
	}
	exists, err := s.users.UserExists(ctx, referrerID)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, nil
	}

	attached, err := s.users.AttachReferrer(ctx, userID, referrerID)
	if err != nil {
		return false, err
	}
	if attached {
		slog.Info("referrer attached", "user_id", userID, "referrer_id", referrerID)
	}
	return attached, nil
}

func (s *UserService) Get(ctx context.Context, telegramID int64) (domain.User, error) {
	return s.users.GetUser(ctx, telegramID)
}

// ReferralStats reports active and not-yet-active referral counts for the
// profile screen.
func (s *UserService) ReferralStats(ctx context.Context, telegramID int64) (active, waiting int64, err error) {
	return s.users.CountReferrals(ctx, telegramID)
}
