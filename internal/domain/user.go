package domain

import "time"

type User struct {
	TelegramID             int64
	Username               string
	Balance                int64
	ReferrerID             *int64
	TasksCompleted         int
	CumulativeTaskDiamonds int64
	ExchangeUnlocked       bool
	ReferralIsActive       bool
	ReferralCount          int
	CreatedAt              time.Time
	LastActive             time.Time
}

// HasReferrer reports whether a referrer was ever attached. The referrer
// reference is first-write-wins and never changes afterwards.
func (u *User) HasReferrer() bool {
	return u.ReferrerID != nil
}
