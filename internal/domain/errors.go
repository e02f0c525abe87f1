package domain

import "errors"

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrUserNotFound        = errors.New("user not found")
	ErrTaskNotFound        = errors.New("task not found")
	ErrTaskAlreadyDone     = errors.New("task already completed")
	ErrTaskExists          = errors.New("active task already exists for channel")
	ErrFraudDetected       = errors.New("fraudulent verification attempt")
	ErrServiceUnavailable  = errors.New("task provider unavailable")
	ErrProviderHighRisk    = errors.New("provider flagged account as high risk")
	ErrInvalidTarget       = errors.New("invalid target subscriber count")
	ErrNoActiveTask        = errors.New("no active task in session")
	ErrNotChannelAdmin     = errors.New("bot is not channel admin")
)
