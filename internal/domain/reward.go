package domain

import "time"

type RewardStatus string

const (
	RewardPending   RewardStatus = "pending"
	RewardCompleted RewardStatus = "completed"
	RewardFailed    RewardStatus = "failed"
)

// PendingReward is the ledger entry for one verified task completion.
// Exactly one row per (user, task_key) ever exists; the unique constraint in
// the store is the dedup gate, not in-process locking.
type PendingReward struct {
	ID          int64
	UserID      int64
	TaskKey     string
	TaskTitle   string
	Diamonds    int64
	Status      RewardStatus
	CompletedAt time.Time
	ScheduledAt time.Time
	CreatedAt   time.Time
}
