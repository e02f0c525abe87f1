package domain

import (
	"fmt"
	"time"
)

// Task is a locally funded subscribe-to-channel campaign. OwnerID is kept as
// a plain id, not a reference: the task must survive deletion of its
// creator's account.
type Task struct {
	ID                 int64
	InviteLink         string
	ChatID             int64
	Reward             int
	IsActive           bool
	OwnerID            *int64
	TargetSubscribers  int
	CurrentSubscribers int
	CreatedAt          time.Time
}

// CompletionRecord fixes one verified subscription of a user to a channel.
// Unique per (user, channel); doubles as the fraud-detection signal.
type CompletionRecord struct {
	ID        int64
	UserID    int64
	ChannelID int64
	CreatedAt time.Time
}

// Task sources, in queue priority order.
const (
	SourceSubgram = "subgram"
	SourceFlyer   = "flyer"
	SourceLocal   = "local"
)

// TaskDescriptor is the unified in-memory shape produced by every task
// source. It lives only for the duration of one browsing session and is
// rebuilt on every queue reload.
type TaskDescriptor struct {
	Source  string
	Link    string
	Reward  int64
	Channel string

	// Local payload
	TaskID int64
	ChatID int64

	// Flyer payload
	ResourceID string
	Signature  string
}

// Key returns the source-qualified identifier used for reward deduplication
// across all sources.
func (d TaskDescriptor) Key() string {
	switch d.Source {
	case SourceSubgram:
		return "subgram:" + d.Link
	case SourceFlyer:
		return "flyer:" + d.ResourceID
	case SourceLocal:
		return fmt.Sprintf("local:%d", d.TaskID)
	}
	return "unknown"
}

// Title is the human-readable label stored alongside the scheduled reward.
func (d TaskDescriptor) Title() string {
	return fmt.Sprintf("задание «Подписка на канал %s»", d.Channel)
}

// VerificationResult classifies the outcome of a source-side completion
// check.
type VerificationResult int

const (
	VerificationNotCompleted VerificationResult = iota
	VerificationCompleted
	// VerificationPending means the provider saw the subscription but defers
	// its final decision (Flyer's waiting/checking states).
	VerificationPending
	VerificationUnavailable
)

func (r VerificationResult) String() string {
	switch r {
	case VerificationCompleted:
		return "completed"
	case VerificationPending:
		return "pending"
	case VerificationNotCompleted:
		return "not_completed"
	case VerificationUnavailable:
		return "unavailable"
	}
	return "unknown"
}
