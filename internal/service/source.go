package service

import (
	"context"

	"github.com/set-night/starsbot/internal/domain"
)

// Viewer identifies the requesting user the way the providers expect to see
// them: ad networks price tasks by account profile, so the name, language and
// premium flag travel with every list and verify call.
type Viewer struct {
	ID           int64
	ChatID       int64
	FirstName    string
	LanguageCode string
	Premium      bool
}

// Source normalizes one task provider into the common descriptor shape and
// knows how to verify completion against it. Provider failures never leave
// the adapter as raw transport errors: ListAvailable degrades to an empty
// list, Verify reports VerificationUnavailable.
type Source interface {
	Name() string
	ListAvailable(ctx context.Context, v Viewer) ([]domain.TaskDescriptor, error)
	Verify(ctx context.Context, v Viewer, d domain.TaskDescriptor) (domain.VerificationResult, error)
}

// ChatInfo is the slice of chat metadata the engine consumes.
type ChatInfo struct {
	ID    int64
	Title string
	Type  string
}

// ChatClient is the narrow contract over the messaging transport.
type ChatClient interface {
	MemberStatus(ctx context.Context, chatID, userID int64) (string, error)
	ChatTitle(ctx context.Context, chatID int64) (string, error)
	ChatByUsername(ctx context.Context, username string) (ChatInfo, error)
	IsBotAdmin(ctx context.Context, chatID int64) (bool, error)
}

// Notifier delivers a plain text message to a user. All callers treat
// delivery as best-effort.
type Notifier interface {
	Notify(ctx context.Context, userID int64, text string) error
}

// rewardKeyStore exposes the set of task keys a user already holds ledger
// rows for; remote adapters use it to hide claimed tasks.
type rewardKeyStore interface {
	UserTaskKeys(ctx context.Context, userID int64, prefix string) (map[string]struct{}, error)
}

// Membership states counting as "currently in the channel". A restricted
// member is still present, so it qualifies.
func memberStatusOK(status string) bool {
	switch status {
	case "member", "administrator", "creator", "restricted":
		return true
	}
	return false
}
