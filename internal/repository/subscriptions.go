package repository

import (
	"context"
	"fmt"
	"time"
)

func (q *Queries) SubscriptionExists(ctx context.Context, userID, channelID int64) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM user_subscriptions WHERE user_id = $1 AND channel_id = $2
		)`, userID, channelID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("subscription exists: %w", err)
	}
	return exists, nil
}

// CountRecentSubscriptions counts completion records for the pair inside the
// trailing fraud window.
func (q *Queries) CountRecentSubscriptions(ctx context.Context, userID, channelID int64, since time.Time) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM user_subscriptions
		WHERE user_id = $1 AND channel_id = $2 AND created_at > $3`,
		userID, channelID, since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count recent subscriptions: %w", err)
	}
	return n, nil
}

func (q *Queries) LogSubscription(ctx context.Context, userID, channelID int64) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO user_subscriptions (user_id, channel_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, channel_id) DO NOTHING`, userID, channelID)
	if err != nil {
		return fmt.Errorf("log subscription: %w", err)
	}
	return nil
}

// PurgeUserSubscriptions deletes every completion record of the user. Part of
// the fraud penalty: the deterrent is deliberately blunt.
func (q *Queries) PurgeUserSubscriptions(ctx context.Context, userID int64) error {
	_, err := q.db.Exec(ctx, `DELETE FROM user_subscriptions WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("purge subscriptions: %w", err)
	}
	return nil
}
