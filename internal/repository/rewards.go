package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/set-night/starsbot/internal/domain"
)

const rewardColumns = `id, user_id, task_key, task_title, diamonds, status,
	completed_at, scheduled_at, created_at`

func scanReward(row pgx.Row) (domain.PendingReward, error) {
	var r domain.PendingReward
	err := row.Scan(
		&r.ID, &r.UserID, &r.TaskKey, &r.TaskTitle, &r.Diamonds, &r.Status,
		&r.CompletedAt, &r.ScheduledAt, &r.CreatedAt,
	)
	return r, err
}

type CreateRewardParams struct {
	UserID      int64
	TaskKey     string
	TaskTitle   string
	Diamonds    int64
	ScheduledAt time.Time
}

// CreatePendingReward inserts the ledger row; the unique (user_id, task_key)
// constraint makes concurrent and replayed claims collapse into one row.
// Returns false when the pair already exists.
func (q *Queries) CreatePendingReward(ctx context.Context, p CreateRewardParams) (bool, error) {
	tag, err := q.db.Exec(ctx, `
		INSERT INTO pending_rewards (user_id, task_key, task_title, diamonds, status, scheduled_at)
		VALUES ($1, $2, $3, $4, 'pending', $5)
		ON CONFLICT (user_id, task_key) DO NOTHING`,
		p.UserID, p.TaskKey, p.TaskTitle, p.Diamonds, p.ScheduledAt)
	if err != nil {
		return false, fmt.Errorf("create pending reward: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (q *Queries) GetReward(ctx context.Context, id int64) (domain.PendingReward, error) {
	row := q.db.QueryRow(ctx, `SELECT `+rewardColumns+` FROM pending_rewards WHERE id = $1`, id)
	r, err := scanReward(row)
	if err == pgx.ErrNoRows {
		return domain.PendingReward{}, domain.ErrTaskNotFound
	}
	if err != nil {
		return domain.PendingReward{}, fmt.Errorf("get reward: %w", err)
	}
	return r, nil
}

// UserTaskKeys returns the set of task keys the user already has ledger rows
// for, optionally narrowed to one source prefix.
func (q *Queries) UserTaskKeys(ctx context.Context, userID int64, prefix string) (map[string]struct{}, error) {
	rows, err := q.db.Query(ctx, `
		SELECT task_key FROM pending_rewards
		WHERE user_id = $1 AND task_key LIKE $2 || '%'`, userID, prefix)
	if err != nil {
		return nil, fmt.Errorf("user task keys: %w", err)
	}
	defer rows.Close()

	keys := make(map[string]struct{})
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan task key: %w", err)
		}
		keys[key] = struct{}{}
	}
	return keys, rows.Err()
}

func (q *Queries) DueRewards(ctx context.Context, now time.Time) ([]domain.PendingReward, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+rewardColumns+` FROM pending_rewards
		WHERE status = 'pending' AND scheduled_at <= $1
		ORDER BY scheduled_at`, now)
	if err != nil {
		return nil, fmt.Errorf("due rewards: %w", err)
	}
	defer rows.Close()

	var rewards []domain.PendingReward
	for rows.Next() {
		r, err := scanReward(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reward: %w", err)
		}
		rewards = append(rewards, r)
	}
	return rewards, rows.Err()
}

// ClaimReward transitions pending -> completed. The conditional update makes
// maturation idempotent across repeated ticks and concurrent workers.
func (q *Queries) ClaimReward(ctx context.Context, id int64) (bool, error) {
	tag, err := q.db.Exec(ctx, `
		UPDATE pending_rewards SET status = 'completed'
		WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return false, fmt.Errorf("claim reward: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// RewardCounts reports per-user pending/completed totals for support tooling.
func (q *Queries) RewardCounts(ctx context.Context, userID int64) (pending, completed int64, err error) {
	err = q.db.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'completed')
		FROM pending_rewards WHERE user_id = $1`, userID).Scan(&pending, &completed)
	if err != nil {
		return 0, 0, fmt.Errorf("reward counts: %w", err)
	}
	return pending, completed, nil
}
