package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/set-night/starsbot/internal/domain"
)

const taskColumns = `id, invite_link, chat_id, reward, is_active, owner_id,
	target_subscribers, current_subscribers, created_at`

func scanTask(row pgx.Row) (domain.Task, error) {
	var t domain.Task
	err := row.Scan(
		&t.ID, &t.InviteLink, &t.ChatID, &t.Reward, &t.IsActive,
		&t.OwnerID, &t.TargetSubscribers, &t.CurrentSubscribers, &t.CreatedAt,
	)
	return t, err
}

func (q *Queries) GetTask(ctx context.Context, id int64) (domain.Task, error) {
	row := q.db.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	t, err := scanTask(row)
	if err == pgx.ErrNoRows {
		return domain.Task{}, domain.ErrTaskNotFound
	}
	if err != nil {
		return domain.Task{}, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// ActiveTasksForUser lists active tasks whose channel the user has not
// already logged a completion for.
func (q *Queries) ActiveTasksForUser(ctx context.Context, userID int64) ([]domain.Task, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE is_active
		  AND chat_id NOT IN (
			SELECT channel_id FROM user_subscriptions WHERE user_id = $1
		  )
		ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("active tasks: %w", err)
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (q *Queries) HasActiveTaskForChannel(ctx context.Context, chatID int64) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM tasks WHERE chat_id = $1 AND is_active)`, chatID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("active task for channel: %w", err)
	}
	return exists, nil
}

type CreateTaskParams struct {
	InviteLink        string
	ChatID            int64
	Reward            int
	OwnerID           *int64
	TargetSubscribers int
}

func (q *Queries) CreateTask(ctx context.Context, p CreateTaskParams) (domain.Task, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO tasks (invite_link, chat_id, reward, owner_id, target_subscribers)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+taskColumns,
		p.InviteLink, p.ChatID, p.Reward, p.OwnerID, p.TargetSubscribers)
	t, err := scanTask(row)
	if err != nil {
		return domain.Task{}, fmt.Errorf("create task: %w", err)
	}
	return t, nil
}

// IncrementTaskSubscribers bumps the counter and deactivates the task in the
// same statement once the funded target is reached.
func (q *Queries) IncrementTaskSubscribers(ctx context.Context, id int64) error {
	_, err := q.db.Exec(ctx, `
		UPDATE tasks SET
			current_subscribers = current_subscribers + 1,
			is_active = current_subscribers + 1 < target_subscribers
		WHERE id = $1 AND is_active`, id)
	if err != nil {
		return fmt.Errorf("increment subscribers: %w", err)
	}
	return nil
}

func (q *Queries) DeactivateTask(ctx context.Context, id int64) error {
	tag, err := q.db.Exec(ctx, `UPDATE tasks SET is_active = FALSE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivate task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}
