package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/set-night/starsbot/internal/domain"
)

const userColumns = `telegram_id, username, balance, referrer_id, tasks_completed,
	cumulative_task_diamonds, exchange_unlocked, referral_is_active,
	referral_count, created_at, last_active`

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.TelegramID, &u.Username, &u.Balance, &u.ReferrerID,
		&u.TasksCompleted, &u.CumulativeTaskDiamonds, &u.ExchangeUnlocked,
		&u.ReferralIsActive, &u.ReferralCount, &u.CreatedAt, &u.LastActive,
	)
	return u, err
}

func (q *Queries) GetUser(ctx context.Context, telegramID int64) (domain.User, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE telegram_id = $1`, telegramID)
	u, err := scanUser(row)
	if err == pgx.ErrNoRows {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (q *Queries) UserExists(ctx context.Context, telegramID int64) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE telegram_id = $1)`, telegramID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("user exists: %w", err)
	}
	return exists, nil
}

func (q *Queries) CreateUser(ctx context.Context, telegramID int64, username string, referrerID *int64) (domain.User, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO users (telegram_id, username, referrer_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (telegram_id) DO UPDATE SET last_active = now()
		RETURNING `+userColumns, telegramID, username, referrerID)
	u, err := scanUser(row)
	if err != nil {
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (q *Queries) TouchUser(ctx context.Context, telegramID int64, username string) error {
	_, err := q.db.Exec(ctx,
		`UPDATE users SET username = $2, last_active = now() WHERE telegram_id = $1`,
		telegramID, username)
	if err != nil {
		return fmt.Errorf("touch user: %w", err)
	}
	return nil
}

// AttachReferrer sets the referrer reference, first-write-wins. Returns false
// when a referrer was already attached.
func (q *Queries) AttachReferrer(ctx context.Context, telegramID, referrerID int64) (bool, error) {
	tag, err := q.db.Exec(ctx, `
		UPDATE users SET referrer_id = $2
		WHERE telegram_id = $1 AND referrer_id IS NULL AND telegram_id <> $2`,
		telegramID, referrerID)
	if err != nil {
		return false, fmt.Errorf("attach referrer: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// CreditTaskReward applies the maturation credit as one atomic update.
// Returns false when the user row no longer exists.
func (q *Queries) CreditTaskReward(ctx context.Context, telegramID, diamonds int64) (bool, error) {
	tag, err := q.db.Exec(ctx, `
		UPDATE users SET
			balance = balance + $2,
			tasks_completed = tasks_completed + 1,
			cumulative_task_diamonds = cumulative_task_diamonds + $2
		WHERE telegram_id = $1`, telegramID, diamonds)
	if err != nil {
		return false, fmt.Errorf("credit task reward: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (q *Queries) AddBalance(ctx context.Context, telegramID, amount int64) (bool, error) {
	tag, err := q.db.Exec(ctx,
		`UPDATE users SET balance = balance + $2 WHERE telegram_id = $1`,
		telegramID, amount)
	if err != nil {
		return false, fmt.Errorf("add balance: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeductBalance subtracts amount only when the balance covers it, so
// concurrent spenders cannot drive the balance negative.
func (q *Queries) DeductBalance(ctx context.Context, telegramID, amount int64) error {
	tag, err := q.db.Exec(ctx,
		`UPDATE users SET balance = balance - $2 WHERE telegram_id = $1 AND balance >= $2`,
		telegramID, amount)
	if err != nil {
		return fmt.Errorf("deduct balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInsufficientBalance
	}
	return nil
}

// ApplyFraudPenalty clamps the balance and task counters down, flooring all
// of them at zero.
func (q *Queries) ApplyFraudPenalty(ctx context.Context, telegramID int64, balancePenalty, counterPenalty int64) error {
	_, err := q.db.Exec(ctx, `
		UPDATE users SET
			balance = GREATEST(balance - $2, 0),
			tasks_completed = GREATEST(tasks_completed - $3, 0),
			cumulative_task_diamonds = GREATEST(cumulative_task_diamonds - $3, 0)
		WHERE telegram_id = $1`, telegramID, balancePenalty, counterPenalty)
	if err != nil {
		return fmt.Errorf("apply fraud penalty: %w", err)
	}
	return nil
}

// ActivateReferral flips referral_is_active exactly once; the conditional
// update is the idempotency gate for the activation bonus.
func (q *Queries) ActivateReferral(ctx context.Context, telegramID int64) (bool, error) {
	tag, err := q.db.Exec(ctx,
		`UPDATE users SET referral_is_active = TRUE
		 WHERE telegram_id = $1 AND NOT referral_is_active`, telegramID)
	if err != nil {
		return false, fmt.Errorf("activate referral: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// PayReferralActivation credits the referrer and bumps the referral counter
// in one statement.
func (q *Queries) PayReferralActivation(ctx context.Context, referrerID, amount int64) (bool, error) {
	tag, err := q.db.Exec(ctx, `
		UPDATE users SET balance = balance + $2, referral_count = referral_count + 1
		WHERE telegram_id = $1`, referrerID, amount)
	if err != nil {
		return false, fmt.Errorf("pay referral activation: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (q *Queries) CountReferrals(ctx context.Context, telegramID int64) (active, waiting int64, err error) {
	err = q.db.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE referral_is_active),
			COUNT(*) FILTER (WHERE NOT referral_is_active)
		FROM users WHERE referrer_id = $1`, telegramID).Scan(&active, &waiting)
	if err != nil {
		return 0, 0, fmt.Errorf("count referrals: %w", err)
	}
	return active, waiting, nil
}
