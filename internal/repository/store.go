package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/set-night/starsbot/internal/domain"
)

// Store couples the query layer with the pool so multi-statement operations
// can run transactionally.
type Store struct {
	*Queries
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{Queries: New(pool), pool: pool}
}

// FundTask deducts the campaign cost and creates the task as one atomic
// unit. A failed insert rolls the deduction back, so the owner's balance is
// never left partially applied.
func (s *Store) FundTask(ctx context.Context, ownerID, cost int64, p CreateTaskParams) (domain.Task, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Task{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	qtx := s.Queries.WithTx(tx)

	if err := qtx.DeductBalance(ctx, ownerID, cost); err != nil {
		return domain.Task{}, err
	}

	task, err := qtx.CreateTask(ctx, p)
	if err != nil {
		return domain.Task{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Task{}, fmt.Errorf("commit: %w", err)
	}
	return task, nil
}
