package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/set-night/starsbot/internal/config"
	"github.com/set-night/starsbot/internal/domain"
	"github.com/set-night/starsbot/internal/repository"
)

type localTaskStore interface {
	ActiveTasksForUser(ctx context.Context, userID int64) ([]domain.Task, error)
	GetTask(ctx context.Context, id int64) (domain.Task, error)
	IncrementTaskSubscribers(ctx context.Context, id int64) error
	HasActiveTaskForChannel(ctx context.Context, chatID int64) (bool, error)
	DeactivateTask(ctx context.Context, id int64) error
}

type subscriptionStore interface {
	SubscriptionExists(ctx context.Context, userID, channelID int64) (bool, error)
	LogSubscription(ctx context.Context, userID, channelID int64) error
}

type taskFunder interface {
	FundTask(ctx context.Context, ownerID, cost int64, p repository.CreateTaskParams) (domain.Task, error)
}

// LocalTaskService serves the internally funded subscribe-to-channel tasks:
// the source adapter over the tasks table plus the funding flow that creates
// new campaigns from a user's balance.
type LocalTaskService struct {
	tasks  localTaskStore
	subs   subscriptionStore
	funder taskFunder
	fraud  *FraudGuard
	chat   ChatClient
}

func NewLocalTaskService(tasks localTaskStore, subs subscriptionStore, funder taskFunder, fraud *FraudGuard, chat ChatClient) *LocalTaskService {
	return &LocalTaskService{tasks: tasks, subs: subs, funder: funder, fraud: fraud, chat: chat}
}

func (s *LocalTaskService) Name() string { return domain.SourceLocal }

func (s *LocalTaskService) ListAvailable(ctx context.Context, v Viewer) ([]domain.TaskDescriptor, error) {
	tasks, err := s.tasks.ActiveTasksForUser(ctx, v.ID)
	if err != nil {
		return nil, err
	}

	descriptors := make([]domain.TaskDescriptor, 0, len(tasks))
	for _, t := range tasks {
		title, err := s.chat.ChatTitle(ctx, t.ChatID)
		if err != nil || title == "" {
			title = "Канал"
		}
		descriptors = append(descriptors, domain.TaskDescriptor{
			Source:  domain.SourceLocal,
			Link:    t.InviteLink,
			Reward:  int64(t.Reward),
			Channel: title,
			TaskID:  t.ID,
			ChatID:  t.ChatID,
		})
	}
	return descriptors, nil
}

// Verify checks a local task completion. Order matters: the fraud window is
// inspected before the already-claimed gate so replayed checks inside the
// window are penalized instead of silently absorbed.
func (s *LocalTaskService) Verify(ctx context.Context, v Viewer, d domain.TaskDescriptor) (domain.VerificationResult, error) {
	userID := v.ID

	task, err := s.tasks.GetTask(ctx, d.TaskID)
	if err != nil {
		return domain.VerificationNotCompleted, err
	}
	if !task.IsActive {
		return domain.VerificationNotCompleted, domain.ErrTaskNotFound
	}

	fraudulent, err := s.fraud.Check(ctx, userID, task.ChatID)
	if err != nil {
		return domain.VerificationNotCompleted, err
	}
	if fraudulent {
		if err := s.fraud.Penalize(ctx, userID); err != nil {
			slog.Error("failed to apply fraud penalty", "user_id", userID, "error", err)
		}
		return domain.VerificationNotCompleted, domain.ErrFraudDetected
	}

	claimed, err := s.subs.SubscriptionExists(ctx, userID, task.ChatID)
	if err != nil {
		return domain.VerificationNotCompleted, err
	}
	if claimed {
		return domain.VerificationNotCompleted, domain.ErrTaskAlreadyDone
	}

	status, err := s.chat.MemberStatus(ctx, task.ChatID, userID)
	if err != nil {
		slog.Debug("membership check failed", "user_id", userID, "chat_id", task.ChatID, "error", err)
		return domain.VerificationNotCompleted, nil
	}
	if !memberStatusOK(status) {
		return domain.VerificationNotCompleted, nil
	}

	if err := s.subs.LogSubscription(ctx, userID, task.ChatID); err != nil {
		return domain.VerificationNotCompleted, err
	}
	if err := s.tasks.IncrementTaskSubscribers(ctx, task.ID); err != nil {
		slog.Error("failed to bump task subscribers", "task_id", task.ID, "error", err)
	}

	return domain.VerificationCompleted, nil
}

// FundingCost is the price of a campaign for the given subscriber target.
func FundingCost(target int) int64 {
	return int64(target) * config.PerPersonCost
}

// Fund validates the channel and creates a funded task, deducting the cost
// from the owner's balance atomically.
func (s *LocalTaskService) Fund(ctx context.Context, ownerID int64, channelUsername, inviteLink string, target int) (domain.Task, error) {
	if target < config.MinTargetSubs || target > config.MaxTargetSubs {
		return domain.Task{}, domain.ErrInvalidTarget
	}

	chat, err := s.chat.ChatByUsername(ctx, channelUsername)
	if err != nil {
		return domain.Task{}, fmt.Errorf("resolve channel: %w", err)
	}
	if chat.Type != "channel" && chat.Type != "supergroup" {
		return domain.Task{}, domain.ErrTaskNotFound
	}

	admin, err := s.chat.IsBotAdmin(ctx, chat.ID)
	if err != nil {
		return domain.Task{}, fmt.Errorf("check bot rights: %w", err)
	}
	if !admin {
		return domain.Task{}, domain.ErrNotChannelAdmin
	}

	exists, err := s.tasks.HasActiveTaskForChannel(ctx, chat.ID)
	if err != nil {
		return domain.Task{}, err
	}
	if exists {
		return domain.Task{}, domain.ErrTaskExists
	}

	owner := ownerID
	task, err := s.funder.FundTask(ctx, ownerID, FundingCost(target), repository.CreateTaskParams{
		InviteLink:        inviteLink,
		ChatID:            chat.ID,
		Reward:            config.LocalTaskReward,
		OwnerID:           &owner,
		TargetSubscribers: target,
	})
	if err != nil {
		return domain.Task{}, err
	}

	slog.Info("task funded", "task_id", task.ID, "owner_id", ownerID, "target", target)
	return task, nil
}

// Deactivate is the admin-facing kill switch for a campaign.
func (s *LocalTaskService) Deactivate(ctx context.Context, taskID int64) error {
	return s.tasks.DeactivateTask(ctx, taskID)
}
