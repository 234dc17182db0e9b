package usecase

import (
	"context"
	"fmt"

	"tell-all/pkg/logger"
	"tell-all/pkg/mailer"
	"tell-all/pkg/queue"
	"tell-all/services/notification/internal/entity"
	"tell-all/services/notification/internal/repo/cache"
)

// QueueInspector reports how many mail tasks are waiting.
type QueueInspector interface {
	GetQueueLength() (int, error)
}

type MailUseCase interface {
	// HandleMailTask delivers one aggregated message. Errors wrapping
	// queue.ErrInvalidTask mean the task can never succeed.
	HandleMailTask(ctx context.Context, task queue.MailTask) error
	Stats(ctx context.Context) (entity.Stats, error)
}

type mailUseCase struct {
	sender mailer.Sender
	stats  cache.StatsRepository
	queue  QueueInspector
	logger *logger.Logger
}

func NewMailUseCase(sender mailer.Sender, stats cache.StatsRepository, queue QueueInspector, logger *logger.Logger) MailUseCase {
	return &mailUseCase{
		sender: sender,
		stats:  stats,
		queue:  queue,
		logger: logger,
	}
}

func (uc *mailUseCase) HandleMailTask(ctx context.Context, task queue.MailTask) error {
	recipients := mailer.CleanRecipients(task.Recipients)
	if len(recipients) == 0 {
		uc.logger.Warn("[MAIL] Dropping %s task %q: no usable recipients", task.Type, task.Subject)
		return fmt.Errorf("%w: no usable recipients", queue.ErrInvalidTask)
	}

	err := uc.sender.Send(ctx, mailer.Message{
		To:      recipients,
		Subject: task.Subject,
		Body:    task.Body,
	})
	if err != nil {
		if statErr := uc.stats.RecordFailed(ctx); statErr != nil {
			uc.logger.Warn("[MAIL] %v", statErr)
		}
		if mailer.IsPermanent(err) {
			uc.logger.Warn("[MAIL] Dropping undeliverable %s mail %q: %v", task.Type, task.Subject, err)
			return fmt.Errorf("%w: %v", queue.ErrInvalidTask, err)
		}
		uc.logger.Error("[MAIL] Failed to deliver %s mail to %d recipients: %v", task.Type, len(recipients), err)
		return err
	}

	if statErr := uc.stats.RecordDelivered(ctx, len(recipients)); statErr != nil {
		uc.logger.Warn("[MAIL] %v", statErr)
	}
	uc.logger.Info("[MAIL] Delivered %s mail %q to %d recipients", task.Type, task.Subject, len(recipients))
	return nil
}

func (uc *mailUseCase) Stats(ctx context.Context) (entity.Stats, error) {
	stats, err := uc.stats.Get(ctx)
	if err != nil {
		return entity.Stats{}, err
	}
	if uc.queue != nil {
		pending, err := uc.queue.GetQueueLength()
		if err != nil {
			uc.logger.Warn("[MAIL] Failed to inspect mail queue: %v", err)
		} else {
			stats.Pending = pending
		}
	}
	return stats, nil
}
