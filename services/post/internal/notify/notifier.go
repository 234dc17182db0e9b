// Package notify hands aggregated author notifications to the mail pipeline.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tell-all/pkg/logger"
	"tell-all/pkg/mailer"
	"tell-all/pkg/queue"
)

const publicationTaskType = "publication"

var ErrQueueUnavailable = errors.New("mail queue is not connected")

type Notifier interface {
	Notify(ctx context.Context, recipients []string, subject, body string) error
}

// MailPublisher is the part of the queue client the notifier needs.
type MailPublisher interface {
	PublishMailTask(ctx context.Context, task queue.MailTask) error
}

// QueueNotifier turns one Notify call into one mail task addressed to every
// recipient.
type QueueNotifier struct {
	publisher MailPublisher
	logger    *logger.Logger
}

func NewQueueNotifier(publisher MailPublisher, logger *logger.Logger) *QueueNotifier {
	return &QueueNotifier{publisher: publisher, logger: logger}
}

func (n *QueueNotifier) Notify(ctx context.Context, recipients []string, subject, body string) error {
	recipients = mailer.CleanRecipients(recipients)
	if len(recipients) == 0 {
		return nil
	}
	if n.publisher == nil {
		return ErrQueueUnavailable
	}

	task := queue.MailTask{
		Type:       publicationTaskType,
		Recipients: recipients,
		Subject:    subject,
		Body:       body,
		Priority:   5,
		CreatedAt:  time.Now().UTC(),
	}
	if err := n.publisher.PublishMailTask(ctx, task); err != nil {
		return fmt.Errorf("failed to queue notification: %w", err)
	}

	n.logger.Info("[NOTIFY] queued %q for %d recipients", subject, len(recipients))
	return nil
}
