package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"tell-all/pkg/logger"
	"tell-all/pkg/mailer"
	"tell-all/pkg/queue"
	"tell-all/services/notification/internal/repo/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
)

// MockSender is a mock implementation of mailer.Sender
type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, msg mailer.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

type fakeQueue struct {
	pending int
	err     error
}

func (f fakeQueue) GetQueueLength() (int, error) {
	return f.pending, f.err
}

func newUseCase(sender mailer.Sender, q QueueInspector) (MailUseCase, cache.StatsRepository) {
	stats := cache.NewMemoryStatsRepository()
	return NewMailUseCase(sender, stats, q, logger.NewWithWriters(io.Discard, io.Discard)), stats
}

func publicationTask(recipients ...string) queue.MailTask {
	return queue.MailTask{
		Type:       "publication",
		Recipients: recipients,
		Subject:    "Published freemium posts",
		Body:       "Hello, your pending freemium posts have been published",
	}
}

func TestHandleMailTask_OneMessageForAllRecipients(t *testing.T) {
	sender := new(MockSender)
	sender.On("Send", mock.Anything, mailer.Message{
		To:      []string{"a@tell-all.com", "b@tell-all.com"},
		Subject: "Published freemium posts",
		Body:    "Hello, your pending freemium posts have been published",
	}).Return(nil).Once()
	uc, stats := newUseCase(sender, nil)

	err := uc.HandleMailTask(context.Background(), publicationTask("a@tell-all.com", "", "b@tell-all.com", "a@tell-all.com"))

	require.NoError(t, err)
	sender.AssertExpectations(t)
	got, _ := stats.Get(context.Background())
	assert.Equal(t, int64(1), got.Delivered)
	assert.Equal(t, int64(2), got.Recipients)
}

func TestHandleMailTask_NoUsableRecipients(t *testing.T) {
	sender := new(MockSender)
	uc, _ := newUseCase(sender, nil)

	err := uc.HandleMailTask(context.Background(), publicationTask("", "  "))

	assert.ErrorIs(t, err, queue.ErrInvalidTask)
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestHandleMailTask_SMTPFailureIsRetryable(t *testing.T) {
	sender := new(MockSender)
	sender.On("Send", mock.Anything, mock.Anything).Return(errors.New("connection refused"))
	uc, stats := newUseCase(sender, nil)

	err := uc.HandleMailTask(context.Background(), publicationTask("a@tell-all.com"))

	require.Error(t, err)
	assert.NotErrorIs(t, err, queue.ErrInvalidTask)
	got, _ := stats.Get(context.Background())
	assert.Equal(t, int64(1), got.Failed)
	assert.Zero(t, got.Delivered)
}

func TestHandleMailTask_DispatchOutcomes(t *testing.T) {
	sender := new(MockSender)
	sender.On("Send", mock.Anything, mock.Anything).Return(nil)
	uc, _ := newUseCase(sender, nil)
	handler := func(task queue.MailTask) error {
		return uc.HandleMailTask(context.Background(), task)
	}

	assert.Equal(t, queue.Ack, queue.Dispatch([]byte(`{"type":"publication","recipients":["a@tell-all.com"],"subject":"s","body":"b"}`), handler))
	assert.Equal(t, queue.Drop, queue.Dispatch([]byte(`{"type":"publication","recipients":[" "],"subject":"s","body":"b"}`), handler))
	assert.Equal(t, queue.Drop, queue.Dispatch([]byte(`not json`), handler))
}

// addressCheckingSender builds the real message so address errors surface the
// same way they do for the SMTP sender.
type addressCheckingSender struct{}

func (addressCheckingSender) Send(_ context.Context, msg mailer.Message) error {
	_, err := mailer.BuildMessage("noreply@tell-all.com", msg)
	return err
}

func TestHandleMailTask_UndeliverableTasksAreDropped(t *testing.T) {
	tests := []struct {
		name   string
		sender mailer.Sender
	}{
		{"malformed recipient", addressCheckingSender{}},
		{"permanent smtp rejection", senderReturning(fmt.Errorf("send failed: %w", &mail.SendError{Reason: mail.ErrGetRcpts}))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc, stats := newUseCase(tt.sender, nil)
			handler := func(task queue.MailTask) error {
				return uc.HandleMailTask(context.Background(), task)
			}

			outcome := queue.Dispatch([]byte(`{"type":"publication","recipients":["not an address"],"subject":"s","body":"b"}`), handler)

			assert.Equal(t, queue.Drop, outcome)
			got, _ := stats.Get(context.Background())
			assert.Equal(t, int64(1), got.Failed)
		})
	}
}

func senderReturning(err error) mailer.Sender {
	sender := new(MockSender)
	sender.On("Send", mock.Anything, mock.Anything).Return(err)
	return sender
}

func TestStats_IncludesPending(t *testing.T) {
	uc, stats := newUseCase(new(MockSender), fakeQueue{pending: 3})
	require.NoError(t, stats.RecordDelivered(context.Background(), 4))

	got, err := uc.Stats(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, got.Pending)
	assert.Equal(t, int64(4), got.Recipients)
}

func TestStats_QueueErrorIgnored(t *testing.T) {
	uc, _ := newUseCase(new(MockSender), fakeQueue{err: errors.New("channel closed")})

	got, err := uc.Stats(context.Background())

	require.NoError(t, err)
	assert.Zero(t, got.Pending)
}
