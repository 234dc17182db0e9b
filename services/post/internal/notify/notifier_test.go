package notify

import (
	"context"
	"errors"
	"io"
	"testing"

	"tell-all/pkg/logger"
	"tell-all/pkg/queue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishMailTask(ctx context.Context, task queue.MailTask) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func quietLogger() *logger.Logger {
	return logger.NewWithWriters(io.Discard, io.Discard)
}

func TestQueueNotifier_OneTaskForAllRecipients(t *testing.T) {
	pub := new(MockPublisher)
	pub.On("PublishMailTask", mock.Anything, mock.MatchedBy(func(task queue.MailTask) bool {
		return task.Subject == "Published premium posts" &&
			len(task.Recipients) == 2 &&
			task.Body == "Hello, your pending premium posts have been published"
	})).Return(nil).Once()

	n := NewQueueNotifier(pub, quietLogger())
	err := n.Notify(context.Background(),
		[]string{"admin1@tell-all.com", "", "admin2@tell-all.com", "admin1@tell-all.com"},
		"Published premium posts",
		"Hello, your pending premium posts have been published")

	require.NoError(t, err)
	pub.AssertExpectations(t)
}

func TestQueueNotifier_NoRecipientsSendsNothing(t *testing.T) {
	pub := new(MockPublisher)

	n := NewQueueNotifier(pub, quietLogger())
	require.NoError(t, n.Notify(context.Background(), []string{"", " "}, "s", "b"))

	pub.AssertNotCalled(t, "PublishMailTask", mock.Anything, mock.Anything)
}

func TestQueueNotifier_PublishFailure(t *testing.T) {
	pub := new(MockPublisher)
	pub.On("PublishMailTask", mock.Anything, mock.Anything).Return(errors.New("channel closed"))

	n := NewQueueNotifier(pub, quietLogger())
	err := n.Notify(context.Background(), []string{"a@tell-all.com"}, "s", "b")

	assert.Error(t, err)
}

func TestQueueNotifier_WithoutQueue(t *testing.T) {
	n := NewQueueNotifier(nil, quietLogger())

	err := n.Notify(context.Background(), []string{"a@tell-all.com"}, "s", "b")
	assert.ErrorIs(t, err, ErrQueueUnavailable)
}
