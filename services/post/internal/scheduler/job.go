// Package scheduler promotes scheduled drafts to published, one job per tier.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"tell-all/pkg/clock"
	"tell-all/pkg/logger"
	"tell-all/services/post/internal/entity"
	"tell-all/services/post/internal/notify"
)

const dayLayout = "2006-01-02"

// PostStore promotes a tier's eligible posts for a day and returns what it selected.
type PostStore interface {
	PublishDue(ctx context.Context, postType entity.PostType, day time.Time) ([]*entity.Post, int64, error)
}

// Locker keeps two scheduler replicas from running the same tier at once.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

type Job interface {
	Name() string
	Run(ctx context.Context) (*RunResult, error)
}

type RunResult struct {
	Type       entity.PostType
	Day        time.Time
	Eligible   int
	Published  int64
	Recipients []string
	Notified   bool
	NotifyErr  error
	// Skipped is set when another replica held the lock for this tier and day.
	Skipped bool
}

type PublishJob struct {
	Type     entity.PostType
	Repo     PostStore
	Notifier notify.Notifier
	Clock    clock.Clock
	Locker   Locker
	LockTTL  time.Duration
	Logger   *logger.Logger
}

func NewPublishJob(postType entity.PostType, repo PostStore, notifier notify.Notifier, clk clock.Clock, log *logger.Logger) *PublishJob {
	return &PublishJob{
		Type:     postType,
		Repo:     repo,
		Notifier: notifier,
		Clock:    clk,
		Logger:   log,
	}
}

// WithLock guards every run with key publish:<tier>:<day>.
func (j *PublishJob) WithLock(locker Locker, ttl time.Duration) *PublishJob {
	j.Locker = locker
	j.LockTTL = ttl
	return j
}

func (j *PublishJob) Name() string {
	return fmt.Sprintf("publish_%s_posts", j.Type)
}

func (j *PublishJob) Subject() string {
	return fmt.Sprintf("Published %s posts", j.Type)
}

func (j *PublishJob) Body() string {
	return fmt.Sprintf("Hello, your pending %s posts have been published", j.Type)
}

// Run promotes every valid-to-publish draft of the job's tier dated today and
// sends one notification to the distinct set of their authors. A failed
// notification is reported in the result and never undoes the promotion.
func (j *PublishJob) Run(ctx context.Context) (*RunResult, error) {
	day := j.Clock.Today()
	result := &RunResult{Type: j.Type, Day: day}

	if j.Locker != nil {
		key := fmt.Sprintf("publish:%s:%s", j.Type, day.Format(dayLayout))
		held, err := j.Locker.Acquire(ctx, key, j.LockTTL)
		switch {
		case err != nil:
			j.Logger.Warn("[SCHEDULER] %s: lock unavailable, running unguarded: %v", j.Name(), err)
		case !held:
			j.Logger.Info("[SCHEDULER] %s: %s already running elsewhere", j.Name(), key)
			result.Skipped = true
			return result, nil
		default:
			defer func() {
				if err := j.Locker.Release(context.WithoutCancel(ctx), key); err != nil {
					j.Logger.Warn("[SCHEDULER] %s: %v", j.Name(), err)
				}
			}()
		}
	}

	posts, published, err := j.Repo.PublishDue(ctx, j.Type, day)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to publish posts: %w", j.Name(), err)
	}
	result.Eligible = len(posts)
	if len(posts) == 0 {
		return result, nil
	}
	result.Recipients = AuthorEmails(posts)
	result.Published = published
	j.Logger.Info("[SCHEDULER] %s: published %d of %d posts for %s", j.Name(), published, len(posts), day.Format(dayLayout))

	if len(result.Recipients) == 0 {
		return result, nil
	}

	if err := j.Notifier.Notify(ctx, result.Recipients, j.Subject(), j.Body()); err != nil {
		j.Logger.Error("[SCHEDULER] %s: failed to notify %d authors: %v", j.Name(), len(result.Recipients), err)
		result.NotifyErr = err
		return result, nil
	}
	result.Notified = true
	return result, nil
}

// AuthorEmails returns the sorted distinct non-empty author addresses of posts.
func AuthorEmails(posts []*entity.Post) []string {
	seen := make(map[string]struct{}, len(posts))
	emails := make([]string, 0, len(posts))
	for _, p := range posts {
		email := p.AuthorEmail()
		if email == "" {
			continue
		}
		if _, ok := seen[email]; ok {
			continue
		}
		seen[email] = struct{}{}
		emails = append(emails, email)
	}
	sort.Strings(emails)
	return emails
}
