package app

import (
	"context"

	"tell-all/pkg/cache"
	"tell-all/pkg/clock"
	"tell-all/pkg/config"
	"tell-all/pkg/database"
	"tell-all/pkg/logger"
	"tell-all/pkg/queue"
	"tell-all/services/post/internal/entity"
	"tell-all/services/post/internal/notify"
	"tell-all/services/post/internal/repo/persistent"
	"tell-all/services/post/internal/scheduler"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// SchedulerApp runs the publication jobs for both tiers.
type SchedulerApp struct {
	cfg         *config.Config
	log         *logger.Logger
	db          *gorm.DB
	redisClient *redis.Client
	queueClient *queue.Client
	cancel      context.CancelFunc
	done        chan struct{}
}

func NewSchedulerApp(cfg *config.Config) (*SchedulerApp, error) {
	log := logger.New()

	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		log.Error("Failed to connect to database: %v", err)
		return nil, err
	}

	redisClient, err := cache.NewRedisClient(cfg)
	if err != nil {
		log.Warn("Failed to connect to redis: %v (jobs run without locking)", err)
		redisClient = nil
	}

	queueClient, err := queue.NewRabbitMQClient(cfg, log)
	if err != nil {
		log.Error("Failed to connect to RabbitMQ: %v (continuing without notifications)", err)
		queueClient = nil
	}

	return &SchedulerApp{
		cfg:         cfg,
		log:         log,
		db:          db,
		redisClient: redisClient,
		queueClient: queueClient,
		done:        make(chan struct{}),
	}, nil
}

// Jobs builds one publish job per tier sharing repo, notifier and clock.
func Jobs(repo scheduler.PostStore, notifier notify.Notifier, clk clock.Clock, locker scheduler.Locker, cfg *config.Config, log *logger.Logger) []scheduler.Job {
	var jobs []scheduler.Job
	for _, t := range []entity.PostType{entity.TypeFreemium, entity.TypePremium} {
		job := scheduler.NewPublishJob(t, repo, notifier, clk, log)
		if locker != nil {
			job.WithLock(locker, cfg.PublishInterval)
		}
		jobs = append(jobs, job)
	}
	return jobs
}

func (a *SchedulerApp) Run() error {
	var publisher notify.MailPublisher
	if a.queueClient != nil {
		publisher = a.queueClient
	}
	var locker scheduler.Locker
	if a.redisClient != nil {
		locker = cache.NewLock(a.redisClient)
	}

	jobs := Jobs(
		persistent.NewPostRepository(a.db),
		notify.NewQueueNotifier(publisher, a.log),
		clock.System(a.cfg.Location()),
		locker,
		a.cfg,
		a.log,
	)
	runner := scheduler.NewRunner(a.cfg.PublishInterval, a.log, jobs...)

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	go func() {
		defer close(a.done)
		runner.Start(ctx)
	}()

	return nil
}

func (a *SchedulerApp) Wait() {
	waitForSignal()
	a.log.Info("Shutting down scheduler...")
}

func (a *SchedulerApp) Shutdown() error {
	if a.cancel != nil {
		a.cancel()
		<-a.done
	}

	if a.queueClient != nil {
		a.queueClient.Close()
	}
	closeRedis(a.redisClient, a.log)
	closeDB(a.db, a.log)

	a.log.Info("Scheduler exited")
	return nil
}
