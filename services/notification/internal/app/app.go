package app

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tell-all/pkg/cache"
	"tell-all/pkg/config"
	"tell-all/pkg/jwt"
	"tell-all/pkg/logger"
	"tell-all/pkg/mailer"
	"tell-all/pkg/middleware"
	"tell-all/pkg/queue"
	mailHTTP "tell-all/services/notification/internal/controller/http"
	statsCache "tell-all/services/notification/internal/repo/cache"
	"tell-all/services/notification/internal/usecase"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "tell-all/services/notification/docs" // Swagger docs
)

// sendTimeout bounds one SMTP exchange so a stuck server cannot stall the consumer.
const sendTimeout = 30 * time.Second

type App struct {
	cfg         *config.Config
	log         *logger.Logger
	redisClient *redis.Client
	queueClient *queue.Client
	jwtService  *jwt.Service
	mailUseCase usecase.MailUseCase
	httpServer  *http.Server
}

func NewApp(cfg *config.Config) (*App, error) {
	log := logger.New()

	queueClient, err := queue.NewRabbitMQClient(cfg, log)
	if err != nil {
		log.Error("Failed to connect to RabbitMQ: %v", err)
		return nil, err
	}

	redisClient, err := cache.NewRedisClient(cfg)
	if err != nil {
		log.Error("Failed to connect to redis: %v (stats kept in memory)", err)
		redisClient = nil
	}

	var stats statsCache.StatsRepository
	if redisClient != nil {
		stats = statsCache.NewRedisStatsRepository(redisClient)
	} else {
		stats = statsCache.NewMemoryStatsRepository()
	}

	return &App{
		cfg:         cfg,
		log:         log,
		redisClient: redisClient,
		queueClient: queueClient,
		jwtService:  jwt.NewService(cfg.JWTSecret),
		mailUseCase: usecase.NewMailUseCase(mailer.NewSMTPSender(cfg), stats, queueClient, log),
	}, nil
}

type Deps struct {
	MailUseCase usecase.MailUseCase
	JWT         *jwt.Service
	Log         *logger.Logger
}

func NewRouter(d Deps) *gin.Engine {
	mailHandler := mailHTTP.NewMailHandler(d.MailUseCase, d.Log)

	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api/v1")
	admin := api.Group("")
	admin.Use(middleware.AuthMiddleware(d.JWT), middleware.AdminMiddleware())
	{
		admin.GET("/mail/stats", mailHandler.GetStats)
	}

	return r
}

// MailHandler adapts the use case to the queue consumer callback.
func MailHandler(uc usecase.MailUseCase, log *logger.Logger) func(task queue.MailTask) error {
	return func(task queue.MailTask) error {
		log.Info("[NOTIFICATION HANDLER] Received %s task for %d recipients", task.Type, len(task.Recipients))
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		return uc.HandleMailTask(ctx, task)
	}
}

func (a *App) Run() error {
	gin.SetMode(gin.ReleaseMode)

	if err := a.queueClient.ConsumeMailTasks(MailHandler(a.mailUseCase, a.log)); err != nil {
		a.log.Error("Failed to start mail consumer: %v", err)
		return err
	}

	a.httpServer = &http.Server{
		Addr: ":" + a.cfg.ServerPort,
		Handler: NewRouter(Deps{
			MailUseCase: a.mailUseCase,
			JWT:         a.jwtService,
			Log:         a.log,
		}),
	}

	go func() {
		a.log.Info("Notification service starting on port %s", a.cfg.ServerPort)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.log.Error("Failed to start server: %v", err)
			panic(err)
		}
	}()

	return nil
}

func (a *App) Wait() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	a.log.Info("Shutting down notification service...")
}

func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.queueClient.Close(); err != nil {
		a.log.Error("Error closing RabbitMQ: %v", err)
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Error("Error closing Redis: %v", err)
		}
	}

	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.log.Error("Server forced to shutdown: %v", err)
		return err
	}

	a.log.Info("Notification service exited")
	return nil
}
