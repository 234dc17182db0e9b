package app

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tell-all/pkg/cache"
	"tell-all/pkg/clock"
	"tell-all/pkg/config"
	"tell-all/pkg/database"
	"tell-all/pkg/jwt"
	"tell-all/pkg/logger"
	"tell-all/pkg/middleware"
	"tell-all/pkg/s3"
	postHTTP "tell-all/services/post/internal/controller/http"
	"tell-all/services/post/internal/repo/persistent"
	"tell-all/services/post/internal/usecase"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	_ "tell-all/services/post/docs" // Swagger docs
)

type App struct {
	cfg         *config.Config
	log         *logger.Logger
	db          *gorm.DB
	redisClient *redis.Client
	s3Client    *s3.Client
	jwtService  *jwt.Service
	httpServer  *http.Server
}

func NewApp(cfg *config.Config) (*App, error) {
	log := logger.New()

	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		log.Error("Failed to connect to database: %v", err)
		return nil, err
	}

	redisClient, err := cache.NewRedisClient(cfg)
	if err != nil {
		log.Error("Failed to connect to redis: %v (continuing without cache and rate limiting)", err)
		redisClient = nil
	}

	s3Client, err := s3.NewClient(cfg)
	if err != nil {
		log.Error("Failed to create S3 client: %v (cover uploads disabled)", err)
		s3Client = nil
	}

	return &App{
		cfg:         cfg,
		log:         log,
		db:          db,
		redisClient: redisClient,
		s3Client:    s3Client,
		jwtService:  jwt.NewService(cfg.JWTSecret),
	}, nil
}

// Deps is everything the HTTP surface needs. Nil RedisClient or Covers
// disable caching and cover uploads respectively.
type Deps struct {
	DB          *gorm.DB
	RedisClient *redis.Client
	Covers      usecase.CoverStore
	JWT         *jwt.Service
	Clock       clock.Clock
	Log         *logger.Logger
}

func NewRouter(d Deps) *gin.Engine {
	postRepo := persistent.NewPostRepository(d.DB)
	tagRepo := persistent.NewTagRepository(d.DB)

	postUseCase := usecase.NewPostUseCase(postRepo, tagRepo, d.Covers, d.RedisClient, d.Clock, d.Log)
	postHandler := postHTTP.NewPostHandler(postUseCase, d.Log)

	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
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
	api.Use(middleware.RateLimitMiddleware(d.RedisClient, "post", 100, time.Minute))
	{
		api.GET("/posts", postHandler.ListPublishedPosts)
		api.GET("/posts/:slug", postHandler.GetPublishedPost)
		api.GET("/tags", postHandler.ListTags)

		admin := api.Group("")
		admin.Use(middleware.AuthMiddleware(d.JWT), middleware.AdminMiddleware())
		{
			admin.POST("/posts/add", postHandler.CreatePost)
			admin.GET("/posts/all", postHandler.ListAllPosts)
			admin.PUT("/posts/edit/:slug", postHandler.EditPost)
			admin.DELETE("/posts/delete/:slug", postHandler.DeletePost)
			admin.POST("/tags", postHandler.CreateTag)
		}
	}

	return r
}

func (a *App) Run() error {
	gin.SetMode(gin.ReleaseMode)

	deps := Deps{
		DB:          a.db,
		RedisClient: a.redisClient,
		JWT:         a.jwtService,
		Clock:       clock.System(a.cfg.Location()),
		Log:         a.log,
	}
	if a.s3Client != nil {
		deps.Covers = a.s3Client
	}

	a.httpServer = &http.Server{
		Addr:    ":" + a.cfg.ServerPort,
		Handler: NewRouter(deps),
	}

	go func() {
		a.log.Info("Post service starting on port %s", a.cfg.ServerPort)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.log.Error("Failed to start server: %v", err)
			panic(err)
		}
	}()

	return nil
}

func (a *App) Wait() {
	waitForSignal()
	a.log.Info("Shutting down post service...")
}

func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	closeDB(a.db, a.log)
	closeRedis(a.redisClient, a.log)

	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.log.Error("Server forced to shutdown: %v", err)
		return err
	}

	a.log.Info("Post service exited")
	return nil
}

func waitForSignal() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
}

func closeDB(db *gorm.DB, log *logger.Logger) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Error("Error closing database: %v", err)
	}
}

func closeRedis(client *redis.Client, log *logger.Logger) {
	if client == nil {
		return
	}
	if err := client.Close(); err != nil {
		log.Error("Error closing Redis: %v", err)
	}
}
