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
	"tell-all/pkg/database"
	"tell-all/pkg/jwt"
	"tell-all/pkg/logger"
	"tell-all/pkg/middleware"
	authHTTP "tell-all/services/auth/internal/controller/http"
	"tell-all/services/auth/internal/repo/persistent"
	"tell-all/services/auth/internal/usecase"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	_ "tell-all/services/auth/docs" // Swagger docs
)

type App struct {
	cfg         *config.Config
	log         *logger.Logger
	db          *gorm.DB
	redisClient *redis.Client
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
		log.Error("Failed to connect to redis: %v (continuing without rate limiting)", err)
		redisClient = nil
	}

	return &App{
		cfg:         cfg,
		log:         log,
		db:          db,
		redisClient: redisClient,
		jwtService:  jwt.NewService(cfg.JWTSecret),
	}, nil
}

// Deps is everything the HTTP surface needs. A nil RedisClient disables
// rate limiting.
type Deps struct {
	DB          *gorm.DB
	RedisClient *redis.Client
	JWT         *jwt.Service
	Log         *logger.Logger
}

func NewRouter(d Deps) *gin.Engine {
	userRepo := persistent.NewUserRepository(d.DB)
	authUseCase := usecase.NewAuthUseCase(userRepo, d.JWT, d.Log)
	authHandler := authHTTP.NewAuthHandler(authUseCase, d.Log)

	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api/v1")
	api.Use(middleware.RateLimitMiddleware(d.RedisClient, "auth", 20, time.Minute))
	{
		api.POST("/sign-up", middleware.OptionalAuthMiddleware(d.JWT), authHandler.SignUp)
		api.POST("/api-token-auth", authHandler.Login)

		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware(d.JWT))
		{
			protected.GET("/me", authHandler.Me)
		}

		admin := api.Group("")
		admin.Use(middleware.AuthMiddleware(d.JWT), middleware.AdminMiddleware())
		{
			admin.DELETE("/users/:id", authHandler.DeleteUser)
		}
	}

	return r
}

func (a *App) Run() error {
	gin.SetMode(gin.ReleaseMode)

	a.httpServer = &http.Server{
		Addr: ":" + a.cfg.ServerPort,
		Handler: NewRouter(Deps{
			DB:          a.db,
			RedisClient: a.redisClient,
			JWT:         a.jwtService,
			Log:         a.log,
		}),
	}

	go func() {
		a.log.Info("Auth service starting on port %s", a.cfg.ServerPort)
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
	a.log.Info("Shutting down auth service...")
}

func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if sqlDB, err := a.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			a.log.Error("Error closing database: %v", err)
		}
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

	a.log.Info("Auth service exited")
	return nil
}
