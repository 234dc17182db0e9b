package main

import (
	"tell-all/pkg/config"
	app "tell-all/services/notification/internal/app"

	_ "tell-all/services/notification/docs" // Swagger docs
)

// @title           Notification Service API
// @version         1.0
// @description     Delivers aggregated mail tasks from RabbitMQ over SMTP
// @BasePath        /api/v1
// @host            localhost:8003

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	if cfg.JWTSecret == "your-secret-key-change-in-production" || cfg.JWTSecret == "" {
		panic("JWT_SECRET must be set in environment variables")
	}

	application, err := app.NewApp(cfg)
	if err != nil {
		panic(err)
	}

	if err := application.Run(); err != nil {
		panic(err)
	}

	application.Wait()

	if err := application.Shutdown(); err != nil {
		panic(err)
	}
}
