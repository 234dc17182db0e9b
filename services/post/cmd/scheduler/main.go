package main

import (
	"tell-all/pkg/config"
	"tell-all/services/post/internal/app"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	scheduler, err := app.NewSchedulerApp(cfg)
	if err != nil {
		panic(err)
	}

	if err := scheduler.Run(); err != nil {
		panic(err)
	}

	scheduler.Wait()

	if err := scheduler.Shutdown(); err != nil {
		panic(err)
	}
}
