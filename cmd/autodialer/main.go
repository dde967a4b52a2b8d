package main

import (
	"context"
	"os/signal"
	"syscall"

	"autodialer/internal/app"
	"autodialer/internal/logging"
	"autodialer/internal/metrics"
	"go.uber.org/zap"
)

func main() {
	go metrics.Run()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.NewApp(ctx)
	if err != nil {
		logging.Logger.Fatal("failed to create autodialer app", zap.String("error", err.Error()))
	}

	err = application.Run(ctx)
	if err != nil {
		logging.Logger.Fatal("autodialer app exited with error", zap.String("error", err.Error()))
	}
}
