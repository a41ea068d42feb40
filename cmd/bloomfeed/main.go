package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"BloomFeed/internal/app"
	"BloomFeed/internal/config"
	"BloomFeed/internal/logging"
)

func main() {
	daemon := flag.Bool("daemon", false, "run on the configured cron schedule instead of once")
	flag.Parse()

	ctx := context.Background()
	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	if !*daemon {
		if err := application.RunOnce(ctx); err != nil {
			logger.Error("run failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := application.StartDaemon(ctx); err != nil {
		logger.Error("scheduler failed to start", "error", err)
		os.Exit(1)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := application.StopDaemon(stopCtx); err != nil {
		logger.Warn("scheduler stop timed out", "error", err)
	}
}
