package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"hotelrides/internal/app"
	"hotelrides/internal/config"
	"hotelrides/internal/pkg/logger"
)

func main() {
	once := flag.Bool("once", false, "run a single pass and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	zl, err := logger.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("startup failed", zap.Error(err))
	}
	defer func() { _ = a.Close() }()

	sw, err := app.NewSweeper(a.Booking, cfg.SweepSchedule, cfg.SweepBatchSize, zl)
	if err != nil {
		zl.Fatal("invalid SWEEP_SCHEDULE", zap.String("schedule", cfg.SweepSchedule), zap.Error(err))
	}

	if *once {
		sw.RunOnce(ctx)
		return
	}

	zl.Info("sweeper started", zap.String("schedule", cfg.SweepSchedule), zap.Int("batch", cfg.SweepBatchSize))
	sw.Start()
	<-ctx.Done()
	sw.Stop()
	zl.Info("sweeper stopped")
}
