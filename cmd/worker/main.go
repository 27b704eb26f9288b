package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/RelayDrop/internal/config"
	"github.com/dharsanguruparan/RelayDrop/internal/provider"
	"github.com/dharsanguruparan/RelayDrop/internal/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.RedisAddr == "" {
		log.Fatalf("RELAYDROP_REDIS_ADDR is required for the cleanup worker")
	}

	deleters := make(map[string]provider.Deleter)
	if cfg.S3Enabled {
		s3, err := provider.NewS3(cfg)
		if err != nil {
			log.Fatalf("init s3: %v", err)
		}
		deleters[s3.Name()] = s3
	}

	server := asynq.NewServer(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, asynq.Config{
		Concurrency: cfg.CleanupPool,
	})
	processor := worker.NewProcessor(deleters)
	mux := processor.Handler()

	go func() {
		<-ctx.Done()
		server.Shutdown()
	}()

	if err := server.Run(mux); err != nil {
		log.Printf("worker stopped: %v", err)
		os.Exit(1)
	}
}
