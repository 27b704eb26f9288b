// Package main is the entry point for the RelayDrop API binary.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/RelayDrop/internal/api"
	"github.com/dharsanguruparan/RelayDrop/internal/config"
	"github.com/dharsanguruparan/RelayDrop/internal/provider"
	"github.com/dharsanguruparan/RelayDrop/internal/registry"
	"github.com/dharsanguruparan/RelayDrop/internal/sweeper"
	"github.com/dharsanguruparan/RelayDrop/internal/upload"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	chain, deleters, err := buildChain(ctx, cfg)
	if err != nil {
		log.Fatalf("init providers: %v", err)
	}
	if len(chain) == 0 {
		log.Fatalf("no storage providers enabled")
	}

	reg := registry.New(cfg.RegistryCap)
	orch := upload.New(cfg.MaxUploadSize, chain...)
	log.Printf("provider chain: %v", orch.Chain())

	var queueClient *asynq.Client
	if cfg.RedisAddr != "" {
		queueClient = asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer queueClient.Close()
	}

	sweeper.New(reg, cfg.SweepInterval).Start(ctx)

	srv := api.New(cfg, reg, orch, queueClient, deleters)
	if err := srv.Run(ctx); err != nil {
		log.Printf("server stopped: %v", err)
		os.Exit(1)
	}
}

// buildChain assembles the fallback order: the durable S3 host first when
// configured, then the disposable hosts in their fixed priority order.
func buildChain(ctx context.Context, cfg *config.Config) ([]provider.Adapter, map[string]provider.Deleter, error) {
	client := &http.Client{Timeout: cfg.ProviderTimeout}
	var chain []provider.Adapter
	deleters := make(map[string]provider.Deleter)

	if cfg.S3Enabled {
		s3, err := provider.NewS3(cfg)
		if err != nil {
			return nil, nil, err
		}
		if err := s3.EnsureBucket(ctx); err != nil {
			return nil, nil, err
		}
		chain = append(chain, s3)
		deleters[s3.Name()] = s3
	}
	if cfg.FileIO.Enabled {
		chain = append(chain, provider.NewFileIO(client, cfg.FileIO))
	}
	if cfg.GoFile.Enabled {
		chain = append(chain, provider.NewGoFile(client, cfg.GoFile))
	}
	if cfg.TmpNinja.Enabled {
		chain = append(chain, provider.NewTmpNinja(client, cfg.TmpNinja))
	}
	if cfg.AnonFiles.Enabled {
		chain = append(chain, provider.NewAnonFiles(client, cfg.AnonFiles))
	}
	return chain, deleters, nil
}
