package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mediadl/internal/config"
	"mediadl/internal/core/download"
	"mediadl/internal/core/job"
	"mediadl/internal/logger"
	"mediadl/internal/platform/engine"
	rds "mediadl/internal/platform/redis"
	"mediadl/internal/server"
)

func main() {
	cfg := config.Load()
	log.Printf("[mediadl] starting at %s (env=%s)\n", cfg.HTTPAddr, cfg.AppEnv)

	logr := logger.New("main")

	if err := os.MkdirAll(cfg.DownloadDir, 0o755); err != nil {
		logr.LogFatalf("download dir %s: %v", cfg.DownloadDir, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ytdlp := engine.NewYTDLP(cfg.EngineProgressInterval)
	if cfg.EngineAutoInstall {
		if err := ytdlp.Install(ctx); err != nil {
			logr.LogFatalf("engine install: %v", err)
		}
	}

	var (
		store  job.Store
		memory *job.MemoryStore
	)
	switch cfg.RecordStore {
	case "redis":
		redisSvc, err := rds.New(rds.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err != nil {
			logr.LogFatalf("redis: %v", err)
		}
		defer redisSvc.Close()
		store = job.NewRedisStore(redisSvc, cfg.RecordTTL)
	default:
		memory = job.NewMemoryStore(cfg.RecordTTL)
		store = memory
	}

	downloadSvc := download.NewService(download.Options{
		Store:         store,
		Engine:        ytdlp,
		DownloadDir:   cfg.DownloadDir,
		MaxConcurrent: cfg.MaxConcurrentDownloads,
	})

	if memory != nil {
		memory.OnEvict(downloadSvc.Reclaim)
		go memory.Run(ctx, cfg.RecordSweepInterval)
	}
	go downloadSvc.RunArtifactSweep(ctx, cfg.RecordSweepInterval, cfg.RecordTTL)

	app := server.NewApp()
	healthHandler := server.RegisterRoutes(app, server.Dependencies{
		Download: downloadSvc,
		Store:    store,
	})
	healthHandler.SetReady()

	// Graceful shutdown. Background downloads are not joined.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-shutdown
		logr.LogInfo("Shutting down...")
		cancel()
		_ = app.ShutdownWithTimeout(5 * time.Second)
	}()

	logr.LogInfof("Max concurrent downloads per batch: %d, store: %s, dir: %s", cfg.MaxConcurrentDownloads, cfg.RecordStore, cfg.DownloadDir)
	if err := app.Listen(cfg.HTTPAddr); err != nil {
		log.Fatalf("server listen: %v", err)
	}
}
