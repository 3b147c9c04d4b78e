package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/tikgrab/tikgrab/internal/artifact"
	"github.com/tikgrab/tikgrab/internal/config"
	"github.com/tikgrab/tikgrab/internal/download"
	"github.com/tikgrab/tikgrab/internal/engine"
	"github.com/tikgrab/tikgrab/internal/platform"
	"github.com/tikgrab/tikgrab/internal/pool"
	"github.com/tikgrab/tikgrab/internal/server"
	"github.com/tikgrab/tikgrab/internal/slogpretty"
	"github.com/tikgrab/tikgrab/internal/store"
)

const (
	envLocal = "local"
	envDebug = "debug"
	envProd  = "prod"
)

// Version is set during build via -ldflags "-X main.version=X.Y.Z"
var version = "dev"

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	slog.Info("tikgrab starting", "version", version, "env", cfg.Env)

	if err := platform.CreateDirectoryIfNotExists(cfg.Downloads.OutputDir); err != nil {
		slog.Error("failed to create output directory", "dir", cfg.Downloads.OutputDir, "err", err)
		os.Exit(1)
	}

	ytdlp := engine.NewYTDLP(cfg.Downloads.Binary)
	if err := ytdlp.CheckDependencies(); err != nil {
		slog.Warn("engine dependency check failed, downloads will not work", "err", err)
	}

	workers := pool.New(cfg.Downloads.Workers)
	defer workers.Close()

	jobs := store.NewJobs()
	sessions := store.NewSessions(cfg.Sessions.MaxEntries, cfg.Sessions.TTL)
	orch := download.NewOrchestrator(ytdlp, jobs, sessions, workers, cfg.Downloads.OutputDir, cfg.Downloads.Timeout)
	artifacts := artifact.NewManager(cfg.Downloads.OutputDir, jobs)

	srv := server.New(cfg, orch, jobs, artifacts, workers)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sweepLoop(ctx, cfg, jobs)

	if err := srv.Run(ctx); err != nil {
		slog.Error("server error", "err", err)
		os.Exit(1)
	}
}

// sweepLoop periodically removes stale artifacts whose files were never
// fetched or cleaned up. Files belonging to in-flight jobs are left alone.
func sweepLoop(ctx context.Context, cfg *config.Config, jobs *store.Jobs) {
	if cfg.Sweep.Interval <= 0 || cfg.Sweep.MaxAge <= 0 {
		return
	}

	ticker := time.NewTicker(cfg.Sweep.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := platform.SweepOldFiles(cfg.Downloads.OutputDir, cfg.Sweep.MaxAge, func(name string) bool {
				for _, job := range jobs.Snapshot() {
					if job.Status.IsActive() && strings.HasPrefix(name, job.VideoID) {
						return true
					}
				}
				return false
			})
			for _, name := range removed {
				slog.Info("swept stale artifact", "file", name)
			}
		}
	}
}

func setupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		opts := slogpretty.PrettyHandlerOptions{
			SlogOpts: &slog.HandlerOptions{Level: slog.LevelDebug},
		}
		return slog.New(opts.NewPrettyHandler(os.Stdout))
	case envDebug:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	default:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
}
