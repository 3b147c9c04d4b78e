// Package server exposes the media-fetch workflow over HTTP: metadata
// extraction, asynchronous download jobs with status polling, one-shot
// artifact retrieval, and job cleanup. Progress is also pushed to websocket
// subscribers, and prometheus metrics are exported under /metrics.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tikgrab/tikgrab/internal/artifact"
	"github.com/tikgrab/tikgrab/internal/config"
	"github.com/tikgrab/tikgrab/internal/download"
	"github.com/tikgrab/tikgrab/internal/model"
	"github.com/tikgrab/tikgrab/internal/pool"
	"github.com/tikgrab/tikgrab/internal/store"
)

// Server wires the orchestration components to the HTTP surface.
type Server struct {
	cfg       *config.Config
	orch      *download.Orchestrator
	jobs      *store.Jobs
	artifacts *artifact.Manager
	pool      *pool.Pool

	hub     *hub
	metrics *metrics
	router  *gin.Engine
}

// New builds the server and registers all routes. It also installs itself as
// the orchestrator's update callback so job changes reach websocket
// subscribers and the metrics.
func New(cfg *config.Config, orch *download.Orchestrator, jobs *store.Jobs, artifacts *artifact.Manager, p *pool.Pool) *Server {
	if cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:       cfg,
		orch:      orch,
		jobs:      jobs,
		artifacts: artifacts,
		pool:      p,
		hub:       newHub(),
		metrics:   newMetrics(jobs),
	}
	orch.SetUpdateCallback(s.onJobUpdate)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(corsConfig(cfg.HTTPServer.AllowedOrigins)))

	r.GET("/", s.index)
	r.POST("/extract", s.extract)
	r.POST("/download", s.startDownload)
	r.GET("/status/:job_id", s.status)
	r.GET("/download/:filename", s.serveArtifact)
	r.DELETE("/cleanup/:job_id", s.cleanup)
	r.GET("/jobs", s.listJobs)
	r.GET("/health", s.health)
	r.GET("/ws", s.hub.handle)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{})))

	s.router = r
	return s
}

// corsConfig maps the configured origin list onto gin-contrib's config.
// A bare "*" switches to the allow-all mode instead of wildcard matching.
func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			c.AllowAllOrigins = true
			return c
		}
	}
	c.AllowOrigins = origins
	return c
}

// Router exposes the gin engine, mainly for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:        s.cfg.HTTPServer.Address,
		Handler:     s.router,
		ReadTimeout: s.cfg.HTTPServer.ReadTimeout,
		IdleTimeout: s.cfg.HTTPServer.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// onJobUpdate fans one job change out to websocket subscribers and metrics.
func (s *Server) onJobUpdate(job model.Job) {
	s.hub.broadcastUpdate(progressUpdate{
		JobID:    job.ID,
		Status:   job.Status,
		Progress: job.Progress,
	})
	s.metrics.observeJob(job)
}
