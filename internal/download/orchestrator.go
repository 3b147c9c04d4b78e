package download

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tikgrab/tikgrab/internal/engine"
	"github.com/tikgrab/tikgrab/internal/model"
	"github.com/tikgrab/tikgrab/internal/platform"
	"github.com/tikgrab/tikgrab/internal/pool"
	"github.com/tikgrab/tikgrab/internal/store"
)

var (
	// ErrInvalidSession is returned when the session id is empty or unknown.
	ErrInvalidSession = errors.New("invalid session")

	// ErrMissingFormat is returned when no format id was selected.
	ErrMissingFormat = errors.New("no format selected")
)

// Stored verbatim in the job record when the engine reports success but no
// artifact can be located. Distinct from an engine-reported failure.
const errArtifactNotFound = "Downloaded file not found"

// Orchestrator wires the session cache, job store, worker pool and engine
// into the extract/download workflow.
type Orchestrator struct {
	engine   engine.Engine
	jobs     *store.Jobs
	sessions *store.Sessions
	pool     *pool.Pool

	outputDir string
	timeout   time.Duration // per engine invocation, 0 disables

	onUpdate func(model.Job) // callback for progress push / metrics
}

// NewOrchestrator creates an orchestrator writing artifacts under outputDir.
func NewOrchestrator(eng engine.Engine, jobs *store.Jobs, sessions *store.Sessions, p *pool.Pool, outputDir string, timeout time.Duration) *Orchestrator {
	return &Orchestrator{
		engine:    eng,
		jobs:      jobs,
		sessions:  sessions,
		pool:      p,
		outputDir: outputDir,
		timeout:   timeout,
	}
}

// SetUpdateCallback sets the callback invoked after every job record change.
func (o *Orchestrator) SetUpdateCallback(callback func(model.Job)) {
	o.onUpdate = callback
}

// Extract probes the URL on the worker pool, awaiting the result so blocking
// engine work stays off the request-handling goroutine, and caches a session
// on success.
func (o *Orchestrator) Extract(ctx context.Context, url string) (model.Session, error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	var info model.VideoInfo
	var err error
	o.pool.Submit(func() {
		info, err = o.engine.Probe(ctx, url)
	}).Wait()
	if err != nil {
		return model.Session{}, fmt.Errorf("extract %s: %w", url, err)
	}

	sess := model.Session{
		ID:        uuid.NewString(),
		URL:       url,
		Info:      info,
		CreatedAt: time.Now().UTC(),
	}
	o.sessions.Put(sess)
	return sess, nil
}

// Start validates the request, creates a queued job and schedules the
// blocking download on the worker pool. It returns the job id immediately;
// the caller observes the outcome by polling.
func (o *Orchestrator) Start(sessionID, formatID string) (string, error) {
	sess, ok := o.sessions.Get(sessionID)
	if !ok {
		return "", ErrInvalidSession
	}
	if strings.TrimSpace(formatID) == "" {
		return "", ErrMissingFormat
	}

	// Random suffix keeps repeated downloads of the same source from
	// colliding on disk.
	baseName := fmt.Sprintf("%s_%s", platform.SanitizeBaseName(sess.Info.ID), randomSuffix())
	jobID := uuid.NewString()

	job := model.NewJob(jobID, baseName, sess.Info.Title)
	o.jobs.Create(job)
	o.notify(jobID)

	o.pool.Submit(func() {
		o.run(jobID, sess.URL, formatID, baseName)
	})

	return jobID, nil
}

// run executes one download job on a worker. Engine errors never escape;
// they are captured into the job record for pollers to observe.
func (o *Orchestrator) run(jobID, url, formatID, baseName string) {
	o.update(jobID, func(j *model.Job) {
		j.Status = model.JobStatusDownloading
		j.Progress = 0
	})
	slog.Info("download started", "job_id", jobID, "format_id", formatID)

	ctx := context.Background()
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	err := o.engine.Fetch(ctx, engine.FetchRequest{
		URL:            url,
		FormatID:       formatID,
		OutputTemplate: filepath.Join(o.outputDir, baseName) + ".%(ext)s",
		Progress: func(percent float64) {
			o.update(jobID, func(j *model.Job) {
				j.Progress = clampPercent(percent)
			})
		},
	})
	if err != nil {
		o.update(jobID, func(j *model.Job) {
			j.Status = model.JobStatusFailed
			j.Error = err.Error()
		})
		slog.Error("download failed", "job_id", jobID, "err", err)
		return
	}

	// The engine picks the final extension, so locate the artifact by its
	// base-name prefix.
	name, ok := platform.FindFileWithPrefix(o.outputDir, baseName)
	if !ok {
		o.update(jobID, func(j *model.Job) {
			j.Status = model.JobStatusFailed
			j.Error = errArtifactNotFound
		})
		slog.Error("download finished but artifact is missing", "job_id", jobID, "base_name", baseName)
		return
	}

	path := filepath.Join(o.outputDir, name)
	var size int64
	if info, err := os.Stat(path); err == nil {
		size = info.Size()
	}

	o.update(jobID, func(j *model.Job) {
		j.Status = model.JobStatusCompleted
		j.Progress = 100
		j.FilePath = path
		j.Filename = name
		j.FileSize = size
		j.DownloadURL = "/download/" + name
	})
	slog.Info("download completed", "job_id", jobID, "file", name, "size", size)
}

func (o *Orchestrator) update(jobID string, mutate func(*model.Job)) {
	if o.jobs.Update(jobID, mutate) {
		o.notify(jobID)
	}
}

func (o *Orchestrator) notify(jobID string) {
	if o.onUpdate == nil {
		return
	}
	if job, ok := o.jobs.Get(jobID); ok {
		o.onUpdate(job)
	}
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func randomSuffix() string {
	u := uuid.New()
	return fmt.Sprintf("%x", u[:4])
}
