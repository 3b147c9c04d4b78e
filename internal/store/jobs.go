package store

import (
	"sync"

	"github.com/tikgrab/tikgrab/internal/model"
)

// Jobs is the single source of truth for download job state. It exclusively
// owns the stored records; Get and Snapshot return copies, and all mutation
// goes through Update so multiple field changes land as one atomic unit.
type Jobs struct {
	mu   sync.Mutex
	jobs map[string]*model.Job
}

// NewJobs creates an empty job store.
func NewJobs() *Jobs {
	return &Jobs{jobs: make(map[string]*model.Job)}
}

// Create registers a job under its id.
func (s *Jobs) Create(job *model.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *job
	s.jobs[job.ID] = &stored
}

// Get returns a copy of the job, if present.
func (s *Jobs) Get(id string) (model.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return model.Job{}, false
	}
	return *job, true
}

// Update applies the mutator to the job atomically. It returns false when the
// job is unknown or already terminal: terminal records are immutable, so late
// worker writes after a completed/failed transition are dropped rather than
// applied. Progress can never regress while downloading.
func (s *Jobs) Update(id string, mutate func(*model.Job)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok || job.Status.IsTerminal() {
		return false
	}

	prevProgress := job.Progress
	mutate(job)

	if job.Status == model.JobStatusDownloading && job.Progress < prevProgress {
		job.Progress = prevProgress
	}
	return true
}

// Delete removes the job and reports whether it existed.
func (s *Jobs) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.jobs[id]
	delete(s.jobs, id)
	return ok
}

// Snapshot returns a copy of every current record keyed by job id.
func (s *Jobs) Snapshot() map[string]model.Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]model.Job, len(s.jobs))
	for id, job := range s.jobs {
		out[id] = *job
	}
	return out
}

// Len returns the number of tracked jobs.
func (s *Jobs) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}
