// Package artifact manages the lifetime of produced files: each artifact is
// served to exactly one client and removed from disk afterward, and terminal
// jobs can be cleaned up together with any residual file.
package artifact

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tikgrab/tikgrab/internal/store"
)

var (
	// ErrNotFound is returned when the named artifact does not exist
	// (possibly because an earlier request already consumed it).
	ErrNotFound = errors.New("file not found")

	// ErrJobNotFound is returned by Cleanup for unknown job ids.
	ErrJobNotFound = errors.New("job not found")

	// ErrJobActive is returned by Cleanup while the job is queued or
	// downloading.
	ErrJobActive = errors.New("job is still active")
)

// Manager owns the output directory. Serves of the same file name are
// serialized, so a concurrent second request either waits for the first to
// finish (and then observes NotFound) or streams the whole file, never a
// truncated read.
type Manager struct {
	dir  string
	jobs *store.Jobs

	mu    sync.Mutex
	locks map[string]*nameLock
}

type nameLock struct {
	mu   sync.Mutex
	refs int
}

// NewManager creates a manager for artifacts under dir, consulting jobs for
// cleanup decisions.
func NewManager(dir string, jobs *store.Jobs) *Manager {
	return &Manager{
		dir:   dir,
		jobs:  jobs,
		locks: make(map[string]*nameLock),
	}
}

// Artifact is an exclusive handle on one stored file. WriteTo or Discard
// must be called exactly once to release it.
type Artifact struct {
	Name string
	Size int64

	m    *Manager
	lock *nameLock
	file *os.File
}

// Open acquires the named artifact for serving. The returned handle holds
// the per-name lock until released.
func (m *Manager) Open(name string) (*Artifact, error) {
	if !validName(name) {
		return nil, ErrNotFound
	}

	lock := m.acquire(name)

	path := filepath.Join(m.dir, name)
	file, err := os.Open(path)
	if err != nil {
		m.release(name, lock)
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open artifact %s: %w", name, err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		m.release(name, lock)
		return nil, fmt.Errorf("stat artifact %s: %w", name, err)
	}

	return &Artifact{
		Name: name,
		Size: info.Size(),
		m:    m,
		lock: lock,
		file: file,
	}, nil
}

// WriteTo streams the artifact to w and, once the copy has fully returned,
// deletes the backing file. A copy error (for instance a client gone mid
// stream) releases the handle without deleting, so the artifact stays
// retrievable.
func (a *Artifact) WriteTo(w io.Writer) (int64, error) {
	defer a.m.release(a.Name, a.lock)

	n, err := io.Copy(w, a.file)
	a.file.Close()
	if err != nil {
		return n, fmt.Errorf("stream artifact %s: %w", a.Name, err)
	}

	if err := os.Remove(filepath.Join(a.m.dir, a.Name)); err != nil && !os.IsNotExist(err) {
		slog.Error("failed to remove served artifact", "file", a.Name, "err", err)
	}
	return n, nil
}

// Discard releases the handle without streaming or deleting.
func (a *Artifact) Discard() {
	a.file.Close()
	a.m.release(a.Name, a.lock)
}

// Cleanup removes a terminal job's record and any residual artifact file.
// A missing file is not an error; removing twice yields ErrJobNotFound on
// the second call.
func (m *Manager) Cleanup(jobID string) error {
	job, ok := m.jobs.Get(jobID)
	if !ok {
		return ErrJobNotFound
	}
	if job.Status.IsActive() {
		return ErrJobActive
	}

	if job.Filename != "" {
		lock := m.acquire(job.Filename)
		if err := os.Remove(filepath.Join(m.dir, job.Filename)); err != nil && !os.IsNotExist(err) {
			slog.Error("failed to remove artifact during cleanup", "job_id", jobID, "file", job.Filename, "err", err)
		}
		m.release(job.Filename, lock)
	}

	m.jobs.Delete(jobID)
	return nil
}

func (m *Manager) acquire(name string) *nameLock {
	m.mu.Lock()
	lock, ok := m.locks[name]
	if !ok {
		lock = &nameLock{}
		m.locks[name] = lock
	}
	lock.refs++
	m.mu.Unlock()

	lock.mu.Lock()
	return lock
}

func (m *Manager) release(name string, lock *nameLock) {
	lock.mu.Unlock()

	m.mu.Lock()
	lock.refs--
	if lock.refs == 0 {
		delete(m.locks, name)
	}
	m.mu.Unlock()
}

// validName rejects anything that could escape the output directory.
func validName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, "/\\") {
		return false
	}
	return filepath.Base(name) == name
}
