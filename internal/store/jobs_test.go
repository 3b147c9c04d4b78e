package store

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tikgrab/tikgrab/internal/model"
)

func TestJobsCreateGet(t *testing.T) {
	jobs := NewJobs()
	jobs.Create(model.NewJob("j1", "vid_abc", "Clip"))

	got, ok := jobs.Get("j1")
	require.True(t, ok)
	assert.Equal(t, model.JobStatusQueued, got.Status)
	assert.Equal(t, "vid_abc", got.VideoID)

	_, ok = jobs.Get("missing")
	assert.False(t, ok)
}

func TestJobsGetReturnsCopy(t *testing.T) {
	jobs := NewJobs()
	jobs.Create(model.NewJob("j1", "vid_abc", "Clip"))

	got, _ := jobs.Get("j1")
	got.Status = model.JobStatusFailed
	got.Error = "mutated by caller"

	stored, _ := jobs.Get("j1")
	assert.Equal(t, model.JobStatusQueued, stored.Status)
	assert.Empty(t, stored.Error)
}

func TestJobsUpdateAtomic(t *testing.T) {
	jobs := NewJobs()
	jobs.Create(model.NewJob("j1", "vid_abc", "Clip"))

	ok := jobs.Update("j1", func(j *model.Job) {
		j.Status = model.JobStatusDownloading
		j.Progress = 40
	})
	require.True(t, ok)

	got, _ := jobs.Get("j1")
	assert.Equal(t, model.JobStatusDownloading, got.Status)
	assert.Equal(t, 40.0, got.Progress)

	assert.False(t, jobs.Update("missing", func(j *model.Job) {}))
}

func TestJobsProgressNeverRegresses(t *testing.T) {
	jobs := NewJobs()
	jobs.Create(model.NewJob("j1", "vid_abc", "Clip"))
	jobs.Update("j1", func(j *model.Job) {
		j.Status = model.JobStatusDownloading
		j.Progress = 60
	})

	jobs.Update("j1", func(j *model.Job) { j.Progress = 20 })

	got, _ := jobs.Get("j1")
	assert.Equal(t, 60.0, got.Progress)
}

func TestJobsTerminalRecordsImmutable(t *testing.T) {
	jobs := NewJobs()
	jobs.Create(model.NewJob("j1", "vid_abc", "Clip"))
	jobs.Update("j1", func(j *model.Job) {
		j.Status = model.JobStatusFailed
		j.Error = "engine exploded"
	})

	ok := jobs.Update("j1", func(j *model.Job) {
		j.Status = model.JobStatusDownloading
	})
	assert.False(t, ok)

	got, _ := jobs.Get("j1")
	assert.Equal(t, model.JobStatusFailed, got.Status)
	assert.Equal(t, "engine exploded", got.Error)
}

func TestJobsDelete(t *testing.T) {
	jobs := NewJobs()
	jobs.Create(model.NewJob("j1", "vid_abc", "Clip"))

	assert.True(t, jobs.Delete("j1"))
	assert.False(t, jobs.Delete("j1"))

	_, ok := jobs.Get("j1")
	assert.False(t, ok)
}

func TestJobsSnapshotIsDetached(t *testing.T) {
	jobs := NewJobs()
	jobs.Create(model.NewJob("j1", "vid_a", "A"))
	jobs.Create(model.NewJob("j2", "vid_b", "B"))

	snap := jobs.Snapshot()
	require.Len(t, snap, 2)

	jobs.Update("j1", func(j *model.Job) {
		j.Status = model.JobStatusDownloading
	})
	assert.Equal(t, model.JobStatusQueued, snap["j1"].Status)
}

func TestJobsConcurrentReadersAndWriter(t *testing.T) {
	jobs := NewJobs()
	jobs.Create(model.NewJob("j1", "vid_abc", "Clip"))
	jobs.Update("j1", func(j *model.Job) { j.Status = model.JobStatusDownloading })

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for p := 1; p <= 100; p++ {
			jobs.Update("j1", func(j *model.Job) { j.Progress = float64(p) })
		}
	}()

	// Pollers must only ever observe non-decreasing progress.
	last := 0.0
	for i := 0; i < 200; i++ {
		got, ok := jobs.Get("j1")
		require.True(t, ok)
		assert.GreaterOrEqual(t, got.Progress, last)
		last = got.Progress
	}
	wg.Wait()
}
