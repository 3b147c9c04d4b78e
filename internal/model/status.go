package model

// JobStatus represents the status of a download job
type JobStatus string

const (
	// JobStatusQueued means the job is created but not picked up by a worker
	JobStatusQueued JobStatus = "queued"

	// JobStatusDownloading means the download is in progress
	JobStatusDownloading JobStatus = "downloading"

	// JobStatusCompleted means the job finished and an artifact is available
	JobStatusCompleted JobStatus = "completed"

	// JobStatusFailed means the job failed with an error
	JobStatusFailed JobStatus = "failed"
)

// String returns the string representation of JobStatus
func (s JobStatus) String() string {
	return string(s)
}

// IsActive returns true if the job has not reached a terminal state yet
func (s JobStatus) IsActive() bool {
	return s == JobStatusQueued || s == JobStatusDownloading
}

// IsTerminal returns true if no further transitions are permitted
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}
