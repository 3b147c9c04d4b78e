package model

import "time"

// Job tracks one asynchronous download/convert operation. The job id is the
// map key in the store and is not serialized with the record itself; handlers
// add it alongside.
//
// Status transitions are one-directional: queued -> downloading -> completed
// or failed. Exactly one of the completed (FilePath/Filename/FileSize/
// DownloadURL) or failed (Error) payloads is set once terminal.
type Job struct {
	ID         string    `json:"-"`
	Status     JobStatus `json:"status"`
	Progress   float64   `json:"progress"` // 0-100, meaningful while downloading
	VideoID    string    `json:"video_id"` // artifact base name, extension decided by the engine
	VideoTitle string    `json:"video_title"`
	CreatedAt  time.Time `json:"created_at"`

	FilePath    string `json:"file_path,omitempty"`
	Filename    string `json:"filename,omitempty"`
	FileSize    int64  `json:"file_size,omitempty"`
	DownloadURL string `json:"download_url,omitempty"`

	Error string `json:"error,omitempty"`
}

// NewJob creates a queued job for the given artifact base name and title.
func NewJob(id, videoID, title string) *Job {
	return &Job{
		ID:         id,
		Status:     JobStatusQueued,
		Progress:   0,
		VideoID:    videoID,
		VideoTitle: title,
		CreatedAt:  time.Now().UTC(),
	}
}
