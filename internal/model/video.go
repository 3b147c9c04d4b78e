package model

import "time"

// FormatAudioOnly is the reserved format identifier for the synthetic
// audio-only entry. Choosing it switches the download to audio extraction
// with an mp3 transcode instead of a direct format download.
const FormatAudioOnly = "extractaudio"

// Format describes one downloadable rendition of a video.
type Format struct {
	FormatID string `json:"format_id"`
	Quality  string `json:"quality"` // e.g. "720p", or "Audio Only (mp3)"
	Ext      string `json:"ext"`
	Filesize int64  `json:"filesize"` // bytes, 0 when unknown
}

// IsAudioOnly reports whether this is the synthetic audio extraction entry.
func (f Format) IsAudioOnly() bool {
	return f.FormatID == FormatAudioOnly
}

// VideoInfo is the metadata snapshot extracted from a source URL.
type VideoInfo struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Thumbnail string   `json:"thumbnail"`
	Duration  float64  `json:"duration"`
	Uploader  string   `json:"uploader"`
	ViewCount int64    `json:"view_count"`
	LikeCount int64    `json:"like_count"`
	Formats   []Format `json:"formats"`
}

// Session caches one successful extraction between the metadata lookup and a
// later download request. Sessions are immutable after creation.
type Session struct {
	ID        string
	URL       string
	Info      VideoInfo
	CreatedAt time.Time
}
