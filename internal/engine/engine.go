package engine

import (
	"context"

	"github.com/tikgrab/tikgrab/internal/model"
)

// Audio extraction settings applied when the audio-only sentinel format is
// chosen. The engine transcodes best available audio to this codec/bitrate,
// so the artifact extension is always the codec's regardless of the source
// container.
const (
	AudioCodec    = "mp3"
	AudioBitrate  = "192K"
	AudioSelector = "bestaudio/best"
)

// ProgressFunc receives best-effort percent-complete signals (0-100) while a
// fetch runs. It may be called from a different goroutine than the caller's.
type ProgressFunc func(percent float64)

// FetchRequest describes one download/convert invocation.
type FetchRequest struct {
	URL            string
	FormatID       string // model.FormatAudioOnly selects the audio extraction path
	OutputTemplate string // engine output template, e.g. "outputs/base.%(ext)s"
	Progress       ProgressFunc
}

// Engine is the boundary to the external extraction/transcoding tool.
type Engine interface {
	// Probe extracts metadata and the available format list without
	// downloading anything.
	Probe(ctx context.Context, url string) (model.VideoInfo, error)

	// Fetch downloads (and possibly transcodes) media to the output
	// template, reporting progress along the way. The produced file's
	// extension is decided by the engine.
	Fetch(ctx context.Context, req FetchRequest) error
}
