package engine

import (
	"fmt"
	"sort"

	"github.com/tikgrab/tikgrab/internal/model"
)

// probeInfo mirrors the subset of yt-dlp's --dump-single-json output the
// service consumes.
type probeInfo struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Thumbnail string        `json:"thumbnail"`
	Duration  float64       `json:"duration"`
	Uploader  string        `json:"uploader"`
	ViewCount int64         `json:"view_count"`
	LikeCount int64         `json:"like_count"`
	Formats   []probeFormat `json:"formats"`
}

type probeFormat struct {
	FormatID string `json:"format_id"`
	Ext      string `json:"ext"`
	Height   int    `json:"height"`
	Vcodec   string `json:"vcodec"`
	Filesize int64  `json:"filesize"`
}

func (p probeInfo) toVideoInfo() model.VideoInfo {
	info := model.VideoInfo{
		ID:        p.ID,
		Title:     p.Title,
		Thumbnail: p.Thumbnail,
		Duration:  p.Duration,
		Uploader:  p.Uploader,
		ViewCount: p.ViewCount,
		LikeCount: p.LikeCount,
		Formats:   buildFormatList(p.Formats),
	}
	if info.Title == "" {
		info.Title = "Unknown Title"
	}
	if info.Uploader == "" {
		info.Uploader = "Unknown"
	}
	return info
}

// buildFormatList derives the client-facing format list: one entry per
// distinct vertical resolution (audio-only and height-less renditions are
// skipped), sorted by descending resolution, with the synthetic audio-only
// entry always last.
func buildFormatList(raw []probeFormat) []model.Format {
	type candidate struct {
		height int
		format model.Format
	}

	seen := make(map[int]bool)
	candidates := make([]candidate, 0, len(raw))
	for _, f := range raw {
		if f.Vcodec == "none" || f.Height == 0 || seen[f.Height] {
			continue
		}
		seen[f.Height] = true

		ext := f.Ext
		if ext == "" {
			ext = "mp4"
		}
		candidates = append(candidates, candidate{
			height: f.Height,
			format: model.Format{
				FormatID: f.FormatID,
				Quality:  fmt.Sprintf("%dp", f.Height),
				Ext:      ext,
				Filesize: f.Filesize,
			},
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].height > candidates[j].height
	})

	formats := make([]model.Format, 0, len(candidates)+1)
	for _, c := range candidates {
		formats = append(formats, c.format)
	}
	formats = append(formats, model.Format{
		FormatID: model.FormatAudioOnly,
		Quality:  fmt.Sprintf("Audio Only (%s)", AudioCodec),
		Ext:      AudioCodec,
		Filesize: 0,
	})
	return formats
}
