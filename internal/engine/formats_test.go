package engine

import (
	"testing"

	"github.com/tikgrab/tikgrab/internal/model"
)

func TestBuildFormatList(t *testing.T) {
	raw := []probeFormat{
		{FormatID: "audio-0", Ext: "m4a", Height: 0, Vcodec: "none"},
		{FormatID: "h264_360p", Ext: "mp4", Height: 360, Vcodec: "h264"},
		{FormatID: "h264_720p", Ext: "mp4", Height: 720, Vcodec: "h264", Filesize: 8_000_000},
		{FormatID: "h265_720p", Ext: "mp4", Height: 720, Vcodec: "h265"}, // duplicate resolution
		{FormatID: "h264_480p", Ext: "mp4", Height: 480, Vcodec: "h264"},
	}

	formats := buildFormatList(raw)

	if len(formats) != 4 {
		t.Fatalf("Expected 4 entries (3 video + audio), got %d", len(formats))
	}

	wantQualities := []string{"720p", "480p", "360p", "Audio Only (mp3)"}
	for i, want := range wantQualities {
		if formats[i].Quality != want {
			t.Errorf("formats[%d].Quality = %q, expected %q", i, formats[i].Quality, want)
		}
	}

	if formats[0].FormatID != "h264_720p" {
		t.Errorf("Expected first-seen format to win the 720p slot, got %q", formats[0].FormatID)
	}
	if formats[0].Filesize != 8_000_000 {
		t.Errorf("Expected filesize to pass through, got %d", formats[0].Filesize)
	}

	audio := formats[len(formats)-1]
	if audio.FormatID != model.FormatAudioOnly {
		t.Errorf("Expected trailing sentinel format id %q, got %q", model.FormatAudioOnly, audio.FormatID)
	}
	if audio.Ext != "mp3" || audio.Filesize != 0 {
		t.Errorf("Expected mp3 audio entry with unknown size, got ext=%q size=%d", audio.Ext, audio.Filesize)
	}
}

func TestBuildFormatListNoVideo(t *testing.T) {
	formats := buildFormatList([]probeFormat{
		{FormatID: "audio-0", Ext: "m4a", Vcodec: "none"},
	})

	if len(formats) != 1 {
		t.Fatalf("Expected only the audio sentinel, got %d entries", len(formats))
	}
	if !formats[0].IsAudioOnly() {
		t.Error("Expected the single entry to be the audio sentinel")
	}
}

func TestProbeInfoDefaults(t *testing.T) {
	info := probeInfo{ID: "123"}.toVideoInfo()

	if info.Title != "Unknown Title" {
		t.Errorf("Expected default title, got %q", info.Title)
	}
	if info.Uploader != "Unknown" {
		t.Errorf("Expected default uploader, got %q", info.Uploader)
	}
}
