package engine

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/tikgrab/tikgrab/internal/model"
)

const defaultBinary = "yt-dlp"

// Matches yt-dlp's own progress lines, e.g.
// "[download]  45.0% of 10.00MiB at 2.50MiB/s ETA 00:05"
var progressRegexp = regexp.MustCompile(`\[download\]\s+(\d+\.?\d*)%`)

// YTDLP runs the yt-dlp binary. It satisfies Engine.
type YTDLP struct {
	binary string
}

// NewYTDLP creates an adapter invoking the given binary, or "yt-dlp" from
// PATH when empty.
func NewYTDLP(binary string) *YTDLP {
	if strings.TrimSpace(binary) == "" {
		binary = defaultBinary
	}
	return &YTDLP{binary: binary}
}

// CheckDependencies verifies the external tools are reachable before the
// service starts accepting work.
func (y *YTDLP) CheckDependencies() error {
	if _, err := exec.LookPath(y.binary); err != nil {
		return fmt.Errorf("missing dependency: %s is not installed or not on PATH", y.binary)
	}
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return fmt.Errorf("missing dependency: ffmpeg is required for audio extraction and was not found on PATH")
	}
	return nil
}

// Probe extracts metadata for a single media URL.
func (y *YTDLP) Probe(ctx context.Context, url string) (model.VideoInfo, error) {
	if strings.TrimSpace(url) == "" {
		return model.VideoInfo{}, fmt.Errorf("source URL is required")
	}

	cmd := exec.CommandContext(ctx, y.binary, "--dump-single-json", "--no-playlist", "--no-warnings", url)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return model.VideoInfo{}, fmt.Errorf("yt-dlp failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() == 0 {
		return model.VideoInfo{}, fmt.Errorf("yt-dlp returned empty output")
	}

	var info probeInfo
	if err := json.Unmarshal(stdout.Bytes(), &info); err != nil {
		return model.VideoInfo{}, fmt.Errorf("parse yt-dlp output: %w", err)
	}
	return info.toVideoInfo(), nil
}

// Fetch downloads media to the request's output template, streaming percent
// progress parsed from the engine's stdout. Unparsable progress lines are
// dropped; progress is advisory, not load-bearing.
func (y *YTDLP) Fetch(ctx context.Context, req FetchRequest) error {
	if strings.TrimSpace(req.URL) == "" {
		return fmt.Errorf("media URL is required")
	}
	if strings.TrimSpace(req.OutputTemplate) == "" {
		return fmt.Errorf("output template is required")
	}

	args := []string{
		"--no-playlist",
		"--newline",
		"--no-warnings",
		"-o", req.OutputTemplate,
	}
	if req.FormatID == model.FormatAudioOnly {
		args = append(args,
			"-f", AudioSelector,
			"-x",
			"--audio-format", AudioCodec,
			"--audio-quality", AudioBitrate,
		)
	} else {
		args = append(args, "-f", req.FormatID)
	}
	args = append(args, req.URL)

	cmd := exec.CommandContext(ctx, y.binary, args...)

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("setup stdout pipe: %w", err)
	}
	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start yt-dlp: %w", err)
	}

	scanner := bufio.NewScanner(stdoutPipe)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)
	for scanner.Scan() {
		if req.Progress == nil {
			continue
		}
		if percent, ok := parseProgressLine(scanner.Text()); ok {
			req.Progress(percent)
		}
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("yt-dlp failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// parseProgressLine extracts a percent value from one engine output line.
func parseProgressLine(line string) (float64, bool) {
	matches := progressRegexp.FindStringSubmatch(line)
	if len(matches) < 2 {
		return 0, false
	}
	percent, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, false
	}
	if percent < 0 || percent > 100 {
		return 0, false
	}
	return percent, true
}
