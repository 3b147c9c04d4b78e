package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tikgrab/tikgrab/internal/artifact"
	"github.com/tikgrab/tikgrab/internal/config"
	"github.com/tikgrab/tikgrab/internal/download"
	"github.com/tikgrab/tikgrab/internal/engine"
	"github.com/tikgrab/tikgrab/internal/model"
	"github.com/tikgrab/tikgrab/internal/pool"
	"github.com/tikgrab/tikgrab/internal/store"
)

const validURL = "https://www.tiktok.com/@user/video/7345678901234567890"

type stubEngine struct {
	info     model.VideoInfo
	probeErr error
	fetch    func(ctx context.Context, req engine.FetchRequest) error
}

func (s *stubEngine) Probe(ctx context.Context, url string) (model.VideoInfo, error) {
	return s.info, s.probeErr
}

func (s *stubEngine) Fetch(ctx context.Context, req engine.FetchRequest) error {
	if s.fetch == nil {
		return nil
	}
	return s.fetch(ctx, req)
}

type testServer struct {
	srv  *Server
	jobs *store.Jobs
	dir  string
}

func newTestServer(t *testing.T, eng engine.Engine) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	cfg := &config.Config{}
	cfg.HTTPServer.AllowedOrigins = []string{"*"}

	jobs := store.NewJobs()
	sessions := store.NewSessions(100, time.Hour)
	p := pool.New(4)
	t.Cleanup(p.Close)

	orch := download.NewOrchestrator(eng, jobs, sessions, p, dir, 10*time.Second)
	artifacts := artifact.NewManager(dir, jobs)

	return &testServer{
		srv:  New(cfg, orch, jobs, artifacts, p),
		jobs: jobs,
		dir:  dir,
	}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.srv.Router().ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		_ = json.Unmarshal(rec.Body.Bytes(), &decoded)
	}
	return rec, decoded
}

func (ts *testServer) extractSession(t *testing.T) string {
	t.Helper()
	rec, body := ts.do(t, http.MethodPost, "/extract", gin.H{"url": validURL})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return body["session_id"].(string)
}

func (ts *testServer) waitTerminal(t *testing.T, jobID string) map[string]any {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rec, body := ts.do(t, http.MethodGet, "/status/"+jobID, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		status := model.JobStatus(body["status"].(string))
		if status.IsTerminal() {
			return body
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("job did not reach a terminal state in time")
	return nil
}

func defaultInfo() model.VideoInfo {
	return model.VideoInfo{
		ID:       "7345678901234567890",
		Title:    "Dancing capridae",
		Uploader: "user",
		Formats: []model.Format{
			{FormatID: "h264_720p", Quality: "720p", Ext: "mp4"},
			{FormatID: model.FormatAudioOnly, Quality: "Audio Only (mp3)", Ext: "mp3"},
		},
	}
}

func writeEngineOutput(t *testing.T, tmpl, ext, content string) {
	t.Helper()
	path := tmpl[:len(tmpl)-len(".%(ext)s")] + "." + ext
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestExtractValidation(t *testing.T) {
	ts := newTestServer(t, &stubEngine{info: defaultInfo()})

	rec, body := ts.do(t, http.MethodPost, "/extract", gin.H{"url": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Please provide a URL", body["error"])

	rec, body = ts.do(t, http.MethodPost, "/extract", gin.H{"url": "https://example.com/video/1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Please provide a valid TikTok URL", body["error"])
}

func TestExtractSuccess(t *testing.T) {
	ts := newTestServer(t, &stubEngine{info: defaultInfo()})

	rec, body := ts.do(t, http.MethodPost, "/extract", gin.H{"url": validURL})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["session_id"])

	info := body["video_info"].(map[string]any)
	assert.Equal(t, "Dancing capridae", info["title"])
	formats := info["formats"].([]any)
	require.Len(t, formats, 2)
}

func TestExtractEngineFailure(t *testing.T) {
	ts := newTestServer(t, &stubEngine{probeErr: errors.New("source unreachable")})

	rec, body := ts.do(t, http.MethodPost, "/extract", gin.H{"url": validURL})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, body["error"], "source unreachable")
}

func TestDownloadValidation(t *testing.T) {
	ts := newTestServer(t, &stubEngine{info: defaultInfo()})
	sessionID := ts.extractSession(t)

	rec, body := ts.do(t, http.MethodPost, "/download", gin.H{"session_id": "bogus", "format_id": "h264_720p"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid session", body["error"])

	rec, body = ts.do(t, http.MethodPost, "/download", gin.H{"session_id": sessionID, "format_id": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Please select a format", body["error"])
}

func TestDownloadLifecycle(t *testing.T) {
	eng := &stubEngine{info: defaultInfo()}
	eng.fetch = func(ctx context.Context, req engine.FetchRequest) error {
		req.Progress(50)
		writeEngineOutput(t, req.OutputTemplate, "mp4", "video-bytes")
		return nil
	}
	ts := newTestServer(t, eng)
	sessionID := ts.extractSession(t)

	rec, body := ts.do(t, http.MethodPost, "/download", gin.H{"session_id": sessionID, "format_id": "h264_720p"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Download started. Use /status/{job_id} to check progress.", body["message"])
	jobID := body["job_id"].(string)

	final := ts.waitTerminal(t, jobID)
	require.Equal(t, "completed", final["status"])
	assert.Equal(t, float64(100), final["progress"])

	filename := final["filename"].(string)
	assert.Equal(t, "/download/"+filename, final["download_url"])

	// First fetch streams the artifact and deletes it server-side.
	fetchRec, _ := ts.do(t, http.MethodGet, "/download/"+filename, nil)
	require.Equal(t, http.StatusOK, fetchRec.Code)
	assert.Equal(t, "video-bytes", fetchRec.Body.String())
	assert.Equal(t, "video/mp4", fetchRec.Header().Get("Content-Type"))

	// Second fetch observes the file already consumed.
	fetchRec, _ = ts.do(t, http.MethodGet, "/download/"+filename, nil)
	assert.Equal(t, http.StatusNotFound, fetchRec.Code)

	// The job record survives the serve until explicit cleanup.
	rec, _ = ts.do(t, http.MethodGet, "/status/"+jobID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, body = ts.do(t, http.MethodDelete, "/cleanup/"+jobID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Job cleaned up", body["message"])

	rec, _ = ts.do(t, http.MethodGet, "/status/"+jobID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, body = ts.do(t, http.MethodDelete, "/cleanup/"+jobID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Job not found", body["error"])
}

func TestDownloadFailureSurfacesThroughStatus(t *testing.T) {
	eng := &stubEngine{info: defaultInfo()}
	eng.fetch = func(ctx context.Context, req engine.FetchRequest) error {
		return errors.New("format unavailable")
	}
	ts := newTestServer(t, eng)
	sessionID := ts.extractSession(t)

	rec, body := ts.do(t, http.MethodPost, "/download", gin.H{"session_id": sessionID, "format_id": "h264_720p"})
	require.Equal(t, http.StatusOK, rec.Code, "scheduling must succeed even if the download later fails")

	final := ts.waitTerminal(t, body["job_id"].(string))
	assert.Equal(t, "failed", final["status"])
	assert.Equal(t, "format unavailable", final["error"])
}

func TestCleanupActiveJob(t *testing.T) {
	release := make(chan struct{})
	eng := &stubEngine{info: defaultInfo()}
	eng.fetch = func(ctx context.Context, req engine.FetchRequest) error {
		<-release
		writeEngineOutput(t, req.OutputTemplate, "mp4", "x")
		return nil
	}
	ts := newTestServer(t, eng)
	sessionID := ts.extractSession(t)

	_, body := ts.do(t, http.MethodPost, "/download", gin.H{"session_id": sessionID, "format_id": "h264_720p"})
	jobID := body["job_id"].(string)

	rec, body := ts.do(t, http.MethodDelete, "/cleanup/"+jobID, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Job is still active", body["error"])

	close(release)
	ts.waitTerminal(t, jobID)
}

func TestStatusUnknownJob(t *testing.T) {
	ts := newTestServer(t, &stubEngine{})

	rec, body := ts.do(t, http.MethodGet, "/status/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Job not found", body["error"])
}

func TestJobsSnapshot(t *testing.T) {
	ts := newTestServer(t, &stubEngine{})
	ts.jobs.Create(model.NewJob("j1", "vid_a", "A"))
	ts.jobs.Create(model.NewJob("j2", "vid_b", "B"))

	rec, body := ts.do(t, http.MethodGet, "/jobs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), body["active_jobs"])
	assert.Len(t, body["jobs"].(map[string]any), 2)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, &stubEngine{})

	rec, body := ts.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", body["status"])
	assert.Equal(t, float64(4), body["thread_pool_size"])
}

func TestIndexPage(t *testing.T) {
	ts := newTestServer(t, &stubEngine{})

	rec, _ := ts.do(t, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "TikGrab")
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, &stubEngine{})

	rec, _ := ts.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "tikgrab_tracked_jobs")
}
