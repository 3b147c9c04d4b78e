package server

import (
	_ "embed"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tikgrab/tikgrab/internal/artifact"
	"github.com/tikgrab/tikgrab/internal/download"
	"github.com/tikgrab/tikgrab/internal/model"
)

//go:embed index.html
var indexHTML []byte

type extractRequest struct {
	URL string `json:"url"`
}

type downloadRequest struct {
	SessionID string `json:"session_id"`
	FormatID  string `json:"format_id"`
}

// statusResponse flattens the job record next to the envelope fields, same
// shape the polling client expects.
type statusResponse struct {
	Success bool   `json:"success"`
	JobID   string `json:"job_id"`
	model.Job
}

func (s *Server) index(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
}

func (s *Server) extract(c *gin.Context) {
	var req extractRequest
	if err := c.BindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request")
		return
	}

	url := strings.TrimSpace(req.URL)
	if url == "" {
		fail(c, http.StatusBadRequest, "Please provide a URL")
		return
	}
	if !isValidSourceURL(url) {
		fail(c, http.StatusBadRequest, "Please provide a valid TikTok URL")
		return
	}

	sess, err := s.orch.Extract(c.Request.Context(), url)
	if err != nil {
		s.metrics.extractions.WithLabelValues("error").Inc()
		slog.Error("extraction failed", "url", url, "err", err)
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	s.metrics.extractions.WithLabelValues("ok").Inc()

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"session_id": sess.ID,
		"video_info": sess.Info,
	})
}

func (s *Server) startDownload(c *gin.Context) {
	var req downloadRequest
	if err := c.BindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request")
		return
	}

	jobID, err := s.orch.Start(req.SessionID, req.FormatID)
	switch {
	case errors.Is(err, download.ErrInvalidSession):
		fail(c, http.StatusBadRequest, "Invalid session")
		return
	case errors.Is(err, download.ErrMissingFormat):
		fail(c, http.StatusBadRequest, "Please select a format")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"job_id":  jobID,
		"message": "Download started. Use /status/{job_id} to check progress.",
	})
}

func (s *Server) status(c *gin.Context) {
	jobID := c.Param("job_id")
	job, ok := s.jobs.Get(jobID)
	if !ok {
		fail(c, http.StatusNotFound, "Job not found")
		return
	}

	c.JSON(http.StatusOK, statusResponse{Success: true, JobID: jobID, Job: job})
}

func (s *Server) serveArtifact(c *gin.Context) {
	name := c.Param("filename")

	a, err := s.artifacts.Open(name)
	if err != nil {
		if errors.Is(err, artifact.ErrNotFound) {
			fail(c, http.StatusNotFound, "File not found")
			return
		}
		fail(c, http.StatusInternalServerError, "Error serving file: "+err.Error())
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+a.Name+`"`)
	c.Header("Content-Type", contentTypeFor(a.Name))
	c.Header("Content-Length", strconv.FormatInt(a.Size, 10))
	c.Status(http.StatusOK)

	if _, err := a.WriteTo(c.Writer); err != nil {
		// Headers are out; nothing to send but the abort. The artifact
		// survives for a retry.
		slog.Error("artifact stream aborted", "file", name, "err", err)
	}
}

func (s *Server) cleanup(c *gin.Context) {
	jobID := c.Param("job_id")

	err := s.artifacts.Cleanup(jobID)
	switch {
	case errors.Is(err, artifact.ErrJobActive):
		fail(c, http.StatusBadRequest, "Job is still active")
	case errors.Is(err, artifact.ErrJobNotFound):
		fail(c, http.StatusNotFound, "Job not found")
	case err != nil:
		fail(c, http.StatusInternalServerError, err.Error())
	default:
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Job cleaned up"})
	}
}

func (s *Server) listJobs(c *gin.Context) {
	jobs := s.jobs.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"active_jobs": len(jobs),
		"jobs":        jobs,
	})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":           "OK",
		"message":          "TikGrab API is running",
		"active_downloads": s.jobs.Len(),
		"thread_pool_size": s.pool.Size(),
	})
}

func fail(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"success": false, "error": message})
}

func contentTypeFor(name string) string {
	switch filepath.Ext(name) {
	case ".mp4":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	case ".mp3":
		return "audio/mpeg"
	case ".m4a":
		return "audio/mp4"
	default:
		return "application/octet-stream"
	}
}
