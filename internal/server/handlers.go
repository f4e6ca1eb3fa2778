package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mkaplan/mixsmith/internal/job"
	"github.com/mkaplan/mixsmith/internal/session"
)

// CreateSessionRequest represents the request body for a new session
type CreateSessionRequest struct {
	Concept               string `json:"concept" binding:"required"`
	TargetDurationMinutes int    `json:"target_duration_minutes"`
	MaxConcurrentTasks    int    `json:"max_concurrent_tasks"`
}

// ErrorResponse represents a generic error payload
type ErrorResponse struct {
	Error string `json:"error"`
}

// createSession accepts a concept and starts a session job in the
// background.
func (s *Server) createSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	jobStatus, ctx := s.jobManager.CreateJob(req.Concept)

	go s.runSessionInBackground(ctx, jobStatus.ID, req)

	c.JSON(202, gin.H{
		"job_id":  jobStatus.ID,
		"status":  "accepted",
		"message": "Session started",
	})
}

func (s *Server) runSessionInBackground(ctx context.Context, jobID string, req CreateSessionRequest) {
	if err := s.jobManager.UpdateJobProgress(jobID, 5, "Planning session"); err != nil {
		slog.Error("failed to update job", "job_id", jobID, "error", err)
		return
	}

	sess, err := s.runner.Run(ctx, session.RunOptions{
		Concept:               req.Concept,
		TargetDurationMinutes: req.TargetDurationMinutes,
		MaxConcurrentTasks:    job.ValidateMaxConcurrentTasks(req.MaxConcurrentTasks),
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			slog.Info("session cancelled", "job_id", jobID)
			return
		}
		slog.Error("session failed", "job_id", jobID, "error", err)
		if failErr := s.jobManager.FailJob(jobID, err); failErr != nil {
			slog.Error("failed to record job failure", "job_id", jobID, "error", failErr)
		}
		return
	}

	if err := s.jobManager.CompleteJob(jobID, sess.ID, sess.MixKey, sess.Tracklist, sess.TotalDurationMs); err != nil {
		slog.Error("failed to record job completion", "job_id", jobID, "error", err)
	}
}

// getJobStatus handles retrieving the status of a job
func (s *Server) getJobStatus(c *gin.Context) {
	jobID := c.Param("id")

	jobStatus, err := s.jobManager.GetJob(jobID)
	if err != nil {
		c.JSON(404, gin.H{"error": fmt.Sprintf("%v: %s", job.ErrNotFound, jobID)})
		return
	}

	c.JSON(200, jobStatus)
}

// cancelJob handles cancelling a job
func (s *Server) cancelJob(c *gin.Context) {
	jobID := c.Param("id")

	if err := s.jobManager.CancelJob(jobID); err != nil {
		switch {
		case errors.Is(err, job.ErrNotFound):
			c.JSON(404, gin.H{"error": fmt.Sprintf("%v: %s", job.ErrNotFound, jobID)})
		case errors.Is(err, job.ErrInvalidState):
			c.JSON(400, gin.H{"error": err.Error()})
		default:
			c.JSON(500, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(200, gin.H{"message": "Job cancelled"})
}

// listJobs handles listing all jobs with pagination
func (s *Server) listJobs(c *gin.Context) {
	page := 1
	pageSize := job.DefaultPageSize

	if p, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		page = p
	}
	if ps, err := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(job.DefaultPageSize))); err == nil {
		pageSize = ps
	}

	c.JSON(200, s.jobManager.ListJobs(page, pageSize))
}

// listLibrary lists stored tracks for a genre
func (s *Server) listLibrary(c *gin.Context) {
	genre := c.Param("genre")

	limit := s.cfg.Planner.CandidateLimit
	if l, err := strconv.Atoi(c.DefaultQuery("limit", "0")); err == nil && l > 0 {
		limit = l
	}

	tracks, err := s.browser.Query(c.Request.Context(), genre, 0, limit)
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}

	c.JSON(200, gin.H{
		"genre":  genre,
		"tracks": tracks,
		"total":  len(tracks),
	})
}
