package job

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("job not found")
	ErrInvalidState = errors.New("job is not in a cancellable state")
)

// Status represents the current state of a session job
type Status struct {
	ID              string     `json:"id"`
	Status          string     `json:"status"`
	Progress        float64    `json:"progress"`
	Message         string     `json:"message"`
	Error           string     `json:"error,omitempty"`
	Concept         string     `json:"concept"`
	SessionID       string     `json:"session_id,omitempty"`
	MixKey          string     `json:"mix_key,omitempty"`
	Tracklist       string     `json:"tracklist,omitempty"`
	TotalDurationMs int        `json:"total_duration_ms,omitempty"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         *time.Time `json:"end_time,omitempty"`

	cancelFunc context.CancelFunc `json:"-"`
}

// Response represents one page of jobs
type Response struct {
	Jobs       []*Status `json:"jobs"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	TotalJobs  int       `json:"total_jobs"`
	TotalPages int       `json:"total_pages"`
}

// Constants for job status
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusCancelled  = "cancelled"
)

// Constants for pagination
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Constants for configuration
const (
	DefaultMaxConcurrentTasks = 4
	MaxAllowedConcurrentTasks = 100
)

// ValidateMaxConcurrentTasks clamps maxConcurrentTasks to a sane range.
func ValidateMaxConcurrentTasks(maxConcurrentTasks int) int {
	if maxConcurrentTasks <= 0 {
		return DefaultMaxConcurrentTasks
	}
	if maxConcurrentTasks > MaxAllowedConcurrentTasks {
		return MaxAllowedConcurrentTasks
	}
	return maxConcurrentTasks
}
