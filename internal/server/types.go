// Package server provides the HTTP surface of the audio slicer.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

import "time"

// SegmentQuery holds the optional slicing overrides of POST /segments.
// Nil fields keep the server defaults.
type SegmentQuery struct {
	ThresholdDB   *float64 `validate:"omitempty,lte=0"`
	MinLengthMs   *int     `validate:"omitempty,gte=0"`
	MinIntervalMs *int     `validate:"omitempty,gt=0"`
	HopSizeMs     *int     `validate:"omitempty,gt=0"`
	MaxSilKeptMs  *int     `validate:"omitempty,gte=0"`
	// Format is the extension of the uploaded file, e.g. "wav" or "mp3".
	Format string `validate:"required,alphanum,max=8"`
}

// SegmentResponse is one computed segment.
type SegmentResponse struct {
	Index    int     `json:"index"`
	Start    int     `json:"start"`
	End      int     `json:"end"`
	StartSec float64 `json:"start_sec"`
	EndSec   float64 `json:"end_sec"`
}

// SegmentsResponse is the HTTP response of POST /segments.
type SegmentsResponse struct {
	SampleRate   int               `json:"sample_rate"`
	Channels     int               `json:"channels"`
	TotalSamples int               `json:"total_samples"`
	DurationSec  float64           `json:"duration_sec"`
	Segments     []SegmentResponse `json:"segments"`
}

// CreateBatchRequest is the HTTP request body for starting a batch.
type CreateBatchRequest struct {
	// InputDir is the server-side directory whose files are sliced.
	InputDir string `json:"input_dir" validate:"required"`
}

// CreateBatchResponse is the HTTP response after starting a batch.
type CreateBatchResponse struct {
	// ID is the unique identifier for the batch.
	ID string `json:"id"`
	// Jobs lists the per-file jobs in PENDING state.
	Jobs []JobResponse `json:"jobs"`
}

// ClipResponse describes a stored clip.
type ClipResponse struct {
	Index       int     `json:"index"`
	Start       int     `json:"start"`
	End         int     `json:"end"`
	DurationSec float64 `json:"duration_sec"`
	Location    string  `json:"location"`
}

// JobResponse is the HTTP response for getting job details.
type JobResponse struct {
	// ID is the unique identifier for the job.
	ID string `json:"id"`
	// BatchID is the batch the job belongs to.
	BatchID string `json:"batch_id"`
	// InputPath is the file being sliced.
	InputPath string `json:"input_path"`
	// Status is the current job status.
	Status string `json:"status"`
	// Error contains any error message if the job failed.
	Error string `json:"error,omitempty"`
	// Clips lists the stored clips of a completed job.
	Clips       []ClipResponse `json:"clips,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// JobListResponse is the HTTP response of GET /jobs.
type JobListResponse struct {
	Jobs []JobResponse `json:"jobs"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
