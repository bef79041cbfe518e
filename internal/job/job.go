// Package job tracks the per-file work of a slicing batch.
// It includes the Job entity with its state machine, the repository port
// and the BatchService that fans files out over a bounded worker pool.
package job

import (
	"errors"
	"sync"
	"time"

	"github.com/maauso/audio-slicer/internal/audio"
	"github.com/maauso/audio-slicer/internal/job/id"
)

// Status represents the current state of a Job.
type Status string

const (
	// StatusPending indicates the file is waiting for a worker.
	StatusPending Status = "PENDING"
	// StatusRunning indicates the file is being decoded and sliced.
	StatusRunning Status = "RUNNING"
	// StatusCompleted indicates every clip of the file was stored.
	StatusCompleted Status = "COMPLETED"
	// StatusFailed indicates the file could not be processed.
	StatusFailed Status = "FAILED"
	// StatusCancelled indicates the batch was cancelled before the file finished.
	StatusCancelled Status = "CANCELLED"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// validTransitions defines which state transitions are allowed.
var validTransitions = map[Status][]Status{
	StatusPending:   {StatusRunning, StatusCancelled},
	StatusRunning:   {StatusCompleted, StatusFailed, StatusCancelled},
	StatusCompleted: {},
	StatusFailed:    {},
	StatusCancelled: {},
}

// canTransition checks if a transition from one status to another is valid.
func canTransition(from, to Status) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Job is the processing record of one input file.
type Job struct {
	mu sync.RWMutex

	// ID is the unique identifier for this job.
	ID string
	// BatchID groups the jobs submitted together.
	BatchID string
	// InputPath is the audio file being sliced.
	InputPath string
	// Status is the current job state.
	Status Status
	// Clips lists the stored clips once the job completes.
	Clips []audio.Clip
	// Error contains any error message if the job failed.
	Error string
	// CreatedAt is when the job was created.
	CreatedAt time.Time
	// UpdatedAt is when the job was last updated.
	UpdatedAt time.Time
	// StartedAt is when processing started.
	StartedAt time.Time
	// CompletedAt is when processing finished.
	CompletedAt time.Time
}

// New creates a PENDING job for inputPath with a generated ID.
func New(batchID, inputPath string) *Job {
	return NewWithID(id.Generate("job"), batchID, inputPath)
}

// NewWithID creates a PENDING job with the specified ID.
func NewWithID(jobID, batchID, inputPath string) *Job {
	now := time.Now()
	return &Job{
		ID:        jobID,
		BatchID:   batchID,
		InputPath: inputPath,
		Status:    StatusPending,
		Clips:     make([]audio.Clip, 0),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TransitionTo attempts to change the job status to the specified state.
// Returns ErrInvalidTransition if the transition is not allowed.
func (j *Job) TransitionTo(status Status) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.transitionLocked(status)
}

func (j *Job) transitionLocked(status Status) error {
	if !canTransition(j.Status, status) {
		return ErrInvalidTransition
	}

	j.Status = status
	j.UpdatedAt = time.Now()

	switch status {
	case StatusRunning:
		j.StartedAt = j.UpdatedAt
	case StatusCompleted, StatusFailed, StatusCancelled:
		j.CompletedAt = j.UpdatedAt
	}
	return nil
}

// Start transitions the job from PENDING to RUNNING.
func (j *Job) Start() error {
	return j.TransitionTo(StatusRunning)
}

// Complete records the stored clips and transitions the job to COMPLETED.
func (j *Job) Complete(clips []audio.Clip) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.transitionLocked(StatusCompleted); err != nil {
		return err
	}
	j.Clips = append(make([]audio.Clip, 0, len(clips)), clips...)
	return nil
}

// Fail transitions the job to FAILED state with an error message.
func (j *Job) Fail(errMsg string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.transitionLocked(StatusFailed); err != nil {
		return err
	}
	j.Error = errMsg
	return nil
}

// Cancel transitions the job to CANCELLED state.
func (j *Job) Cancel() error {
	return j.TransitionTo(StatusCancelled)
}

// GetStatus returns the current job status (thread-safe).
func (j *Job) GetStatus() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// IsTerminal returns true if the job is in a terminal state.
func (j *Job) IsTerminal() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(validTransitions[j.Status]) == 0
}

// Clone creates a deep copy of the job for safe reads.
func (j *Job) Clone() *Job {
	j.mu.RLock()
	defer j.mu.RUnlock()

	clips := make([]audio.Clip, len(j.Clips))
	copy(clips, j.Clips)

	return &Job{
		ID:          j.ID,
		BatchID:     j.BatchID,
		InputPath:   j.InputPath,
		Status:      j.Status,
		Clips:       clips,
		Error:       j.Error,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
		StartedAt:   j.StartedAt,
		CompletedAt: j.CompletedAt,
	}
}
