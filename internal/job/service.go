package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/maauso/audio-slicer/internal/audio"
	"github.com/maauso/audio-slicer/internal/job/id"
	"github.com/maauso/audio-slicer/internal/storage"
)

// ErrNoInputs is returned when a batch is submitted without files.
var ErrNoInputs = errors.New("no input files")

// Batch is a set of jobs submitted together.
type Batch struct {
	ID        string
	Jobs      []*Job
	CreatedAt time.Time
}

// BatchReport summarizes a finished batch.
type BatchReport struct {
	BatchID   string
	Total     int
	Succeeded int
	Failed    int
	Cancelled int
	// Skipped counts jobs that were already past PENDING when Execute ran.
	Skipped int
	// Clips is the number of clips stored across all files.
	Clips   int
	Elapsed time.Duration
}

// BatchService slices a set of files concurrently.
// Each file is an independent job: one failure does not stop the others.
type BatchService struct {
	repo       Repository
	splitter   audio.Splitter
	store      storage.Storage
	logger     *slog.Logger
	maxWorkers int
}

// BatchOption configures a BatchService.
type BatchOption func(*BatchService)

// WithMaxWorkers limits how many files are processed in parallel.
// Values below 1 are ignored.
func WithMaxWorkers(n int) BatchOption {
	return func(s *BatchService) {
		if n > 0 {
			s.maxWorkers = n
		}
	}
}

// NewBatchService creates a new BatchService with one worker by default.
func NewBatchService(repo Repository, splitter audio.Splitter, store storage.Storage, logger *slog.Logger, opts ...BatchOption) *BatchService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &BatchService{
		repo:       repo,
		splitter:   splitter,
		store:      store,
		logger:     logger,
		maxWorkers: 1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxWorkers returns the worker limit.
func (s *BatchService) MaxWorkers() int {
	return s.maxWorkers
}

// Submit prepares the output location and records one PENDING job per path.
// Prepare runs here, once, so workers never race to create the output.
func (s *BatchService) Submit(ctx context.Context, paths []string) (*Batch, error) {
	if len(paths) == 0 {
		return nil, ErrNoInputs
	}

	if err := s.store.Prepare(ctx); err != nil {
		return nil, fmt.Errorf("prepare output: %w", err)
	}

	batch := &Batch{
		ID:        id.Generate("batch"),
		Jobs:      make([]*Job, 0, len(paths)),
		CreatedAt: time.Now(),
	}
	for _, p := range paths {
		j := New(batch.ID, p)
		if err := s.repo.Save(ctx, j); err != nil {
			return nil, fmt.Errorf("save job: %w", err)
		}
		batch.Jobs = append(batch.Jobs, j)
	}

	s.logger.Info("batch submitted",
		slog.String("batch_id", batch.ID),
		slog.Int("files", len(paths)),
		slog.Int("workers", s.maxWorkers),
	)
	return batch, nil
}

// Execute processes every job of batch and blocks until all are terminal.
// When ctx is done, jobs that have not started are marked CANCELLED.
func (s *BatchService) Execute(ctx context.Context, batch *Batch) *BatchReport {
	start := time.Now()
	total := len(batch.Jobs)

	var succeeded, failed, cancelled, skipped, clips, done atomic.Int64

	g := new(errgroup.Group)
	g.SetLimit(s.maxWorkers)

	for _, j := range batch.Jobs {
		g.Go(func() error {
			status, ran := s.process(ctx, j)
			switch {
			case !ran:
				skipped.Add(1)
			case status == StatusCompleted:
				succeeded.Add(1)
				clips.Add(int64(len(j.Clips)))
			case status == StatusFailed:
				failed.Add(1)
			case status == StatusCancelled:
				cancelled.Add(1)
			}
			s.logger.Info("progress",
				slog.String("batch_id", batch.ID),
				slog.Int64("done", done.Add(1)),
				slog.Int("total", total),
			)
			return nil
		})
	}
	_ = g.Wait()

	report := &BatchReport{
		BatchID:   batch.ID,
		Total:     total,
		Succeeded: int(succeeded.Load()),
		Failed:    int(failed.Load()),
		Cancelled: int(cancelled.Load()),
		Skipped:   int(skipped.Load()),
		Clips:     int(clips.Load()),
		Elapsed:   time.Since(start),
	}

	s.logger.Info("batch finished",
		slog.String("batch_id", report.BatchID),
		slog.Int("total", report.Total),
		slog.Int("succeeded", report.Succeeded),
		slog.Int("failed", report.Failed),
		slog.Int("cancelled", report.Cancelled),
		slog.Int("skipped", report.Skipped),
		slog.Int("clips", report.Clips),
		slog.Duration("elapsed", report.Elapsed),
	)
	return report
}

// Run submits paths and processes them. The error is non-nil only when
// the batch could not start; per-file failures are counted in the report.
func (s *BatchService) Run(ctx context.Context, paths []string) (*BatchReport, error) {
	batch, err := s.Submit(ctx, paths)
	if err != nil {
		return nil, err
	}
	return s.Execute(ctx, batch), nil
}

// GetJob retrieves a job by ID.
func (s *BatchService) GetJob(ctx context.Context, jobID string) (*Job, error) {
	return s.repo.FindByID(ctx, jobID)
}

// ListJobs returns the jobs of batchID, or all jobs when batchID is empty.
func (s *BatchService) ListJobs(ctx context.Context, batchID string) ([]*Job, error) {
	return s.repo.List(ctx, batchID)
}

// process runs one job to a terminal state and returns that state. It
// reports false when the job was no longer PENDING and was left untouched.
func (s *BatchService) process(ctx context.Context, j *Job) (Status, bool) {
	logger := s.logger.With(
		slog.String("job_id", j.ID),
		slog.String("input", j.InputPath),
	)

	if ctx.Err() != nil {
		if err := j.Cancel(); err != nil {
			logSkipped(logger, j, err)
			return j.GetStatus(), false
		}
		s.save(ctx, j, logger)
		logger.Info("job cancelled before start")
		return j.GetStatus(), true
	}

	if err := j.Start(); err != nil {
		logSkipped(logger, j, err)
		return j.GetStatus(), false
	}
	s.save(ctx, j, logger)

	clips, err := s.splitter.Split(ctx, j.InputPath)
	var terr error
	switch {
	case err == nil:
		terr = j.Complete(clips)
		logger.Info("job completed", slog.Int("clips", len(clips)))
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		terr = j.Cancel()
		logger.Info("job cancelled")
	default:
		terr = j.Fail(err.Error())
		logger.Error("job failed", slog.String("error", err.Error()))
	}
	if terr != nil {
		logger.Warn("failed to record job outcome",
			slog.String("status", string(j.GetStatus())),
			slog.String("error", terr.Error()),
		)
	}

	s.save(ctx, j, logger)
	return j.GetStatus(), true
}

func logSkipped(logger *slog.Logger, j *Job, err error) {
	logger.Warn("job skipped",
		slog.String("status", string(j.GetStatus())),
		slog.String("error", err.Error()),
	)
}

// save persists j even after ctx is done so final states are recorded.
func (s *BatchService) save(ctx context.Context, j *Job, logger *slog.Logger) {
	if err := s.repo.Save(context.WithoutCancel(ctx), j); err != nil {
		logger.Warn("failed to save job", slog.String("error", err.Error()))
	}
}
