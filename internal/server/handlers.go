package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/maauso/audio-slicer/internal/audio"
	"github.com/maauso/audio-slicer/internal/job"
	"github.com/maauso/audio-slicer/internal/slicer"
)

// DefaultMaxUploadBytes caps the body of POST /segments.
const DefaultMaxUploadBytes = 512 << 20

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	batches            *job.BatchService
	decoder            audio.Decoder
	defaults           slicer.Config
	targetRate         int
	tempDir            string
	maxUploadBytes     int64
	validator          *validator.Validate
	logger             *slog.Logger
	enableAsyncProcess bool
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithAsyncProcessing enables or disables background processing.
// When disabled, CreateBatch only records the jobs and returns immediately
// without starting them.
func WithAsyncProcessing(enabled bool) HandlerOption {
	return func(h *Handlers) {
		h.enableAsyncProcess = enabled
	}
}

// WithUploadTempDir sets where uploaded files are staged.
func WithUploadTempDir(dir string) HandlerOption {
	return func(h *Handlers) {
		h.tempDir = dir
	}
}

// WithTargetRate resamples uploads to rate before slicing. Zero keeps the native rate.
func WithTargetRate(rate int) HandlerOption {
	return func(h *Handlers) {
		h.targetRate = rate
	}
}

// WithMaxUploadBytes limits the size of uploaded files.
func WithMaxUploadBytes(n int64) HandlerOption {
	return func(h *Handlers) {
		if n > 0 {
			h.maxUploadBytes = n
		}
	}
}

// NewHandlers creates a new Handlers instance. defaults holds the slicing
// settings used when a request does not override them.
func NewHandlers(batches *job.BatchService, decoder audio.Decoder, defaults slicer.Config, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		batches:            batches,
		decoder:            decoder,
		defaults:           defaults,
		maxUploadBytes:     DefaultMaxUploadBytes,
		validator:          validator.New(),
		logger:             logger,
		enableAsyncProcess: true, // Default to enabled
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Segments handles POST /segments requests. The body is an audio file; the
// response lists the segment boundaries without storing any clip.
func (h *Handlers) Segments(w http.ResponseWriter, r *http.Request) {
	query, err := parseSegmentQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_QUERY")
		return
	}
	if err := h.validator.Struct(query); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	path, err := h.stageUpload(w, r, query.Format)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "audio file too large", "PAYLOAD_TOO_LARGE")
			return
		}
		h.logger.Error("failed to stage upload", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to read audio", "UPLOAD_FAILED")
		return
	}
	defer func() { _ = os.Remove(path) }()

	wf, err := h.decoder.Decode(r.Context(), path)
	if err != nil {
		if errors.Is(err, audio.ErrUnsupportedFormat) {
			writeError(w, http.StatusUnsupportedMediaType, err.Error(), "UNSUPPORTED_FORMAT")
			return
		}
		h.logger.Warn("failed to decode upload", slog.String("error", err.Error()))
		writeError(w, http.StatusUnprocessableEntity, "failed to decode audio", "DECODE_FAILED")
		return
	}
	wf = audio.ResampleLinear(wf, h.targetRate)

	sl, err := slicer.New(query.apply(h.defaults).WithSampleRate(wf.SampleRate))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_CONFIG")
		return
	}

	segments, err := sl.Slice(wf)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error(), "INVALID_AUDIO")
		return
	}

	rate := float64(wf.SampleRate)
	resp := SegmentsResponse{
		SampleRate:   wf.SampleRate,
		Channels:     wf.NumChannels(),
		TotalSamples: wf.Len(),
		DurationSec:  float64(wf.Len()) / rate,
		Segments:     make([]SegmentResponse, 0, len(segments)),
	}
	for _, seg := range segments {
		resp.Segments = append(resp.Segments, SegmentResponse{
			Index:    seg.Index,
			Start:    seg.Start,
			End:      seg.End,
			StartSec: float64(seg.Start) / rate,
			EndSec:   float64(seg.End) / rate,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// CreateBatch handles POST /batches requests.
func (h *Handlers) CreateBatch(w http.ResponseWriter, r *http.Request) {
	var req CreateBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	paths, err := audio.ListInputs(req.InputDir)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_INPUT_DIR")
		return
	}

	batch, err := h.batches.Submit(r.Context(), paths)
	if err != nil {
		if errors.Is(err, job.ErrNoInputs) {
			writeError(w, http.StatusBadRequest, "input directory has no audio files", "NO_INPUTS")
			return
		}
		h.logger.Error("failed to submit batch",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to submit batch", "BATCH_SUBMIT_FAILED")
		return
	}

	// Use context.WithoutCancel to prevent cancellation when the request ends
	if h.enableAsyncProcess {
		go h.batches.Execute(context.WithoutCancel(r.Context()), batch)
	}

	resp := CreateBatchResponse{
		ID:   batch.ID,
		Jobs: make([]JobResponse, 0, len(batch.Jobs)),
	}
	for _, j := range batch.Jobs {
		resp.Jobs = append(resp.Jobs, toJobResponse(j.Clone()))
	}

	writeJSON(w, http.StatusAccepted, resp)
}

// ListJobs handles GET /jobs requests, optionally filtered by ?batch_id=.
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.batches.ListJobs(r.Context(), r.URL.Query().Get("batch_id"))
	if err != nil {
		h.logger.Error("failed to list jobs", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list jobs", "JOB_LIST_FAILED")
		return
	}

	resp := JobListResponse{Jobs: make([]JobResponse, 0, len(jobs))}
	for _, j := range jobs {
		resp.Jobs = append(resp.Jobs, toJobResponse(j))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetJob handles GET /jobs/{id} requests.
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job ID is required", "MISSING_JOB_ID")
		return
	}

	foundJob, err := h.batches.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found", "JOB_NOT_FOUND")
			return
		}
		h.logger.Error("failed to get job",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get job", "JOB_FETCH_FAILED")
		return
	}

	writeJSON(w, http.StatusOK, toJobResponse(foundJob))
}

// stageUpload copies the request body to a temp file named with ext so the
// decoder can dispatch on it.
func (h *Handlers) stageUpload(w http.ResponseWriter, r *http.Request, ext string) (string, error) {
	body := http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	defer func() { _ = body.Close() }()

	f, err := os.CreateTemp(h.tempDir, "upload_*."+ext)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	if _, err := io.Copy(f, body); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return f.Name(), nil
}

// parseSegmentQuery reads the slicing overrides from the query string.
func parseSegmentQuery(q url.Values) (SegmentQuery, error) {
	query := SegmentQuery{Format: q.Get("format")}
	if query.Format == "" {
		query.Format = "wav"
	}

	if v := q.Get("threshold_db"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return query, fmt.Errorf("threshold_db: %w", err)
		}
		query.ThresholdDB = &f
	}

	ints := []struct {
		name string
		dst  **int
	}{
		{"min_length_ms", &query.MinLengthMs},
		{"min_interval_ms", &query.MinIntervalMs},
		{"hop_size_ms", &query.HopSizeMs},
		{"max_sil_kept_ms", &query.MaxSilKeptMs},
	}
	for _, p := range ints {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return query, fmt.Errorf("%s: %w", p.name, err)
		}
		*p.dst = &n
	}
	return query, nil
}

// apply returns base with the overrides of q.
func (q SegmentQuery) apply(base slicer.Config) slicer.Config {
	if q.ThresholdDB != nil {
		base.ThresholdDB = *q.ThresholdDB
	}
	if q.MinLengthMs != nil {
		base.MinLengthMs = *q.MinLengthMs
	}
	if q.MinIntervalMs != nil {
		base.MinIntervalMs = *q.MinIntervalMs
	}
	if q.HopSizeMs != nil {
		base.HopSizeMs = *q.HopSizeMs
	}
	if q.MaxSilKeptMs != nil {
		base.MaxSilKeptMs = *q.MaxSilKeptMs
	}
	return base
}

func toJobResponse(j *job.Job) JobResponse {
	resp := JobResponse{
		ID:        j.ID,
		BatchID:   j.BatchID,
		InputPath: j.InputPath,
		Status:    string(j.Status),
		Error:     j.Error,
		CreatedAt: j.CreatedAt,
	}
	if !j.StartedAt.IsZero() {
		resp.StartedAt = timePtr(j.StartedAt)
	}
	if !j.CompletedAt.IsZero() {
		resp.CompletedAt = timePtr(j.CompletedAt)
	}
	for _, c := range j.Clips {
		resp.Clips = append(resp.Clips, ClipResponse{
			Index:       c.Index,
			Start:       c.Start,
			End:         c.End,
			DurationSec: c.Duration().Seconds(),
			Location:    c.Location,
		})
	}
	return resp
}

func timePtr(t time.Time) *time.Time {
	return &t
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
