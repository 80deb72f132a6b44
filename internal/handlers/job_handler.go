// -----------------------------------------------------------------------
// Job API: create, fetch and list article jobs. Creation validates the
// request up front; everything after that is asynchronous and observed by
// polling GET /api/jobs/{id}.
// -----------------------------------------------------------------------

package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scrivo/internal/interfaces"
	"github.com/ternarybob/scrivo/internal/models"
)

// CreateJobRequest is the validated payload for job creation.
type CreateJobRequest struct {
	URL          string   `json:"url" validate:"required,url,startswith=https://"`
	Topic        string   `json:"topic" validate:"required,min=3,max=200"`
	Keywords     []string `json:"keywords" validate:"required,min=1,max=12,dive,min=1,max=60"`
	TargetLength int      `json:"target_length" validate:"required,min=300,max=5000"`
	Notes        string   `json:"notes" validate:"omitempty,max=2000"`
}

// JobHandler serves the job management API.
type JobHandler struct {
	jobs     interfaces.JobStore
	validate *validator.Validate
	trigger  func()
	logger   arbor.ILogger
}

// NewJobHandler creates a job handler. trigger, if non-nil, is invoked after
// each successful creation to fire a worker run without waiting for the next
// scheduled tick.
func NewJobHandler(jobs interfaces.JobStore, trigger func(), logger arbor.ILogger) *JobHandler {
	return &JobHandler{
		jobs:     jobs,
		validate: validator.New(),
		trigger:  trigger,
		logger:   logger,
	}
}

// CreateJobHandler handles POST /api/jobs.
func (h *JobHandler) CreateJobHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	job, err := h.jobs.Create(r.Context(), models.JobInput{
		URL:          req.URL,
		Topic:        req.Topic,
		Keywords:     req.Keywords,
		TargetLength: req.TargetLength,
		Notes:        req.Notes,
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("Job creation failed")
		writeError(w, http.StatusInternalServerError, "failed to create job")
		return
	}

	if h.trigger != nil {
		h.trigger()
	}

	writeJSON(w, http.StatusCreated, job)
}

// GetJobHandler handles GET /api/jobs/{id}.
func (h *JobHandler) GetJobHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "invalid job ID")
		return
	}

	job, err := h.jobs.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, interfaces.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		h.logger.Error().Err(err).Str("job_id", id).Msg("Job lookup failed")
		writeError(w, http.StatusInternalServerError, "failed to get job")
		return
	}

	writeJSON(w, http.StatusOK, job)
}

// ListJobsHandler handles GET /api/jobs with optional status, limit and
// offset query parameters.
func (h *JobHandler) ListJobsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	opts := models.JobListOptions{Limit: 50}

	if raw := r.URL.Query().Get("status"); raw != "" {
		status := models.JobStatus(raw)
		if !status.IsValid() {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", raw))
			return
		}
		opts.Status = &status
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil && limit > 0 && limit <= 500 {
			opts.Limit = limit
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if offset, err := strconv.Atoi(raw); err == nil && offset >= 0 {
			opts.Offset = offset
		}
	}

	jobs, err := h.jobs.List(r.Context(), opts)
	if err != nil {
		h.logger.Error().Err(err).Msg("Job list failed")
		writeError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

// StatusHandler handles GET /api/status with queue counts by lifecycle state.
func (h *JobHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	counts, err := h.jobs.CountByStatus(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Status counts failed")
		writeError(w, http.StatusInternalServerError, "failed to count jobs")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"counts": counts})
}

// validationMessage flattens validator errors into one readable line.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
