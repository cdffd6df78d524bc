package handlers

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/hairizuanbinnoorazman/ohacker/job"
	"github.com/hairizuanbinnoorazman/ohacker/logger"
)

// Notifier wakes the worker pool when a job is queued.
type Notifier interface {
	Notify()
}

// JobHandler handles job-related requests.
type JobHandler struct {
	jobStore job.Store
	notifier Notifier
	logger   logger.Logger
}

// NewJobHandler creates a new job handler. notifier may be nil.
func NewJobHandler(jobStore job.Store, notifier Notifier, log logger.Logger) *JobHandler {
	return &JobHandler{
		jobStore: jobStore,
		notifier: notifier,
		logger:   log,
	}
}

// CreateJobRequest represents a job creation request.
type CreateJobRequest struct {
	Type   string                 `json:"type"`
	Config map[string]interface{} `json:"config"`
}

// validateConfig checks the config fields each job type understands.
func validateConfig(jobType job.JobType, cfg job.JSONMap) string {
	switch jobType {
	case job.JobTypeResearch:
		if q, ok := cfg["query"]; ok {
			if _, isString := q.(string); !isString {
				return "query must be a string"
			}
		}
	case job.JobTypePentest:
		if raw, ok := cfg["target_url"]; ok {
			s, isString := raw.(string)
			if !isString {
				return "target_url must be a string"
			}
			u, err := url.Parse(s)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				return "target_url must be an absolute http(s) URL"
			}
		}
		if r, ok := cfg["research"]; ok {
			if _, isBool := r.(bool); !isBool {
				return "research must be a boolean"
			}
		}
	}
	return ""
}

// Create queues a new job.
func (h *JobHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateJobRequest
	if err := parseJSON(r, &req, h.logger); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	jobType := job.JobType(req.Type)
	if !jobType.IsValid() {
		respondError(w, http.StatusBadRequest, "invalid job type")
		return
	}
	cfg := job.JSONMap(req.Config)
	if msg := validateConfig(jobType, cfg); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	j := &job.Job{
		Type:   jobType,
		Status: job.StatusCreated,
		Config: cfg,
	}
	if err := h.jobStore.Create(r.Context(), j); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create job")
		return
	}

	if h.notifier != nil {
		h.notifier.Notify()
	}

	respondJSON(w, http.StatusCreated, j)
}

// List returns jobs newest first, optionally filtered by ?type=.
func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	var (
		jobs  []*job.Job
		total int
		err   error
	)
	if t := r.URL.Query().Get("type"); t != "" {
		jobType := job.JobType(t)
		if !jobType.IsValid() {
			respondError(w, http.StatusBadRequest, "invalid job type")
			return
		}
		jobs, err = h.jobStore.ListByType(r.Context(), jobType, limit, offset)
		total = len(jobs)
	} else {
		total, err = h.jobStore.Count(r.Context())
		if err == nil {
			jobs, err = h.jobStore.List(r.Context(), limit, offset)
		}
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}

	respondJSON(w, http.StatusOK, NewPaginatedResponse(jobs, total, limit, offset))
}

// GetByID returns a single job.
func (h *JobHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	j, ok := h.load(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, j)
}

// Report returns the markdown report of a finished job.
func (h *JobHandler) Report(w http.ResponseWriter, r *http.Request) {
	j, ok := h.load(w, r)
	if !ok {
		return
	}
	if j.Status != job.StatusSuccess {
		respondError(w, http.StatusConflict, "job has not finished successfully")
		return
	}
	report := j.Result.String("markdown_report")
	if report == "" {
		respondError(w, http.StatusNotFound, "job produced no report")
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(report))
}

func (h *JobHandler) load(w http.ResponseWriter, r *http.Request) (*job.Job, bool) {
	id, ok := parseUUIDOrRespond(w, r, "id", "job")
	if !ok {
		return nil, false
	}

	j, err := h.jobStore.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			respondError(w, http.StatusNotFound, "job not found")
			return nil, false
		}
		respondError(w, http.StatusInternalServerError, "failed to get job")
		return nil, false
	}
	return j, true
}
