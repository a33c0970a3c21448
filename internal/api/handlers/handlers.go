package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ledgerflow/importd/internal/api/middleware"
	"github.com/ledgerflow/importd/internal/importer"
	"github.com/ledgerflow/importd/internal/jobs"
)

// EntityDirectory is the slice of the ledger the HTTP layer needs.
type EntityDirectory interface {
	ListEntities(ctx context.Context) ([]importer.Entity, error)
	CreateEntity(ctx context.Context, name string) (*importer.Entity, error)
	AvailableTags(ctx context.Context) ([]string, error)
}

// ImportsHandler handles import job endpoints.
type ImportsHandler struct {
	publisher jobs.Publisher
	progress  jobs.ProgressStore
	log       zerolog.Logger
}

// NewImportsHandler creates a new imports handler.
func NewImportsHandler(publisher jobs.Publisher, progress jobs.ProgressStore, log zerolog.Logger) *ImportsHandler {
	return &ImportsHandler{
		publisher: publisher,
		progress:  progress,
		log:       log,
	}
}

// EnqueueProcess handles POST /api/imports/process
func (h *ImportsHandler) EnqueueProcess(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Account      string                       `json:"account"`
		Transactions []importer.ParsedTransaction `json:"transactions"`
		// Optional raw statement (base64) for archiving.
		FileName string `json:"file_name,omitempty"`
		Raw      []byte `json:"raw,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if len(req.Transactions) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "transactions are required")
		return
	}

	job := &jobs.ImportJob{
		Kind:     jobs.JobKindProcess,
		Account:  req.Account,
		Parsed:   req.Transactions,
		FileName: req.FileName,
		Raw:      req.Raw,
	}

	if err := h.publisher.Publish(r.Context(), job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue processing job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue processing job")
		return
	}

	h.log.Info().
		Str("job_id", job.JobID).
		Str("session_id", job.SessionID).
		Int("count", len(req.Transactions)).
		Msg("Processing job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id":     job.JobID,
		"session_id": job.SessionID,
		"status":     string(job.Status),
	})
}

// EnqueueExecute handles POST /api/imports/execute
func (h *ImportsHandler) EnqueueExecute(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Account      string                          `json:"account"`
		Transactions []importer.ConfirmedTransaction `json:"transactions"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if len(req.Transactions) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "transactions are required")
		return
	}

	for _, tx := range req.Transactions {
		if tx.EntityID == "" || tx.EntityName == "" {
			middleware.WriteError(w, http.StatusBadRequest, "every transaction needs a resolved entity")
			return
		}
	}

	job := &jobs.ImportJob{
		Kind:      jobs.JobKindExecute,
		Account:   req.Account,
		Confirmed: req.Transactions,
	}

	if err := h.publisher.Publish(r.Context(), job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue execute job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue execute job")
		return
	}

	h.log.Info().
		Str("job_id", job.JobID).
		Str("session_id", job.SessionID).
		Int("count", len(req.Transactions)).
		Msg("Execute job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id":     job.JobID,
		"session_id": job.SessionID,
		"status":     string(job.Status),
	})
}

// GetProgress handles GET /api/imports/progress/{sessionId}
func (h *ImportsHandler) GetProgress(w http.ResponseWriter, r *http.Request, sessionID string) {
	snap, ok := h.progress.Get(sessionID)
	if !ok {
		middleware.WriteError(w, http.StatusNotFound, "No progress for session")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, snap)
}

// EntitiesHandler handles entity directory endpoints.
type EntitiesHandler struct {
	directory EntityDirectory
	log       zerolog.Logger
}

// NewEntitiesHandler creates a new entities handler.
func NewEntitiesHandler(directory EntityDirectory, log zerolog.Logger) *EntitiesHandler {
	return &EntitiesHandler{
		directory: directory,
		log:       log,
	}
}

// ListEntities handles GET /api/entities
func (h *EntitiesHandler) ListEntities(w http.ResponseWriter, r *http.Request) {
	entities, err := h.directory.ListEntities(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list entities")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list entities")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"entities": entities,
		"count":    len(entities),
	})
}

// CreateEntity handles POST /api/entities
func (h *EntitiesHandler) CreateEntity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Name is required")
		return
	}

	entity, err := h.directory.CreateEntity(r.Context(), req.Name)
	if err != nil {
		h.log.Error().Err(err).Str("name", req.Name).Msg("Failed to create entity")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to create entity")
		return
	}

	h.log.Info().Str("entity_id", entity.EntityID).Str("name", entity.Name).Msg("Entity created")

	middleware.WriteJSON(w, http.StatusCreated, entity)
}

// ListTags handles GET /api/tags
func (h *EntitiesHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.directory.AvailableTags(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list tags")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list tags")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"tags":  tags,
		"count": len(tags),
	})
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store: store,
		log:   log,
	}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := jobs.JobFilter{
		SessionID: query.Get("session_id"),
		Kind:      jobs.JobKind(query.Get("kind")),
		Status:    jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}
