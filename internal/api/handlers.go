package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"gdd-orchestrator/internal/config"
	"gdd-orchestrator/internal/domain"
	"gdd-orchestrator/internal/export"
	appTemporal "gdd-orchestrator/internal/temporal"
)

type JobStore interface {
	CreateJob(ctx context.Context, jobID, concept string) error
	SetJobObjectKey(ctx context.Context, jobID, objectKey string) error
	GetJob(ctx context.Context, jobID string) (domain.JobRecord, error)
	GetJobStatus(ctx context.Context, jobID string) (domain.JobStatus, domain.TerminationReason, error)
	ListIterations(ctx context.Context, jobID string) ([]domain.IterationRow, error)
	ListPendingReviews(ctx context.Context) ([]domain.ReviewQueueItem, error)
	Ping(ctx context.Context) error
}

type conceptBlobStore interface {
	PutConcept(ctx context.Context, jobID string, concept []byte) (string, error)
}

type workflowSignaler interface {
	SignalWorkflow(ctx context.Context, workflowID string, runID string, signalName string, arg interface{}) error
}

type Handler struct {
	cfg            config.Config
	store          JobStore
	blob           conceptBlobStore
	temporalClient workflowSignaler
}

type createJobRequest struct {
	Concept string `json:"concept"`
}

type statusResponse struct {
	JobID             string                   `json:"job_id"`
	Status            domain.JobStatus         `json:"status"`
	TerminationReason domain.TerminationReason `json:"termination_reason,omitempty"`
}

type resultResponse struct {
	JobID             string                   `json:"job_id"`
	Status            domain.JobStatus         `json:"status"`
	TerminationReason domain.TerminationReason `json:"termination_reason,omitempty"`
	Success           bool                     `json:"success"`
	OverallScore      *float64                 `json:"overall_score,omitempty"`
	TotalIterations   int                      `json:"total_iterations"`
	FinalGDD          json.RawMessage          `json:"final_gdd,omitempty"`
	FailureReason     *string                  `json:"failure_reason,omitempty"`
}

type reviewRequest struct {
	Decision string `json:"decision"`
	Reviewer string `json:"reviewer,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

func NewHandler(cfg config.Config, store JobStore, blob conceptBlobStore, temporalClient workflowSignaler) *Handler {
	return &Handler{cfg: cfg, store: store, blob: blob, temporalClient: temporalClient}
}

// CreateJob accepts a concept as JSON ({"concept": "..."}) or as a multipart text file upload.
func (h *Handler) CreateJob(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	concept, status, msg := h.readConcept(r)
	if msg != "" {
		writeJSON(w, status, map[string]any{"error": msg})
		return
	}
	if err := domain.ValidateConcept(concept, h.cfg.MaxConceptBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	concept = strings.TrimSpace(concept)

	jobID := uuid.NewString()
	if err := h.store.CreateJob(ctx, jobID, concept); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to create job"})
		return
	}

	objectKey, err := h.blob.PutConcept(ctx, jobID, []byte(concept))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to upload concept"})
		return
	}
	if err := h.store.SetJobObjectKey(ctx, jobID, objectKey); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to record upload"})
		return
	}

	// The workflow is started by the event handler once the concept object lands.
	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":      jobID,
		"workflow_id": h.workflowID(jobID),
		"status":      domain.StatusReceived,
		"insight":     domain.AnalyzeConcept(concept),
	})
}

func (h *Handler) readConcept(r *http.Request) (string, int, string) {
	limit := int64(h.cfg.MaxConceptBytes)
	if limit <= 0 {
		limit = domain.DefaultMaxConceptBytes
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(limit + 1024); err != nil {
			return "", http.StatusBadRequest, "invalid multipart payload"
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			return "", http.StatusBadRequest, "file form field is required"
		}
		defer file.Close()

		body, err := io.ReadAll(io.LimitReader(file, limit+1))
		if err != nil {
			return "", http.StatusBadRequest, "failed to read file"
		}
		if int64(len(body)) > limit {
			return "", http.StatusRequestEntityTooLarge, "file exceeds size limit"
		}
		if !isSupportedTextUpload(body) {
			return "", http.StatusUnsupportedMediaType, "only plain text concepts are supported"
		}
		return string(body), 0, ""
	}

	var req createJobRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, limit*2+1024)).Decode(&req); err != nil {
		return "", http.StatusBadRequest, "invalid json"
	}
	return req.Concept, 0, ""
}

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request, jobID string) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, reason, err := h.store.GetJobStatus(ctx, jobID)
	if err != nil {
		writeStoreError(w, err, "failed to fetch status")
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{JobID: jobID, Status: status, TerminationReason: reason})
}

func (h *Handler) GetResult(w http.ResponseWriter, r *http.Request, jobID string) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	rec, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		writeStoreError(w, err, "failed to fetch result")
		return
	}
	writeJSON(w, http.StatusOK, resultResponse{
		JobID:             jobID,
		Status:            rec.Status,
		TerminationReason: rec.TerminationReason,
		Success:           rec.Success,
		OverallScore:      rec.OverallScore,
		TotalIterations:   rec.TotalIterations,
		FinalGDD:          rec.FinalJSON,
		FailureReason:     rec.FailureReason,
	})
}

func (h *Handler) GetIterations(w http.ResponseWriter, r *http.Request, jobID string) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, _, err := h.store.GetJobStatus(ctx, jobID); err != nil {
		writeStoreError(w, err, "failed to fetch job")
		return
	}
	items, err := h.store.ListIterations(ctx, jobID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to fetch iterations"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"job_id": jobID, "items": items})
}

// Export renders the stored final document on demand in the requested format.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request, jobID, format string) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	f, err := export.ParseFormat(format)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	rec, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		writeStoreError(w, err, "failed to fetch job")
		return
	}
	if len(rec.FinalJSON) == 0 {
		writeJSON(w, http.StatusConflict, map[string]any{"error": "job has no final document yet", "status": rec.Status})
		return
	}
	var doc domain.Document
	if err := json.Unmarshal(rec.FinalJSON, &doc); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "stored document is unreadable"})
		return
	}
	body, err := export.Render(f, doc)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to render export"})
		return
	}
	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, f.Filename()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *Handler) SubmitReview(w http.ResponseWriter, r *http.Request, jobID string) {
	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return
	}

	decision := domain.ReviewDecision(strings.ToLower(req.Decision))
	switch decision {
	case domain.ReviewApprove, domain.ReviewReject:
	default:
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid decision"})
		return
	}

	signal := appTemporal.ReviewDecisionSignal{
		Decision: decision,
		Reviewer: req.Reviewer,
		Reason:   req.Reason,
	}
	// Signals only reach a workflow already parked on review; they never start one.
	if err := h.temporalClient.SignalWorkflow(r.Context(), h.workflowID(jobID), "", appTemporal.ReviewDecisionSignalName, signal); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to signal workflow"})
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"job_id": jobID, "status": "review_signal_sent"})
}

func (h *Handler) PendingReviews(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	items, err := h.store.ListPendingReviews(ctx)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to fetch pending reviews"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *Handler) workflowID(jobID string) string {
	return WorkflowID(h.cfg.WorkflowIDPrefix, jobID)
}

// WorkflowID is shared with the event handler so signals find the workflow it started.
func WorkflowID(prefix, jobID string) string {
	return fmt.Sprintf("%s-%s", prefix, jobID)
}

// isSupportedTextUpload accepts non-blank UTF-8 text and rejects binary formats sniffed from the header.
func isSupportedTextUpload(body []byte) bool {
	if !domain.IsTextPayload(body) || strings.TrimSpace(string(body)) == "" {
		return false
	}
	return strings.HasPrefix(http.DetectContentType(body), "text/plain")
}

func writeStoreError(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, sql.ErrNoRows) {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "job not found"})
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]any{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
