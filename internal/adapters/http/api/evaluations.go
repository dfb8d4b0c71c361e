// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/parley/internal/adapters/evalstore"
	"github.com/okian/parley/internal/domain/evaluation"
)

// EvaluationDependencies defines the interface for the scoring flow.
type EvaluationDependencies interface {
	Evaluate(ctx context.Context, interviewID, version string) (evaluation.Output, error)
	EnqueueEvaluation(ctx context.Context, interviewID, version string) (string, error)
	Evaluation(ctx context.Context, interviewID, version string) (evaluation.Output, error)
	Job(ctx context.Context, jobID string) (evalstore.Job, error)
	SaveOverride(ctx context.Context, o evaluation.Override) error
	Overrides(ctx context.Context, interviewID, version string) ([]evaluation.Override, error)
}

// EvaluationHandler handles evaluation requests.
type EvaluationHandler struct {
	deps EvaluationDependencies
}

// NewEvaluationHandler creates a new evaluation handler.
func NewEvaluationHandler(deps EvaluationDependencies) *EvaluationHandler {
	return &EvaluationHandler{deps: deps}
}

type evaluateRequest struct {
	Version string `json:"evaluation_version"`
	// Async queues the run instead of computing inline.
	Async bool `json:"async"`
}

type jobResponse struct {
	JobID       string `json:"job_id"`
	InterviewID string `json:"interview_id,omitempty"`
	Version     string `json:"evaluation_version,omitempty"`
	Status      string `json:"status"`
	Error       string `json:"error,omitempty"`
}

// HandlePostEvaluation handles POST /v1/interviews/{id}/evaluations.
// Synchronous by default; async=true queues a job and returns its id.
func (h *EvaluationHandler) HandlePostEvaluation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if strings.TrimSpace(req.Version) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("missing evaluation_version"))
		return
	}

	if req.Async {
		jobID, err := h.deps.EnqueueEvaluation(r.Context(), id, req.Version)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, jobResponse{JobID: jobID, Status: string(evalstore.JobPending)})
		return
	}

	out, err := h.deps.Evaluate(r.Context(), id, req.Version)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, evaluationResponse(out))
}

// HandleGetEvaluation handles GET /v1/interviews/{id}/evaluations/{version}.
func (h *EvaluationHandler) HandleGetEvaluation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	version := r.PathValue("version")
	out, err := h.deps.Evaluation(r.Context(), id, version)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, evaluationResponse(out))
}

// HandleGetJob handles GET /v1/jobs/{id}.
func (h *EvaluationHandler) HandleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.deps.Job(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jobResponse{
		JobID:       job.ID,
		InterviewID: job.InterviewID,
		Version:     job.Version,
		Status:      string(job.Status),
		Error:       job.Error,
	})
}

type overrideRequest struct {
	Band     evaluation.Band `json:"band"`
	Reviewer string          `json:"reviewer"`
	Note     string          `json:"note"`
}

func (o overrideRequest) validate() error {
	switch o.Band {
	case evaluation.BandStrong, evaluation.BandMixed, evaluation.BandWeak:
	default:
		return errors.New("invalid band")
	}
	if strings.TrimSpace(o.Reviewer) == "" {
		return errors.New("missing reviewer")
	}
	return nil
}

// HandlePostOverride handles POST .../evaluations/{version}/overrides.
func (h *EvaluationHandler) HandlePostOverride(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	version := r.PathValue("version")
	var req overrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	err := h.deps.SaveOverride(r.Context(), evaluation.Override{
		InterviewID: id,
		Version:     version,
		Band:        req.Band,
		Reviewer:    req.Reviewer,
		Note:        req.Note,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ackResponse{Status: "recorded"})
}

// HandleGetOverrides handles GET .../evaluations/{version}/overrides.
func (h *EvaluationHandler) HandleGetOverrides(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	version := r.PathValue("version")
	overrides, err := h.deps.Overrides(r.Context(), id, version)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if overrides == nil {
		overrides = []evaluation.Override{}
	}
	writeJSON(w, http.StatusOK, overrides)
}
