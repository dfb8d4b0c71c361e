// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
)

// InterviewDependencies defines the interface for lifecycle operations.
type InterviewDependencies interface {
	CreateInterview(ctx context.Context) (string, error)
	StartInterview(ctx context.Context, interviewID string) error
	Terminate(ctx context.Context, interviewID, reason string) error
}

// InterviewHandler handles interview lifecycle requests.
type InterviewHandler struct {
	deps InterviewDependencies
}

// NewInterviewHandler creates a new interview handler.
func NewInterviewHandler(deps InterviewDependencies) *InterviewHandler {
	return &InterviewHandler{deps: deps}
}

type createResponse struct {
	InterviewID string `json:"interview_id"`
}

// HandleCreate handles POST /v1/interviews requests.
func (h *InterviewHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	id, err := h.deps.CreateInterview(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createResponse{InterviewID: id})
}

// HandleStart handles POST /v1/interviews/{id}/start requests.
func (h *InterviewHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.deps.StartInterview(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ackResponse{Status: "started"})
}

type terminateRequest struct {
	Reason string `json:"reason"`
}

// HandleTerminate handles POST /v1/interviews/{id}/terminate requests.
func (h *InterviewHandler) HandleTerminate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req terminateRequest
	if r.Body != nil {
		// The reason is optional; a bodyless terminate is still valid.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if err := h.deps.Terminate(r.Context(), id, req.Reason); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ackResponse{Status: "terminated"})
}
