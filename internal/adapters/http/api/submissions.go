// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	service "github.com/okian/parley/internal/app"
)

// SubmissionDependencies defines the interface for the coding flow.
type SubmissionDependencies interface {
	SubmitCode(ctx context.Context, interviewID, clientEventID, problemID, language, code string) (service.SubmitResult, error)
	RecordTestResults(ctx context.Context, interviewID, clientEventID, problemID string, passed, total int, errMsg string) (service.SubmitResult, error)
}

// SubmissionHandler handles code submission requests.
type SubmissionHandler struct {
	deps SubmissionDependencies
}

// NewSubmissionHandler creates a new submission handler.
func NewSubmissionHandler(deps SubmissionDependencies) *SubmissionHandler {
	return &SubmissionHandler{deps: deps}
}

type submissionRequest struct {
	ClientEventID string `json:"client_event_id"`
	ProblemID     string `json:"problem_id"`
	Language      string `json:"language"`
	Code          string `json:"code"`
}

func (s submissionRequest) validate() error {
	switch {
	case strings.TrimSpace(s.ProblemID) == "":
		return errors.New("missing problem_id")
	case strings.TrimSpace(s.Language) == "":
		return errors.New("missing language")
	case s.Code == "":
		return errors.New("missing code")
	}
	return nil
}

// HandlePostSubmission handles POST /v1/interviews/{id}/submissions requests.
func (h *SubmissionHandler) HandlePostSubmission(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req submissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	res, err := h.deps.SubmitCode(r.Context(), id, req.ClientEventID, req.ProblemID, req.Language, req.Code)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	status := "accepted"
	if res.Duplicate {
		status = "duplicate"
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: status, Seq: res.Seq, Duplicate: res.Duplicate})
}

type testResultsRequest struct {
	ClientEventID string `json:"client_event_id"`
	ProblemID     string `json:"problem_id"`
	Passed        int    `json:"passed"`
	Total         int    `json:"total"`
	Error         string `json:"error"`
}

func (t testResultsRequest) validate() error {
	switch {
	case strings.TrimSpace(t.ProblemID) == "":
		return errors.New("missing problem_id")
	case t.Passed < 0 || t.Total < 0 || t.Passed > t.Total:
		return errors.New("invalid passed/total counts")
	}
	return nil
}

// HandlePostTestResults handles POST /v1/interviews/{id}/test-results requests.
func (h *SubmissionHandler) HandlePostTestResults(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req testResultsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	res, err := h.deps.RecordTestResults(r.Context(), id, req.ClientEventID, req.ProblemID, req.Passed, req.Total, req.Error)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	status := "accepted"
	if res.Duplicate {
		status = "duplicate"
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: status, Seq: res.Seq, Duplicate: res.Duplicate})
}
