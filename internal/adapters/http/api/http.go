// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/parley/internal/adapters/evalstore"
	"github.com/okian/parley/internal/adapters/eventstore"
	service "github.com/okian/parley/internal/app"
	"github.com/okian/parley/internal/domain/evaluation"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	InterviewDependencies
	MessageDependencies
	SubmissionDependencies
	SnapshotDependencies
	EvaluationDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	interviewHandler  *InterviewHandler
	messageHandler    *MessageHandler
	submissionHandler *SubmissionHandler
	snapshotHandler   *SnapshotHandler
	evaluationHandler *EvaluationHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:     NewHealthHandler(),
		statsHandler:      NewStatsHandler(statsProvider),
		interviewHandler:  NewInterviewHandler(deps),
		messageHandler:    NewMessageHandler(deps),
		submissionHandler: NewSubmissionHandler(deps),
		snapshotHandler:   NewSnapshotHandler(deps),
		evaluationHandler: NewEvaluationHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("POST /v1/interviews", MetricsMiddleware(s.interviewHandler.HandleCreate, "interviews"))
	mux.HandleFunc("POST /v1/interviews/{id}/start", MetricsMiddleware(s.interviewHandler.HandleStart, "interview_start"))
	mux.HandleFunc("POST /v1/interviews/{id}/terminate", MetricsMiddleware(s.interviewHandler.HandleTerminate, "interview_terminate"))

	mux.HandleFunc("POST /v1/interviews/{id}/messages", MetricsMiddleware(s.messageHandler.HandlePostMessage, "messages"))
	mux.HandleFunc("PUT /v1/interviews/{id}/draft", MetricsMiddleware(s.messageHandler.HandlePutDraft, "draft"))
	mux.HandleFunc("GET /v1/interviews/{id}/draft", MetricsMiddleware(s.messageHandler.HandleGetDraft, "draft"))

	mux.HandleFunc("POST /v1/interviews/{id}/submissions", MetricsMiddleware(s.submissionHandler.HandlePostSubmission, "submissions"))
	mux.HandleFunc("POST /v1/interviews/{id}/test-results", MetricsMiddleware(s.submissionHandler.HandlePostTestResults, "test_results"))

	mux.HandleFunc("GET /v1/interviews/{id}/snapshot", MetricsMiddleware(s.snapshotHandler.HandleGetSnapshot, "snapshot"))

	mux.HandleFunc("POST /v1/interviews/{id}/evaluations", MetricsMiddleware(s.evaluationHandler.HandlePostEvaluation, "evaluations"))
	mux.HandleFunc("GET /v1/interviews/{id}/evaluations/{version}", MetricsMiddleware(s.evaluationHandler.HandleGetEvaluation, "evaluations"))
	mux.HandleFunc("POST /v1/interviews/{id}/evaluations/{version}/overrides", MetricsMiddleware(s.evaluationHandler.HandlePostOverride, "overrides"))
	mux.HandleFunc("GET /v1/interviews/{id}/evaluations/{version}/overrides", MetricsMiddleware(s.evaluationHandler.HandleGetOverrides, "overrides"))
	mux.HandleFunc("GET /v1/jobs/{id}", MetricsMiddleware(s.evaluationHandler.HandleGetJob, "jobs"))
}

type ackResponse struct {
	Status    string `json:"status"`
	Seq       int64  `json:"seq,omitempty"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError translates service and store errors to HTTP status
// codes in one place so every handler maps them identically.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, eventstore.ErrNotFound) || errors.Is(err, evalstore.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, eventstore.ErrBadRequest) || errors.Is(err, service.ErrUnknownVersion):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, service.ErrNotCompleted) ||
		errors.Is(err, service.ErrInterviewEnded) ||
		errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusConflict, "conflict", err)
	case errors.Is(err, service.ErrQueueFull):
		writeError(w, http.StatusTooManyRequests, "backpressure", err)
	case errors.Is(err, service.ErrJudgeNotConfigured):
		writeError(w, http.StatusServiceUnavailable, "judge_unavailable", err)
	case errors.Is(err, eventstore.ErrCorruptLog):
		writeError(w, http.StatusInternalServerError, "corrupt_log", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// evaluationResponse is the read shape for stored evaluations.
type evaluationResponse = evaluation.Output
