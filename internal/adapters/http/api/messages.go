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

// MessageDependencies defines the interface for message intake.
type MessageDependencies interface {
	SubmitMessage(ctx context.Context, interviewID, clientEventID, text string) (service.SubmitResult, error)
	SaveDraft(ctx context.Context, interviewID, text string)
	Draft(ctx context.Context, interviewID string) (string, bool)
}

// MessageHandler handles candidate message requests.
type MessageHandler struct {
	deps MessageDependencies
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(deps MessageDependencies) *MessageHandler {
	return &MessageHandler{deps: deps}
}

// messageRequest mirrors the request schema for POST messages.
type messageRequest struct {
	ClientEventID string `json:"client_event_id"`
	Text          string `json:"text"`
}

func (m messageRequest) validate() error {
	if strings.TrimSpace(m.Text) == "" {
		return errors.New("missing text")
	}
	return nil
}

// HandlePostMessage handles POST /v1/interviews/{id}/messages requests.
func (h *MessageHandler) HandlePostMessage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	res, err := h.deps.SubmitMessage(r.Context(), id, req.ClientEventID, req.Text)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if res.Duplicate {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Seq: res.Seq, Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", Seq: res.Seq})
}

type draftRequest struct {
	Text string `json:"text"`
}

type draftResponse struct {
	Text   string `json:"text"`
	Exists bool   `json:"exists"`
}

// HandlePutDraft handles PUT /v1/interviews/{id}/draft requests.
func (h *MessageHandler) HandlePutDraft(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req draftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	h.deps.SaveDraft(r.Context(), id, req.Text)
	writeJSON(w, http.StatusOK, ackResponse{Status: "saved"})
}

// HandleGetDraft handles GET /v1/interviews/{id}/draft requests.
func (h *MessageHandler) HandleGetDraft(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	text, ok := h.deps.Draft(r.Context(), id)
	writeJSON(w, http.StatusOK, draftResponse{Text: text, Exists: ok})
}
