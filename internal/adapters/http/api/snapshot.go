// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	service "github.com/okian/parley/internal/app"
	"github.com/okian/parley/internal/domain/event"
)

// SnapshotDependencies defines the interface for snapshot reads.
type SnapshotDependencies interface {
	Snapshot(ctx context.Context, interviewID string, sinceSeq int64) (service.Snapshot, error)
}

// SnapshotHandler handles snapshot polling requests.
type SnapshotHandler struct {
	deps SnapshotDependencies
}

// NewSnapshotHandler creates a new snapshot handler.
func NewSnapshotHandler(deps SnapshotDependencies) *SnapshotHandler {
	return &SnapshotHandler{deps: deps}
}

// snapshotEvent is the wire shape of one event in a snapshot response.
type snapshotEvent struct {
	Seq       int64         `json:"seq"`
	Type      event.Type    `json:"type"`
	ActorType string        `json:"actor_type"`
	SectionID string        `json:"section_id,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	Payload   event.Payload `json:"payload"`
}

type snapshotResponse struct {
	InterviewID      string          `json:"interview_id"`
	Status           string          `json:"status"`
	CurrentSectionID string          `json:"current_section_id,omitempty"`
	SectionDeadline  *time.Time      `json:"section_deadline,omitempty"`
	ActivePrompt     *activePrompt   `json:"active_prompt,omitempty"`
	LastSeq          int64           `json:"last_seq"`
	Events           []snapshotEvent `json:"events"`
}

type activePrompt struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
	Text string `json:"text"`
}

// HandleGetSnapshot handles GET /v1/interviews/{id}/snapshot requests.
// The optional since_seq query parameter is the caller's poll cursor.
func (h *SnapshotHandler) HandleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	sinceSeq := int64(0)
	if raw := r.URL.Query().Get("since_seq"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v < 0 {
			writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
			return
		}
		sinceSeq = v
	}

	snap, err := h.deps.Snapshot(r.Context(), id, sinceSeq)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := snapshotResponse{
		InterviewID:      snap.InterviewID,
		Status:           string(snap.State.Status),
		CurrentSectionID: snap.State.CurrentSectionID,
		LastSeq:          snap.State.LastSeq,
		Events:           make([]snapshotEvent, 0, len(snap.Events)),
	}
	if !snap.State.SectionDeadline.IsZero() {
		d := snap.State.SectionDeadline
		resp.SectionDeadline = &d
	}
	if p := snap.State.ActivePrompt; p != nil {
		resp.ActivePrompt = &activePrompt{ID: p.ID, Kind: string(p.Kind), Text: p.Text}
	}
	for _, evt := range snap.Events {
		resp.Events = append(resp.Events, snapshotEvent{
			Seq:       evt.Seq,
			Type:      evt.Type,
			ActorType: string(evt.ActorType),
			SectionID: evt.SectionID,
			CreatedAt: evt.CreatedAt,
			Payload:   evt.Payload,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
