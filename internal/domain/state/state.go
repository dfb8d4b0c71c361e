// Package state derives the current interview state from an ordered
// event slice. Reduce is a pure fold: no I/O, no clock reads, and
// bit-identical output for identical input, which the idempotent
// evaluation path depends on.
package state

import (
	"time"

	"github.com/okian/parley/internal/domain/event"
)

// Status is the interview lifecycle status.
type Status string

const (
	// StatusNotStarted means no start event has been recorded.
	StatusNotStarted Status = "not_started"
	// StatusInProgress means the interview is running.
	StatusInProgress Status = "in_progress"
	// StatusCompleted means the interview finished normally.
	StatusCompleted Status = "completed"
	// StatusTerminated means the interview ended early.
	StatusTerminated Status = "terminated"
)

// ActivePrompt is the question currently in front of the candidate.
type ActivePrompt struct {
	ID   string
	Kind event.PromptKind
	Text string
}

// SectionProgress records one section's traversal.
type SectionProgress struct {
	SectionID string
	StartedAt time.Time
	EndedAt   time.Time
	EndReason event.EndReason
}

// State is the reduced view of an interview. It is derived, never
// mutated directly; the event log remains the source of truth.
type State struct {
	Status           Status
	SchemaVersion    string
	CurrentSectionID string
	SectionDeadline  time.Time
	ActivePrompt     *ActivePrompt
	Sections         []SectionProgress
	// LastSeq is the highest sequence number folded in.
	LastSeq int64
}

// Ended reports whether the interview reached a terminal status.
func (s State) Ended() bool {
	return s.Status == StatusCompleted || s.Status == StatusTerminated
}

// Progress returns the progress entry for a section, if traversed.
func (s State) Progress(sectionID string) (SectionProgress, bool) {
	for _, p := range s.Sections {
		if p.SectionID == sectionID {
			return p, true
		}
	}
	return SectionProgress{}, false
}

// Reduce folds ordered events into the current state. Only control
// events change state; conversation and coding events are read from the
// event list directly by the decision engine and evaluators.
func Reduce(events []event.Event) State {
	st := State{Status: StatusNotStarted}
	for i := range events {
		apply(&st, events[i])
	}
	return st
}

func apply(st *State, evt event.Event) {
	st.LastSeq = evt.Seq
	switch p := evt.Payload.(type) {
	case event.InterviewCreated:
		st.Status = StatusNotStarted
		st.SchemaVersion = p.SchemaVersion
		st.CurrentSectionID = ""
		st.ActivePrompt = nil
	case event.InterviewStarted:
		st.Status = StatusInProgress
	case event.InterviewCompleted:
		st.Status = StatusCompleted
		st.CurrentSectionID = ""
		st.ActivePrompt = nil
	case event.InterviewTerminated:
		st.Status = StatusTerminated
		closeOpenSection(st, evt.CreatedAt, event.EndReasonTerminated)
		st.CurrentSectionID = ""
		st.ActivePrompt = nil
	case event.SectionStarted:
		st.CurrentSectionID = p.SectionID
		st.SectionDeadline = p.Deadline
		st.ActivePrompt = nil
		st.Sections = append(st.Sections, SectionProgress{
			SectionID: p.SectionID,
			StartedAt: evt.CreatedAt,
		})
	case event.SectionEnded:
		for i := range st.Sections {
			if st.Sections[i].SectionID == p.SectionID && st.Sections[i].EndedAt.IsZero() {
				st.Sections[i].EndedAt = evt.CreatedAt
				st.Sections[i].EndReason = p.Reason
			}
		}
		if st.CurrentSectionID == p.SectionID {
			st.CurrentSectionID = ""
			st.SectionDeadline = time.Time{}
			st.ActivePrompt = nil
		}
	case event.PromptPresented:
		st.ActivePrompt = &ActivePrompt{ID: p.PromptID, Kind: p.Kind, Text: p.Text}
	}
}

// closeOpenSection stamps the current section's progress entry when the
// interview ends without an explicit section end.
func closeOpenSection(st *State, at time.Time, reason event.EndReason) {
	if st.CurrentSectionID == "" {
		return
	}
	for i := range st.Sections {
		if st.Sections[i].SectionID == st.CurrentSectionID && st.Sections[i].EndedAt.IsZero() {
			st.Sections[i].EndedAt = at
			st.Sections[i].EndReason = reason
		}
	}
}
