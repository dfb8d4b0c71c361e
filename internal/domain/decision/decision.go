// Package decision decides the next interviewer action from the reduced
// state and the event history. Decide is pure and synchronous: for the
// same ordered event list it returns the same action on every call, and
// it never reads the wall clock. Deadline comparisons belong to the
// timeout checker in the application layer, not to this engine.
package decision

import (
	"github.com/okian/parley/internal/domain/event"
	"github.com/okian/parley/internal/domain/schema"
	"github.com/okian/parley/internal/domain/state"
)

// Kind enumerates the possible interviewer actions.
type Kind string

const (
	// KindNone means wait; nothing for the interviewer to do.
	KindNone Kind = "none"
	// KindAskInitial surfaces the section's fixed opening prompt.
	KindAskInitial Kind = "ask_initial"
	// KindAskFollowup requests a generated follow-up for the section.
	KindAskFollowup Kind = "ask_followup"
	// KindMarkSatisfied ends the section as covered.
	KindMarkSatisfied Kind = "mark_satisfied"
)

// Action is the engine's verdict for the current state.
type Action struct {
	Kind      Kind
	SectionID string
	// Prompt is set for KindAskInitial.
	Prompt schema.Prompt
}

// Engine evaluates the per-section prompt state machine:
//
//	no prompt yet -> initial asked -> (follow-up asked)* -> satisfied
//
// bounded by the hard prompt cap and the follow-up budget.
type Engine struct {
	tunables schema.Tunables
}

// New builds an engine with the schema's tunables.
func New(t schema.Tunables) *Engine {
	return &Engine{tunables: t}
}

// Decide returns the next action for the interview. The event slice
// must be the full ordered history the state was reduced from.
func (e *Engine) Decide(sch *schema.Schema, st state.State, events []event.Event) Action {
	if st.Status != state.StatusInProgress || st.CurrentSectionID == "" {
		return Action{Kind: KindNone}
	}
	section, ok := sch.Section(st.CurrentSectionID)
	if !ok {
		// Unknown section ids indicate a corrupted log; the caller
		// validates before reaching the engine, so stay inert here.
		return Action{Kind: KindNone}
	}
	if section.NonInteractive {
		return Action{Kind: KindNone, SectionID: section.ID}
	}

	sectionEvents := inSection(events, section.ID)
	promptCount := countPrompts(sectionEvents)

	if promptCount == 0 {
		return Action{Kind: KindAskInitial, SectionID: section.ID, Prompt: section.Initial}
	}
	if promptCount >= 1+e.tunables.MaxFollowUps {
		return Action{Kind: KindMarkSatisfied, SectionID: section.ID}
	}

	last, ok := lastEvent(sectionEvents)
	if !ok || last.Type != event.TypeCandidateMessage {
		// Waiting on the candidate.
		return Action{Kind: KindNone, SectionID: section.ID}
	}

	followUpCount := promptCount - 1
	if followUpCount >= e.tunables.FollowUpBudget {
		answer, _ := last.Payload.(event.CandidateMessage)
		if !NeedsMoreFollowups(section.Coverage, answer.Text) {
			return Action{Kind: KindMarkSatisfied, SectionID: section.ID}
		}
	}
	return Action{Kind: KindAskFollowup, SectionID: section.ID}
}

// inSection keeps events attributed to the given section, preserving
// order. Attribution happens at append time in the store.
func inSection(events []event.Event, sectionID string) []event.Event {
	out := make([]event.Event, 0, len(events))
	for _, evt := range events {
		if evt.SectionID == sectionID {
			out = append(out, evt)
		}
	}
	return out
}

func countPrompts(events []event.Event) int {
	n := 0
	for _, evt := range events {
		if evt.Type == event.TypePromptPresented {
			n++
		}
	}
	return n
}

// lastEvent returns the last conversational fact in the section,
// skipping the section bookkeeping events themselves.
func lastEvent(events []event.Event) (event.Event, bool) {
	for i := len(events) - 1; i >= 0; i-- {
		switch events[i].Type {
		case event.TypeSectionStarted, event.TypeSectionEnded:
			continue
		default:
			return events[i], true
		}
	}
	return event.Event{}, false
}

// PriorQuestions returns the question texts already asked in a section,
// in order. Used by the non-repetition guard.
func PriorQuestions(events []event.Event, sectionID string) []string {
	var out []string
	for _, evt := range events {
		if evt.SectionID != sectionID || evt.Type != event.TypePromptPresented {
			continue
		}
		if p, ok := evt.Payload.(event.PromptPresented); ok {
			out = append(out, p.Text)
		}
	}
	return out
}

// LastAnswer returns the text of the most recent candidate message in a
// section, if any.
func LastAnswer(events []event.Event, sectionID string) (string, bool) {
	for i := len(events) - 1; i >= 0; i-- {
		evt := events[i]
		if evt.SectionID != sectionID || evt.Type != event.TypeCandidateMessage {
			continue
		}
		if p, ok := evt.Payload.(event.CandidateMessage); ok {
			return p.Text, true
		}
	}
	return "", false
}
