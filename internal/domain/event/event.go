// Package event defines the immutable interview event model.
//
// Events are the single source of truth for an interview: every state
// an interview can be in is derived by folding its ordered event log.
// Rows are created by the store's Append and never updated or deleted.
package event

import (
	"strings"
	"time"
)

// Type identifies the kind of an interview event.
type Type string

// Interview lifecycle events.
const (
	// TypeInterviewCreated records the creation of an interview.
	TypeInterviewCreated Type = "interview.created"
	// TypeInterviewStarted records the start of an interview.
	TypeInterviewStarted Type = "interview.started"
	// TypeInterviewCompleted records normal completion.
	TypeInterviewCompleted Type = "interview.completed"
	// TypeInterviewTerminated records early termination.
	TypeInterviewTerminated Type = "interview.terminated"
)

// Section events.
const (
	// TypeSectionStarted records a section becoming current.
	TypeSectionStarted Type = "section.started"
	// TypeSectionEnded records a section ending with a reason.
	TypeSectionEnded Type = "section.ended"
)

// Conversation events.
const (
	// TypePromptPresented records a question surfaced to the candidate.
	TypePromptPresented Type = "conversation.prompt_presented"
	// TypeCandidateMessage records a candidate answer or remark.
	TypeCandidateMessage Type = "conversation.candidate_message"
	// TypeCandidateConnected records the candidate's client connecting.
	TypeCandidateConnected Type = "conversation.candidate_connected"
	// TypeCandidateDisconnected records the candidate's client dropping.
	TypeCandidateDisconnected Type = "conversation.candidate_disconnected"
)

// Coding events, driven by the submission flow rather than the engine.
const (
	// TypeCodeSubmitted records a code submission for a problem.
	TypeCodeSubmitted Type = "coding.code_submitted"
	// TypeCodeTestsResult records aggregated sandbox test results.
	TypeCodeTestsResult Type = "coding.tests_result"
)

// ActorType identifies who or what produced an event.
type ActorType string

const (
	// ActorSystem marks events produced by the engine itself.
	ActorSystem ActorType = "system"
	// ActorInterviewer marks events produced by the automated interviewer.
	ActorInterviewer ActorType = "interviewer"
	// ActorAssistant marks events produced by a generation assistant.
	ActorAssistant ActorType = "assistant"
	// ActorCandidate marks events produced by the candidate.
	ActorCandidate ActorType = "candidate"
	// ActorOps marks events produced by a human operator.
	ActorOps ActorType = "ops"
)

// Event is one immutable, ordered fact in an interview's history.
type Event struct {
	// InterviewID is the interview this event belongs to.
	InterviewID string
	// Seq is the gap-free sequence number within the interview,
	// starting at 1. Assigned by the store on append.
	Seq int64
	// Type identifies the kind of event.
	Type Type
	// ActorType identifies who produced the event.
	ActorType ActorType
	// SectionID is the section current when the event was appended
	// (empty for events outside any section).
	SectionID string
	// ClientEventID is the caller-supplied idempotency key, empty when
	// the caller did not provide one.
	ClientEventID string
	// CreatedAt is when the store accepted the event.
	CreatedAt time.Time
	// Payload holds the type-specific data for this event.
	Payload Payload
}

// IsValid reports whether the event type is usable.
func (t Type) IsValid() bool {
	return strings.TrimSpace(string(t)) != ""
}

// Domain returns the domain prefix of the event type, e.g. "section".
func (t Type) Domain() string {
	if i := strings.IndexByte(string(t), '.'); i >= 0 {
		return string(t[:i])
	}
	return string(t)
}

// IsValid reports whether the actor type is one of the known actors.
func (a ActorType) IsValid() bool {
	switch a {
	case ActorSystem, ActorInterviewer, ActorAssistant, ActorCandidate, ActorOps:
		return true
	}
	return false
}
