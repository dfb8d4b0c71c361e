package event

import (
	"encoding/json"
	"fmt"
	"time"
)

// Payload is the tagged union of event-specific data. Each event type
// maps to exactly one payload variant; decoding happens once at the
// store boundary so the reducer and decision engine work with typed
// fields rather than raw JSON.
type Payload interface {
	payloadType() Type
}

// InterviewCreated carries the schema version the interview was created
// against.
type InterviewCreated struct {
	SchemaVersion string `json:"schema_version"`
}

// InterviewStarted marks the transition to in-progress.
type InterviewStarted struct{}

// InterviewCompleted marks normal completion.
type InterviewCompleted struct{}

// InterviewTerminated carries the termination reason.
type InterviewTerminated struct {
	Reason string `json:"reason"`
}

// SectionStarted carries the section made current and its deadline.
type SectionStarted struct {
	SectionID string    `json:"section_id"`
	Deadline  time.Time `json:"deadline"`
}

// EndReason classifies why a section ended.
type EndReason string

const (
	// EndReasonSatisfied means the engine judged coverage sufficient.
	EndReasonSatisfied EndReason = "satisfied"
	// EndReasonTimeout means the section deadline passed.
	EndReasonTimeout EndReason = "timeout"
	// EndReasonTerminated means the interview ended mid-section.
	EndReasonTerminated EndReason = "terminated"
)

// SectionEnded carries the ended section and the reason.
type SectionEnded struct {
	SectionID string    `json:"section_id"`
	Reason    EndReason `json:"reason"`
}

// PromptKind distinguishes the fixed initial prompt from generated
// follow-ups.
type PromptKind string

const (
	// PromptInitial is a section's fixed opening question.
	PromptInitial PromptKind = "initial"
	// PromptFollowup is a dynamically generated follow-up.
	PromptFollowup PromptKind = "followup"
)

// PromptPresented carries a question surfaced to the candidate.
type PromptPresented struct {
	PromptID string     `json:"prompt_id"`
	Kind     PromptKind `json:"kind"`
	Text     string     `json:"text"`
}

// CandidateMessage carries the candidate's free-form text.
type CandidateMessage struct {
	Text string `json:"text"`
}

// CandidateConnected carries the connecting client's identifier.
type CandidateConnected struct {
	ClientInfo string `json:"client_info,omitempty"`
}

// CandidateDisconnected carries the disconnect cause when known.
type CandidateDisconnected struct {
	Cause string `json:"cause,omitempty"`
}

// CodeSubmitted carries a code submission for the coding section.
type CodeSubmitted struct {
	ProblemID string `json:"problem_id"`
	Language  string `json:"language"`
	Code      string `json:"code"`
}

// CodeTestsResult carries aggregated sandbox results for a submission.
type CodeTestsResult struct {
	ProblemID string `json:"problem_id"`
	Passed    int    `json:"passed"`
	Total     int    `json:"total"`
	Error     string `json:"error,omitempty"`
}

func (InterviewCreated) payloadType() Type      { return TypeInterviewCreated }
func (InterviewStarted) payloadType() Type      { return TypeInterviewStarted }
func (InterviewCompleted) payloadType() Type    { return TypeInterviewCompleted }
func (InterviewTerminated) payloadType() Type   { return TypeInterviewTerminated }
func (SectionStarted) payloadType() Type        { return TypeSectionStarted }
func (SectionEnded) payloadType() Type          { return TypeSectionEnded }
func (PromptPresented) payloadType() Type       { return TypePromptPresented }
func (CandidateMessage) payloadType() Type      { return TypeCandidateMessage }
func (CandidateConnected) payloadType() Type    { return TypeCandidateConnected }
func (CandidateDisconnected) payloadType() Type { return TypeCandidateDisconnected }
func (CodeSubmitted) payloadType() Type         { return TypeCodeSubmitted }
func (CodeTestsResult) payloadType() Type       { return TypeCodeTestsResult }

// TypeOf returns the event type a payload belongs to.
func TypeOf(p Payload) Type {
	if p == nil {
		return ""
	}
	return p.payloadType()
}

// MarshalPayload encodes a payload to its JSON form for storage.
func MarshalPayload(p Payload) ([]byte, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", p.payloadType(), err)
	}
	return data, nil
}

// UnmarshalPayload decodes stored JSON into the typed variant for t.
func UnmarshalPayload(t Type, data []byte) (Payload, error) {
	if len(data) == 0 {
		data = []byte("{}")
	}
	decode := func(dst Payload) (Payload, error) {
		// dst is a pointer to the variant; dereference after decoding.
		if err := json.Unmarshal(data, dst); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", t, err)
		}
		return dst, nil
	}
	switch t {
	case TypeInterviewCreated:
		return deref(decode(&InterviewCreated{}))
	case TypeInterviewStarted:
		return deref(decode(&InterviewStarted{}))
	case TypeInterviewCompleted:
		return deref(decode(&InterviewCompleted{}))
	case TypeInterviewTerminated:
		return deref(decode(&InterviewTerminated{}))
	case TypeSectionStarted:
		return deref(decode(&SectionStarted{}))
	case TypeSectionEnded:
		return deref(decode(&SectionEnded{}))
	case TypePromptPresented:
		return deref(decode(&PromptPresented{}))
	case TypeCandidateMessage:
		return deref(decode(&CandidateMessage{}))
	case TypeCandidateConnected:
		return deref(decode(&CandidateConnected{}))
	case TypeCandidateDisconnected:
		return deref(decode(&CandidateDisconnected{}))
	case TypeCodeSubmitted:
		return deref(decode(&CodeSubmitted{}))
	case TypeCodeTestsResult:
		return deref(decode(&CodeTestsResult{}))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
}

// deref unwraps the pointer variants produced during decoding so stored
// events carry value payloads, matching events built in memory.
func deref(p Payload, err error) (Payload, error) {
	if err != nil {
		return nil, err
	}
	switch v := p.(type) {
	case *InterviewCreated:
		return *v, nil
	case *InterviewStarted:
		return *v, nil
	case *InterviewCompleted:
		return *v, nil
	case *InterviewTerminated:
		return *v, nil
	case *SectionStarted:
		return *v, nil
	case *SectionEnded:
		return *v, nil
	case *PromptPresented:
		return *v, nil
	case *CandidateMessage:
		return *v, nil
	case *CandidateConnected:
		return *v, nil
	case *CandidateDisconnected:
		return *v, nil
	case *CodeSubmitted:
		return *v, nil
	case *CodeTestsResult:
		return *v, nil
	default:
		return p, nil
	}
}
