// Package textgen defines the follow-up question generation port. The
// engine treats whatever comes back as untrusted: the non-repetition
// guard and refusal override re-validate every candidate question.
package textgen

import "context"

// Request carries the context the generator may condition on.
type Request struct {
	SectionID string
	// LastAnswer is the candidate's most recent message in the section.
	LastAnswer string
	// RecentQuestions are the questions already asked in the section.
	RecentQuestions []string
	// PriorTranscript is the rendered transcript of earlier sections.
	PriorTranscript string
}

// Generator produces the next follow-up question, or "" to signal that
// no further follow-up is needed.
type Generator interface {
	Followup(ctx context.Context, req Request) (string, error)
}

// Func adapts a plain function to Generator, for tests.
type Func func(ctx context.Context, req Request) (string, error)

// Followup implements Generator.
func (f Func) Followup(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}
