// Package judge implements the judge-mapped scoring path: it
// canonicalizes section transcripts, runs the two-stage external
// judgment with strict schema validation and a single retry, and
// combines stage scores with a fixed formula.
package judge

import (
	"strings"

	"github.com/okian/parley/internal/domain/event"
)

// Turn is one question/answer exchange in canonical form.
type Turn struct {
	Kind     event.PromptKind
	Question string
	Answer   string
}

// Canonicalize flattens a section's conversation into ordered,
// role-tagged turns. Timestamps and internal ids are dropped on purpose
// so the prompt sent to the judge is deterministic for a given event
// history.
func Canonicalize(events []event.Event, sectionID string) []Turn {
	var turns []Turn
	for _, evt := range events {
		if evt.SectionID != sectionID {
			continue
		}
		switch p := evt.Payload.(type) {
		case event.PromptPresented:
			turns = append(turns, Turn{Kind: p.Kind, Question: p.Text})
		case event.CandidateMessage:
			if len(turns) == 0 {
				continue
			}
			last := &turns[len(turns)-1]
			if last.Answer == "" {
				last.Answer = p.Text
			} else {
				last.Answer += "\n" + p.Text
			}
		}
	}
	return turns
}

// FollowupCount returns how many turns are generated follow-ups.
func FollowupCount(turns []Turn) int {
	n := 0
	for _, t := range turns {
		if t.Kind == event.PromptFollowup {
			n++
		}
	}
	return n
}

// Render produces the transcript text sent to the judge.
func Render(turns []Turn) string {
	var b strings.Builder
	for _, t := range turns {
		tag := "[INITIAL]"
		if t.Kind == event.PromptFollowup {
			tag = "[FOLLOWUP]"
		}
		b.WriteString(tag)
		b.WriteString(" Q: ")
		b.WriteString(t.Question)
		b.WriteString("\n")
		b.WriteString("A: ")
		if t.Answer == "" {
			b.WriteString("(no answer)")
		} else {
			b.WriteString(t.Answer)
		}
		b.WriteString("\n")
	}
	return b.String()
}
