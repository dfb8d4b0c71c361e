// Package signals implements the deterministic scoring path: regex
// driven signal extraction from the event history and fixed-formula
// metric aggregation. Everything here is pure; the same event slice
// always yields the same output.
package signals

import (
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/okian/parley/internal/domain/evaluation"
	"github.com/okian/parley/internal/domain/event"
	"github.com/okian/parley/internal/domain/schema"
)

// testsPassedSignal is the synthetic signal derived from sandbox
// results instead of a regex rule. It only exists when code was
// actually submitted, which is what makes the implementation metric
// structurally inapplicable otherwise.
const testsPassedSignal = "tests_passed"

// Pass-fraction cut points for the tests_passed signal value.
const (
	strongPassFraction = 0.75
)

// Extractor scans the event history against the schema's rule table.
type Extractor struct {
	schema *schema.Schema
}

// NewExtractor builds an extractor bound to a schema.
func NewExtractor(sch *schema.Schema) *Extractor {
	return &Extractor{schema: sch}
}

// Extract produces one signal per rule plus the synthetic tests_passed
// signal when code events exist. A rule with no qualifying message
// yields value 0 with an explicit "no evidence" explanation and an
// empty evidence list.
func (x *Extractor) Extract(events []event.Event) []evaluation.Signal {
	t := x.schema.Tunables
	out := make([]evaluation.Signal, 0, len(x.schema.Signals)+1)
	for i := range x.schema.Signals {
		rule := &x.schema.Signals[i]
		out = append(out, extractRule(rule, events, t))
	}
	if sig, ok := extractTestsPassed(events, t); ok {
		out = append(out, sig)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func extractRule(rule *schema.SignalRule, events []event.Event, t schema.Tunables) evaluation.Signal {
	matched := make(map[int]struct{})
	var evidence []evaluation.EvidencePointer
	for _, evt := range events {
		if evt.Type != event.TypeCandidateMessage {
			continue
		}
		if rule.SectionID != "" && evt.SectionID != rule.SectionID {
			continue
		}
		msg, ok := evt.Payload.(event.CandidateMessage)
		if !ok {
			continue
		}
		hit := false
		for pi, re := range rule.Compiled() {
			if re.MatchString(msg.Text) {
				matched[pi] = struct{}{}
				hit = true
			}
		}
		if hit && len(evidence) < t.MaxEvidencePerSignal {
			evidence = append(evidence, evaluation.EvidencePointer{
				Type:      evaluation.EvidenceQuote,
				SectionID: evt.SectionID,
				SeqStart:  evt.Seq,
				SeqEnd:    evt.Seq,
				Quote:     truncate(msg.Text, t.MaxQuoteLen),
			})
		}
	}

	value := len(matched)
	if value > 2 {
		value = 2
	}
	sig := evaluation.Signal{
		Name:     rule.Name,
		Value:    value,
		Evidence: evidence,
	}
	switch value {
	case 0:
		sig.Explanation = "no evidence"
		sig.Evidence = []evaluation.EvidencePointer{}
	case 1:
		sig.Explanation = "one pattern group matched"
	default:
		sig.Explanation = fmt.Sprintf("%d pattern groups matched", len(matched))
	}
	return sig
}

// extractTestsPassed folds all sandbox results into one signal. The
// second return is false when no code was ever submitted.
func extractTestsPassed(events []event.Event, t schema.Tunables) (evaluation.Signal, bool) {
	passed, total := 0, 0
	var evidence []evaluation.EvidencePointer
	for _, evt := range events {
		res, ok := evt.Payload.(event.CodeTestsResult)
		if !ok {
			continue
		}
		passed += res.Passed
		total += res.Total
		if len(evidence) < t.MaxEvidencePerSignal {
			evidence = append(evidence, evaluation.EvidencePointer{
				Type:      evaluation.EvidenceTestOutput,
				SectionID: evt.SectionID,
				SeqStart:  evt.Seq,
				SeqEnd:    evt.Seq,
				Metadata: map[string]string{
					"problem_id": res.ProblemID,
					"result":     fmt.Sprintf("%d/%d", res.Passed, res.Total),
				},
			})
		}
	}
	if total == 0 {
		return evaluation.Signal{}, false
	}
	frac := float64(passed) / float64(total)
	value := 0
	switch {
	case frac >= strongPassFraction:
		value = 2
	case frac > 0:
		value = 1
	}
	return evaluation.Signal{
		Name:        testsPassedSignal,
		Value:       value,
		Explanation: fmt.Sprintf("%d of %d automated tests passed", passed, total),
		Evidence:    evidence,
	}, true
}

// truncate cuts s to at most max bytes without splitting a rune, so
// stored quotes stay valid UTF-8.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
