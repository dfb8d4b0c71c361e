// Package schema defines the static interview configuration: section
// order and timers, fixed prompts, coverage checkpoints, signal rules
// and metric weights.
//
// A Schema is constructed once at process start and passed by reference
// to the components that need it. Nothing in this package reads disk or
// caches lazily; business logic never re-derives configuration.
package schema

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Prompt is a fixed question defined by the schema.
type Prompt struct {
	ID   string
	Text string
}

// Coverage lists the concept checkpoints the engine checks before
// allowing a section to end. Each group holds interchangeable phrasings
// of one concept; an answer hits a group when it contains any of them.
type Coverage struct {
	Groups  [][]string
	MinHits int
}

// Section is one timed phase of the interview.
type Section struct {
	ID       string
	Name     string
	Duration time.Duration
	Initial  Prompt
	// NonInteractive marks the bulk coding section, driven by the
	// submission flow rather than the decision engine.
	NonInteractive bool
	Coverage       Coverage
}

// SignalRule maps regex patterns to one evidence-backed signal.
// A rule scoped to a section only scans that section's messages.
type SignalRule struct {
	Name      string
	SectionID string
	Patterns  []string

	compiled []*regexp.Regexp
}

// MetricGroup aggregates a fixed set of signals into one metric.
type MetricGroup struct {
	Name    string
	Signals []string
	Weight  float64
	// Scale is the top of the metric's declared range.
	Scale float64
}

// Tunables collects heuristic constants. The stock values are
// uncalibrated defaults, so they stay configuration rather than
// hard-coded at use sites.
type Tunables struct {
	// MaxFollowUps caps generated follow-ups per section; the hard
	// prompt cap is 1 + MaxFollowUps.
	MaxFollowUps int
	// FollowUpBudget is the follow-up count after which the coverage
	// heuristic may end the section.
	FollowUpBudget int
	// OverlapThreshold is the normalized content-word overlap at or
	// above which a generated question counts as a duplicate.
	OverlapThreshold float64
	// MaxEvidencePerSignal caps evidence snippets per signal.
	MaxEvidencePerSignal int
	// MaxQuoteLen truncates evidence quotes.
	MaxQuoteLen int
}

// Schema is the full static configuration for one interview shape.
type Schema struct {
	Version  string
	Sections []Section
	Signals  []SignalRule
	Metrics  []MetricGroup
	Tunables Tunables

	byID map[string]int
}

// New validates and indexes a schema. Rules are compiled here so the
// extractor never compiles regexes on the hot path.
func New(version string, sections []Section, signals []SignalRule, metrics []MetricGroup, t Tunables) (*Schema, error) {
	if strings.TrimSpace(version) == "" {
		return nil, fmt.Errorf("%w: version is required", ErrInvalidSchema)
	}
	if len(sections) == 0 {
		return nil, fmt.Errorf("%w: at least one section is required", ErrInvalidSchema)
	}
	s := &Schema{
		Version:  version,
		Sections: sections,
		Signals:  signals,
		Metrics:  metrics,
		Tunables: t,
		byID:     make(map[string]int, len(sections)),
	}
	for i, sec := range sections {
		if strings.TrimSpace(sec.ID) == "" {
			return nil, fmt.Errorf("%w: section %d has no id", ErrInvalidSchema, i)
		}
		if _, dup := s.byID[sec.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate section id %q", ErrInvalidSchema, sec.ID)
		}
		if sec.Duration <= 0 {
			return nil, fmt.Errorf("%w: section %q has no duration", ErrInvalidSchema, sec.ID)
		}
		s.byID[sec.ID] = i
	}
	for i := range s.Signals {
		rule := &s.Signals[i]
		rule.compiled = make([]*regexp.Regexp, 0, len(rule.Patterns))
		for _, p := range rule.Patterns {
			re, err := regexp.Compile("(?i)" + p)
			if err != nil {
				return nil, fmt.Errorf("%w: signal %q pattern %q: %v", ErrInvalidSchema, rule.Name, p, err)
			}
			rule.compiled = append(rule.compiled, re)
		}
	}
	for _, m := range s.Metrics {
		if len(m.Signals) == 0 {
			return nil, fmt.Errorf("%w: metric %q has no signals", ErrInvalidSchema, m.Name)
		}
		if m.Scale <= 0 {
			return nil, fmt.Errorf("%w: metric %q has no scale", ErrInvalidSchema, m.Name)
		}
	}
	return s, nil
}

// Section returns the section with the given id.
func (s *Schema) Section(id string) (Section, bool) {
	i, ok := s.byID[id]
	if !ok {
		return Section{}, false
	}
	return s.Sections[i], true
}

// First returns the first section in traversal order.
func (s *Schema) First() Section {
	return s.Sections[0]
}

// Next returns the section following id, or false when id is the last
// section or unknown.
func (s *Schema) Next(id string) (Section, bool) {
	i, ok := s.byID[id]
	if !ok || i+1 >= len(s.Sections) {
		return Section{}, false
	}
	return s.Sections[i+1], true
}

// Compiled returns the compiled regexes for a rule.
func (r *SignalRule) Compiled() []*regexp.Regexp {
	return r.compiled
}
