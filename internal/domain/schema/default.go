package schema

import "time"

// Default tunables mirror the calibrated-by-convention constants.
// TODO: revisit OverlapThreshold and coverage minimums once enough
// transcripts exist to measure premature-ending rates.
const (
	DefaultMaxFollowUps         = 4
	DefaultFollowUpBudget       = 2
	DefaultOverlapThreshold     = 0.65
	DefaultMaxEvidencePerSignal = 3
	DefaultMaxQuoteLen          = 240
)

// DefaultTunables returns the stock engine constants.
func DefaultTunables() Tunables {
	return Tunables{
		MaxFollowUps:         DefaultMaxFollowUps,
		FollowUpBudget:       DefaultFollowUpBudget,
		OverlapThreshold:     DefaultOverlapThreshold,
		MaxEvidencePerSignal: DefaultMaxEvidencePerSignal,
		MaxQuoteLen:          DefaultMaxQuoteLen,
	}
}

// DefaultOption adjusts the stock schema's tunables at construction.
type DefaultOption func(*Tunables)

// WithMaxFollowUps overrides the per-section follow-up cap. Negative
// values are ignored.
func WithMaxFollowUps(n int) DefaultOption {
	return func(t *Tunables) {
		if n >= 0 {
			t.MaxFollowUps = n
		}
	}
}

// WithFollowUpBudget overrides the soft follow-up budget. Negative
// values are ignored.
func WithFollowUpBudget(n int) DefaultOption {
	return func(t *Tunables) {
		if n >= 0 {
			t.FollowUpBudget = n
		}
	}
}

// Default builds the stock five-section backend interview. Panics on
// construction errors since the literal below is fixed at compile time.
func Default(opts ...DefaultOption) *Schema {
	sections := []Section{
		{
			ID:       "intro",
			Name:     "Introduction",
			Duration: 5 * time.Minute,
			Initial:  Prompt{ID: "intro-q1", Text: "Walk me through a recent project you are proud of. What was your role?"},
			Coverage: Coverage{
				Groups: [][]string{
					{"project", "built", "worked on"},
					{"role", "responsible", "led", "owned"},
				},
				MinHits: 1,
			},
		},
		{
			ID:       "system_design",
			Name:     "System Design",
			Duration: 15 * time.Minute,
			Initial:  Prompt{ID: "design-q1", Text: "Design a service that ingests millions of telemetry events per hour. Where do you start?"},
			Coverage: Coverage{
				Groups: [][]string{
					{"queue", "buffer", "backpressure", "broker"},
					{"partition", "shard", "scale"},
					{"retry", "idempotent", "at-least-once", "exactly-once", "dedup"},
					{"storage", "database", "persist"},
				},
				MinHits: 2,
			},
		},
		{
			ID:       "concurrency",
			Name:     "Concurrency Deep Dive",
			Duration: 15 * time.Minute,
			Initial:  Prompt{ID: "conc-q1", Text: "Two workers race to update the same record. How do you make the outcome safe and predictable?"},
			Coverage: Coverage{
				Groups: [][]string{
					{"lock", "mutex", "serializ"},
					{"transaction", "atomic", "compare-and-swap", "cas"},
					{"deadlock", "contention", "starvation"},
				},
				MinHits: 2,
			},
		},
		{
			ID:             "coding",
			Name:           "Coding Exercise",
			Duration:       40 * time.Minute,
			Initial:        Prompt{ID: "coding-q1", Text: "Solve the posted problems in the editor. Submissions run against the test suite automatically."},
			NonInteractive: true,
		},
		{
			ID:       "wrapup",
			Name:     "Wrap Up",
			Duration: 5 * time.Minute,
			Initial:  Prompt{ID: "wrap-q1", Text: "What trade-off in your solution would you revisit with more time?"},
			Coverage: Coverage{
				Groups: [][]string{
					{"trade-off", "tradeoff", "instead", "alternative"},
				},
				MinHits: 1,
			},
		},
	}

	signals := []SignalRule{
		{Name: "articulates_context", SectionID: "intro", Patterns: []string{
			`\b(project|built|shipped|worked on)\b`,
			`\b(role|responsible|led|owned)\b`,
		}},
		{Name: "names_scaling_strategy", SectionID: "system_design", Patterns: []string{
			`\b(partition|shard|scale[- ]?out|horizontal)\w*`,
			`\b(load balanc|replica)\w*`,
		}},
		{Name: "reasons_about_delivery", SectionID: "system_design", Patterns: []string{
			`\b(at[- ]least[- ]once|exactly[- ]once|idempoten\w*|dedup\w*)`,
			`\b(retry|backoff|dead[- ]?letter)\w*`,
		}},
		{Name: "identifies_bottlenecks", SectionID: "system_design", Patterns: []string{
			`\b(bottleneck|backpressure|throughput|latency)\b`,
			`\b(queue depth|buffer|capacity)\b`,
		}},
		{Name: "names_synchronization", SectionID: "concurrency", Patterns: []string{
			`\b(mutex|lock|semaphore|serializ\w*)`,
			`\b(transaction|atomic\w*|compare[- ]and[- ]swap|cas)\b`,
		}},
		{Name: "anticipates_hazards", SectionID: "concurrency", Patterns: []string{
			`\b(deadlock|livelock|race condition|starvation)\b`,
			`\b(contention|lock ordering)\b`,
		}},
		{Name: "weighs_tradeoffs", Patterns: []string{
			`\b(trade[- ]?off|on the other hand|downside|instead)\b`,
			`\b(depends on|at the cost of)\b`,
		}},
		{Name: "communicates_structure", Patterns: []string{
			`\b(first|second|then|finally|step)\b`,
			`\b(for example|such as|concretely)\b`,
		}},
		{Name: "acknowledges_limits", SectionID: "wrapup", Patterns: []string{
			`\b(would revisit|improve|refactor|with more time)\b`,
			`\b(limitation|shortcut|hack)\b`,
		}},
	}

	metrics := []MetricGroup{
		{Name: "communication", Signals: []string{"articulates_context", "communicates_structure"}, Weight: 0.2, Scale: 5},
		{Name: "system_design", Signals: []string{"names_scaling_strategy", "identifies_bottlenecks", "reasons_about_delivery"}, Weight: 0.25, Scale: 5},
		{Name: "concurrency", Signals: []string{"names_synchronization", "anticipates_hazards"}, Weight: 0.25, Scale: 5},
		{Name: "implementation_quality", Signals: []string{"tests_passed"}, Weight: 0.2, Scale: 5},
		{Name: "judgment", Signals: []string{"weighs_tradeoffs", "acknowledges_limits"}, Weight: 0.1, Scale: 5},
	}

	tunables := DefaultTunables()
	for _, opt := range opts {
		opt(&tunables)
	}

	s, err := New("backend-v1", sections, signals, metrics, tunables)
	if err != nil {
		panic(err)
	}
	return s
}
