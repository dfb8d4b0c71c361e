// Package evaluation defines the evidence-backed result types shared by
// the deterministic signal path and the judge-mapped path.
package evaluation

// EvidenceType classifies what an evidence pointer refers to.
type EvidenceType string

const (
	// EvidenceQuote points at a candidate quote.
	EvidenceQuote EvidenceType = "quote"
	// EvidenceCodeExcerpt points at submitted code.
	EvidenceCodeExcerpt EvidenceType = "code_excerpt"
	// EvidenceTestOutput points at sandbox test results.
	EvidenceTestOutput EvidenceType = "test_output"
	// EvidenceEventRange points at a span of events.
	EvidenceEventRange EvidenceType = "event_range"
)

// EvidencePointer is a reference justifying a signal or metric value.
type EvidencePointer struct {
	Type      EvidenceType      `json:"type"`
	SectionID string            `json:"section_id"`
	SeqStart  int64             `json:"seq_start"`
	SeqEnd    int64             `json:"seq_end"`
	Quote     string            `json:"quote,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Signal is an ordinal, evidence-backed observation: 0 means no
// evidence, never an inferred negative; more evidence means a higher
// value.
type Signal struct {
	Name        string            `json:"name"`
	Value       int               `json:"value"`
	Explanation string            `json:"explanation"`
	Evidence    []EvidencePointer `json:"evidence"`
}

// Metric is a normalized score aggregated from a fixed signal group.
type Metric struct {
	Name        string            `json:"name"`
	Value       float64           `json:"value"`
	Scale       float64           `json:"scale"`
	Explanation string            `json:"explanation"`
	Evidence    []EvidencePointer `json:"evidence"`
}

// Band is a coarse outcome label.
type Band string

const (
	// BandStrong marks a strong-signal outcome.
	BandStrong Band = "STRONG_SIGNAL"
	// BandMixed marks a mixed-signal outcome.
	BandMixed Band = "MIXED_SIGNAL"
	// BandWeak marks a weak-signal outcome.
	BandWeak Band = "WEAK_SIGNAL"
)

// SectionEvaluation is one section's score with its rationale.
type SectionEvaluation struct {
	SectionID        string   `json:"section_id"`
	Score            float64  `json:"section_score"`
	RationaleBullets []string `json:"rationale_bullets"`
}

// Output is the immutable evaluation result for one
// (interview, evaluation_version) pair. OverallScore and OverallBand
// are pointers so a structurally empty evaluation stays null rather
// than reading as zero.
type Output struct {
	InterviewID  string              `json:"interview_id"`
	Version      string              `json:"evaluation_version"`
	OverallScore *float64            `json:"overall_score"`
	OverallBand  *Band               `json:"overall_band"`
	Metrics      []Metric            `json:"metrics"`
	Sections     []SectionEvaluation `json:"sections"`
}

// Override records a reviewer's corrected band beside an immutable
// evaluation row, never inside it.
type Override struct {
	InterviewID string `json:"interview_id"`
	Version     string `json:"evaluation_version"`
	Band        Band   `json:"band"`
	Reviewer    string `json:"reviewer"`
	Note        string `json:"note,omitempty"`
}
