package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/okian/parley/internal/domain/evaluation"
	"github.com/okian/parley/internal/domain/event"
	"github.com/okian/parley/internal/domain/schema"
)

// Stage identifies which of the two judge calls is being made.
type Stage string

const (
	// StageExtract asks for structured facts only.
	StageExtract Stage = "extract"
	// StageScore asks for the two stage scores.
	StageScore Stage = "score"
)

// Request is the structured input to the external judge.
type Request struct {
	Stage      Stage
	SectionID  string
	Transcript string
	Rubric     string
	// CorrectionHint is set on the retry after a schema failure; the
	// transcript and rubric are resent verbatim.
	CorrectionHint string
}

// Client is the external judge port. Implementations own transport,
// timeouts and authentication; the mapper treats the response as
// untrusted bytes until schema validation passes.
type Client interface {
	Judge(ctx context.Context, req Request) (json.RawMessage, error)
}

// Stage score combination weights and band thresholds on the 0-1 scale.
const (
	baseWeight     = 0.7
	followupWeight = 0.3

	strongThreshold = 0.8
	mixedThreshold  = 0.5
)

// extraction is the strict schema for the facts stage.
type extraction struct {
	Claims []string `json:"claims"`
	Topics []string `json:"topics"`
}

// scores is the strict schema for the scoring stage.
type scores struct {
	BaseInitialScore float64 `json:"base_initial_score"`
	FollowupScore    float64 `json:"followup_score"`
}

// Mapper runs the judge path over a full event history.
type Mapper struct {
	schema *schema.Schema
	client Client
	rubric string
}

// NewMapper builds a mapper. The client is constructor-injected so
// tests swap in a scripted judge without touching globals.
func NewMapper(sch *schema.Schema, client Client, rubric string) *Mapper {
	return &Mapper{schema: sch, client: client, rubric: rubric}
}

// Evaluate scores every schema section and combines them into the
// final output. The coding section bypasses the judge entirely: its
// score is the fraction of automated tests passed. A section whose
// judge calls fail schema validation twice scores 0 with an explicit
// failure rationale; the evaluation as a whole still completes.
func (m *Mapper) Evaluate(ctx context.Context, interviewID string, events []event.Event) evaluation.Output {
	out := evaluation.Output{
		InterviewID: interviewID,
		Metrics:     []evaluation.Metric{},
	}
	total := 0.0
	for _, section := range m.schema.Sections {
		var se evaluation.SectionEvaluation
		if section.NonInteractive {
			se = scoreCoding(section.ID, events)
		} else {
			se = m.scoreSection(ctx, section.ID, events)
		}
		total += se.Score
		out.Sections = append(out.Sections, se)
	}

	overall := round2(total / float64(len(m.schema.Sections)))
	band := bandFor(overall)
	out.OverallScore = &overall
	out.OverallBand = &band
	return out
}

// scoreSection runs both judge stages for one section.
func (m *Mapper) scoreSection(ctx context.Context, sectionID string, events []event.Event) evaluation.SectionEvaluation {
	turns := Canonicalize(events, sectionID)
	if len(turns) == 0 {
		return evaluation.SectionEvaluation{
			SectionID:        sectionID,
			Score:            0,
			RationaleBullets: []string{"no transcript recorded for this section"},
		}
	}
	transcript := Render(turns)

	var facts extraction
	if err := m.call(ctx, StageExtract, sectionID, transcript, &facts); err != nil {
		return failedSection(sectionID, StageExtract, err)
	}

	var sc scores
	if err := m.call(ctx, StageScore, sectionID, transcript, &sc); err != nil {
		return failedSection(sectionID, StageScore, err)
	}

	base := sc.BaseInitialScore
	followup := sc.FollowupScore
	if FollowupCount(turns) == 0 {
		// No follow-ups happened, so neither penalty nor bonus applies.
		followup = base
	}
	score := round2(baseWeight*base + followupWeight*followup)

	rationale := []string{
		fmt.Sprintf("base %.2f, follow-up %.2f over %d turns", base, followup, len(turns)),
	}
	for _, claim := range facts.Claims {
		rationale = append(rationale, "claim: "+claim)
	}
	return evaluation.SectionEvaluation{
		SectionID:        sectionID,
		Score:            score,
		RationaleBullets: rationale,
	}
}

// call performs one judge stage with strict validation, retrying once
// verbatim plus a correction hint when the response fails the schema.
func (m *Mapper) call(ctx context.Context, stage Stage, sectionID, transcript string, dst any) error {
	req := Request{
		Stage:      stage,
		SectionID:  sectionID,
		Transcript: transcript,
		Rubric:     m.rubric,
	}
	raw, err := m.client.Judge(ctx, req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrJudgeUnavailable, err)
	}
	firstErr := validate(stage, raw, dst)
	if firstErr == nil {
		return nil
	}

	req.CorrectionHint = "respond with exactly the required JSON object and no other text: " + firstErr.Error()
	raw, err = m.client.Judge(ctx, req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrJudgeUnavailable, err)
	}
	if err := validate(stage, raw, dst); err != nil {
		return fmt.Errorf("%w after retry: %v", ErrSchemaViolation, err)
	}
	return nil
}

// validate decodes raw into dst, rejecting unknown fields and
// out-of-range values.
func validate(stage Stage, raw json.RawMessage, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode %s response: %w", stage, err)
	}
	switch v := dst.(type) {
	case *extraction:
		if v.Claims == nil || v.Topics == nil {
			return fmt.Errorf("%s response missing claims or topics", stage)
		}
	case *scores:
		if v.BaseInitialScore < 0 || v.BaseInitialScore > 1 {
			return fmt.Errorf("base_initial_score %v out of [0,1]", v.BaseInitialScore)
		}
		if v.FollowupScore < 0 || v.FollowupScore > 1 {
			return fmt.Errorf("followup_score %v out of [0,1]", v.FollowupScore)
		}
	}
	return nil
}

func failedSection(sectionID string, stage Stage, err error) evaluation.SectionEvaluation {
	return evaluation.SectionEvaluation{
		SectionID: sectionID,
		Score:     0,
		RationaleBullets: []string{
			fmt.Sprintf("judge %s stage failed: %v", stage, err),
			"section scored 0 due to unusable judge output",
		},
	}
}

// scoreCoding scores the bulk coding section as the deterministic
// fraction of automated tests passed across all submissions.
func scoreCoding(sectionID string, events []event.Event) evaluation.SectionEvaluation {
	passed, total := 0, 0
	for _, evt := range events {
		if evt.SectionID != sectionID {
			continue
		}
		if res, ok := evt.Payload.(event.CodeTestsResult); ok {
			passed += res.Passed
			total += res.Total
		}
	}
	if total == 0 {
		return evaluation.SectionEvaluation{
			SectionID:        sectionID,
			Score:            0,
			RationaleBullets: []string{"no code submissions recorded"},
		}
	}
	score := round2(float64(passed) / float64(total))
	return evaluation.SectionEvaluation{
		SectionID:        sectionID,
		Score:            score,
		RationaleBullets: []string{fmt.Sprintf("%d of %d automated tests passed", passed, total)},
	}
}

func bandFor(score float64) evaluation.Band {
	switch {
	case score >= strongThreshold:
		return evaluation.BandStrong
	case score >= mixedThreshold:
		return evaluation.BandMixed
	default:
		return evaluation.BandWeak
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
