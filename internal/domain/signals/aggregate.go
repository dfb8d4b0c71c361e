package signals

import (
	"fmt"
	"math"

	"github.com/okian/parley/internal/domain/evaluation"
	"github.com/okian/parley/internal/domain/schema"
)

// Band thresholds on the 0-5 metric scale.
const (
	strongThreshold = 4.0
	mixedThreshold  = 2.75
)

// maxSignalValue is the top of the ordinal signal range.
const maxSignalValue = 2

// ComputeMetrics folds signals into the schema's metric groups. Each
// metric is the group's summed values over the group maximum, scaled to
// the metric's declared range. A metric none of whose signals were
// produced at all is structurally inapplicable and omitted; Aggregate
// renormalizes the remaining weights.
func ComputeMetrics(sch *schema.Schema, sigs []evaluation.Signal) []evaluation.Metric {
	byName := make(map[string]evaluation.Signal, len(sigs))
	for _, s := range sigs {
		byName[s.Name] = s
	}

	out := make([]evaluation.Metric, 0, len(sch.Metrics))
	for _, group := range sch.Metrics {
		sum, present := 0, 0
		var evidence []evaluation.EvidencePointer
		for _, name := range group.Signals {
			sig, ok := byName[name]
			if !ok {
				continue
			}
			present++
			sum += sig.Value
			evidence = appendEvidence(evidence, sig.Evidence, sch.Tunables.MaxEvidencePerSignal*len(group.Signals))
		}
		if present == 0 {
			// Structurally inapplicable: nothing in the interview could
			// have produced this group's signals.
			continue
		}
		maxTotal := len(group.Signals) * maxSignalValue
		value := float64(sum) / float64(maxTotal) * group.Scale
		out = append(out, evaluation.Metric{
			Name:        group.Name,
			Value:       value,
			Scale:       group.Scale,
			Explanation: fmt.Sprintf("%d of %d signal points", sum, maxTotal),
			Evidence:    evidence,
		})
	}
	return out
}

// appendEvidence merges pointers, deduplicating by (section, seq range)
// and respecting the cap.
func appendEvidence(dst []evaluation.EvidencePointer, src []evaluation.EvidencePointer, limit int) []evaluation.EvidencePointer {
	seen := make(map[string]struct{}, len(dst))
	for _, e := range dst {
		seen[evidenceKey(e)] = struct{}{}
	}
	for _, e := range src {
		if len(dst) >= limit {
			break
		}
		k := evidenceKey(e)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		dst = append(dst, e)
	}
	return dst
}

func evidenceKey(e evaluation.EvidencePointer) string {
	return fmt.Sprintf("%s/%s/%d-%d", e.Type, e.SectionID, e.SeqStart, e.SeqEnd)
}

// Aggregate combines metrics into an overall score and band using the
// schema's weight table. Weights of metrics missing from the input are
// dropped and the remainder renormalized to sum to 1, so an
// inapplicable section never silently penalizes the candidate. With no
// applicable weight at all, score and band are both nil.
func Aggregate(sch *schema.Schema, metrics []evaluation.Metric) (*float64, *evaluation.Band) {
	byName := make(map[string]evaluation.Metric, len(metrics))
	for _, m := range metrics {
		byName[m.Name] = m
	}

	totalWeight := 0.0
	for _, group := range sch.Metrics {
		if _, ok := byName[group.Name]; ok {
			totalWeight += group.Weight
		}
	}
	if totalWeight <= 0 {
		return nil, nil
	}

	score := 0.0
	for _, group := range sch.Metrics {
		m, ok := byName[group.Name]
		if !ok {
			continue
		}
		score += m.Value * (group.Weight / totalWeight)
	}
	score = round2(score)

	band := bandFor(score)
	return &score, &band
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
