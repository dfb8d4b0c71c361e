package textgen

import (
	"context"
	"strings"
)

// probes are generic deepening questions applied in order. Keyed probes
// fire first when the answer mentions their trigger, so consecutive
// follow-ups land on different facets of the same answer.
var keyedProbes = []struct {
	trigger string
	probe   string
}{
	{"queue", "What happens to queued items when the consumer falls behind for an hour?"},
	{"cache", "How would you invalidate that cache when the source of truth changes?"},
	{"lock", "What is the failure mode if the lock holder crashes mid-operation?"},
	{"retry", "How do you keep retries from amplifying load during an outage?"},
	{"database", "Which access pattern would make that storage choice fall over first?"},
}

var genericProbes = []string{
	"Can you make that concrete with numbers or a specific failure you have seen?",
	"Which part of that design carries the most risk, and why?",
	"How would you verify that behavior in production?",
	"What would you change if the load grew by two orders of magnitude?",
}

// Static is a deterministic, dependency-free Generator used when no
// external generation service is wired. It never returns an error.
type Static struct{}

// NewStatic creates the static generator.
func NewStatic() *Static {
	return &Static{}
}

// Followup implements Generator.
func (s *Static) Followup(_ context.Context, req Request) (string, error) {
	lower := strings.ToLower(req.LastAnswer)
	asked := make(map[string]struct{}, len(req.RecentQuestions))
	for _, q := range req.RecentQuestions {
		asked[q] = struct{}{}
	}
	for _, kp := range keyedProbes {
		if !strings.Contains(lower, kp.trigger) {
			continue
		}
		if _, dup := asked[kp.probe]; dup {
			continue
		}
		return kp.probe, nil
	}
	for _, probe := range genericProbes {
		if _, dup := asked[probe]; !dup {
			return probe, nil
		}
	}
	// Out of material; let the engine end the section.
	return "", nil
}
