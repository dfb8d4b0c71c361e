package decision

import (
	"strings"

	"github.com/okian/parley/internal/domain/schema"
)

// Uncertainty and refusal phrases that force another follow-up. A
// refusal must never shortcut the minimum engagement requirement.
var refusalPhrases = []string{
	"i don't know",
	"i dont know",
	"no idea",
	"not sure",
	"i'm not sure",
	"can't answer",
	"cannot answer",
	"skip",
	"pass on this",
	"let's move on",
	"lets move on",
	"next question",
	"i give up",
}

// NeedsMoreFollowups applies the coverage heuristic to a candidate
// answer: refusals always need more; otherwise count distinct concept
// groups hit by substring and compare against the section minimum.
//
// This is a cheap, explainable check, not a classifier. Ties favor
// asking one more question: a spurious extra follow-up is acceptable,
// ending a section prematurely is not.
func NeedsMoreFollowups(cov schema.Coverage, answer string) bool {
	lower := strings.ToLower(answer)
	if IsRefusal(lower) {
		return true
	}
	if len(cov.Groups) == 0 {
		return false
	}
	hits := 0
	for _, group := range cov.Groups {
		for _, phrase := range group {
			if strings.Contains(lower, strings.ToLower(phrase)) {
				hits++
				break
			}
		}
	}
	return hits < cov.MinHits
}

// IsRefusal reports whether the (lower-cased) answer contains an
// explicit uncertainty or skip phrase.
func IsRefusal(lowerAnswer string) bool {
	for _, phrase := range refusalPhrases {
		if strings.Contains(lowerAnswer, phrase) {
			return true
		}
	}
	return false
}

// ReengagementPrompt is surfaced when the generator declines to follow
// up but the candidate's last message was a refusal.
const ReengagementPrompt = "No problem - take a different angle. What part of the question feels most approachable to you?"
