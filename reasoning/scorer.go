package reasoning

import (
	"fmt"
	"strings"

	"github.com/careerpilot/agentcore/core"
)

// ScorerOptions configure confidence scoring.
type ScorerOptions struct {
	// StrictMode tightens the pass bar without changing the scoring
	// formula's shape.
	StrictMode bool
	// StrictMargin is how much StrictMode raises the bar.
	StrictMargin float64
}

// Scorer evaluates how well execution feedback satisfied a goal. Scoring
// is a pure function of (goal, feedback): identical input always yields an
// identical score, which keeps the iteration loop deterministic for
// testing.
type Scorer struct {
	opts ScorerOptions
}

// NewScorer constructs a Scorer.
func NewScorer(optFns ...func(o *ScorerOptions)) *Scorer {
	opts := ScorerOptions{StrictMargin: 0.1}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Scorer{opts: opts}
}

// Score produces the Assessment for one iteration. previous is the prior
// iteration's assessment (nil on the first); the Degraded flag is set when
// the overall score dropped below it.
func (s *Scorer) Score(goal core.Goal, feedback core.ExecutionFeedback, previous *core.Assessment) core.Assessment {
	successRatio := ratio(feedback)

	criterionScores := make(map[string]float64, len(goal.SuccessCriteria))
	var sum float64
	for _, criterion := range goal.SuccessCriteria {
		score := successRatio
		if criterionCovered(criterion, feedback) {
			score = min(1.0, successRatio+0.2)
		}
		criterionScores[criterion] = score
		sum += score
	}

	overall := successRatio
	if len(goal.SuccessCriteria) > 0 {
		overall = sum / float64(len(goal.SuccessCriteria))
	}

	a := core.Assessment{
		OverallScore:    overall,
		CriterionScores: criterionScores,
		Reasoning: fmt.Sprintf("%d/%d steps succeeded; %d criteria evaluated",
			succeeded(feedback), len(feedback.Steps), len(goal.SuccessCriteria)),
	}
	if previous != nil && overall < previous.OverallScore {
		a.Degraded = true
	}
	return a
}

// MeetsBar reports whether score clears the confidence threshold. Strict
// mode raises the bar by the configured margin, capped below certainty so
// a perfect score always passes.
func (s *Scorer) MeetsBar(score, threshold float64) bool {
	if s.opts.StrictMode {
		threshold = min(threshold+s.opts.StrictMargin, 0.99)
	}
	return score >= threshold
}

func ratio(feedback core.ExecutionFeedback) float64 {
	if len(feedback.Steps) == 0 {
		return 0
	}
	return float64(succeeded(feedback)) / float64(len(feedback.Steps))
}

func succeeded(feedback core.ExecutionFeedback) int {
	n := 0
	for _, s := range feedback.Steps {
		if s.Success {
			n++
		}
	}
	return n
}

// criterionCovered reports whether any successful step's output mentions a
// keyword of the criterion.
func criterionCovered(criterion string, feedback core.ExecutionFeedback) bool {
	keywords := ExtractKeywords(criterion, 0)
	if len(keywords) == 0 {
		return false
	}
	for _, step := range feedback.Steps {
		if !step.Success || step.Output == nil {
			continue
		}
		text := strings.ToLower(fmt.Sprintf("%v", step.Output))
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				return true
			}
		}
	}
	return false
}
