package tool

import (
	"sort"
	"strings"
)

// Selector ranks candidate tools for a sub-goal using their declarative
// metadata. It never fails when nothing matches; it returns an empty list
// and lets the caller decide what a planless step means.
type Selector struct {
	registry *Registry
}

// NewSelector constructs a selector over a registry.
func NewSelector(registry *Registry) *Selector {
	return &Selector{registry: registry}
}

// Rank returns enabled tools ordered by descending fit for the sub-goal.
// Tools whose NotSuitableFor metadata matches the sub-goal are excluded
// outright; ties break toward cheaper tools, then lexical id order so the
// ranking is deterministic.
func (s *Selector) Rank(subGoal string) []Definition {
	goal := strings.ToLower(subGoal)

	type scored struct {
		def   Definition
		score int
	}
	var candidates []scored

	for _, def := range s.registry.Enabled() {
		if metadataMatches(goal, def.NotSuitableFor) {
			continue
		}
		score := metadataScore(goal, def.BestFor)
		if strings.Contains(goal, strings.ToLower(def.ID)) {
			score += 2
		}
		if score == 0 {
			continue
		}
		candidates = append(candidates, scored{def: def, score: score})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		ci, cj := candidates[i].def.Cost, candidates[j].def.Cost
		if ci.Compute != cj.Compute {
			return ci.Compute < cj.Compute
		}
		if ci.LatencyMS != cj.LatencyMS {
			return ci.LatencyMS < cj.LatencyMS
		}
		return candidates[i].def.ID < candidates[j].def.ID
	})

	out := make([]Definition, len(candidates))
	for i, c := range candidates {
		out[i] = c.def
	}
	return out
}

// metadataMatches reports whether any metadata phrase appears in the goal
// or vice versa.
func metadataMatches(goal string, phrases []string) bool {
	for _, p := range phrases {
		p = strings.ToLower(p)
		if p == "" {
			continue
		}
		if strings.Contains(goal, p) || strings.Contains(p, goal) {
			return true
		}
	}
	return false
}

// metadataScore counts word overlap between the goal and the metadata
// phrases.
func metadataScore(goal string, phrases []string) int {
	goalWords := map[string]bool{}
	for _, w := range strings.Fields(goal) {
		goalWords[w] = true
	}
	score := 0
	for _, p := range phrases {
		for _, w := range strings.Fields(strings.ToLower(p)) {
			if goalWords[w] {
				score++
			}
		}
	}
	return score
}
