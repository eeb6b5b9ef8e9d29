package agents

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/careerpilot/agentcore/core"
	"github.com/careerpilot/agentcore/model"
	"github.com/careerpilot/agentcore/tool"
)

// CandidateProfile is the slice of user data the matcher works from.
type CandidateProfile struct {
	UserID     string   `json:"user_id"`
	TargetRole string   `json:"target_role"`
	Skills     []string `json:"skills"`
	Location   string   `json:"location"`
}

// JobMatch pairs a posting with its fit score in [0,1].
type JobMatch struct {
	Posting JobPosting `json:"posting"`
	Score   float64    `json:"score"`
	Missing []string   `json:"missing_skills,omitempty"`
}

// JobMatcherAgent ranks current postings against a candidate profile,
// publishes JOB_MATCHES_FOUND and raises SKILL_GAP_DETECTED when the
// market consistently demands skills the candidate lacks.
type JobMatcherAgent struct {
	*BaseAgent
	source PostingSource

	mu      sync.Mutex
	profile CandidateProfile
	matches []JobMatch
	gaps    []string
}

// blackboard keys shared with the career coach.
const (
	// BlackboardLatestMatches holds the most recent []JobMatch per user.
	BlackboardLatestMatches = "latest_matches"
	// BlackboardSkillGaps holds the most recent skill gap list per user.
	BlackboardSkillGaps = "skill_gaps"
)

// NewJobMatcher builds the agent and registers its tools.
func NewJobMatcher(mdl model.Model, source PostingSource, optFns ...func(o *Options)) (*JobMatcherAgent, error) {
	a := &JobMatcherAgent{
		BaseAgent: NewBaseAgent("job_matcher", mdl, optFns...),
		source:    source,
	}

	noInputSchema := map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}

	defs := []tool.Definition{
		{
			ID:          "rank_matches",
			Description: "Rank current postings by fit against the candidate profile",
			InputSchema: noInputSchema,
			Handler:     a.rankMatches,
			Cost:        tool.Cost{LatencyMS: 400, Compute: 0.3},
			BestFor:     []string{"match jobs for a target role", "rank postings"},
			Enabled:     true,
		},
		{
			ID:          "detect_gaps",
			Description: "Detect skills the market demands that the candidate lacks",
			InputSchema: noInputSchema,
			Handler:     a.detectGaps,
			Cost:        tool.Cost{LatencyMS: 60, Compute: 0.1},
			BestFor:     []string{"detect skill gaps"},
			Enabled:     true,
		},
	}
	for _, def := range defs {
		if err := a.RegisterTool(def); err != nil {
			return nil, fmt.Errorf("register tool %s: %w", def.ID, err)
		}
	}
	return a, nil
}

// MatchJobs runs one matching pass for the profile, publishing matches
// and any detected skill gaps. Matches and gaps are also written to the
// user's blackboard when one is configured.
func (a *JobMatcherAgent) MatchJobs(ctx context.Context, profile CandidateProfile) core.Result {
	a.mu.Lock()
	a.profile = profile
	a.matches = nil
	a.gaps = nil
	a.mu.Unlock()

	taskID := core.NewID()
	description := fmt.Sprintf("match jobs for target role %q and detect skill gaps", profile.TargetRole)
	result := a.RunTask(ctx, taskID, description, map[string]any{
		"user_id":     profile.UserID,
		"target_role": profile.TargetRole,
	})

	if !result.Success {
		return result
	}

	a.mu.Lock()
	matches := make([]JobMatch, len(a.matches))
	copy(matches, a.matches)
	gaps := make([]string, len(a.gaps))
	copy(gaps, a.gaps)
	a.mu.Unlock()

	if a.blackboard != nil {
		a.blackboard.Set(profile.UserID, BlackboardLatestMatches, matches, a.name)
		if len(gaps) > 0 {
			a.blackboard.Set(profile.UserID, BlackboardSkillGaps, gaps, a.name)
		}
	}

	a.publish(ctx, core.EventJobMatchesFound, map[string]any{
		"user_id":     profile.UserID,
		"target_role": profile.TargetRole,
		"match_count": len(matches),
	})
	if len(gaps) > 0 {
		a.publish(ctx, core.EventSkillGapDetected, map[string]any{
			"user_id":     profile.UserID,
			"target_role": profile.TargetRole,
			"gaps":        gaps,
		})
	}
	return result
}

// Matches returns the ranked matches from the most recent run.
func (a *JobMatcherAgent) Matches() []JobMatch {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]JobMatch, len(a.matches))
	copy(out, a.matches)
	return out
}

func (a *JobMatcherAgent) rankMatches(ctx context.Context, _ map[string]any) (any, error) {
	a.mu.Lock()
	profile := a.profile
	a.mu.Unlock()

	postings, err := a.source.Search(ctx, profile.TargetRole, 50)
	if err != nil {
		return nil, core.NewCapabilityError("posting_source", err)
	}
	if len(postings) == 0 {
		return nil, fmt.Errorf("no postings found for role %q", profile.TargetRole)
	}

	have := make(map[string]struct{}, len(profile.Skills))
	for _, s := range profile.Skills {
		have[strings.ToLower(s)] = struct{}{}
	}

	matches := make([]JobMatch, 0, len(postings))
	for _, p := range postings {
		if len(p.Skills) == 0 {
			continue
		}
		hit := 0
		var missing []string
		for _, s := range p.Skills {
			if _, ok := have[strings.ToLower(s)]; ok {
				hit++
			} else {
				missing = append(missing, s)
			}
		}
		matches = append(matches, JobMatch{
			Posting: p,
			Score:   float64(hit) / float64(len(p.Skills)),
			Missing: missing,
		})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Posting.ID < matches[j].Posting.ID
	})

	a.mu.Lock()
	a.matches = matches
	a.mu.Unlock()

	return map[string]any{"match_count": len(matches)}, nil
}

// detectGaps flags skills missing from the profile that appear in at
// least a third of the ranked postings.
func (a *JobMatcherAgent) detectGaps(context.Context, map[string]any) (any, error) {
	a.mu.Lock()
	matches := a.matches
	a.mu.Unlock()
	if len(matches) == 0 {
		return nil, fmt.Errorf("no matches ranked yet")
	}

	counts := make(map[string]int)
	for _, m := range matches {
		for _, s := range m.Missing {
			counts[strings.ToLower(s)]++
		}
	}

	threshold := (len(matches) + 2) / 3
	var gaps []string
	for skill, n := range counts {
		if n >= threshold {
			gaps = append(gaps, skill)
		}
	}
	sort.Strings(gaps)

	a.mu.Lock()
	a.gaps = gaps
	a.mu.Unlock()

	return map[string]any{"gaps": gaps}, nil
}
