package agents

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/careerpilot/agentcore/core"
	"github.com/careerpilot/agentcore/model"
	"github.com/careerpilot/agentcore/tool"
)

// JobPosting is one opening returned by a posting source.
type JobPosting struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Company  string    `json:"company"`
	Location string    `json:"location"`
	Skills   []string  `json:"skills"`
	PostedAt time.Time `json:"posted_at"`
}

// PostingSource abstracts the job board integration. Scraping itself lives
// outside this module; the agent only consumes the interface.
type PostingSource interface {
	Search(ctx context.Context, query string, limit int) ([]JobPosting, error)
}

// MarketScannerAgent scans the job market for a query, aggregates demanded
// skills and publishes a MARKET_SCAN_COMPLETED event with its findings.
type MarketScannerAgent struct {
	*BaseAgent
	source PostingSource

	mu       sync.Mutex
	postings []JobPosting
}

// NewMarketScanner builds the agent and registers its tools.
func NewMarketScanner(mdl model.Model, source PostingSource, optFns ...func(o *Options)) (*MarketScannerAgent, error) {
	a := &MarketScannerAgent{
		BaseAgent: NewBaseAgent("market_scanner", mdl, optFns...),
		source:    source,
	}

	querySchema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{"type": "string"},
		},
		"required": []string{"query"},
	}
	noInputSchema := map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}

	defs := []tool.Definition{
		{
			ID:          "fetch_postings",
			Description: "Fetch current job postings matching a search query",
			InputSchema: querySchema,
			Handler:     a.fetchPostings,
			Cost:        tool.Cost{LatencyMS: 900, Compute: 0.2},
			BestFor:     []string{"scan the job market", "search job postings", "find openings"},
			Enabled:     true,
		},
		{
			ID:          "aggregate_skills",
			Description: "Aggregate skill demand across fetched postings",
			InputSchema: noInputSchema,
			Handler:     a.aggregateSkills,
			Cost:        tool.Cost{LatencyMS: 50, Compute: 0.1},
			BestFor:     []string{"skill demand", "aggregate skills", "market trends"},
			NotSuitableFor: []string{
				"fetch postings",
			},
			Enabled: true,
		},
		{
			ID:          "summarize_scan",
			Description: "Summarize the market scan into a compact report",
			InputSchema: noInputSchema,
			Handler:     a.summarizeScan,
			Cost:        tool.Cost{LatencyMS: 50, Compute: 0.1},
			BestFor:     []string{"summarize", "report", "scan summary"},
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

// ScanMarket runs one full market scan for the user and publishes the
// result. The returned Result carries the scan summary as Output.
func (a *MarketScannerAgent) ScanMarket(ctx context.Context, userID, query string) core.Result {
	a.mu.Lock()
	a.postings = nil
	a.mu.Unlock()

	taskID := core.NewID()
	description := fmt.Sprintf("scan the job market for %q and aggregate skill demand", query)
	result := a.RunTask(ctx, taskID, description, map[string]any{
		"user_id": userID,
		"query":   query,
	})

	if result.Success {
		a.publish(ctx, core.EventMarketScanCompleted, map[string]any{
			"user_id":  userID,
			"query":    query,
			"scan":     result.Output,
			"task_id":  taskID,
			"postings": len(a.snapshot()),
		})
	}
	return result
}

// Postings returns the openings collected by the most recent scan.
func (a *MarketScannerAgent) Postings() []JobPosting {
	return a.snapshot()
}

func (a *MarketScannerAgent) snapshot() []JobPosting {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]JobPosting, len(a.postings))
	copy(out, a.postings)
	return out
}

func (a *MarketScannerAgent) fetchPostings(ctx context.Context, input map[string]any) (any, error) {
	query, _ := input["query"].(string)
	postings, err := a.source.Search(ctx, query, 50)
	if err != nil {
		return nil, core.NewCapabilityError("posting_source", err)
	}

	a.mu.Lock()
	a.postings = postings
	a.mu.Unlock()

	return map[string]any{"query": query, "count": len(postings)}, nil
}

func (a *MarketScannerAgent) aggregateSkills(context.Context, map[string]any) (any, error) {
	postings := a.snapshot()
	if len(postings) == 0 {
		return nil, fmt.Errorf("no postings fetched yet")
	}

	counts := make(map[string]int)
	for _, p := range postings {
		for _, skill := range p.Skills {
			counts[skill]++
		}
	}
	return map[string]any{"skill_demand": counts}, nil
}

func (a *MarketScannerAgent) summarizeScan(context.Context, map[string]any) (any, error) {
	postings := a.snapshot()
	if len(postings) == 0 {
		return nil, fmt.Errorf("no postings fetched yet")
	}

	counts := make(map[string]int)
	companies := make(map[string]struct{})
	for _, p := range postings {
		companies[p.Company] = struct{}{}
		for _, skill := range p.Skills {
			counts[skill]++
		}
	}
	top := topSkills(counts, 5)

	return map[string]any{
		"total_postings": len(postings),
		"companies":      len(companies),
		"top_skills":     top,
	}, nil
}

// topSkills returns the n most demanded skills, ties broken
// alphabetically for determinism.
func topSkills(counts map[string]int, n int) []string {
	skills := make([]string, 0, len(counts))
	for s := range counts {
		skills = append(skills, s)
	}
	sort.Slice(skills, func(i, j int) bool {
		if counts[skills[i]] != counts[skills[j]] {
			return counts[skills[i]] > counts[skills[j]]
		}
		return skills[i] < skills[j]
	})
	if len(skills) > n {
		skills = skills[:n]
	}
	return skills
}
