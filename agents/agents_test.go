package agents

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careerpilot/agentcore/bus"
	"github.com/careerpilot/agentcore/core"
	"github.com/careerpilot/agentcore/loop"
	"github.com/careerpilot/agentcore/memory"
	"github.com/careerpilot/agentcore/model"
	"github.com/careerpilot/agentcore/tool"
)

type fakeSource struct {
	postings []JobPosting
	err      error
}

func (f *fakeSource) Search(context.Context, string, int) ([]JobPosting, error) {
	return f.postings, f.err
}

func samplePostings() []JobPosting {
	now := time.Now().UTC()
	return []JobPosting{
		{ID: "p1", Title: "Backend Engineer", Company: "Acme", Skills: []string{"go", "kubernetes", "sql"}, PostedAt: now},
		{ID: "p2", Title: "Platform Engineer", Company: "Globex", Skills: []string{"go", "kubernetes"}, PostedAt: now},
		{ID: "p3", Title: "Data Engineer", Company: "Initech", Skills: []string{"python", "kubernetes", "aws"}, PostedAt: now},
	}
}

// offlineModel simulates an unavailable reasoning model so every component
// exercises its deterministic fallback.
func offlineModel() *model.MockModel {
	m := model.NewMockModel("offline")
	m.FailWith(errors.New("model unavailable"))
	return m
}

func TestMarketScannerFullRun(t *testing.T) {
	events := bus.NewInMemoryEventStore()
	b := bus.New(events)
	mem := memory.NewInMemoryStore()

	scanner, err := NewMarketScanner(offlineModel(), &fakeSource{postings: samplePostings()},
		func(o *Options) {
			o.Bus = b
			o.MemoryStore = mem
		})
	require.NoError(t, err)

	result := scanner.ScanMarket(context.Background(), "u1", "go backend")
	require.True(t, result.Success, "scan failed: %s", result.Error)
	assert.Equal(t, 1, result.Iterations)
	assert.InDelta(t, 1.0, result.Confidence, 0.001)
	assert.NotEmpty(t, result.ReasoningTrace)
	assert.Len(t, scanner.Postings(), 3)

	summary, ok := result.Output.(map[string]any)
	require.True(t, ok, "output should be the scan summary, got %T", result.Output)
	assert.Equal(t, 3, summary["total_postings"])
	top, _ := summary["top_skills"].([]string)
	require.NotEmpty(t, top)
	assert.Equal(t, "kubernetes", top[0], "kubernetes appears in every posting")

	published, err := events.ByUser("u1", 10)
	require.NoError(t, err)
	require.Len(t, published, 1)
	assert.Equal(t, core.EventMarketScanCompleted, published[0].EventType)
	assert.Equal(t, core.PriorityLow, published[0].Priority)

	episodes, err := mem.RecentEpisodes("market_scanner", core.EpisodeQuery{})
	require.NoError(t, err)
	require.Len(t, episodes, 1)
	assert.True(t, episodes[0].Outcome.Success)
	assert.Equal(t, "confidence_met", episodes[0].Outcome.Summary)
}

func TestMarketScannerSourceFailure(t *testing.T) {
	scanner, err := NewMarketScanner(offlineModel(), &fakeSource{err: errors.New("board down")},
		func(o *Options) {
			o.Loop = func(lo *loop.Options) {
				lo.MaxIterations = 2
				lo.MaxDuration = 5 * time.Second
			}
		})
	require.NoError(t, err)

	result := scanner.ScanMarket(context.Background(), "u1", "go backend")
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
}

func TestInterviewAnalyzerFallsBackWithoutModel(t *testing.T) {
	events := bus.NewInMemoryEventStore()
	b := bus.New(events)

	analyzer, err := NewInterviewAnalyzer(offlineModel(), func(o *Options) { o.Bus = b })
	require.NoError(t, err)

	transcript := "I led the migration of our billing system to Go and, um, improved deploy times. " +
		"I also mentored two junior engineers and introduced integration testing across services. " +
		"The hardest part was coordinating the cutover window with basically every team involved."
	result := analyzer.AnalyzeInterview(context.Background(), "u2", "iv-1", transcript)
	require.True(t, result.Success, "analysis failed: %s", result.Error)

	findings, ok := result.Output.(map[string]any)
	require.True(t, ok, "output should be findings, got %T", result.Output)
	assert.NotEmpty(t, findings["strengths"])
	assert.Equal(t, true, findings["degraded"], "offline model must flag the keyword fallback")

	published, err := events.ByUser("u2", 10)
	require.NoError(t, err)
	require.Len(t, published, 1)
	assert.Equal(t, core.EventInterviewAnalyzed, published[0].EventType)
	assert.Equal(t, core.PriorityHigh, published[0].Priority)
}

func TestInterviewAnalyzerRejectsEmptyTranscript(t *testing.T) {
	analyzer, err := NewInterviewAnalyzer(offlineModel())
	require.NoError(t, err)

	ev := core.NewAgentEvent(core.EventInterviewCompleted, map[string]any{
		"user_id":      "u2",
		"interview_id": "iv-2",
	})
	err = analyzer.HandleInterviewCompleted(context.Background(), ev)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no transcript")
}

func TestInterviewAnalyzerHandlesCompletedEvent(t *testing.T) {
	analyzer, err := NewInterviewAnalyzer(offlineModel())
	require.NoError(t, err)

	ev := core.NewAgentEvent(core.EventInterviewCompleted, map[string]any{
		"user_id":      "u2",
		"interview_id": "iv-3",
		"transcript":   "I shipped a payments feature end to end and presented the design review to stakeholders across three teams without issues.",
	})
	require.NoError(t, analyzer.HandleInterviewCompleted(context.Background(), ev))
}

func TestJobMatcherDetectsGaps(t *testing.T) {
	events := bus.NewInMemoryEventStore()
	b := bus.New(events)
	board := bus.NewBlackboard()

	matcher, err := NewJobMatcher(offlineModel(), &fakeSource{postings: samplePostings()},
		func(o *Options) {
			o.Bus = b
			o.Blackboard = board
		})
	require.NoError(t, err)

	result := matcher.MatchJobs(context.Background(), CandidateProfile{
		UserID:     "u3",
		TargetRole: "backend engineer",
		Skills:     []string{"go", "sql"},
	})
	require.True(t, result.Success, "matching failed: %s", result.Error)

	matches := matcher.Matches()
	require.Len(t, matches, 3)
	assert.Equal(t, "p1", matches[0].Posting.ID, "best overlap ranks first")
	assert.InDelta(t, 2.0/3.0, matches[0].Score, 0.001)
	assert.Greater(t, matches[0].Score, matches[2].Score)

	published, err := events.ByUser("u3", 10)
	require.NoError(t, err)
	types := make(map[core.EventType]bool)
	for _, ev := range published {
		types[ev.EventType] = true
	}
	assert.True(t, types[core.EventJobMatchesFound])
	assert.True(t, types[core.EventSkillGapDetected], "kubernetes gap should be flagged")

	gapsEntry, ok := board.Get("u3", BlackboardSkillGaps)
	require.True(t, ok)
	gaps, _ := gapsEntry.Value.([]string)
	assert.Contains(t, gaps, "kubernetes")

	matchesEntry, ok := board.Get("u3", BlackboardLatestMatches)
	require.True(t, ok)
	assert.Equal(t, "job_matcher", matchesEntry.WrittenBy)
}

func TestBaseAgentRejectsDuplicateTask(t *testing.T) {
	agent := NewBaseAgent("blocker", offlineModel())
	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, agent.RegisterTool(tool.Definition{
		ID:          "wait_for_signal",
		Description: "Block until the test releases it",
		InputSchema: map[string]any{"type": "object", "properties": map[string]any{"query": map[string]any{"type": "string"}}},
		Handler: func(context.Context, map[string]any) (any, error) {
			close(started)
			<-release
			return "done", nil
		},
		BestFor: []string{"wait for the release signal"},
		Enabled: true,
	}))

	done := make(chan core.Result, 1)
	go func() {
		done <- agent.RunTask(context.Background(), "t1", "wait for the release signal", nil)
	}()
	<-started

	second := agent.RunTask(context.Background(), "t1", "wait for the release signal", nil)
	assert.False(t, second.Success)
	assert.Contains(t, second.Error, "already active")

	close(release)
	first := <-done
	assert.True(t, first.Success)
}
