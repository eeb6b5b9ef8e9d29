package memory

import (
	"errors"
	"testing"
	"time"

	"github.com/careerpilot/agentcore/core"
)

// failingStore simulates a persistence outage for append paths.
type failingStore struct {
	InMemoryStore
}

func (f *failingStore) AppendEpisode(string, core.Episode) error {
	return errors.New("disk full")
}

func TestWorkingMemoryLifecycle(t *testing.T) {
	m := NewManager("market_scanner", "task-1", NewInMemoryStore())
	m.SetWorking("cursor", 42)

	v, ok := m.GetWorking("cursor")
	if !ok || v != 42 {
		t.Fatalf("expected cursor=42, got %v (ok=%v)", v, ok)
	}

	m.ClearWorking()
	if _, ok := m.GetWorking("cursor"); ok {
		t.Error("working memory must be empty after ClearWorking")
	}
}

func TestEpisodeRecallOrder(t *testing.T) {
	store := NewInMemoryStore()
	m := NewManager("interview_analyzer", "task-1", store)

	base := time.Now().UTC()
	for i, action := range []string{"fetched transcript", "scored answers", "wrote summary"} {
		err := m.RecordEpisode(core.Episode{
			EpisodeType: "analysis",
			ActionTaken: action,
			Outcome:     core.EpisodeOutcome{Success: true, Summary: action},
			CreatedAt:   base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("record failed: %v", err)
		}
	}

	episodes, err := m.RecallEpisodes(2)
	if err != nil {
		t.Fatalf("recall failed: %v", err)
	}
	if len(episodes) != 2 {
		t.Fatalf("expected 2 episodes, got %d", len(episodes))
	}
	if episodes[0].ActionTaken != "wrote summary" {
		t.Errorf("expected most-recent-first, got %q first", episodes[0].ActionTaken)
	}
	if episodes[0].Context["task_id"] != "task-1" {
		t.Error("expected task_id stamped into episode context")
	}
}

func TestRecordedEpisodeIsolatedFromCallerMaps(t *testing.T) {
	store := NewInMemoryStore()
	m := NewManager("market_scanner", "task-1", store)

	ctx := map[string]any{"query": "backend roles"}
	metrics := map[string]float64{"confidence": 0.9}
	err := m.RecordEpisode(core.Episode{
		EpisodeType: "task_run",
		ActionTaken: "scanned market",
		Context:     ctx,
		Outcome:     core.EpisodeOutcome{Success: true, Metrics: metrics},
	})
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}

	ctx["query"] = "mutated"
	metrics["confidence"] = 0.1

	episodes, err := m.RecallEpisodes(1)
	if err != nil {
		t.Fatalf("recall failed: %v", err)
	}
	if episodes[0].Context["query"] != "backend roles" {
		t.Errorf("stored context changed with the caller's map: %v", episodes[0].Context)
	}
	if episodes[0].Outcome.Metrics["confidence"] != 0.9 {
		t.Errorf("stored metrics changed with the caller's map: %v", episodes[0].Outcome.Metrics)
	}
}

func TestEpisodePersistenceErrorPropagates(t *testing.T) {
	m := NewManager("job_matcher", "task-1", &failingStore{})
	err := m.RecordEpisode(core.Episode{EpisodeType: "match", ActionTaken: "ranked jobs"})
	if err == nil {
		t.Fatal("a persistence error must propagate, never fail silently")
	}
}

func TestFactCategoryFilter(t *testing.T) {
	store := NewInMemoryStore()
	m := NewManager("market_scanner", "task-1", store)

	facts := []core.Fact{
		{Category: "salary", Content: "median backend salary 120k", Confidence: 0.8},
		{Category: "skills", Content: "k8s demand rising", Confidence: 0.9},
		{Category: "salary", Content: "sf premium 25%", Confidence: 0.7},
	}
	for _, f := range facts {
		if err := m.RecordFact(f); err != nil {
			t.Fatalf("record fact failed: %v", err)
		}
	}

	got, err := m.RecallFacts([]string{"salary"}, 10)
	if err != nil {
		t.Fatalf("recall facts failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 salary facts, got %d", len(got))
	}
	for _, f := range got {
		if f.Category != "salary" {
			t.Errorf("unexpected category %q", f.Category)
		}
	}

	all, _ := m.RecallFacts(nil, 1)
	if len(all) != 1 {
		t.Errorf("limit should cap results, got %d", len(all))
	}
}
