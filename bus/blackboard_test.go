package bus

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlackboardIsolatesUsers(t *testing.T) {
	bb := NewBlackboard()
	bb.Set("u1", "target_role", "backend engineer", "career_coach")
	bb.Set("u2", "target_role", "data analyst", "career_coach")

	e1, ok := bb.Get("u1", "target_role")
	require.True(t, ok)
	assert.Equal(t, "backend engineer", e1.Value)
	assert.Equal(t, "career_coach", e1.WrittenBy)

	e2, ok := bb.Get("u2", "target_role")
	require.True(t, ok)
	assert.Equal(t, "data analyst", e2.Value)
}

func TestBlackboardLastWriteWins(t *testing.T) {
	bb := NewBlackboard()
	bb.Set("u1", "latest_matches", []string{"a"}, "job_matcher")
	bb.Set("u1", "latest_matches", []string{"a", "b"}, "job_matcher")

	entry, ok := bb.Get("u1", "latest_matches")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, entry.Value)
}

func TestBlackboardSnapshotAndClear(t *testing.T) {
	bb := NewBlackboard()
	bb.Set("u1", "resume_summary", "5y Go", "resume_ingestor")
	bb.Set("u1", "target_role", "backend engineer", "career_coach")

	snap := bb.Snapshot("u1")
	require.Len(t, snap, 2)

	bb.Delete("u1", "target_role")
	_, ok := bb.Get("u1", "target_role")
	assert.False(t, ok)

	bb.Clear("u1")
	assert.Nil(t, bb.Snapshot("u1"))
}

func TestBlackboardConcurrentWriters(t *testing.T) {
	bb := NewBlackboard()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			bb.Set("u1", "counter", i, "tester")
			bb.Get("u1", "counter")
		}(i)
	}
	wg.Wait()

	_, ok := bb.Get("u1", "counter")
	assert.True(t, ok)
}
