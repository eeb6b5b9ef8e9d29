package bus

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careerpilot/agentcore/core"
	"github.com/careerpilot/agentcore/internal/testutil"
)

// recordingDispatcher captures every trigger, optionally failing.
type recordingDispatcher struct {
	mu     sync.Mutex
	calls  []string
	err    error
	handle string
}

func (d *recordingDispatcher) Trigger(_ context.Context, jobID string, _ map[string]any) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, jobID)
	if d.err != nil {
		return "", d.err
	}
	return d.handle, nil
}

func (d *recordingDispatcher) jobIDs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.calls))
	copy(out, d.calls)
	return out
}

func TestPublishPersistsAndDispatches(t *testing.T) {
	store := NewInMemoryEventStore()
	disp := &recordingDispatcher{handle: "job-1"}
	b := New(store, func(o *Options) { o.Dispatcher = disp })

	res, err := b.Publish(context.Background(), core.EventInterviewCompleted, map[string]any{
		"interview_id": "iv-1",
		"user_id":      "u1",
	})
	require.NoError(t, err)
	assert.True(t, res.Persisted)
	assert.True(t, res.Dispatched)

	ev, err := store.Get(res.EventID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusPending, ev.Status)
	assert.Equal(t, core.PriorityHigh, ev.Priority)
	assert.Equal(t, "interview_runner", ev.SourceAgent)
	assert.Equal(t, "interview_analyzer", ev.TargetAgent)
	assert.Equal(t, "u1", ev.UserID)

	// The lane job for the target plus the global listener fan-out.
	jobs := disp.jobIDs()
	require.Len(t, jobs, 2)
	assert.Equal(t, "realtime:interview_analyzer", jobs[0])
	assert.Equal(t, GlobalListenerJob, jobs[1])
}

func TestPublishSurvivesDispatchFailure(t *testing.T) {
	store := NewInMemoryEventStore()
	disp := &recordingDispatcher{err: errors.New("job runner unreachable")}
	b := New(store, func(o *Options) { o.Dispatcher = disp })

	res, err := b.Publish(context.Background(), core.EventInterviewCompleted, map[string]any{
		"interview_id": "iv-2",
		"user_id":      "u1",
	})
	require.NoError(t, err, "dispatch failure must not surface as a publish error")
	assert.True(t, res.Persisted)
	assert.False(t, res.Dispatched)

	ev, err := store.Get(res.EventID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusFailed, ev.Status)
	assert.Contains(t, ev.ErrorMessage, "job runner unreachable")
}

func TestPublishWithoutDispatcherLeavesPending(t *testing.T) {
	store := NewInMemoryEventStore()
	b := New(store)

	res, err := b.Publish(context.Background(), core.EventMarketScanCompleted, map[string]any{
		"scan_id": "s1",
	})
	require.NoError(t, err)
	assert.True(t, res.Persisted)
	assert.False(t, res.Dispatched)

	ev, err := store.Get(res.EventID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusPending, ev.Status)
}

func TestPublishUnknownEventType(t *testing.T) {
	b := New(NewInMemoryEventStore())
	_, err := b.Publish(context.Background(), core.EventType("SOMETHING_ELSE"), nil)
	require.Error(t, err)
}

func TestShouldSkipUnknownEvent(t *testing.T) {
	b := New(NewInMemoryEventStore())
	skip, reason, err := b.ShouldSkip("no-such-id")
	require.NoError(t, err)
	assert.True(t, skip)
	assert.Equal(t, SkipNotFound, reason)
}

func TestShouldSkipCompletedEvent(t *testing.T) {
	store := NewInMemoryEventStore()
	b := New(store)
	ev := core.NewAgentEvent(core.EventResumeParsed, map[string]any{"user_id": "u1"})
	require.NoError(t, store.Insert(ev))
	require.NoError(t, b.MarkProcessing(ev.ID))
	require.NoError(t, b.MarkCompleted(ev.ID))

	skip, reason, err := b.ShouldSkip(ev.ID)
	require.NoError(t, err)
	assert.True(t, skip)
	assert.Equal(t, SkipAlreadyCompleted, reason)
}

func TestShouldSkipHonorsProcessingLease(t *testing.T) {
	store := NewInMemoryEventStore()
	b := New(store)

	ev := testutil.NewEventBuilder(core.EventJobMatchesFound).User("u1").Age(4 * time.Minute).Build()
	require.NoError(t, store.Insert(ev))
	require.NoError(t, b.MarkProcessing(ev.ID))

	skip, reason, err := b.ShouldSkip(ev.ID)
	require.NoError(t, err)
	assert.True(t, skip, "a 4 minute old processing event still holds its lease")
	assert.Equal(t, SkipAlreadyProcessing, reason)
}

func TestShouldSkipReclaimsStuckEvent(t *testing.T) {
	store := NewInMemoryEventStore()
	b := New(store)

	ev := testutil.NewEventBuilder(core.EventJobMatchesFound).User("u1").Age(6 * time.Minute).Build()
	require.NoError(t, store.Insert(ev))
	require.NoError(t, b.MarkProcessing(ev.ID))

	skip, reason, err := b.ShouldSkip(ev.ID)
	require.NoError(t, err)
	assert.False(t, skip, "a 6 minute old processing event is reclaimable")
	assert.Equal(t, SkipNone, reason)
}

func TestConcurrentWorkersCompleteEventOnce(t *testing.T) {
	store := NewInMemoryEventStore()
	b := New(store)
	ev := core.NewAgentEvent(core.EventResumeParsed, map[string]any{"user_id": "u1"})
	require.NoError(t, store.Insert(ev))

	// Every worker runs the full check-claim-work-complete sequence; the
	// conditional claim must let exactly one of them through.
	const workers = 32
	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			skip, _, err := b.ShouldSkip(ev.ID)
			if err != nil || skip {
				return
			}
			if err := b.MarkProcessing(ev.ID); err != nil {
				assert.ErrorIs(t, err, core.ErrClaimLost)
				return
			}
			atomic.AddInt32(&wins, 1)
			assert.NoError(t, b.MarkCompleted(ev.ID))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&wins), "exactly one worker may complete the event")
	got, err := store.Get(ev.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusCompleted, got.Status)
}

func TestMarkProcessingLosesToLiveClaim(t *testing.T) {
	store := NewInMemoryEventStore()
	b := New(store)
	ev := testutil.NewEventBuilder(core.EventJobMatchesFound).User("u1").Age(time.Minute).Build()
	require.NoError(t, store.Insert(ev))

	require.NoError(t, b.MarkProcessing(ev.ID))
	err := b.MarkProcessing(ev.ID)
	require.ErrorIs(t, err, core.ErrClaimLost)
}

func TestMarkProcessingReclaimsStaleClaim(t *testing.T) {
	store := NewInMemoryEventStore()
	b := New(store)
	ev := testutil.NewEventBuilder(core.EventJobMatchesFound).User("u1").Age(6 * time.Minute).Status(core.StatusProcessing).Build()
	require.NoError(t, store.Insert(ev))

	require.NoError(t, b.MarkProcessing(ev.ID), "an expired lease is claimable again")
}

func TestPublishFansOutToListenerWhenDispatchFails(t *testing.T) {
	store := NewInMemoryEventStore()
	disp := &laneFailingDispatcher{}
	b := New(store, func(o *Options) { o.Dispatcher = disp })

	res, err := b.Publish(context.Background(), core.EventInterviewCompleted, map[string]any{
		"interview_id": "iv-3",
		"user_id":      "u1",
	})
	require.NoError(t, err)
	assert.True(t, res.Persisted)
	assert.False(t, res.Dispatched)

	ev, err := store.Get(res.EventID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusFailed, ev.Status)
	assert.Contains(t, disp.jobIDs(), GlobalListenerJob,
		"the listener observes the event even when the lane dispatch fails")
}

// laneFailingDispatcher fails every lane job but accepts the global
// listener fan-out.
type laneFailingDispatcher struct {
	mu    sync.Mutex
	calls []string
}

func (d *laneFailingDispatcher) Trigger(_ context.Context, jobID string, _ map[string]any) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, jobID)
	if jobID != GlobalListenerJob {
		return "", errors.New("lane runner unreachable")
	}
	return "listener-1", nil
}

func (d *laneFailingDispatcher) jobIDs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.calls))
	copy(out, d.calls)
	return out
}

func TestMarkFailedBumpsRetryCount(t *testing.T) {
	store := NewInMemoryEventStore()
	b := New(store)
	ev := core.NewAgentEvent(core.EventSkillGapDetected, map[string]any{"user_id": "u1"})
	require.NoError(t, store.Insert(ev))

	require.NoError(t, b.MarkFailed(ev.ID, errors.New("handler blew up")))

	got, err := store.Get(ev.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusFailed, got.Status)
	assert.Equal(t, 1, got.RetryCount)
	assert.Contains(t, got.ErrorMessage, "handler blew up")
	require.NotNil(t, got.ProcessedAt)
}

func TestPendingDrainOrder(t *testing.T) {
	store := NewInMemoryEventStore()

	mk := func(p core.Priority, age time.Duration) core.AgentEvent {
		ev := testutil.NewEventBuilder(core.EventMarketScanCompleted).Priority(p).Age(age).Build()
		require.NoError(t, store.Insert(ev))
		return ev
	}

	oldLow := mk(core.PriorityLow, 3*time.Hour)
	newHigh := mk(core.PriorityHigh, time.Minute)
	oldHigh := mk(core.PriorityHigh, time.Hour)
	medium := mk(core.PriorityMedium, 2*time.Hour)

	got, err := store.Pending(10)
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, oldHigh.ID, got[0].ID, "older high drains before newer high")
	assert.Equal(t, newHigh.ID, got[1].ID)
	assert.Equal(t, medium.ID, got[2].ID)
	assert.Equal(t, oldLow.ID, got[3].ID)
}

func TestDrainerCompletesEachEventOnce(t *testing.T) {
	store := NewInMemoryEventStore()
	b := New(store)
	d, err := NewDrainer(b, func(o *DrainerOptions) { o.PoolSize = 4 })
	require.NoError(t, err)
	defer d.Close()

	var completions int32
	var mu sync.Mutex
	counts := make(map[string]int)
	d.Register(core.EventResumeParsed, func(_ context.Context, ev core.AgentEvent) error {
		mu.Lock()
		counts[ev.ID]++
		completions++
		mu.Unlock()
		return nil
	})

	for i := 0; i < 8; i++ {
		ev := core.NewAgentEvent(core.EventResumeParsed, map[string]any{"user_id": "u1"})
		require.NoError(t, store.Insert(ev))
	}

	// Draining twice must not re-run completed work.
	require.NoError(t, d.Drain(context.Background()))
	require.NoError(t, d.Drain(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, counts, 8)
	for id, n := range counts {
		assert.Equal(t, 1, n, "event %s handled more than once", id)
	}

	pending, err := store.Pending(100)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestDrainerMarksFailuresAndRetries(t *testing.T) {
	store := NewInMemoryEventStore()
	b := New(store)
	d, err := NewDrainer(b, func(o *DrainerOptions) {
		o.PoolSize = 1
		o.MaxRetries = 2
	})
	require.NoError(t, err)
	defer d.Close()

	var attempts int32
	d.Register(core.EventSkillGapDetected, func(context.Context, core.AgentEvent) error {
		atomic.AddInt32(&attempts, 1)
		return errors.New("gap analysis unavailable")
	})

	ev := core.NewAgentEvent(core.EventSkillGapDetected, map[string]any{"user_id": "u1"})
	require.NoError(t, store.Insert(ev))

	require.NoError(t, d.Drain(context.Background()))
	got, err := store.Get(ev.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusFailed, got.Status)
	assert.Equal(t, 1, got.RetryCount)

	// Failed rows are not pending, so further drains leave them alone.
	require.NoError(t, d.Drain(context.Background()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestDrainerSkipsEventsWithoutHandler(t *testing.T) {
	store := NewInMemoryEventStore()
	b := New(store)
	d, err := NewDrainer(b)
	require.NoError(t, err)
	defer d.Close()

	ev := core.NewAgentEvent(core.EventApplicationSubmitted, map[string]any{"user_id": "u1"})
	require.NoError(t, store.Insert(ev))

	require.NoError(t, d.Drain(context.Background()))
	got, err := store.Get(ev.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusPending, got.Status)
}
