package bus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestRoundTrip(t *testing.T) {
	b := NewBroker()
	b.RegisterHandler("job_matcher", "report_load", func(_ context.Context, payload map[string]any) (any, error) {
		return map[string]any{"load": 2, "asked": payload["question"]}, nil
	})

	res, err := b.Request(context.Background(), "market_scanner", "job_matcher", "report_load", map[string]any{"question": "load?"})
	require.NoError(t, err)
	m, ok := res.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 2, m["load"])
	assert.Equal(t, "load?", m["asked"])
}

func TestRequestUnknownAgent(t *testing.T) {
	b := NewBroker()
	_, err := b.Request(context.Background(), "market_scanner", "ghost", "report_load", nil)
	require.Error(t, err)
}

func TestRequestUnknownAction(t *testing.T) {
	b := NewBroker()
	b.RegisterHandler("job_matcher", "report_load", func(context.Context, map[string]any) (any, error) {
		return "ok", nil
	})

	_, err := b.Request(context.Background(), "market_scanner", "job_matcher", "rebuild_index", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rebuild_index")
}

func TestRequestTimesOut(t *testing.T) {
	b := NewBroker(func(o *BrokerOptions) { o.RequestTimeout = 30 * time.Millisecond })
	b.RegisterHandler("slow", "report_load", func(ctx context.Context, _ map[string]any) (any, error) {
		select {
		case <-time.After(time.Second):
			return "late", nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})

	_, err := b.Request(context.Background(), "market_scanner", "slow", "report_load", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRequestRecoversHandlerPanic(t *testing.T) {
	b := NewBroker()
	b.RegisterHandler("flaky", "report_load", func(context.Context, map[string]any) (any, error) {
		panic("unexpected state")
	})

	_, err := b.Request(context.Background(), "market_scanner", "flaky", "report_load", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
}

func TestBroadcastCollectsPartialFailures(t *testing.T) {
	b := NewBroker()
	b.RegisterHandler("market_scanner", "report_status", func(context.Context, map[string]any) (any, error) {
		return "scanning", nil
	})
	b.RegisterHandler("interview_analyzer", "report_status", func(context.Context, map[string]any) (any, error) {
		return "idle", nil
	})
	b.RegisterHandler("job_matcher", "report_status", func(context.Context, map[string]any) (any, error) {
		return nil, errors.New("index rebuilding")
	})

	targets := []string{"market_scanner", "interview_analyzer", "job_matcher"}
	results := b.Broadcast(context.Background(), "coach", targets, "report_status", nil)
	require.Len(t, results, 3)
	assert.NoError(t, results["market_scanner"].Err)
	assert.Equal(t, "scanning", results["market_scanner"].Result)
	assert.NoError(t, results["interview_analyzer"].Err)
	require.Error(t, results["job_matcher"].Err)
	assert.Contains(t, results["job_matcher"].Err.Error(), "index rebuilding")
}

func TestBroadcastReportsUnhandledTargets(t *testing.T) {
	b := NewBroker()
	b.RegisterHandler("market_scanner", "report_status", func(context.Context, map[string]any) (any, error) {
		return "scanning", nil
	})
	b.RegisterHandler("interview_analyzer", "report_status", func(context.Context, map[string]any) (any, error) {
		return "idle", nil
	})

	// job_matcher is addressed but never registered a handler.
	targets := []string{"market_scanner", "interview_analyzer", "job_matcher"}
	results := b.Broadcast(context.Background(), "coach", targets, "report_status", nil)
	require.Len(t, results, 3, "every named target gets an entry")
	assert.NoError(t, results["market_scanner"].Err)
	assert.NoError(t, results["interview_analyzer"].Err)
	require.Error(t, results["job_matcher"].Err)
	assert.Contains(t, results["job_matcher"].Err.Error(), "no handler registered")
}

func TestUnregisterRemovesHandler(t *testing.T) {
	b := NewBroker()
	b.RegisterHandler("market_scanner", "report_status", func(context.Context, map[string]any) (any, error) {
		return "ok", nil
	})
	require.Len(t, b.Registered(), 1)

	b.Unregister("market_scanner", "report_status")
	assert.Empty(t, b.Registered())
}
