package bus

import "context"

// JobDispatcher hands persisted events to an external job runner. A handle
// identifying the enqueued job is returned on success.
type JobDispatcher interface {
	Trigger(ctx context.Context, jobID string, payload map[string]any) (string, error)
}

// DispatcherFunc adapts a function to the JobDispatcher interface.
type DispatcherFunc func(ctx context.Context, jobID string, payload map[string]any) (string, error)

// Trigger implements JobDispatcher.
func (f DispatcherFunc) Trigger(ctx context.Context, jobID string, payload map[string]any) (string, error) {
	return f(ctx, jobID, payload)
}
