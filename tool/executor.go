package tool

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/careerpilot/agentcore/internal/util"
	"github.com/careerpilot/agentcore/logging"
)

// ExecutionResult is the structured outcome of one tool execution. At this
// boundary execution failures are data, not errors: callers inspect
// Success and Error instead of unwinding.
type ExecutionResult struct {
	ToolID   string        `json:"tool_id"`
	Success  bool          `json:"success"`
	Output   any           `json:"output,omitempty"`
	Error    *ToolError    `json:"error,omitempty"`
	Attempts int           `json:"attempts"`
	Duration time.Duration `json:"duration"`
}

// ExecutorOptions configure executor behavior.
type ExecutorOptions struct {
	// Timeout bounds each individual handler attempt.
	Timeout time.Duration
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// RetryBackoff is the pause between attempts.
	RetryBackoff time.Duration
	// Logger receives execution telemetry.
	Logger logging.Logger
}

// Executor runs tools under guarded execution: schema validation, per
// attempt timeout and bounded retry with no caller-visible partial state
// between retries.
type Executor struct {
	registry *Registry
	opts     ExecutorOptions
}

// NewExecutor constructs an executor with defaults of a 30s per-attempt
// timeout and two retries.
func NewExecutor(registry *Registry, optFns ...func(o *ExecutorOptions)) *Executor {
	opts := ExecutorOptions{
		Timeout:      30 * time.Second,
		MaxRetries:   2,
		RetryBackoff: 250 * time.Millisecond,
		Logger:       logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Executor{registry: registry, opts: opts}
}

// Execute validates input against the tool's schema, invokes the handler
// under a timeout and retries up to the configured bound on failure. It
// always returns a structured result; the only hard failures are an
// unknown or disabled tool and invalid input, which are not retryable.
func (e *Executor) Execute(ctx context.Context, toolID string, input map[string]any) ExecutionResult {
	start := time.Now()

	def, ok := e.registry.Get(toolID)
	if !ok {
		return ExecutionResult{
			ToolID:   toolID,
			Error:    NewToolError(toolID, "tool not registered", CodeNotFound),
			Duration: time.Since(start),
		}
	}
	if !def.Enabled {
		return ExecutionResult{
			ToolID:   toolID,
			Error:    NewToolError(toolID, "tool is disabled", CodeDisabled),
			Duration: time.Since(start),
		}
	}

	if err := util.ValidateParameters(input, def.InputSchema); err != nil {
		e.opts.Logger.Warn("tool.call.validation_failed", "tool", toolID, "error", err.Error())
		return ExecutionResult{
			ToolID: toolID,
			Error: &ToolError{
				Tool:    toolID,
				Message: fmt.Sprintf("input validation failed: %v", err),
				Code:    CodeValidation,
				Details: err,
			},
			Duration: time.Since(start),
		}
	}

	var lastErr *ToolError
	attempts := 0
	for attempts <= e.opts.MaxRetries {
		attempts++
		output, err := e.runAttempt(ctx, def, input)
		if err == nil {
			e.opts.Logger.Info("tool.call.success",
				"tool", toolID, "attempts", attempts, "duration_ms", time.Since(start).Milliseconds())
			return ExecutionResult{
				ToolID:   toolID,
				Success:  true,
				Output:   output,
				Attempts: attempts,
				Duration: time.Since(start),
			}
		}

		lastErr = asToolError(toolID, err)
		e.opts.Logger.Error("tool.call.error", "tool", toolID, "attempt", attempts, "error", lastErr.Message)

		// Caller cancellation ends the retry budget early.
		if ctx.Err() != nil {
			break
		}
		if attempts <= e.opts.MaxRetries && e.opts.RetryBackoff > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(e.opts.RetryBackoff):
			}
		}
	}

	return ExecutionResult{
		ToolID:   toolID,
		Error:    lastErr,
		Attempts: attempts,
		Duration: time.Since(start),
	}
}

// runAttempt invokes the handler with a per-attempt deadline. The handler
// result is discarded on error so retries never observe partial state.
func (e *Executor) runAttempt(ctx context.Context, def Definition, input map[string]any) (any, error) {
	attemptCtx := ctx
	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}

	type handlerResult struct {
		output any
		err    error
	}
	done := make(chan handlerResult, 1)
	go func() {
		output, err := def.Handler(attemptCtx, input)
		done <- handlerResult{output: output, err: err}
	}()

	select {
	case res := <-done:
		return res.output, res.err
	case <-attemptCtx.Done():
		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			return nil, NewToolError(def.ID, "handler exceeded its deadline", CodeTimeout)
		}
		return nil, attemptCtx.Err()
	}
}

// asToolError wraps arbitrary handler errors, passing ToolErrors through
// unchanged so custom codes survive.
func asToolError(toolID string, err error) *ToolError {
	var te *ToolError
	if errors.As(err, &te) {
		return te
	}
	return &ToolError{Tool: toolID, Message: err.Error(), Code: CodeExecution}
}
