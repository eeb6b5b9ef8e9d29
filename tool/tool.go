// Package tool implements the typed capability subsystem that lets agents
// invoke structured external operations (job-market fetchers, skill
// extractors, persistence writers) with schema validated input, consistent
// error handling and declarative cost/fit metadata used for selection.
package tool

import (
	"context"
	"fmt"

	"github.com/careerpilot/agentcore/internal/util"
)

// ValidationError represents input validation errors with detailed
// information.
type ValidationError = util.ValidationError

// Handler is the capability wrapped by a tool. It receives pre-validated
// input and must return typed output or a structured error.
type Handler func(ctx context.Context, input map[string]any) (any, error)

// Cost is declarative execution-cost metadata used by the selector. It is
// guidance for ranking, not enforced at runtime.
type Cost struct {
	LatencyMS int     `json:"latency_ms"`
	Compute   float64 `json:"compute"` // normalized 0..1
}

// Definition is a pure tool contract: typed input to typed output plus
// selection metadata. Definitions are registered once at startup and
// treated as immutable configuration, not task-scoped state.
type Definition struct {
	ID             string         `json:"id"`
	Description    string         `json:"description"`
	InputSchema    map[string]any `json:"input_schema"`
	OutputSchema   map[string]any `json:"output_schema"`
	Handler        Handler        `json:"-"`
	Cost           Cost           `json:"cost"`
	BestFor        []string       `json:"best_for"`
	NotSuitableFor []string       `json:"not_suitable_for"`
	Enabled        bool           `json:"enabled"`
}

// NewDefinitionFromStructs derives input/output schemas from Go struct
// types via reflection, a convenience over hand-written schema maps.
func NewDefinitionFromStructs(id, description string, inputType, outputType any, handler Handler) Definition {
	return Definition{
		ID:           id,
		Description:  description,
		InputSchema:  util.CreateSchema(inputType),
		OutputSchema: util.CreateSchema(outputType),
		Handler:      handler,
		Enabled:      true,
	}
}

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// Error codes attached to ToolError by the executor.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeExecution  = "EXECUTION_ERROR"
	CodeTimeout    = "TIMEOUT_ERROR"
	CodeNotFound   = "NOT_FOUND"
	CodeDisabled   = "DISABLED"
)

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{Tool: tool, Message: message, Code: code}
}
