package reasoning

import (
	"context"
	"fmt"
	"strings"

	"github.com/careerpilot/agentcore/core"
	"github.com/careerpilot/agentcore/internal/util"
	"github.com/careerpilot/agentcore/logging"
	"github.com/careerpilot/agentcore/model"
)

const decomposeSystemPrompt = "You are a planning assistant for a career preparation platform. " +
	"Given a task description you produce concrete, independently checkable success criteria. " +
	"Return ONLY valid JSON."

const decomposeUserTemplate = `Task: {{.description}}

Context:
{{.context}}

Return JSON with these exact keys:
{
  "success_criteria": ["criterion 1", "criterion 2"],
  "priority": "low" | "medium" | "high"
}`

// decomposition mirrors the JSON document the model returns.
type decomposition struct {
	SuccessCriteria []string `json:"success_criteria"`
	Priority        string   `json:"priority"`
}

// DecomposerOptions configure goal decomposition.
type DecomposerOptions struct {
	// MaxCriteria caps the number of success criteria kept from the model.
	MaxCriteria int
	Logger      logging.Logger
}

// Decomposer turns a task description into a Goal with concrete success
// criteria by delegating to the reasoning capability. When the capability
// is unavailable or returns malformed output it substitutes deterministic
// keyword-derived criteria instead of aborting the run.
type Decomposer struct {
	model model.Model
	opts  DecomposerOptions
}

// NewDecomposer constructs a Decomposer over a reasoning model.
func NewDecomposer(m model.Model, optFns ...func(o *DecomposerOptions)) *Decomposer {
	opts := DecomposerOptions{MaxCriteria: 5, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Decomposer{model: m, opts: opts}
}

// Decompose produces an immutable Goal for the task description. The
// returned Goal always has at least one success criterion.
func (d *Decomposer) Decompose(ctx context.Context, description string, taskContext map[string]any) (core.Goal, error) {
	prompt, err := util.RenderTemplate(decomposeUserTemplate, map[string]any{
		"description": description,
		"context":     formatContext(taskContext),
	})
	if err != nil {
		return core.Goal{}, fmt.Errorf("failed to build decomposition prompt: %w", err)
	}

	resp, err := d.model.Complete(ctx, model.Request{
		SystemPrompt:   decomposeSystemPrompt,
		UserPrompt:     prompt,
		ResponseFormat: model.FormatStructured,
	})
	if err != nil {
		d.opts.Logger.Warn("decompose.model_unavailable", "error", err.Error())
		return d.fallbackGoal(description), nil
	}

	var doc decomposition
	if err := model.ParseStructured(resp.Content, &doc); err != nil {
		d.opts.Logger.Warn("decompose.malformed_output", "error", err.Error())
		return d.fallbackGoal(description), nil
	}

	criteria := sanitizeCriteria(doc.SuccessCriteria, d.opts.MaxCriteria)
	if len(criteria) == 0 {
		return d.fallbackGoal(description), nil
	}
	return core.NewGoal(description, criteria, core.Priority(doc.Priority)), nil
}

// fallbackGoal derives deterministic success criteria from description
// keywords, so a task invoked while the model is down still has a
// checkable goal.
func (d *Decomposer) fallbackGoal(description string) core.Goal {
	keywords := ExtractKeywords(description, d.opts.MaxCriteria-1)
	criteria := make([]string, 0, len(keywords)+1)
	for _, kw := range keywords {
		criteria = append(criteria, fmt.Sprintf("output covers %q", kw))
	}
	criteria = append(criteria, "task completes without step errors")
	return core.NewGoal(description, criteria, core.PriorityMedium)
}

func sanitizeCriteria(criteria []string, limit int) []string {
	var out []string
	for _, c := range criteria {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		out = append(out, c)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

func formatContext(taskContext map[string]any) string {
	if len(taskContext) == 0 {
		return "(none)"
	}
	var sb strings.Builder
	for k, v := range taskContext {
		fmt.Fprintf(&sb, "- %s: %v\n", k, v)
	}
	return sb.String()
}
