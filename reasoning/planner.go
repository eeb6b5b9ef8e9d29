package reasoning

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/careerpilot/agentcore/core"
	"github.com/careerpilot/agentcore/internal/util"
	"github.com/careerpilot/agentcore/logging"
	"github.com/careerpilot/agentcore/model"
	"github.com/careerpilot/agentcore/tool"
)

const planSystemPrompt = "You are a planning assistant. You translate a goal into an ordered " +
	"sequence of tool invocations drawn strictly from the provided tool catalog. Return ONLY valid JSON."

const planUserTemplate = `Goal: {{.description}}

Success criteria:
{{.criteria}}

Available tools:
{{.tools}}
{{.feedback}}
Return JSON with these exact keys:
{
  "steps": [
    {"tool": "tool_id", "input": {"key": "value"}, "expected_output": "what this step should produce"}
  ]
}
Use at most {{.max_steps}} steps.`

// plannedSteps mirrors the JSON document the model returns.
type plannedSteps struct {
	Steps []struct {
		Tool           string         `json:"tool"`
		Input          map[string]any `json:"input"`
		ExpectedOutput string         `json:"expected_output"`
	} `json:"steps"`
}

// PlannerOptions configure plan generation.
type PlannerOptions struct {
	// MaxSteps caps every generated plan.
	MaxSteps int
	Logger   logging.Logger
}

// Planner generates Plans for a Goal. On re-planning it receives the prior
// iteration's ExecutionFeedback and will not emit a step that failed
// identically (same tool, same input) in that feedback.
type Planner struct {
	model    model.Model
	selector *tool.Selector
	opts     PlannerOptions
}

// NewPlanner constructs a Planner over a reasoning model and a tool
// selector (used both to describe the catalog to the model and to build
// the deterministic fallback plan).
func NewPlanner(m model.Model, selector *tool.Selector, optFns ...func(o *PlannerOptions)) *Planner {
	opts := PlannerOptions{MaxSteps: 5, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Planner{model: m, selector: selector, opts: opts}
}

// Generate produces a fresh Plan (new id) for the goal. priorFeedback may
// be nil on the first iteration; when present it is an input to
// regeneration, not discarded: steps that failed identically are excluded
// from the new plan.
func (p *Planner) Generate(ctx context.Context, goal core.Goal, priorFeedback *core.ExecutionFeedback) (core.Plan, error) {
	excluded := failedStepKeys(priorFeedback)

	prompt, err := util.RenderTemplate(planUserTemplate, map[string]any{
		"description": goal.Description,
		"criteria":    bulletList(goal.SuccessCriteria),
		"tools":       p.catalog(goal.Description),
		"feedback":    feedbackSection(priorFeedback),
		"max_steps":   p.opts.MaxSteps,
	})
	if err != nil {
		return core.Plan{}, fmt.Errorf("failed to build planning prompt: %w", err)
	}

	resp, err := p.model.Complete(ctx, model.Request{
		SystemPrompt:   planSystemPrompt,
		UserPrompt:     prompt,
		ResponseFormat: model.FormatStructured,
	})
	if err != nil {
		p.opts.Logger.Warn("plan.model_unavailable", "error", err.Error())
		return p.fallbackPlan(goal, excluded), nil
	}

	var doc plannedSteps
	if err := model.ParseStructured(resp.Content, &doc); err != nil {
		p.opts.Logger.Warn("plan.malformed_output", "error", err.Error())
		return p.fallbackPlan(goal, excluded), nil
	}

	plan := core.NewPlan(goal.ID)
	for _, s := range doc.Steps {
		if len(plan.Steps) >= p.opts.MaxSteps {
			break
		}
		if s.Tool == "" {
			continue
		}
		if excluded[stepKey(s.Tool, s.Input)] {
			p.opts.Logger.Debug("plan.step_excluded", "tool", s.Tool)
			continue
		}
		plan.AddStep(core.PlanStep{Tool: s.Tool, Input: s.Input, ExpectedOutput: s.ExpectedOutput})
	}

	if len(plan.Steps) == 0 {
		return p.fallbackPlan(goal, excluded), nil
	}
	return plan, nil
}

// fallbackPlan builds a deterministic plan from the selector ranking: one
// step per top-ranked tool for the goal description.
func (p *Planner) fallbackPlan(goal core.Goal, excluded map[string]bool) core.Plan {
	plan := core.NewPlan(goal.ID)
	for _, def := range p.selector.Rank(goal.Description) {
		if len(plan.Steps) >= p.opts.MaxSteps {
			break
		}
		input := map[string]any{"query": goal.Description}
		if excluded[stepKey(def.ID, input)] {
			continue
		}
		plan.AddStep(core.PlanStep{
			Tool:           def.ID,
			Input:          input,
			ExpectedOutput: def.Description,
		})
	}
	return plan
}

func (p *Planner) catalog(subGoal string) string {
	defs := p.selector.Rank(subGoal)
	if len(defs) == 0 {
		return "(no matching tools; describe steps anyway)"
	}
	var sb strings.Builder
	for _, d := range defs {
		fmt.Fprintf(&sb, "- %s: %s (best for: %s)\n", d.ID, d.Description, strings.Join(d.BestFor, "; "))
	}
	return sb.String()
}

// failedStepKeys indexes the prior feedback's failed steps by
// (tool, input) identity.
func failedStepKeys(feedback *core.ExecutionFeedback) map[string]bool {
	keys := map[string]bool{}
	if feedback == nil {
		return keys
	}
	for _, s := range feedback.FailedSteps() {
		keys[stepKey(s.Tool, s.Input)] = true
	}
	return keys
}

// stepKey produces a stable identity for a (tool, input) pair.
func stepKey(toolID string, input map[string]any) string {
	raw, err := json.Marshal(input)
	if err != nil {
		raw = []byte(fmt.Sprintf("%v", input))
	}
	sum := sha256.Sum256(raw)
	return toolID + "#" + hex.EncodeToString(sum[:8])
}

func feedbackSection(feedback *core.ExecutionFeedback) string {
	if feedback == nil || len(feedback.Steps) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("\nPrevious execution feedback (do not repeat failed steps unchanged):\n")
	for _, s := range feedback.Steps {
		status := "ok"
		if !s.Success {
			status = "FAILED: " + s.Error
		}
		fmt.Fprintf(&sb, "- %s -> %s\n", s.Tool, status)
	}
	return sb.String()
}

func bulletList(items []string) string {
	var sb strings.Builder
	for _, it := range items {
		fmt.Fprintf(&sb, "- %s\n", it)
	}
	return sb.String()
}
