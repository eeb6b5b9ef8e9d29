package agents

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/careerpilot/agentcore/core"
	"github.com/careerpilot/agentcore/model"
	"github.com/careerpilot/agentcore/reasoning"
	"github.com/careerpilot/agentcore/tool"
)

// fillerWords are discounted when scoring communication quality.
var fillerWords = map[string]struct{}{
	"um": {}, "uh": {}, "like": {}, "basically": {}, "actually": {},
	"literally": {}, "kinda": {}, "sorta": {},
}

const analyzeSystemPrompt = `You analyze mock interview transcripts for a career preparation platform.
Given a transcript, identify the candidate's strengths and areas to improve.
Respond with a JSON object: {"strengths": [...], "improvements": [...]}.`

// interviewFindings is the structured shape expected from the model.
type interviewFindings struct {
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
}

// InterviewAnalyzerAgent turns a finished mock interview transcript into
// structured feedback and publishes an INTERVIEW_ANALYZED event. It is the
// registered consumer for INTERVIEW_COMPLETED events.
type InterviewAnalyzerAgent struct {
	*BaseAgent

	mu         sync.Mutex
	transcript string
}

// NewInterviewAnalyzer builds the agent and registers its tools.
func NewInterviewAnalyzer(mdl model.Model, optFns ...func(o *Options)) (*InterviewAnalyzerAgent, error) {
	a := &InterviewAnalyzerAgent{
		BaseAgent: NewBaseAgent("interview_analyzer", mdl, optFns...),
	}

	noInputSchema := map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}

	defs := []tool.Definition{
		{
			ID:          "extract_findings",
			Description: "Extract strengths and improvement areas from the interview transcript",
			InputSchema: noInputSchema,
			Handler:     a.extractFindings,
			Cost:        tool.Cost{LatencyMS: 1500, Compute: 0.6},
			BestFor:     []string{"analyze interview", "identify strengths", "feedback areas"},
			Enabled:     true,
		},
		{
			ID:          "score_communication",
			Description: "Score communication quality of the transcript deterministically",
			InputSchema: noInputSchema,
			Handler:     a.scoreCommunication,
			Cost:        tool.Cost{LatencyMS: 30, Compute: 0.1},
			BestFor:     []string{"score communication", "rate delivery", "interview analysis"},
			Enabled:     true,
		},
	}
	for _, def := range defs {
		if err := a.RegisterTool(def); err != nil {
			return nil, fmt.Errorf("register tool %s: %w", def.ID, err)
		}
	}
	return a, nil
}

// AnalyzeInterview analyzes one transcript and publishes the feedback.
func (a *InterviewAnalyzerAgent) AnalyzeInterview(ctx context.Context, userID, interviewID, transcript string) core.Result {
	a.mu.Lock()
	a.transcript = transcript
	a.mu.Unlock()

	taskID := core.NewID()
	result := a.RunTask(ctx, taskID,
		"analyze the interview transcript and score communication interview analysis",
		map[string]any{
			"user_id":      userID,
			"interview_id": interviewID,
		})

	if result.Success {
		a.publish(ctx, core.EventInterviewAnalyzed, map[string]any{
			"user_id":      userID,
			"interview_id": interviewID,
			"analysis":     result.Output,
			"confidence":   result.Confidence,
		})
	}
	return result
}

// HandleInterviewCompleted is the drainer handler for INTERVIEW_COMPLETED
// events. The payload must carry user_id, interview_id and transcript.
func (a *InterviewAnalyzerAgent) HandleInterviewCompleted(ctx context.Context, ev core.AgentEvent) error {
	userID, _ := ev.Payload["user_id"].(string)
	interviewID, _ := ev.Payload["interview_id"].(string)
	transcript, _ := ev.Payload["transcript"].(string)
	if transcript == "" {
		return fmt.Errorf("event %s carries no transcript", ev.ID)
	}

	result := a.AnalyzeInterview(ctx, userID, interviewID, transcript)
	if !result.Success {
		return fmt.Errorf("analysis of interview %s failed: %s", interviewID, result.Error)
	}
	return nil
}

func (a *InterviewAnalyzerAgent) currentTranscript() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.transcript
}

// extractFindings asks the model for structured findings, falling back to
// deterministic keyword extraction when the model is unavailable or
// returns malformed output.
func (a *InterviewAnalyzerAgent) extractFindings(ctx context.Context, _ map[string]any) (any, error) {
	transcript := a.currentTranscript()
	if transcript == "" {
		return nil, fmt.Errorf("no transcript loaded")
	}

	resp, err := a.mdl.Complete(ctx, model.Request{
		SystemPrompt:   analyzeSystemPrompt,
		UserPrompt:     transcript,
		ResponseFormat: model.FormatStructured,
	})
	if err == nil {
		var findings interviewFindings
		if perr := model.ParseStructured(resp.Content, &findings); perr == nil {
			return map[string]any{
				"strengths":    findings.Strengths,
				"improvements": findings.Improvements,
			}, nil
		}
	}

	// Keyword fallback keeps the pipeline alive without the model.
	keywords := reasoning.ExtractKeywords(transcript, 8)
	return map[string]any{
		"strengths":    keywords,
		"improvements": []string{},
		"degraded":     true,
	}, nil
}

// scoreCommunication produces a deterministic communication score from
// transcript statistics: answer length and filler word rate.
func (a *InterviewAnalyzerAgent) scoreCommunication(context.Context, map[string]any) (any, error) {
	transcript := a.currentTranscript()
	if transcript == "" {
		return nil, fmt.Errorf("no transcript loaded")
	}

	words := strings.Fields(strings.ToLower(transcript))
	if len(words) == 0 {
		return map[string]any{"communication_score": 0.0}, nil
	}

	fillers := 0
	for _, w := range words {
		if _, ok := fillerWords[strings.Trim(w, ".,!?")]; ok {
			fillers++
		}
	}
	fillerRate := float64(fillers) / float64(len(words))

	score := 1.0 - fillerRate*5
	if len(words) < 40 {
		score -= 0.2
	}
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}

	return map[string]any{
		"communication_score": score,
		"word_count":          len(words),
		"filler_rate":         fillerRate,
	}, nil
}
