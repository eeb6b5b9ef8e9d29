package model

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// ResponseFormat selects how the model should shape its output.
type ResponseFormat string

const (
	// FormatText requests free-form prose.
	FormatText ResponseFormat = "text"
	// FormatStructured requests a JSON-shaped document. Providers sometimes
	// wrap JSON in markdown fences or emit malformed output, which is a
	// recoverable, not fatal, condition.
	FormatStructured ResponseFormat = "structured"
)

// Request captures the normalized reasoning-capability input produced by
// the decomposer, planner and scorer.
type Request struct {
	SystemPrompt   string         `json:"system_prompt"`
	UserPrompt     string         `json:"user_prompt"`
	ResponseFormat ResponseFormat `json:"response_format"`
}

// TokenUsage captures token usage statistics for a completion.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the completion returned by a reasoning model.
type Response struct {
	Content string      `json:"content"`
	Usage   *TokenUsage `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "mock", etc.
}

// Model is the minimal interface the reasoning layer requires from an
// external completion service.
type Model interface {
	Complete(ctx context.Context, req Request) (Response, error)

	// Info returns information about the model implementation.
	Info() Info
}

// StripFences removes a leading/trailing markdown code fence from model
// output. Providers habitually wrap structured responses in ```json blocks
// even when asked not to.
func StripFences(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```json") {
		content = content[len("```json"):]
	} else if strings.HasPrefix(content, "```") {
		content = content[len("```"):]
	}
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	return strings.TrimSpace(content)
}

// ParseStructured decodes a structured completion into target. It strips
// markdown fences first and reports a descriptive error on malformed
// output so callers can substitute a deterministic fallback.
func ParseStructured(content string, target any) error {
	cleaned := StripFences(content)
	if cleaned == "" {
		return fmt.Errorf("structured response is empty")
	}
	if err := json.Unmarshal([]byte(cleaned), target); err != nil {
		return fmt.Errorf("failed to parse structured response: %w", err)
	}
	return nil
}

// MockModel is a lightweight in-memory Model useful for tests & examples.
// Responses are matched by substring against the user prompt, first match
// wins in registration order.
type MockModel struct {
	info      Info
	matchers  []string
	responses map[string]string
	fallback  string
	err       error
}

// NewMockModel constructs a MockModel.
func NewMockModel(name string) *MockModel {
	return &MockModel{
		info:      Info{Name: name, Provider: "mock"},
		responses: make(map[string]string),
	}
}

// AddResponse registers a canned completion returned when the user prompt
// contains match.
func (m *MockModel) AddResponse(match, response string) {
	if _, exists := m.responses[match]; !exists {
		m.matchers = append(m.matchers, match)
	}
	m.responses[match] = response
}

// SetFallback sets the completion returned when no matcher hits.
func (m *MockModel) SetFallback(response string) { m.fallback = response }

// FailWith makes every completion return err, simulating an unavailable
// capability.
func (m *MockModel) FailWith(err error) { m.err = err }

// Complete implements Model.
func (m *MockModel) Complete(_ context.Context, req Request) (Response, error) {
	if m.err != nil {
		return Response{}, m.err
	}
	for _, match := range m.matchers {
		if strings.Contains(req.UserPrompt, match) {
			return Response{Content: m.responses[match]}, nil
		}
	}
	return Response{Content: m.fallback}, nil
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }
