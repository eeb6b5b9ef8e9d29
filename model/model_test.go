package model

import (
	"context"
	"errors"
	"testing"
)

func TestStripFences(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"{\"a\":1}", "{\"a\":1}"},
		{"```json\n{\"a\":1}\n```", "{\"a\":1}"},
		{"```\n{\"a\":1}\n```", "{\"a\":1}"},
		{"  {\"a\":1}  ", "{\"a\":1}"},
	}
	for _, c := range cases {
		if got := StripFences(c.in); got != c.want {
			t.Errorf("StripFences(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestParseStructured(t *testing.T) {
	var out struct {
		Skills []string `json:"skills"`
	}
	err := ParseStructured("```json\n{\"skills\":[\"go\",\"sql\"]}\n```", &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Skills) != 2 {
		t.Errorf("expected 2 skills, got %d", len(out.Skills))
	}

	if err := ParseStructured("not json at all", &out); err == nil {
		t.Error("expected error for malformed output")
	}
	if err := ParseStructured("```\n```", &out); err == nil {
		t.Error("expected error for empty output")
	}
}

func TestMockModelMatching(t *testing.T) {
	m := NewMockModel("test")
	m.AddResponse("decompose", `{"criteria":["a"]}`)
	m.SetFallback("fallback")

	resp, err := m.Complete(context.Background(), Request{UserPrompt: "please decompose this goal"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != `{"criteria":["a"]}` {
		t.Errorf("unexpected response %q", resp.Content)
	}

	resp, _ = m.Complete(context.Background(), Request{UserPrompt: "something else"})
	if resp.Content != "fallback" {
		t.Errorf("expected fallback, got %q", resp.Content)
	}

	m.FailWith(errors.New("capability down"))
	if _, err := m.Complete(context.Background(), Request{UserPrompt: "decompose"}); err == nil {
		t.Error("expected forced failure")
	}
}
