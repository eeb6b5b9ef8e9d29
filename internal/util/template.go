package util

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// RenderTemplate expands template markers in prompt text against the given
// state map. This lives in internal to avoid committing to public API
// stability prematurely.
func RenderTemplate(text string, state map[string]any) (string, error) {
	if !strings.Contains(text, "{{") { // fast path: no template markers
		return text, nil
	}

	tmpl, err := template.New("prompt").Funcs(template.FuncMap{
		"join": func(sep string, items []string) string {
			return strings.Join(items, sep)
		},
		"upper": strings.ToUpper,
		"lower": strings.ToLower,
	}).Parse(text)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, state); err != nil {
		return "", fmt.Errorf("failed to render template: %w", err)
	}
	return buf.String(), nil
}
