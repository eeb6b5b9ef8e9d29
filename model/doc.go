// Package model defines the reasoning-capability boundary: a narrow
// completion interface taking a system prompt, a user prompt and a desired
// response format, returning a (possibly JSON-shaped) document. Provider
// adapters live in subpackages; a MockModel supports deterministic tests.
package model
