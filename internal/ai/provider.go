package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/v0xg/macroweb/internal/crawler"
	"github.com/v0xg/macroweb/internal/macro"
)

// Provider sends one system+user exchange to a model and returns its text
type Provider interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// NewProvider creates a new AI provider based on the provider name
func NewProvider(name, model string) (Provider, error) {
	switch name {
	case "claude", "anthropic":
		return NewClaudeProvider(model)
	case "openai", "gpt":
		return NewOpenAIProvider(model)
	default:
		return nil, fmt.Errorf("unknown provider: %s (supported: claude, openai)", name)
	}
}

// GenerateMacro asks p for a macro that carries out prompt on the mapped page
func GenerateMacro(ctx context.Context, p Provider, pageMap *crawler.PageMap, prompt string) (macro.Macro, error) {
	pageMapJSON, err := json.MarshalIndent(pageMap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal page map: %w", err)
	}

	response, err := p.Complete(ctx, systemPrompt, buildUserPrompt(string(pageMapJSON), prompt))
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(response) == "" {
		return nil, fmt.Errorf("empty response from provider")
	}

	m, err := parseMacroJSON(response)
	if err != nil {
		return nil, fmt.Errorf("failed to parse response as a macro: %w\nResponse: %s", err, response)
	}
	return m, nil
}

// parseMacroJSON extracts and parses a JSON array from a response that may
// contain surrounding text
func parseMacroJSON(response string) (macro.Macro, error) {
	if m, err := macro.Parse([]byte(response)); err == nil {
		return m, nil
	}

	start := strings.Index(response, "[")
	if start == -1 {
		return nil, fmt.Errorf("%w: no JSON array found in response", macro.ErrInvalidMacro)
	}

	// Find the matching closing bracket, ignoring brackets inside strings
	depth := 0
	end := -1
	inString, escaped := false, false
	for i := start; i < len(response) && end == -1; i++ {
		c := response[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '[':
			depth++
		case c == ']':
			depth--
			if depth == 0 {
				end = i + 1
			}
		}
	}
	if end == -1 {
		return nil, fmt.Errorf("%w: no matching closing bracket found", macro.ErrInvalidMacro)
	}

	return macro.Parse([]byte(response[start:end]))
}
