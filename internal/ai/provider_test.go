package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/v0xg/macroweb/internal/crawler"
	"github.com/v0xg/macroweb/internal/macro"
)

type fakeProvider struct {
	response string
	err      error
	system   string
	user     string
}

func (f *fakeProvider) Complete(ctx context.Context, system, user string) (string, error) {
	f.system, f.user = system, user
	return f.response, f.err
}

var testPageMap = &crawler.PageMap{
	URL:   "https://example.com",
	Title: "Example",
	Elements: []crawler.Target{
		{Selector: "#accept", Type: "button", Text: "Accept"},
	},
}

func TestParseMacroJSON(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     macro.Macro
		wantErr  bool
	}{
		{
			name:     "bare array",
			response: `[{"action":"click","selector":"#accept","delay":0}]`,
			want:     macro.Macro{{Action: macro.ActionClick, Selector: "#accept", Delay: 0}},
		},
		{
			name: "wrapped in prose and fences",
			response: "Here you go:\n```json\n" +
				`[{"action":"scroll","selector":"a[href='/x']","delay":250}]` +
				"\n```\nEnjoy!",
			want: macro.Macro{{Action: macro.ActionScroll, Selector: "a[href='/x']", Delay: 250}},
		},
		{
			name:     "bracket inside a selector string",
			response: `Sure. [{"action":"print","selector":"div[data-x=\"]\"]","delay":0}] done`,
			want:     macro.Macro{{Action: macro.ActionPrint, Selector: `div[data-x="]"]`, Delay: 0}},
		},
		{name: "no array", response: "I cannot help with that", wantErr: true},
		{name: "unclosed array", response: `[{"action":"click"`, wantErr: true},
		{name: "unsupported action", response: `[{"action":"type","selector":"#q","delay":0}]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseMacroJSON(tt.response)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGenerateMacro(t *testing.T) {
	p := &fakeProvider{response: `[{"action":"click","selector":"#accept","delay":300}]`}

	m, err := GenerateMacro(context.Background(), p, testPageMap, "accept cookies")
	require.NoError(t, err)
	assert.Equal(t, macro.Macro{{Action: macro.ActionClick, Selector: "#accept", Delay: 300}}, m)

	assert.Equal(t, systemPrompt, p.system)
	assert.Contains(t, p.user, `"selector": "#accept"`)
	assert.True(t, strings.HasSuffix(p.user, "User request: accept cookies"))
}

func TestGenerateMacro_Errors(t *testing.T) {
	_, err := GenerateMacro(context.Background(), &fakeProvider{err: errors.New("rate limited")}, testPageMap, "x")
	assert.ErrorContains(t, err, "rate limited")

	_, err = GenerateMacro(context.Background(), &fakeProvider{response: "  "}, testPageMap, "x")
	assert.ErrorContains(t, err, "empty response")

	_, err = GenerateMacro(context.Background(), &fakeProvider{response: "nope"}, testPageMap, "x")
	assert.ErrorIs(t, err, macro.ErrInvalidMacro)
}

func TestNewProvider(t *testing.T) {
	t.Setenv("MACROWEB_ANTHROPIC_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("MACROWEB_OPENAI_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	_, err := NewProvider("claude", "")
	assert.Error(t, err, "missing key")
	_, err = NewProvider("openai", "")
	assert.Error(t, err, "missing key")
	_, err = NewProvider("eliza", "")
	assert.ErrorContains(t, err, "unknown provider")

	t.Setenv("ANTHROPIC_API_KEY", "k")
	p, err := NewProvider("anthropic", "")
	require.NoError(t, err)
	assert.IsType(t, &ClaudeProvider{}, p)
}

func TestOpenAIProvider_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o", req.Model)
		if assert.Len(t, req.Messages, 2) {
			assert.Equal(t, "system", req.Messages[0].Role)
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"[]"},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	t.Setenv("MACROWEB_OPENAI_KEY", "test-key")
	t.Setenv("MACROWEB_OPENAI_BASE_URL", srv.URL)

	p, err := NewOpenAIProvider("")
	require.NoError(t, err)

	out, err := p.Complete(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, "[]", out)
}
