package extractor

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MikeSquared-Agency/wayfinder/internal/anthropic"
	"github.com/MikeSquared-Agency/wayfinder/internal/signal"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func llmServer(t *testing.T, text string, check func(system, prompt string)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			System   string              `json:"system"`
			Messages []anthropic.Message `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if check != nil && len(req.Messages) > 0 {
			check(req.System, req.Messages[0].Content)
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]any{
				{"type": "text", "text": text},
			},
			"stop_reason": "end_turn",
		})
	}))
}

func newExtractor(url string) *Extractor {
	llm := anthropic.NewClient("test-key", "test-model")
	llm.SetTestTransport(url)
	return New(llm, discardLogger())
}

var exchange = []signal.Turn{
	{Role: signal.RoleAssistant, Text: "What did you enjoy about last summer?"},
	{Role: signal.RoleUser, Text: "Rebuilding bikes with my neighbour. I can only do it on weekends though."},
}

func TestExtract_Success(t *testing.T) {
	server := llmServer(t, `{"insights":[
		{"kind":"interest","value":"rebuilding bikes"},
		{"kind":"constraint","value":"weekends only"},
		{"kind":"mood","value":"cheerful"},
		{"kind":"interest","value":"Rebuilding bikes"}
	]}`, func(system, prompt string) {
		if !strings.Contains(system, "Respond with JSON only") {
			t.Errorf("expected extraction system prompt, got %q", system)
		}
		if !strings.Contains(prompt, "User: Rebuilding bikes") {
			t.Errorf("expected user turn in prompt, got %q", prompt)
		}
		if !strings.Contains(prompt, "Interviewer: What did you enjoy") {
			t.Errorf("expected interviewer turn in prompt, got %q", prompt)
		}
		if !strings.Contains(prompt, "(nothing yet)") {
			t.Errorf("expected empty known list, got %q", prompt)
		}
	})
	defer server.Close()

	got, err := newExtractor(server.URL).Extract(context.Background(), exchange, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []signal.Insight{
		{Kind: signal.KindInterest, Value: "rebuilding bikes"},
		{Kind: signal.KindConstraint, Value: "weekends only"},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d insights, got %d: %+v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("insight %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestExtract_SkipsKnown(t *testing.T) {
	server := llmServer(t, `{"insights":[{"kind":"interest","value":"Rebuilding Bikes"},{"kind":"goal","value":"open a repair shop"}]}`,
		func(_, prompt string) {
			if !strings.Contains(prompt, "- interest: rebuilding bikes") {
				t.Errorf("expected known insight in prompt, got %q", prompt)
			}
		})
	defer server.Close()

	known := []signal.Insight{{Kind: signal.KindInterest, Value: "rebuilding bikes"}}
	got, err := newExtractor(server.URL).Extract(context.Background(), exchange, known)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Kind != signal.KindGoal {
		t.Errorf("expected only the new goal, got %+v", got)
	}
}

func TestExtract_FencedJSON(t *testing.T) {
	server := llmServer(t, "```json\n{\"insights\":[{\"kind\":\"strength\",\"value\":\"patient mentor\"}]}\n```", nil)
	defer server.Close()

	got, err := newExtractor(server.URL).Extract(context.Background(), exchange, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Value != "patient mentor" {
		t.Errorf("expected fenced insight, got %+v", got)
	}
}

func TestExtract_InvalidJSON(t *testing.T) {
	server := llmServer(t, "not valid json at all", nil)
	defer server.Close()

	_, err := newExtractor(server.URL).Extract(context.Background(), exchange, nil)
	if err == nil {
		t.Fatal("expected error for invalid JSON response")
	}
}

func TestExtract_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("internal error"))
	}))
	defer server.Close()

	_, err := newExtractor(server.URL).Extract(context.Background(), exchange, nil)
	if err == nil {
		t.Fatal("expected error for API failure")
	}
}

func TestExtract_NoUserTurnSkipsLLM(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	got, err := newExtractor(server.URL).Extract(context.Background(), []signal.Turn{
		{Role: signal.RoleAssistant, Text: "Hello!"},
	}, nil)
	if err != nil || got != nil {
		t.Errorf("expected nil, nil; got %+v, %v", got, err)
	}
	if called {
		t.Error("expected no LLM call without a user turn")
	}
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}```", `{"a":1}`},
		{"  \n{\"a\":1}\n ", `{"a":1}`},
	}
	for _, tt := range tests {
		if got := stripFences(tt.in); got != tt.want {
			t.Errorf("stripFences(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
