package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/MikeSquared-Agency/wayfinder/internal/anthropic"
	"github.com/MikeSquared-Agency/wayfinder/internal/sanitize"
	"github.com/MikeSquared-Agency/wayfinder/internal/signal"
)

// Completer is the slice of the LLM client the extractor needs.
type Completer interface {
	Complete(ctx context.Context, system string, messages []anthropic.Message, maxTokens int) (string, error)
}

type Extractor struct {
	llm    Completer
	logger *slog.Logger
	window int
}

// New returns an extractor that reads the last few turns of the transcript.
func New(llm Completer, logger *slog.Logger) *Extractor {
	return &Extractor{llm: llm, logger: logger, window: 4}
}

type llmResponse struct {
	Insights []signal.Insight `json:"insights"`
}

// Extract asks the LLM which new insights the latest exchange revealed.
// Insights already in known are passed along so the model can skip them;
// the result is sanitized and excludes anything in known.
func (e *Extractor) Extract(ctx context.Context, turns []signal.Turn, known []signal.Insight) ([]signal.Insight, error) {
	turns = sanitize.Turns(turns)
	if !hasUserTurn(turns) {
		return nil, nil
	}
	if len(turns) > e.window {
		turns = turns[len(turns)-e.window:]
	}

	prompt := fmt.Sprintf(extractionUserPrompt, formatKnown(known), formatTurns(turns))
	messages := []anthropic.Message{
		{Role: "user", Content: prompt},
	}

	raw, err := e.llm.Complete(ctx, systemPrompt, messages, 1024)
	if err != nil {
		return nil, fmt.Errorf("llm extraction: %w", err)
	}

	var resp llmResponse
	if err := json.Unmarshal([]byte(stripFences(raw)), &resp); err != nil {
		e.logger.Error("failed to parse extraction response",
			"error", err,
			"raw", raw,
		)
		return nil, fmt.Errorf("parse extraction: %w", err)
	}

	seen := make(map[string]bool, len(known))
	for _, in := range sanitize.Insights(known) {
		seen[sanitize.InsightKey(in.Kind, in.Value)] = true
	}
	var fresh []signal.Insight
	for _, in := range sanitize.Insights(resp.Insights) {
		if !seen[sanitize.InsightKey(in.Kind, in.Value)] {
			fresh = append(fresh, in)
		}
	}

	e.logger.Debug("extraction complete",
		"returned", len(resp.Insights),
		"fresh", len(fresh),
	)
	return fresh, nil
}

func hasUserTurn(turns []signal.Turn) bool {
	for _, t := range turns {
		if t.Role == signal.RoleUser {
			return true
		}
	}
	return false
}

func formatKnown(known []signal.Insight) string {
	if len(known) == 0 {
		return "(nothing yet)"
	}
	var sb strings.Builder
	for _, in := range known {
		fmt.Fprintf(&sb, "- %s: %s\n", in.Kind, in.Value)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatTurns(turns []signal.Turn) string {
	var sb strings.Builder
	for _, t := range turns {
		speaker := "User"
		if t.Role == signal.RoleAssistant {
			speaker = "Interviewer"
		}
		fmt.Fprintf(&sb, "%s: %s\n", speaker, t.Text)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// stripFences removes a surrounding markdown code fence, which models add
// despite being asked for bare JSON.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
