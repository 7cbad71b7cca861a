// Package sanitize cleans caller-supplied transcripts, insights and votes
// before they reach the decision engine, which assumes well-formed input.
package sanitize

import (
	"strings"

	"github.com/MikeSquared-Agency/wayfinder/internal/signal"
)

// Turns drops turns with an unknown role or blank text and trims the rest.
func Turns(in []signal.Turn) []signal.Turn {
	out := make([]signal.Turn, 0, len(in))
	for _, t := range in {
		role := signal.Role(strings.ToLower(strings.TrimSpace(string(t.Role))))
		if role != signal.RoleUser && role != signal.RoleAssistant {
			continue
		}
		text := strings.TrimSpace(t.Text)
		if text == "" {
			continue
		}
		out = append(out, signal.Turn{Role: role, Text: text})
	}
	return out
}

// Insights drops unknown kinds and blank values, then dedups by kind and
// lowercased value. The first occurrence wins and order is preserved.
func Insights(in []signal.Insight) []signal.Insight {
	out := make([]signal.Insight, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, ins := range in {
		kind := signal.InsightKind(strings.ToLower(strings.TrimSpace(string(ins.Kind))))
		if !kind.Valid() {
			continue
		}
		value := strings.TrimSpace(ins.Value)
		if value == "" {
			continue
		}
		key := InsightKey(kind, value)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, signal.Insight{Kind: kind, Value: value})
	}
	return out
}

// InsightKey is the dedup key for an insight.
func InsightKey(kind signal.InsightKind, value string) string {
	return string(kind) + "\x00" + strings.ToLower(strings.TrimSpace(value))
}

// Votes clamps values to -1, 0 or 1 and drops blank suggestion ids.
func Votes(in map[string]int) signal.Votes {
	out := make(signal.Votes, len(in))
	for id, v := range in {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		out[id] = Vote(v)
	}
	return out
}

// Vote clamps a single vote value.
func Vote(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// VoteCount counts suggestions with a non-zero vote.
func VoteCount(votes signal.Votes) int {
	n := 0
	for _, v := range votes {
		if v != 0 {
			n++
		}
	}
	return n
}
