package sanitize

import (
	"testing"

	"github.com/MikeSquared-Agency/wayfinder/internal/signal"
)

func TestTurns(t *testing.T) {
	got := Turns([]signal.Turn{
		{Role: "user", Text: "  hello  "},
		{Role: "system", Text: "you are a bot"},
		{Role: "Assistant", Text: "Hi there"},
		{Role: "user", Text: "   "},
	})

	if len(got) != 2 {
		t.Fatalf("expected 2 turns, got %d: %+v", len(got), got)
	}
	if got[0].Text != "hello" {
		t.Errorf("expected trimmed text, got %q", got[0].Text)
	}
	if got[1].Role != signal.RoleAssistant {
		t.Errorf("expected role normalised to assistant, got %q", got[1].Role)
	}
}

func TestInsights(t *testing.T) {
	got := Insights([]signal.Insight{
		{Kind: "interest", Value: "Rock climbing"},
		{Kind: "interest", Value: "rock climbing "},
		{Kind: "strength", Value: "rock climbing"},
		{Kind: "mood", Value: "sleepy"},
		{Kind: "goal", Value: ""},
		{Kind: "HOPE", Value: "live by the sea"},
	})

	want := []signal.Insight{
		{Kind: signal.KindInterest, Value: "Rock climbing"},
		{Kind: signal.KindStrength, Value: "rock climbing"},
		{Kind: signal.KindHope, Value: "live by the sea"},
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

func TestVotes(t *testing.T) {
	got := Votes(map[string]int{"a": 5, "b": -3, "c": 0, " ": 1})

	if len(got) != 3 {
		t.Fatalf("expected 3 votes, got %v", got)
	}
	if got["a"] != 1 || got["b"] != -1 || got["c"] != 0 {
		t.Errorf("unexpected clamping: %v", got)
	}
	if VoteCount(got) != 2 {
		t.Errorf("expected 2 non-zero votes, got %d", VoteCount(got))
	}
}

func TestVotes_Nil(t *testing.T) {
	got := Votes(nil)
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil map, got %v", got)
	}
}
