package interview

import (
	"fmt"
	"strings"

	"github.com/MikeSquared-Agency/wayfinder/internal/engine"
)

const interviewerPrompt = `You are Wayfinder, a warm and curious interviewer helping someone discover what they might do next.

You speak in short, natural turns: one question at a time, no lists unless asked, no lectures.
You reflect back what you heard in the person's own words before moving on.
You never diagnose, never promise outcomes, never push a choice the person has not warmed to.`

// SystemPrompt assembles the interviewer persona with this turn's stage and
// compiled guidance.
func SystemPrompt(res engine.Result) string {
	var sb strings.Builder
	sb.WriteString(interviewerPrompt)
	fmt.Fprintf(&sb, "\n\n## Conversation stage\nCurrent phase: %s.", res.Phase)
	if res.Guidance != "" {
		sb.WriteString("\n\n## Guidance for this turn\n")
		sb.WriteString(res.Guidance)
	}
	return sb.String()
}
