// Package transcript reads conversation logs into turns. Each line of a log
// is one JSON message, either flat ({"role","text"} or {"role","content"})
// or wrapped in a gateway event ({"type":"message","timestamp",
// "message":{"role","content"}}). Content may be a string or an array of
// content blocks, of which only text blocks are kept.
package transcript

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/wayfinder/internal/signal"
)

type line struct {
	Type      string          `json:"type"`
	Timestamp string          `json:"timestamp"`
	Role      string          `json:"role"`
	Text      string          `json:"text"`
	Content   json.RawMessage `json:"content"`
	Message   *message        `json:"message"`
}

type message struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// ReadFile parses the log at path.
func ReadFile(path string) ([]signal.Turn, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Read parses a JSONL log. Malformed lines, non-message events and roles
// other than user and assistant are skipped. When every kept line carries
// a timestamp the turns are ordered by it; otherwise file order is kept.
func Read(r io.Reader) ([]signal.Turn, error) {
	type parsed struct {
		turn signal.Turn
		ts   time.Time
	}

	var (
		items []parsed
		allTS = true
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 10*1024*1024)
	for scanner.Scan() {
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var l line
		if err := json.Unmarshal([]byte(raw), &l); err != nil {
			continue
		}

		role, text := l.Role, l.Text
		if l.Message != nil {
			if l.Type != "" && l.Type != "message" {
				continue
			}
			role, text = l.Message.Role, extractText(l.Message.Content)
		} else if text == "" {
			text = extractText(l.Content)
		}

		role = strings.ToLower(strings.TrimSpace(role))
		if role != string(signal.RoleUser) && role != string(signal.RoleAssistant) {
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		ts, err := time.Parse(time.RFC3339Nano, l.Timestamp)
		if err != nil {
			allTS = false
		}
		items = append(items, parsed{
			turn: signal.Turn{Role: signal.Role(role), Text: text},
			ts:   ts,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}

	if allTS {
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].ts.Before(items[j].ts)
		})
	}

	turns := make([]signal.Turn, len(items))
	for i, it := range items {
		turns[i] = it.turn
	}
	return turns, nil
}

// extractText returns a plain string content or the joined text blocks,
// skipping thinking and tool blocks.
func extractText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var plain string
	if err := json.Unmarshal(raw, &plain); err == nil {
		return plain
	}

	var blocks []contentBlock
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return ""
	}

	var parts []string
	for _, b := range blocks {
		if b.Type == "text" && b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}
