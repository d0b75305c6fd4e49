// Package agent answers natural-language questions about the works table by
// turning them into calls against the works HTTP API.
package agent

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Action is what the agent decided to do with a question.
type Action string

const (
	ActionListAll Action = "list_all"
	ActionGetByID Action = "get_by_id"
	ActionSearch  Action = "search"
	ActionUpdate  Action = "update"
	ActionClarify Action = "clarify"
)

const (
	msgNotUnderstood  = "Sorry, I did not understand the question. Could you rephrase it?"
	msgInterpretError = "There was an error interpreting the question. Please try again later."
)

// Plan is an interpreted question.
type Plan struct {
	Action   Action `json:"action"`
	Keyword  string `json:"keyword,omitempty"`
	Year     *int   `json:"year,omitempty"`
	Language string `json:"language,omitempty"`
	ID       string `json:"id,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Clarify returns a plan asking the user for more information.
func Clarify(message string) Plan {
	return Plan{Action: ActionClarify, Message: message}
}

// rawPlan tolerates the loose types models produce: nulls, and years as
// strings or numbers.
type rawPlan struct {
	Action   string          `json:"action"`
	Keyword  *string         `json:"keyword"`
	Year     json.RawMessage `json:"year"`
	Language *string         `json:"language"`
	ID       *string         `json:"id"`
	Message  *string         `json:"message"`
}

// ParsePlan decodes a model response into a Plan. Markdown code fences
// around the JSON are removed.
func ParsePlan(response string) (Plan, error) {
	text := strings.TrimSpace(response)
	if strings.HasPrefix(text, "```") {
		text = extractFromCodeBlock(text)
	}

	var raw rawPlan
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return Plan{}, fmt.Errorf("failed to parse plan as JSON: %w", err)
	}

	plan := Plan{
		Action:   Action(strings.TrimSpace(raw.Action)),
		Keyword:  deref(raw.Keyword),
		Language: deref(raw.Language),
		ID:       deref(raw.ID),
		Message:  deref(raw.Message),
	}
	switch plan.Action {
	case ActionListAll, ActionGetByID, ActionSearch, ActionUpdate, ActionClarify:
	default:
		return Plan{}, fmt.Errorf("unknown action %q", raw.Action)
	}

	year, err := parseYear(raw.Year)
	if err != nil {
		return Plan{}, err
	}
	plan.Year = year
	return plan, nil
}

func parseYear(raw json.RawMessage) (*int, error) {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return nil, nil
	}
	y, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("invalid year %s", raw)
	}
	return &y, nil
}

// extractFromCodeBlock extracts content from a markdown code block.
func extractFromCodeBlock(text string) string {
	lines := strings.Split(text, "\n")
	if len(lines) < 2 {
		return text
	}

	end := len(lines)
	if strings.TrimSpace(lines[len(lines)-1]) == "```" {
		end = len(lines) - 1
	}
	return strings.Join(lines[1:end], "\n")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
