package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a single-shot generation. When JSON is set the backend is asked
// for a JSON object and the reply text must parse as one.
type Request struct {
	System string
	User   string
	JSON   bool
}

type Completion struct {
	Text       string
	Model      string
	TokensUsed int
}

// Provider is one text-generation backend. Implementations honor ctx
// cancellation and return *HTTPError for non-2xx upstream responses.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req Request) (*Completion, error)
	Chat(ctx context.Context, messages []Message) (*Completion, error)
}

// ErrEmptyOutput is returned when a backend answers without any text.
var ErrEmptyOutput = errors.New("llm: empty output")

type HTTPError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	body := e.Body
	if len(body) > 512 {
		body = body[:512] + "..."
	}
	return fmt.Sprintf("%s http %d: %s", e.Provider, e.StatusCode, body)
}

func (e *HTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

// DecodeJSONObject extracts a JSON object from model output, tolerating
// markdown code fences and prose around the object.
func DecodeJSONObject(text string) (json.RawMessage, error) {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```JSON")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}
	if !strings.HasPrefix(s, "{") {
		start := strings.Index(s, "{")
		end := strings.LastIndex(s, "}")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("llm: no JSON object in output")
		}
		s = s[start : end+1]
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, fmt.Errorf("llm: invalid JSON output: %w", err)
	}
	return json.RawMessage(s), nil
}

// SplitSystem separates leading system messages from the conversation turns.
func SplitSystem(messages []Message) (string, []Message) {
	var system []string
	var rest []Message
	for _, m := range messages {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		rest = append(rest, m)
	}
	return strings.Join(system, "\n\n"), rest
}
