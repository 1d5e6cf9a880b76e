package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/yungbote/aula-backend/internal/pkg/logger"
	"github.com/yungbote/aula-backend/internal/platform/llm"
)

type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func TestGenerateUsesJSONFormat(t *testing.T) {
	httpClient := &http.Client{Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/api/chat" {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		var in chatRequest
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
			t.Fatalf("decode req: %v", err)
		}
		if in.Format != "json" || in.Stream {
			t.Fatalf("request: want format=json stream=false got=%+v", in)
		}
		b, _ := json.Marshal(map[string]any{
			"model":             "llama-test",
			"message":           map[string]any{"role": "assistant", "content": `{"ok":true}`},
			"done":              true,
			"prompt_eval_count": 3,
			"eval_count":        4,
		})
		return &http.Response{StatusCode: 200, Header: http.Header{}, Body: io.NopCloser(bytes.NewReader(b))}, nil
	})}

	p, err := NewClient(logger.Nop(), Config{BaseURL: "http://localhost:11434"}, httpClient)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	out, err := p.Generate(context.Background(), llm.Request{System: "s", User: "u", JSON: true})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out.Text != `{"ok":true}` || out.TokensUsed != 7 {
		t.Fatalf("Generate: unexpected %+v", out)
	}
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewClient(logger.Nop(), Config{}, nil); err == nil {
		t.Fatalf("NewClient without base url: want error")
	}
}
