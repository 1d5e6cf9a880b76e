package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/aula-backend/internal/pkg/logger"
	"github.com/yungbote/aula-backend/internal/platform/llm"
)

type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature *float64
	Timeout     time.Duration
	MaxRetries  int
}

type client struct {
	log         *logger.Logger
	model       string
	temperature *float64
	transport   *llm.Transport
}

// NewClient returns an llm.Provider backed by the OpenAI Responses API.
func NewClient(log *logger.Logger, cfg Config, httpClient *http.Client) (llm.Provider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gpt-4o-mini"
	}
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 180 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	clientLog := log.With("client", "OpenAIClient")
	return &client{
		log:         clientLog,
		model:       model,
		temperature: cfg.Temperature,
		transport: &llm.Transport{
			Provider:   "openai",
			BaseURL:    baseURL,
			Headers:    map[string]string{"Authorization": "Bearer " + cfg.APIKey},
			HTTPClient: httpClient,
			MaxRetries: cfg.MaxRetries,
			Log:        clientLog,
		},
	}, nil
}

func (c *client) Name() string { return "openai" }

type inputItem struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responsesRequest struct {
	Model string      `json:"model"`
	Input []inputItem `json:"input"`
	Text  *struct {
		Format map[string]any `json:"format,omitempty"`
	} `json:"text,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

type responsesResponse struct {
	Model  string `json:"model"`
	Output []struct {
		Type    string `json:"type"`
		Role    string `json:"role,omitempty"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text,omitempty"`
		} `json:"content,omitempty"`
	} `json:"output"`
	Refusal string `json:"refusal,omitempty"`
	Usage   struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage,omitempty"`
}

func extractOutputText(resp responsesResponse) string {
	var out strings.Builder
	for _, item := range resp.Output {
		if item.Type == "message" && item.Role == "assistant" {
			for _, c := range item.Content {
				if c.Type == "output_text" && c.Text != "" {
					out.WriteString(c.Text)
				}
			}
		}
	}
	return out.String()
}

func (c *client) Generate(ctx context.Context, req llm.Request) (*llm.Completion, error) {
	body := responsesRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Input: []inputItem{
			{Role: llm.RoleSystem, Content: req.System},
			{Role: llm.RoleUser, Content: req.User},
		},
	}
	if req.JSON {
		body.Text = &struct {
			Format map[string]any `json:"format,omitempty"`
		}{Format: map[string]any{"type": "json_object"}}
	}
	return c.send(ctx, &body)
}

func (c *client) Chat(ctx context.Context, messages []llm.Message) (*llm.Completion, error) {
	body := responsesRequest{Model: c.model, Temperature: c.temperature}
	for _, m := range messages {
		body.Input = append(body.Input, inputItem{Role: m.Role, Content: m.Content})
	}
	return c.send(ctx, &body)
}

func (c *client) send(ctx context.Context, body *responsesRequest) (*llm.Completion, error) {
	var resp responsesResponse
	if err := c.transport.Do(ctx, http.MethodPost, "/v1/responses", body, &resp); err != nil {
		return nil, err
	}
	if resp.Refusal != "" {
		return nil, fmt.Errorf("model refused: %s", resp.Refusal)
	}
	text := extractOutputText(resp)
	if strings.TrimSpace(text) == "" {
		return nil, llm.ErrEmptyOutput
	}
	tokens := resp.Usage.TotalTokens
	if tokens == 0 {
		tokens = resp.Usage.InputTokens + resp.Usage.OutputTokens
	}
	model := resp.Model
	if model == "" {
		model = c.model
	}
	return &llm.Completion{Text: text, Model: model, TokensUsed: tokens}, nil
}
