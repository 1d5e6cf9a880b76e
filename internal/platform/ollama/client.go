package ollama

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
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

type client struct {
	log       *logger.Logger
	model     string
	transport *llm.Transport
}

// NewClient returns an llm.Provider backed by a local Ollama server's /api/chat.
func NewClient(log *logger.Logger, cfg Config, httpClient *http.Client) (llm.Provider, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("missing OLLAMA_BASE_URL")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "llama3.1"
	}
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 300 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	clientLog := log.With("client", "OllamaClient")
	return &client{
		log:   clientLog,
		model: model,
		transport: &llm.Transport{
			Provider:   "ollama",
			BaseURL:    baseURL,
			HTTPClient: httpClient,
			MaxRetries: cfg.MaxRetries,
			Log:        clientLog,
		},
	}, nil
}

func (c *client) Name() string { return "ollama" }

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []llm.Message `json:"messages"`
	Stream   bool          `json:"stream"`
	Format   string        `json:"format,omitempty"`
}

type chatResponse struct {
	Model   string      `json:"model"`
	Message llm.Message `json:"message"`
	Done    bool        `json:"done"`

	PromptEvalCount int `json:"prompt_eval_count"`
	EvalCount       int `json:"eval_count"`
}

func (c *client) Generate(ctx context.Context, req llm.Request) (*llm.Completion, error) {
	body := chatRequest{
		Model: c.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: req.System},
			{Role: llm.RoleUser, Content: req.User},
		},
	}
	if req.JSON {
		body.Format = "json"
	}
	return c.send(ctx, &body)
}

func (c *client) Chat(ctx context.Context, messages []llm.Message) (*llm.Completion, error) {
	return c.send(ctx, &chatRequest{Model: c.model, Messages: messages})
}

func (c *client) send(ctx context.Context, body *chatRequest) (*llm.Completion, error) {
	var resp chatResponse
	if err := c.transport.Do(ctx, http.MethodPost, "/api/chat", body, &resp); err != nil {
		return nil, err
	}
	if strings.TrimSpace(resp.Message.Content) == "" {
		return nil, llm.ErrEmptyOutput
	}
	model := resp.Model
	if model == "" {
		model = c.model
	}
	return &llm.Completion{
		Text:       resp.Message.Content,
		Model:      model,
		TokensUsed: resp.PromptEvalCount + resp.EvalCount,
	}, nil
}
