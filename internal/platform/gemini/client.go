package gemini

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yungbote/aula-backend/internal/pkg/logger"
	"github.com/yungbote/aula-backend/internal/platform/llm"
)

type Config struct {
	APIKey          string
	BaseURL         string
	Model           string
	MaxOutputTokens int
	Timeout         time.Duration
	MaxRetries      int
}

type client struct {
	log             *logger.Logger
	apiKey          string
	model           string
	maxOutputTokens int
	transport       *llm.Transport
}

// NewClient returns an llm.Provider backed by the Gemini generateContent endpoint.
func NewClient(log *logger.Logger, cfg Config, httpClient *http.Client) (llm.Provider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}
	model := strings.TrimPrefix(strings.TrimSpace(cfg.Model), "models/")
	if model == "" {
		model = "gemini-1.5-flash"
	}
	maxOut := cfg.MaxOutputTokens
	if maxOut <= 0 {
		maxOut = 8192
	}
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 180 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	clientLog := log.With("client", "GeminiClient")
	return &client{
		log:             clientLog,
		apiKey:          cfg.APIKey,
		model:           model,
		maxOutputTokens: maxOut,
		transport: &llm.Transport{
			Provider:   "gemini",
			BaseURL:    baseURL,
			HTTPClient: httpClient,
			MaxRetries: cfg.MaxRetries,
			Log:        clientLog,
		},
	}, nil
}

func (c *client) Name() string { return "gemini" }

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	MaxOutputTokens  int    `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string `json:"responseMimeType,omitempty"`
}

type generateRequest struct {
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		TotalTokenCount int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
	ModelVersion string `json:"modelVersion"`
}

func (c *client) Generate(ctx context.Context, req llm.Request) (*llm.Completion, error) {
	body := generateRequest{
		Contents:         []content{{Role: "user", Parts: []part{{Text: req.User}}}},
		GenerationConfig: generationConfig{MaxOutputTokens: c.maxOutputTokens},
	}
	if strings.TrimSpace(req.System) != "" {
		body.SystemInstruction = &content{Parts: []part{{Text: req.System}}}
	}
	if req.JSON {
		body.GenerationConfig.ResponseMimeType = "application/json"
	}
	return c.send(ctx, &body)
}

// Chat maps assistant turns to Gemini's "model" role; system messages become the system instruction.
func (c *client) Chat(ctx context.Context, messages []llm.Message) (*llm.Completion, error) {
	system, turns := llm.SplitSystem(messages)
	body := generateRequest{GenerationConfig: generationConfig{MaxOutputTokens: c.maxOutputTokens}}
	if system != "" {
		body.SystemInstruction = &content{Parts: []part{{Text: system}}}
	}
	for _, m := range turns {
		role := "user"
		if m.Role == llm.RoleAssistant {
			role = "model"
		}
		body.Contents = append(body.Contents, content{Role: role, Parts: []part{{Text: m.Content}}})
	}
	return c.send(ctx, &body)
}

func (c *client) send(ctx context.Context, body *generateRequest) (*llm.Completion, error) {
	path := fmt.Sprintf("/v1beta/models/%s:generateContent?key=%s", url.PathEscape(c.model), url.QueryEscape(c.apiKey))
	var resp generateResponse
	if err := c.transport.Do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("gemini: no candidates returned")
	}
	candidate := resp.Candidates[0]
	if candidate.FinishReason == "MAX_TOKENS" {
		return nil, fmt.Errorf("gemini: response truncated (MAX_TOKENS)")
	}
	var text strings.Builder
	for _, p := range candidate.Content.Parts {
		text.WriteString(p.Text)
	}
	if strings.TrimSpace(text.String()) == "" {
		return nil, llm.ErrEmptyOutput
	}
	model := resp.ModelVersion
	if model == "" {
		model = c.model
	}
	return &llm.Completion{Text: text.String(), Model: model, TokensUsed: resp.UsageMetadata.TotalTokenCount}, nil
}
