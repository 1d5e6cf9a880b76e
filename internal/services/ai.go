package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	types "github.com/yungbote/aula-backend/internal/domain"
	"github.com/yungbote/aula-backend/internal/modules/prompts"
	"github.com/yungbote/aula-backend/internal/pkg/logger"
	"github.com/yungbote/aula-backend/internal/platform/apierr"
	"github.com/yungbote/aula-backend/internal/platform/llm"
)

type GenerationSpec struct {
	Instruction  string
	Provider     types.Provider
	Type         types.ActivityType
	Subject      string
	GradeLevel   string
	DocumentText string
}

type GenerationResult struct {
	Content    json.RawMessage
	Provider   types.Provider
	Model      string
	TokensUsed int
}

// AIService dispatches generation to the one backend the caller chose.
// There is no fallback between providers.
type AIService interface {
	Generate(ctx context.Context, spec GenerationSpec) (*GenerationResult, error)
	Chat(ctx context.Context, provider types.Provider, messages []llm.Message) (string, error)
	Available() []types.Provider
	Template(typ types.ActivityType) (prompts.Template, bool)
}

type aiService struct {
	log       *logger.Logger
	providers map[types.Provider]llm.Provider
	catalog   *prompts.Catalog
	timeout   time.Duration
}

func NewAIService(baseLog *logger.Logger, providers map[types.Provider]llm.Provider, catalog *prompts.Catalog, timeout time.Duration) AIService {
	configured := make(map[types.Provider]llm.Provider, len(providers))
	for k, p := range providers {
		if p != nil {
			configured[k] = p
		}
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &aiService{
		log:       baseLog.With("service", "AIService"),
		providers: configured,
		catalog:   catalog,
		timeout:   timeout,
	}
}

func (s *aiService) Available() []types.Provider {
	out := make([]types.Provider, 0, len(s.providers))
	for p := range s.providers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *aiService) Template(typ types.ActivityType) (prompts.Template, bool) {
	return s.catalog.Template(typ)
}

func (s *aiService) provider(p types.Provider) (llm.Provider, error) {
	if _, ok := types.ParseProvider(string(p)); !ok {
		return nil, apierr.Validation("unknown_provider", fmt.Sprintf("unknown provider %q", p))
	}
	backend, ok := s.providers[p]
	if !ok {
		return nil, apierr.Upstream("provider_unavailable", fmt.Sprintf("provider %s is not configured", p), nil)
	}
	return backend, nil
}

func (s *aiService) Generate(ctx context.Context, spec GenerationSpec) (*GenerationResult, error) {
	backend, err := s.provider(spec.Provider)
	if err != nil {
		return nil, err
	}
	tpl, ok := s.catalog.Template(spec.Type)
	if !ok {
		return nil, apierr.Validation("invalid_type", fmt.Sprintf("unknown activity type %q", spec.Type))
	}
	req := llm.Request{
		System: tpl.System,
		User: prompts.User(prompts.Input{
			Instruction:  spec.Instruction,
			Subject:      spec.Subject,
			GradeLevel:   spec.GradeLevel,
			DocumentText: spec.DocumentText,
		}),
		JSON: true,
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	start := time.Now()
	out, err := backend.Generate(callCtx, req)
	if err != nil {
		s.log.Warn("generation failed", "provider", spec.Provider, "type", spec.Type, "duration_ms", time.Since(start).Milliseconds(), "error", err)
		return nil, generationFailed(spec.Provider, err)
	}
	content, err := llm.DecodeJSONObject(out.Text)
	if err != nil {
		s.log.Warn("generation returned invalid JSON", "provider", spec.Provider, "type", spec.Type, "error", err)
		return nil, generationFailed(spec.Provider, err)
	}
	s.log.Info("generation complete",
		"provider", spec.Provider,
		"type", spec.Type,
		"model", out.Model,
		"tokens", out.TokensUsed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return &GenerationResult{
		Content:    content,
		Provider:   spec.Provider,
		Model:      out.Model,
		TokensUsed: out.TokensUsed,
	}, nil
}

func (s *aiService) Chat(ctx context.Context, provider types.Provider, messages []llm.Message) (string, error) {
	backend, err := s.provider(provider)
	if err != nil {
		return "", err
	}
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	out, err := backend.Chat(callCtx, messages)
	if err != nil {
		s.log.Warn("chat completion failed", "provider", provider, "error", err)
		return "", generationFailed(provider, err)
	}
	return strings.TrimSpace(out.Text), nil
}

func generationFailed(p types.Provider, cause error) error {
	return apierr.Upstream("generation_failed", fmt.Sprintf("content generation with %s failed", p), cause)
}
