package app

import (
	goredis "github.com/redis/go-redis/v9"

	types "github.com/yungbote/aula-backend/internal/domain"
	"github.com/yungbote/aula-backend/internal/pkg/logger"
	"github.com/yungbote/aula-backend/internal/platform/gemini"
	"github.com/yungbote/aula-backend/internal/platform/llm"
	"github.com/yungbote/aula-backend/internal/platform/ollama"
	"github.com/yungbote/aula-backend/internal/platform/openai"
	"github.com/yungbote/aula-backend/internal/platform/redisx"
)

type Clients struct {
	Providers map[types.Provider]llm.Provider
	// Redis is nil when REDIS_ADDR is unset or unreachable.
	Redis *goredis.Client
}

// wireClients builds every configured provider. A provider without credentials
// is skipped, so requests for it fail with provider_unavailable.
func wireClients(log *logger.Logger, cfg Config) Clients {
	log.Info("Wiring clients...")
	providers := map[types.Provider]llm.Provider{}

	add := func(p types.Provider, build func() (llm.Provider, error)) {
		client, err := build()
		if err != nil {
			log.Warn("AI provider disabled", "provider", p, "reason", err.Error())
			return
		}
		providers[p] = client
	}
	add(types.ProviderOpenAI, func() (llm.Provider, error) { return openai.NewClient(log, cfg.OpenAI, nil) })
	add(types.ProviderGemini, func() (llm.Provider, error) { return gemini.NewClient(log, cfg.Gemini, nil) })
	add(types.ProviderOllama, func() (llm.Provider, error) { return ollama.NewClient(log, cfg.Ollama, nil) })
	if len(providers) == 0 {
		log.Warn("no AI provider configured; generation and chat will fail")
	}

	var rdb *goredis.Client
	if cfg.Redis.Addr != "" {
		c, err := redisx.NewClient(log, cfg.Redis)
		if err != nil {
			log.Warn("redis unavailable; using in-process chat store and rate limiter", "error", err)
		} else {
			rdb = c
		}
	}
	return Clients{Providers: providers, Redis: rdb}
}
