package app

import (
	"time"

	"github.com/yungbote/aula-backend/internal/data/db"
	types "github.com/yungbote/aula-backend/internal/domain"
	"github.com/yungbote/aula-backend/internal/observability"
	"github.com/yungbote/aula-backend/internal/pkg/envutil"
	"github.com/yungbote/aula-backend/internal/pkg/logger"
	"github.com/yungbote/aula-backend/internal/platform/gemini"
	"github.com/yungbote/aula-backend/internal/platform/ollama"
	"github.com/yungbote/aula-backend/internal/platform/openai"
	"github.com/yungbote/aula-backend/internal/platform/redisx"
)

const defaultJWTSecret = "defaultsecret"

type Config struct {
	Port    string
	GinMode string

	DatabaseURL string

	JWTSecretKey   string
	AccessTokenTTL time.Duration

	SignupCredits int
	CreditCosts   map[types.Provider]int

	OpenAI    openai.Config
	Gemini    gemini.Config
	Ollama    ollama.Config
	AITimeout time.Duration

	CORSOrigins []string

	RateLimitWindow time.Duration
	RateLimitMax    int

	Redis           redisx.Config
	ChatHistoryTTL  time.Duration
	ChatMaxMessages int

	Otel observability.OtelConfig
}

func LoadConfig(log *logger.Logger) Config {
	aiTimeout := time.Duration(envutil.Int("AI_TIMEOUT_SECONDS", 120)) * time.Second
	aiRetries := envutil.Int("AI_MAX_RETRIES", 0)

	cfg := Config{
		Port:    envutil.String("PORT", "8080"),
		GinMode: envutil.String("GIN_MODE", "debug"),

		DatabaseURL: db.PostgresDSN(),

		JWTSecretKey:   envutil.String("JWT_SECRET_KEY", defaultJWTSecret),
		AccessTokenTTL: time.Duration(envutil.Int("ACCESS_TOKEN_TTL", 7*24*3600)) * time.Second,

		SignupCredits: envutil.Int("DEFAULT_SIGNUP_CREDITS", 100),
		CreditCosts: map[types.Provider]int{
			types.ProviderOpenAI: envutil.Int("CREDIT_COST_OPENAI", 10),
			types.ProviderGemini: envutil.Int("CREDIT_COST_GEMINI", 5),
			types.ProviderOllama: envutil.Int("CREDIT_COST_OLLAMA", 2),
		},

		OpenAI: openai.Config{
			APIKey:     envutil.String("OPENAI_API_KEY", ""),
			BaseURL:    envutil.String("OPENAI_BASE_URL", ""),
			Model:      envutil.String("OPENAI_MODEL", ""),
			Timeout:    aiTimeout,
			MaxRetries: aiRetries,
		},
		Gemini: gemini.Config{
			APIKey:     envutil.String("GEMINI_API_KEY", ""),
			BaseURL:    envutil.String("GEMINI_BASE_URL", ""),
			Model:      envutil.String("GEMINI_MODEL", ""),
			Timeout:    aiTimeout,
			MaxRetries: aiRetries,
		},
		Ollama: ollama.Config{
			BaseURL:    envutil.String("OLLAMA_BASE_URL", ""),
			Model:      envutil.String("OLLAMA_MODEL", ""),
			Timeout:    aiTimeout,
			MaxRetries: aiRetries,
		},
		AITimeout: aiTimeout,

		CORSOrigins: envutil.CSV("CORS_ORIGINS", nil),

		RateLimitWindow: envutil.Duration("RATE_LIMIT_WINDOW", 15*time.Minute),
		RateLimitMax:    envutil.Int("RATE_LIMIT_MAX", 100),

		Redis: redisx.Config{
			Addr:     envutil.String("REDIS_ADDR", ""),
			Password: envutil.String("REDIS_PASSWORD", ""),
			DB:       envutil.Int("REDIS_DB", 0),
		},
		ChatHistoryTTL:  envutil.Duration("CHAT_HISTORY_TTL", 24*time.Hour),
		ChatMaxMessages: envutil.Int("CHAT_MAX_MESSAGES", 20),

		Otel: observability.OtelConfig{
			Enabled:     envutil.Bool("OTEL_ENABLED", false),
			ServiceName: envutil.String("OTEL_SERVICE_NAME", "aula-backend"),
			Environment: envutil.String("APP_ENV", "development"),
			Version:     envutil.String("APP_VERSION", ""),
			Endpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:     observability.ParseHeaders(envutil.CSV("OTEL_EXPORTER_OTLP_HEADERS", nil)),
			Insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false),
			SampleRatio: float64(envutil.Int("OTEL_SAMPLER_PERCENT", 10)) / 100,
		},
	}

	if cfg.JWTSecretKey == defaultJWTSecret {
		log.Warn("JWT_SECRET_KEY not set; using the insecure default")
	}
	for p, cost := range cfg.CreditCosts {
		if cost < 0 {
			log.Warn("negative credit cost ignored", "provider", p, "cost", cost)
			cfg.CreditCosts[p] = 0
		}
	}
	if cfg.RateLimitMax < 0 {
		cfg.RateLimitMax = 0
	}
	return cfg
}
