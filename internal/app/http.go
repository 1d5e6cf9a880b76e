package app

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/aula-backend/internal/http"
	httpH "github.com/yungbote/aula-backend/internal/http/handlers"
	httpMW "github.com/yungbote/aula-backend/internal/http/middleware"
	"github.com/yungbote/aula-backend/internal/pkg/logger"
)

type Middleware struct {
	Auth    *httpMW.AuthMiddleware
	Limiter httpMW.Limiter
}

type Handlers struct {
	Health      *httpH.HealthHandler
	Auth        *httpH.AuthHandler
	Activity    *httpH.ActivityHandler
	Credit      *httpH.CreditHandler
	Institution *httpH.InstitutionHandler
	Grade       *httpH.GradeHandler
	Invitation  *httpH.InvitationHandler
	Export      *httpH.ExportHandler
	Chat        *httpH.ChatHandler
	User        *httpH.UserHandler
}

func wireHandlers(log *logger.Logger, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:      httpH.NewHealthHandler(),
		Auth:        httpH.NewAuthHandler(log, services.Auth),
		Activity:    httpH.NewActivityHandler(log, services.Activities, services.AI, services.Credits),
		Credit:      httpH.NewCreditHandler(log, services.Credits),
		Institution: httpH.NewInstitutionHandler(log, services.Institutions),
		Grade:       httpH.NewGradeHandler(log, services.Grades),
		Invitation:  httpH.NewInvitationHandler(log, services.Invitations),
		Export:      httpH.NewExportHandler(log, services.Export),
		Chat:        httpH.NewChatHandler(log, services.Chat),
		User:        httpH.NewUserHandler(log, services.Users),
	}
}

func wireMiddleware(log *logger.Logger, cfg Config, services Services, clients Clients) Middleware {
	log.Info("Wiring middleware...")
	mw := Middleware{Auth: httpMW.NewAuthMiddleware(log, services.Auth)}
	switch {
	case cfg.RateLimitMax == 0:
		log.Warn("rate limiting disabled (RATE_LIMIT_MAX=0)")
	case clients.Redis != nil:
		mw.Limiter = httpMW.NewRedisLimiter(clients.Redis, cfg.RateLimitMax, cfg.RateLimitWindow)
	default:
		mw.Limiter = httpMW.NewMemoryLimiter(cfg.RateLimitMax, cfg.RateLimitWindow)
	}
	return mw
}

func wireRouter(log *logger.Logger, cfg Config, handlers Handlers, middleware Middleware) *gin.Engine {
	return http.NewRouter(http.RouterConfig{
		Log:                log,
		ServiceName:        cfg.Otel.ServiceName,
		CORSOrigins:        cfg.CORSOrigins,
		Limiter:            middleware.Limiter,
		AuthMiddleware:     middleware.Auth,
		HealthHandler:      handlers.Health,
		AuthHandler:        handlers.Auth,
		ActivityHandler:    handlers.Activity,
		CreditHandler:      handlers.Credit,
		InstitutionHandler: handlers.Institution,
		GradeHandler:       handlers.Grade,
		InvitationHandler:  handlers.Invitation,
		ExportHandler:      handlers.Export,
		ChatHandler:        handlers.Chat,
		UserHandler:        handlers.User,
	})
}
