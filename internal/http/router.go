package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	types "github.com/yungbote/aula-backend/internal/domain"
	httpH "github.com/yungbote/aula-backend/internal/http/handlers"
	httpMW "github.com/yungbote/aula-backend/internal/http/middleware"
	"github.com/yungbote/aula-backend/internal/pkg/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	ServiceName string
	CORSOrigins []string
	Limiter     httpMW.Limiter

	AuthMiddleware *httpMW.AuthMiddleware

	HealthHandler      *httpH.HealthHandler
	AuthHandler        *httpH.AuthHandler
	ActivityHandler    *httpH.ActivityHandler
	CreditHandler      *httpH.CreditHandler
	InstitutionHandler *httpH.InstitutionHandler
	GradeHandler       *httpH.GradeHandler
	InvitationHandler  *httpH.InvitationHandler
	ExportHandler      *httpH.ExportHandler
	ChatHandler        *httpH.ChatHandler
	UserHandler        *httpH.UserHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	log := cfg.Log
	if log == nil {
		log = logger.Nop()
	}
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "aula-backend"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(log))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	admin := httpMW.RequireRoles(types.RoleAdmin)
	staff := httpMW.RequireRoles(types.RoleAdmin, types.RoleTeacher)
	student := httpMW.RequireRoles(types.RoleStudent)

	if cfg.HealthHandler != nil {
		r.GET("/health", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	api.Use(httpMW.RateLimit(log, cfg.Limiter))
	{
		if cfg.HealthHandler != nil {
			api.GET("/health", cfg.HealthHandler.HealthCheck)
		}
		if cfg.AuthHandler != nil {
			api.POST("/auth/register", cfg.AuthHandler.Register)
			api.POST("/auth/login", cfg.AuthHandler.Login)
		}
		if cfg.InvitationHandler != nil {
			api.POST("/invitations/validate", cfg.InvitationHandler.Validate)
			api.POST("/invitations/use", cfg.InvitationHandler.Use)
		}
	}

	protected := api.Group("/")
	if cfg.AuthMiddleware != nil {
		protected.Use(cfg.AuthMiddleware.RequireAuth())
	}

	if h := cfg.AuthHandler; h != nil {
		protected.GET("/auth/profile", h.Profile)
		protected.PUT("/auth/password", h.ChangePassword)
	}

	if h := cfg.ActivityHandler; h != nil {
		protected.GET("/activities/types", h.Types)
		protected.GET("/activities/public", h.ListPublic)
		protected.GET("/activities/my-activities", staff, h.ListMine)
		protected.POST("/activities/generate", staff, h.Generate)
		protected.POST("/activities", staff, h.Create)
		protected.GET("/activities/:id", h.Get)
		protected.PUT("/activities/:id", staff, h.Update)
		protected.DELETE("/activities/:id", staff, h.Delete)
	}

	if h := cfg.CreditHandler; h != nil {
		protected.GET("/credits/balance", h.Balance)
		protected.GET("/credits/history", h.History)
		protected.GET("/credits/costs", h.Costs)
		protected.POST("/credits/add", admin, h.Add)
	}

	if h := cfg.InstitutionHandler; h != nil {
		protected.GET("/institutions", staff, h.List)
		protected.GET("/institutions/:id", staff, h.Get)
		protected.POST("/institutions", admin, h.Create)
		protected.PUT("/institutions/:id", admin, h.Update)
		protected.DELETE("/institutions/:id", admin, h.Delete)
	}

	if h := cfg.GradeHandler; h != nil {
		protected.GET("/grades", h.List)
		protected.GET("/grades/:id", h.Get)
		protected.POST("/grades", staff, h.Create)
		protected.PUT("/grades/:id", staff, h.Update)
		protected.DELETE("/grades/:id", staff, h.Delete)
		protected.POST("/grades/:id/students", staff, h.AddStudent)
		protected.DELETE("/grades/:id/students/:studentId", staff, h.RemoveStudent)
	}

	if h := cfg.InvitationHandler; h != nil {
		protected.POST("/invitations/generate", staff, h.Generate)
		protected.POST("/invitations/join", student, h.Join)
		protected.GET("/invitations/my", staff, h.ListMine)
		protected.GET("/invitations/grade/:gradeId", staff, h.ListByGrade)
		protected.GET("/invitations/:id", staff, h.Get)
		protected.PUT("/invitations/:id", staff, h.Update)
		protected.DELETE("/invitations/:id", staff, h.Delete)
	}

	if h := cfg.ExportHandler; h != nil {
		protected.GET("/export/:id/:format", h.Export)
	}

	if h := cfg.ChatHandler; h != nil {
		protected.POST("/chat/:activityId/message", h.SendMessage)
		protected.GET("/chat/:activityId/history", h.History)
		protected.DELETE("/chat/:activityId/clear", h.Clear)
	}

	if h := cfg.UserHandler; h != nil {
		protected.GET("/admin/users", staff, h.List)
		protected.GET("/admin/users/:id", staff, h.Get)
		protected.POST("/admin/users", admin, h.Create)
		protected.PUT("/admin/users/:id", admin, h.Update)
		protected.DELETE("/admin/users/:id", admin, h.Delete)
		protected.PUT("/admin/users/:id/role", admin, h.ChangeRole)
		protected.PUT("/admin/users/:id/status", admin, h.SetStatus)
		protected.PUT("/admin/users/:id/password", admin, h.ResetPassword)
		protected.GET("/admin/stats", admin, h.Stats)
	}

	return r
}
