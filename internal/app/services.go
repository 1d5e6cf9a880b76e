package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/aula-backend/internal/modules/prompts"
	"github.com/yungbote/aula-backend/internal/pkg/logger"
	"github.com/yungbote/aula-backend/internal/services"
)

type Services struct {
	Credits      services.CreditService
	AI           services.AIService
	ChatStore    services.ChatStore
	Activities   services.ActivityService
	Auth         services.AuthService
	Invitations  services.InvitationService
	Institutions services.InstitutionService
	Grades       services.GradeService
	Users        services.UserAdminService
	Chat         services.ChatService
	Export       services.ExportService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, repos Repos, clients Clients) (Services, error) {
	log.Info("Wiring services...")

	catalog, err := prompts.Default()
	if err != nil {
		return Services{}, fmt.Errorf("load prompt catalog: %w", err)
	}

	var chatStore services.ChatStore
	if clients.Redis != nil {
		chatStore = services.NewRedisChatStore(log, clients.Redis, cfg.ChatHistoryTTL, cfg.ChatMaxMessages)
	} else {
		chatStore = services.NewMemoryChatStore(cfg.ChatHistoryTTL, cfg.ChatMaxMessages)
	}

	credits := services.NewCreditService(db, log, repos.User, repos.CreditHistory, cfg.CreditCosts)
	ai := services.NewAIService(log, clients.Providers, catalog, cfg.AITimeout)
	activities := services.NewActivityService(db, log, repos.Activity, credits, ai, chatStore)
	auth := services.NewAuthService(
		db, log,
		repos.User, repos.TeacherProfile, repos.StudentProfile, repos.Institution, repos.Grade,
		credits, cfg.SignupCredits, cfg.JWTSecretKey, cfg.AccessTokenTTL,
	)

	return Services{
		Credits:    credits,
		AI:         ai,
		ChatStore:  chatStore,
		Activities: activities,
		Auth:       auth,
		Invitations: services.NewInvitationService(
			db, log,
			repos.InvitationCode, repos.Grade, repos.User, repos.TeacherProfile, repos.StudentProfile, repos.Enrollment,
			credits, auth, cfg.SignupCredits,
		),
		Institutions: services.NewInstitutionService(log, repos.Institution, repos.Grade, repos.User, repos.Enrollment),
		Grades: services.NewGradeService(
			db, log,
			repos.Grade, repos.Institution, repos.User, repos.TeacherProfile, repos.StudentProfile,
			repos.Enrollment, repos.InvitationCode,
		),
		Users: services.NewUserAdminService(
			db, log,
			repos.User, repos.TeacherProfile, repos.StudentProfile, repos.Institution, repos.Grade,
			repos.Enrollment, repos.Activity, repos.CreditHistory, repos.InvitationCode,
			credits, cfg.SignupCredits,
		),
		Chat:   services.NewChatService(log, activities, ai, chatStore),
		Export: services.NewExportService(log, activities),
	}, nil
}
