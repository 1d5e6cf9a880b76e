package domain

import (
	"github.com/yungbote/aula-backend/internal/domain/billing"
	"github.com/yungbote/aula-backend/internal/domain/content"
	"github.com/yungbote/aula-backend/internal/domain/enrollment"
	"github.com/yungbote/aula-backend/internal/domain/school"
	"github.com/yungbote/aula-backend/internal/domain/user"
)

type User = user.User
type Role = user.Role
type TeacherProfile = user.TeacherProfile
type StudentProfile = user.StudentProfile

const (
	RoleAdmin   = user.RoleAdmin
	RoleTeacher = user.RoleTeacher
	RoleStudent = user.RoleStudent
)

type Institution = school.Institution
type Grade = school.Grade
type GradeStudent = school.GradeStudent

type Activity = content.Activity
type ActivityType = content.ActivityType
type Visibility = content.Visibility
type Provider = content.Provider

const (
	VisibilityPrivate = content.VisibilityPrivate
	VisibilityPublic  = content.VisibilityPublic

	ProviderOpenAI = content.ProviderOpenAI
	ProviderGemini = content.ProviderGemini
	ProviderOllama = content.ProviderOllama
)

var (
	ActivityTypes     = content.ActivityTypes
	Providers         = content.Providers
	ParseActivityType = content.ParseActivityType
	ParseVisibility   = content.ParseVisibility
	ParseProvider     = content.ParseProvider
	ParseRole         = user.ParseRole
)

type CreditHistory = billing.CreditHistory

type InvitationCode = enrollment.InvitationCode
type CodeStatus = enrollment.CodeStatus

const (
	CodeActive   = enrollment.StatusActive
	CodeExpired  = enrollment.StatusExpired
	CodeDepleted = enrollment.StatusDepleted
	CodeInactive = enrollment.StatusInactive
)

// Models lists every persisted type in migration order.
func Models() []any {
	return []any{
		&User{},
		&TeacherProfile{},
		&StudentProfile{},
		&Institution{},
		&Grade{},
		&GradeStudent{},
		&Activity{},
		&CreditHistory{},
		&InvitationCode{},
	}
}
