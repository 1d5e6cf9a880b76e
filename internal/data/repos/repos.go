package repos

import (
	"github.com/yungbote/aula-backend/internal/data/repos/billing"
	"github.com/yungbote/aula-backend/internal/data/repos/content"
	"github.com/yungbote/aula-backend/internal/data/repos/enrollment"
	"github.com/yungbote/aula-backend/internal/data/repos/school"
	"github.com/yungbote/aula-backend/internal/data/repos/user"
	"github.com/yungbote/aula-backend/internal/pkg/logger"
	"gorm.io/gorm"
)

type UserRepo = user.UserRepo
type UserFilter = user.UserFilter
type TeacherProfileRepo = user.TeacherProfileRepo
type StudentProfileRepo = user.StudentProfileRepo

type InstitutionRepo = school.InstitutionRepo
type InstitutionFilter = school.InstitutionFilter
type GradeRepo = school.GradeRepo
type GradeFilter = school.GradeFilter
type EnrollmentRepo = school.EnrollmentRepo

type ActivityRepo = content.ActivityRepo
type ActivityFilter = content.ActivityFilter

type CreditHistoryRepo = billing.CreditHistoryRepo

type InvitationCodeRepo = enrollment.InvitationCodeRepo

func NewUserRepo(db *gorm.DB, log *logger.Logger) UserRepo { return user.NewUserRepo(db, log) }
func NewTeacherProfileRepo(db *gorm.DB, log *logger.Logger) TeacherProfileRepo {
	return user.NewTeacherProfileRepo(db, log)
}
func NewStudentProfileRepo(db *gorm.DB, log *logger.Logger) StudentProfileRepo {
	return user.NewStudentProfileRepo(db, log)
}
func NewInstitutionRepo(db *gorm.DB, log *logger.Logger) InstitutionRepo {
	return school.NewInstitutionRepo(db, log)
}
func NewGradeRepo(db *gorm.DB, log *logger.Logger) GradeRepo { return school.NewGradeRepo(db, log) }
func NewEnrollmentRepo(db *gorm.DB, log *logger.Logger) EnrollmentRepo {
	return school.NewEnrollmentRepo(db, log)
}
func NewActivityRepo(db *gorm.DB, log *logger.Logger) ActivityRepo {
	return content.NewActivityRepo(db, log)
}
func NewCreditHistoryRepo(db *gorm.DB, log *logger.Logger) CreditHistoryRepo {
	return billing.NewCreditHistoryRepo(db, log)
}
func NewInvitationCodeRepo(db *gorm.DB, log *logger.Logger) InvitationCodeRepo {
	return enrollment.NewInvitationCodeRepo(db, log)
}
