package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/aula-backend/internal/data/repos"
	"github.com/yungbote/aula-backend/internal/pkg/logger"
)

type Repos struct {
	User           repos.UserRepo
	TeacherProfile repos.TeacherProfileRepo
	StudentProfile repos.StudentProfileRepo
	Institution    repos.InstitutionRepo
	Grade          repos.GradeRepo
	Enrollment     repos.EnrollmentRepo
	Activity       repos.ActivityRepo
	CreditHistory  repos.CreditHistoryRepo
	InvitationCode repos.InvitationCodeRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:           repos.NewUserRepo(db, log),
		TeacherProfile: repos.NewTeacherProfileRepo(db, log),
		StudentProfile: repos.NewStudentProfileRepo(db, log),
		Institution:    repos.NewInstitutionRepo(db, log),
		Grade:          repos.NewGradeRepo(db, log),
		Enrollment:     repos.NewEnrollmentRepo(db, log),
		Activity:       repos.NewActivityRepo(db, log),
		CreditHistory:  repos.NewCreditHistoryRepo(db, log),
		InvitationCode: repos.NewInvitationCodeRepo(db, log),
	}
}
