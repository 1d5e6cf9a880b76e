package school

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/aula-backend/internal/domain"
	"github.com/yungbote/aula-backend/internal/pkg/ctxutil"
	"github.com/yungbote/aula-backend/internal/pkg/dbctx"
	"github.com/yungbote/aula-backend/internal/pkg/logger"
)

// EnrollmentRepo manages grade_student rows. The (grade, student) pair is unique
// in the schema, so a racing duplicate Create fails with a unique violation.
type EnrollmentRepo interface {
	Create(dbc dbctx.Context, gs *types.GradeStudent) error
	Exists(dbc dbctx.Context, gradeID, studentProfileID uuid.UUID) (bool, error)
	CountByGrade(dbc dbctx.Context, gradeID uuid.UUID) (int64, error)
	CountByInstitution(dbc dbctx.Context, institutionID uuid.UUID) (int64, error)
	Delete(dbc dbctx.Context, gradeID, studentProfileID uuid.UUID) (bool, error)
	DeleteByStudent(dbc dbctx.Context, studentProfileID uuid.UUID) error
	Count(dbc dbctx.Context) (int64, error)
}

type enrollmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEnrollmentRepo(db *gorm.DB, baseLog *logger.Logger) EnrollmentRepo {
	return &enrollmentRepo{db: db, log: baseLog.With("repo", "EnrollmentRepo")}
}

func (r *enrollmentRepo) conn(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctxutil.Default(dbc.Ctx))
}

func (r *enrollmentRepo) Create(dbc dbctx.Context, gs *types.GradeStudent) error {
	return r.conn(dbc).Create(gs).Error
}

func (r *enrollmentRepo) Exists(dbc dbctx.Context, gradeID, studentProfileID uuid.UUID) (bool, error) {
	var n int64
	err := r.conn(dbc).
		Model(&types.GradeStudent{}).
		Where("grade_id = ? AND student_profile_id = ?", gradeID, studentProfileID).
		Count(&n).Error
	return n > 0, err
}

func (r *enrollmentRepo) CountByGrade(dbc dbctx.Context, gradeID uuid.UUID) (int64, error) {
	var n int64
	err := r.conn(dbc).Model(&types.GradeStudent{}).Where("grade_id = ?", gradeID).Count(&n).Error
	return n, err
}

func (r *enrollmentRepo) CountByInstitution(dbc dbctx.Context, institutionID uuid.UUID) (int64, error) {
	var n int64
	err := r.conn(dbc).
		Model(&types.GradeStudent{}).
		Where("grade_id IN (?)", r.conn(dbc).Model(&types.Grade{}).Select("id").Where("institution_id = ?", institutionID)).
		Count(&n).Error
	return n, err
}

func (r *enrollmentRepo) Delete(dbc dbctx.Context, gradeID, studentProfileID uuid.UUID) (bool, error) {
	res := r.conn(dbc).
		Where("grade_id = ? AND student_profile_id = ?", gradeID, studentProfileID).
		Delete(&types.GradeStudent{})
	return res.RowsAffected > 0, res.Error
}

func (r *enrollmentRepo) DeleteByStudent(dbc dbctx.Context, studentProfileID uuid.UUID) error {
	return r.conn(dbc).Where("student_profile_id = ?", studentProfileID).Delete(&types.GradeStudent{}).Error
}

func (r *enrollmentRepo) Count(dbc dbctx.Context) (int64, error) {
	var n int64
	err := r.conn(dbc).Model(&types.GradeStudent{}).Count(&n).Error
	return n, err
}
