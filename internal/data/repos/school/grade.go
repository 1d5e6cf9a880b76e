package school

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/aula-backend/internal/domain"
	"github.com/yungbote/aula-backend/internal/pkg/ctxutil"
	"github.com/yungbote/aula-backend/internal/pkg/dbctx"
	"github.com/yungbote/aula-backend/internal/pkg/logger"
)

type GradeFilter struct {
	InstitutionID    *uuid.UUID
	TeacherProfileID *uuid.UUID
	StudentProfileID *uuid.UUID
	Active           *bool
	Offset           int
	Limit            int
}

type GradeRepo interface {
	Create(dbc dbctx.Context, g *types.Grade) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Grade, error)
	// GetDetailed preloads institution, teacher and enrolled students with their users.
	GetDetailed(dbc dbctx.Context, id uuid.UUID) (*types.Grade, error)
	List(dbc dbctx.Context, f GradeFilter) ([]*types.Grade, int64, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	Delete(dbc dbctx.Context, id uuid.UUID) error
	CountByTeacher(dbc dbctx.Context, teacherProfileID uuid.UUID) (int64, error)
	CountByInstitution(dbc dbctx.Context, institutionID uuid.UUID) (int64, error)
	Count(dbc dbctx.Context) (int64, error)
}

type gradeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGradeRepo(db *gorm.DB, baseLog *logger.Logger) GradeRepo {
	return &gradeRepo{db: db, log: baseLog.With("repo", "GradeRepo")}
}

func (r *gradeRepo) conn(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctxutil.Default(dbc.Ctx))
}

func (r *gradeRepo) Create(dbc dbctx.Context, g *types.Grade) error {
	return r.conn(dbc).Omit("Institution", "Teacher", "Students").Create(g).Error
}

func (r *gradeRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Grade, error) {
	var g types.Grade
	err := r.conn(dbc).Where("id = ?", id).First(&g).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *gradeRepo) GetDetailed(dbc dbctx.Context, id uuid.UUID) (*types.Grade, error) {
	var g types.Grade
	err := r.conn(dbc).
		Preload("Institution").
		Preload("Teacher.User").
		Preload("Students.User").
		Where("id = ?", id).
		First(&g).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *gradeRepo) List(dbc dbctx.Context, f GradeFilter) ([]*types.Grade, int64, error) {
	q := r.conn(dbc).Model(&types.Grade{})
	if f.InstitutionID != nil {
		q = q.Where("institution_id = ?", *f.InstitutionID)
	}
	if f.TeacherProfileID != nil {
		q = q.Where("teacher_profile_id = ?", *f.TeacherProfileID)
	}
	if f.StudentProfileID != nil {
		q = q.Where("id IN (?)", r.conn(dbc).
			Model(&types.GradeStudent{}).
			Select("grade_id").
			Where("student_profile_id = ?", *f.StudentProfileID))
	}
	if f.Active != nil {
		q = q.Where("is_active = ?", *f.Active)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []*types.Grade
	q = q.Preload("Institution").Preload("Teacher.User").Order("name ASC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *gradeRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return r.conn(dbc).Model(&types.Grade{}).Where("id = ?", id).Updates(updates).Error
}

func (r *gradeRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	return r.conn(dbc).Where("id = ?", id).Delete(&types.Grade{}).Error
}

func (r *gradeRepo) CountByTeacher(dbc dbctx.Context, teacherProfileID uuid.UUID) (int64, error) {
	var n int64
	err := r.conn(dbc).Model(&types.Grade{}).Where("teacher_profile_id = ?", teacherProfileID).Count(&n).Error
	return n, err
}

func (r *gradeRepo) CountByInstitution(dbc dbctx.Context, institutionID uuid.UUID) (int64, error) {
	var n int64
	err := r.conn(dbc).Model(&types.Grade{}).Where("institution_id = ?", institutionID).Count(&n).Error
	return n, err
}

func (r *gradeRepo) Count(dbc dbctx.Context) (int64, error) {
	var n int64
	err := r.conn(dbc).Model(&types.Grade{}).Count(&n).Error
	return n, err
}
