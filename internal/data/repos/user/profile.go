package user

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/aula-backend/internal/domain"
	"github.com/yungbote/aula-backend/internal/pkg/ctxutil"
	"github.com/yungbote/aula-backend/internal/pkg/dbctx"
	"github.com/yungbote/aula-backend/internal/pkg/logger"
)

type TeacherProfileRepo interface {
	Create(dbc dbctx.Context, p *types.TeacherProfile) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.TeacherProfile, error)
	GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.TeacherProfile, error)
	DeleteByUserID(dbc dbctx.Context, userID uuid.UUID) error
}

type StudentProfileRepo interface {
	Create(dbc dbctx.Context, p *types.StudentProfile) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.StudentProfile, error)
	GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.StudentProfile, error)
	DeleteByUserID(dbc dbctx.Context, userID uuid.UUID) error
}

type teacherProfileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTeacherProfileRepo(db *gorm.DB, baseLog *logger.Logger) TeacherProfileRepo {
	return &teacherProfileRepo{db: db, log: baseLog.With("repo", "TeacherProfileRepo")}
}

func (r *teacherProfileRepo) conn(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctxutil.Default(dbc.Ctx))
}

func (r *teacherProfileRepo) Create(dbc dbctx.Context, p *types.TeacherProfile) error {
	return r.conn(dbc).Create(p).Error
}

func (r *teacherProfileRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.TeacherProfile, error) {
	var p types.TeacherProfile
	err := r.conn(dbc).Preload("User").Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *teacherProfileRepo) GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.TeacherProfile, error) {
	var p types.TeacherProfile
	err := r.conn(dbc).Where("user_id = ?", userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *teacherProfileRepo) DeleteByUserID(dbc dbctx.Context, userID uuid.UUID) error {
	return r.conn(dbc).Where("user_id = ?", userID).Delete(&types.TeacherProfile{}).Error
}

type studentProfileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStudentProfileRepo(db *gorm.DB, baseLog *logger.Logger) StudentProfileRepo {
	return &studentProfileRepo{db: db, log: baseLog.With("repo", "StudentProfileRepo")}
}

func (r *studentProfileRepo) conn(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctxutil.Default(dbc.Ctx))
}

func (r *studentProfileRepo) Create(dbc dbctx.Context, p *types.StudentProfile) error {
	return r.conn(dbc).Create(p).Error
}

func (r *studentProfileRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.StudentProfile, error) {
	var p types.StudentProfile
	err := r.conn(dbc).Preload("User").Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *studentProfileRepo) GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.StudentProfile, error) {
	var p types.StudentProfile
	err := r.conn(dbc).Where("user_id = ?", userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *studentProfileRepo) DeleteByUserID(dbc dbctx.Context, userID uuid.UUID) error {
	return r.conn(dbc).Where("user_id = ?", userID).Delete(&types.StudentProfile{}).Error
}
