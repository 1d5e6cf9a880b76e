package enrollment

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/aula-backend/internal/domain"
	"github.com/yungbote/aula-backend/internal/pkg/ctxutil"
	"github.com/yungbote/aula-backend/internal/pkg/dbctx"
	"github.com/yungbote/aula-backend/internal/pkg/logger"
)

type InvitationCodeRepo interface {
	Create(dbc dbctx.Context, c *types.InvitationCode) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.InvitationCode, error)
	// GetByCode preloads the grade and institution.
	GetByCode(dbc dbctx.Context, code string) (*types.InvitationCode, error)
	CodeExists(dbc dbctx.Context, code string) (bool, error)
	ListByGrade(dbc dbctx.Context, gradeID uuid.UUID) ([]*types.InvitationCode, error)
	ListByCreator(dbc dbctx.Context, creatorID uuid.UUID) ([]*types.InvitationCode, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	// IncrementUsage bumps used_count while the code is active and under its cap.
	IncrementUsage(dbc dbctx.Context, id uuid.UUID) (bool, error)
	Delete(dbc dbctx.Context, id uuid.UUID) error
	DeleteByGrade(dbc dbctx.Context, gradeID uuid.UUID) error
	DeleteByCreator(dbc dbctx.Context, creatorID uuid.UUID) error
	Count(dbc dbctx.Context) (int64, error)
}

type invitationCodeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewInvitationCodeRepo(db *gorm.DB, baseLog *logger.Logger) InvitationCodeRepo {
	return &invitationCodeRepo{db: db, log: baseLog.With("repo", "InvitationCodeRepo")}
}

func (r *invitationCodeRepo) conn(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctxutil.Default(dbc.Ctx))
}

func (r *invitationCodeRepo) Create(dbc dbctx.Context, c *types.InvitationCode) error {
	return r.conn(dbc).Omit("Grade", "Institution").Create(c).Error
}

func (r *invitationCodeRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.InvitationCode, error) {
	var c types.InvitationCode
	err := r.conn(dbc).Preload("Grade").Preload("Institution").Where("id = ?", id).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *invitationCodeRepo) GetByCode(dbc dbctx.Context, code string) (*types.InvitationCode, error) {
	var c types.InvitationCode
	err := r.conn(dbc).Preload("Grade").Preload("Institution").Where("code = ?", code).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *invitationCodeRepo) CodeExists(dbc dbctx.Context, code string) (bool, error) {
	var n int64
	err := r.conn(dbc).Model(&types.InvitationCode{}).Where("code = ?", code).Count(&n).Error
	return n > 0, err
}

func (r *invitationCodeRepo) ListByGrade(dbc dbctx.Context, gradeID uuid.UUID) ([]*types.InvitationCode, error) {
	var out []*types.InvitationCode
	err := r.conn(dbc).Where("grade_id = ?", gradeID).Order("created_at DESC").Find(&out).Error
	return out, err
}

func (r *invitationCodeRepo) ListByCreator(dbc dbctx.Context, creatorID uuid.UUID) ([]*types.InvitationCode, error) {
	var out []*types.InvitationCode
	err := r.conn(dbc).Preload("Grade").Where("created_by_id = ?", creatorID).Order("created_at DESC").Find(&out).Error
	return out, err
}

func (r *invitationCodeRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return r.conn(dbc).Model(&types.InvitationCode{}).Where("id = ?", id).Updates(updates).Error
}

func (r *invitationCodeRepo) IncrementUsage(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	res := r.conn(dbc).
		Model(&types.InvitationCode{}).
		Where("id = ? AND is_active = ? AND (max_uses IS NULL OR used_count < max_uses)", id, true).
		Update("used_count", gorm.Expr("used_count + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *invitationCodeRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	return r.conn(dbc).Where("id = ?", id).Delete(&types.InvitationCode{}).Error
}

func (r *invitationCodeRepo) DeleteByGrade(dbc dbctx.Context, gradeID uuid.UUID) error {
	return r.conn(dbc).Where("grade_id = ?", gradeID).Delete(&types.InvitationCode{}).Error
}

func (r *invitationCodeRepo) DeleteByCreator(dbc dbctx.Context, creatorID uuid.UUID) error {
	return r.conn(dbc).Where("created_by_id = ?", creatorID).Delete(&types.InvitationCode{}).Error
}

func (r *invitationCodeRepo) Count(dbc dbctx.Context) (int64, error) {
	var n int64
	err := r.conn(dbc).Model(&types.InvitationCode{}).Count(&n).Error
	return n, err
}
