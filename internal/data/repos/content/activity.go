package content

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/aula-backend/internal/domain"
	"github.com/yungbote/aula-backend/internal/pkg/ctxutil"
	"github.com/yungbote/aula-backend/internal/pkg/dbctx"
	"github.com/yungbote/aula-backend/internal/pkg/logger"
)

// ActivityFilter fields are exact matches; empty values are ignored.
type ActivityFilter struct {
	OwnerID    *uuid.UUID
	Visibility types.Visibility
	Type       types.ActivityType
	Subject    string
	GradeLevel string
	Offset     int
	Limit      int
}

type ActivityRepo interface {
	Create(dbc dbctx.Context, a *types.Activity) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Activity, error)
	List(dbc dbctx.Context, f ActivityFilter) ([]*types.Activity, int64, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	Delete(dbc dbctx.Context, id uuid.UUID) error
	DeleteByUser(dbc dbctx.Context, userID uuid.UUID) error
	CountByType(dbc dbctx.Context) (map[types.ActivityType]int64, error)
}

type activityRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewActivityRepo(db *gorm.DB, baseLog *logger.Logger) ActivityRepo {
	return &activityRepo{db: db, log: baseLog.With("repo", "ActivityRepo")}
}

func (r *activityRepo) conn(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctxutil.Default(dbc.Ctx))
}

func (r *activityRepo) Create(dbc dbctx.Context, a *types.Activity) error {
	return r.conn(dbc).Create(a).Error
}

func (r *activityRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Activity, error) {
	var a types.Activity
	err := r.conn(dbc).Where("id = ?", id).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *activityRepo) List(dbc dbctx.Context, f ActivityFilter) ([]*types.Activity, int64, error) {
	q := r.conn(dbc).Model(&types.Activity{})
	if f.OwnerID != nil {
		q = q.Where("user_id = ?", *f.OwnerID)
	}
	if f.Visibility != "" {
		q = q.Where("visibility = ?", f.Visibility)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.Subject != "" {
		q = q.Where("subject = ?", f.Subject)
	}
	if f.GradeLevel != "" {
		q = q.Where("grade_level = ?", f.GradeLevel)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []*types.Activity
	q = q.Order("created_at DESC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *activityRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return r.conn(dbc).Model(&types.Activity{}).Where("id = ?", id).Updates(updates).Error
}

func (r *activityRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	return r.conn(dbc).Where("id = ?", id).Delete(&types.Activity{}).Error
}

func (r *activityRepo) DeleteByUser(dbc dbctx.Context, userID uuid.UUID) error {
	return r.conn(dbc).Where("user_id = ?", userID).Delete(&types.Activity{}).Error
}

func (r *activityRepo) CountByType(dbc dbctx.Context) (map[types.ActivityType]int64, error) {
	var rows []struct {
		Type  types.ActivityType
		Count int64
	}
	if err := r.conn(dbc).
		Model(&types.Activity{}).
		Select("type, COUNT(*) AS count").
		Group("type").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := map[types.ActivityType]int64{}
	for _, row := range rows {
		out[row.Type] = row.Count
	}
	return out, nil
}
