package school

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/aula-backend/internal/domain"
	"github.com/yungbote/aula-backend/internal/pkg/ctxutil"
	"github.com/yungbote/aula-backend/internal/pkg/dbctx"
	"github.com/yungbote/aula-backend/internal/pkg/logger"
)

type InstitutionFilter struct {
	Active *bool
	Search string
	Offset int
	Limit  int
}

type InstitutionRepo interface {
	Create(dbc dbctx.Context, inst *types.Institution) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Institution, error)
	List(dbc dbctx.Context, f InstitutionFilter) ([]*types.Institution, int64, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	Count(dbc dbctx.Context, activeOnly bool) (int64, error)
}

type institutionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewInstitutionRepo(db *gorm.DB, baseLog *logger.Logger) InstitutionRepo {
	return &institutionRepo{db: db, log: baseLog.With("repo", "InstitutionRepo")}
}

func (r *institutionRepo) conn(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctxutil.Default(dbc.Ctx))
}

func (r *institutionRepo) Create(dbc dbctx.Context, inst *types.Institution) error {
	return r.conn(dbc).Create(inst).Error
}

func (r *institutionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Institution, error) {
	var inst types.Institution
	err := r.conn(dbc).Where("id = ?", id).First(&inst).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

func (r *institutionRepo) List(dbc dbctx.Context, f InstitutionFilter) ([]*types.Institution, int64, error) {
	q := r.conn(dbc).Model(&types.Institution{})
	if f.Active != nil {
		q = q.Where("is_active = ?", *f.Active)
	}
	if s := strings.ToLower(strings.TrimSpace(f.Search)); s != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+s+"%")
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []*types.Institution
	q = q.Order("name ASC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *institutionRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return r.conn(dbc).Model(&types.Institution{}).Where("id = ?", id).Updates(updates).Error
}

func (r *institutionRepo) Count(dbc dbctx.Context, activeOnly bool) (int64, error) {
	q := r.conn(dbc).Model(&types.Institution{})
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var n int64
	err := q.Count(&n).Error
	return n, err
}
