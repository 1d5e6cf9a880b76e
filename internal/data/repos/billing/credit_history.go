package billing

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/aula-backend/internal/domain"
	"github.com/yungbote/aula-backend/internal/pkg/ctxutil"
	"github.com/yungbote/aula-backend/internal/pkg/dbctx"
	"github.com/yungbote/aula-backend/internal/pkg/logger"
)

// CreditHistoryRepo has no update path; rows are only appended, or removed with their user.
type CreditHistoryRepo interface {
	Create(dbc dbctx.Context, h *types.CreditHistory) error
	ListByUser(dbc dbctx.Context, userID uuid.UUID, offset, limit int) ([]*types.CreditHistory, int64, error)
	DeleteByUser(dbc dbctx.Context, userID uuid.UUID) error
	// TotalSpent sums every debit as a positive number.
	TotalSpent(dbc dbctx.Context) (int64, error)
}

type creditHistoryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCreditHistoryRepo(db *gorm.DB, baseLog *logger.Logger) CreditHistoryRepo {
	return &creditHistoryRepo{db: db, log: baseLog.With("repo", "CreditHistoryRepo")}
}

func (r *creditHistoryRepo) conn(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctxutil.Default(dbc.Ctx))
}

func (r *creditHistoryRepo) Create(dbc dbctx.Context, h *types.CreditHistory) error {
	return r.conn(dbc).Create(h).Error
}

func (r *creditHistoryRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID, offset, limit int) ([]*types.CreditHistory, int64, error) {
	q := r.conn(dbc).Model(&types.CreditHistory{}).Where("user_id = ?", userID)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []*types.CreditHistory
	q = q.Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *creditHistoryRepo) DeleteByUser(dbc dbctx.Context, userID uuid.UUID) error {
	return r.conn(dbc).Where("user_id = ?", userID).Delete(&types.CreditHistory{}).Error
}

func (r *creditHistoryRepo) TotalSpent(dbc dbctx.Context) (int64, error) {
	var sum int64
	err := r.conn(dbc).
		Model(&types.CreditHistory{}).
		Select("COALESCE(SUM(-amount), 0)").
		Where("amount < 0").
		Scan(&sum).Error
	return sum, err
}
