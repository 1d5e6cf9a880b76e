package services

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/aula-backend/internal/data/dberr"
	"github.com/yungbote/aula-backend/internal/data/repos"
	types "github.com/yungbote/aula-backend/internal/domain"
	"github.com/yungbote/aula-backend/internal/pkg/dbctx"
	"github.com/yungbote/aula-backend/internal/pkg/logger"
	"github.com/yungbote/aula-backend/internal/platform/apierr"
)

type DebitInput struct {
	UserID      uuid.UUID
	Amount      int
	Provider    types.Provider
	Description string
	ActivityID  *uuid.UUID
}

type CreditInput struct {
	UserID      uuid.UUID
	Amount      int
	Description string
	CreatedByID *uuid.UUID
}

// CreditService is the credit ledger. Every balance mutation writes exactly one
// history row in the same transaction; Debit and Credit join dbc.Tx when set.
type CreditService interface {
	GetBalance(dbc dbctx.Context, userID uuid.UUID) (int, error)
	Debit(dbc dbctx.Context, in DebitInput) (*types.CreditHistory, error)
	Credit(dbc dbctx.Context, in CreditInput) (*types.CreditHistory, error)
	CostFor(provider types.Provider) (int, error)
	Costs() map[types.Provider]int
	History(dbc dbctx.Context, userID uuid.UUID, page Page) ([]*types.CreditHistory, int64, error)
}

type creditService struct {
	db      *gorm.DB
	log     *logger.Logger
	users   repos.UserRepo
	history repos.CreditHistoryRepo
	costs   map[types.Provider]int
}

func NewCreditService(
	db *gorm.DB,
	baseLog *logger.Logger,
	users repos.UserRepo,
	history repos.CreditHistoryRepo,
	costs map[types.Provider]int,
) CreditService {
	table := make(map[types.Provider]int, len(costs))
	for p, c := range costs {
		table[p] = c
	}
	return &creditService{
		db:      db,
		log:     baseLog.With("service", "CreditService"),
		users:   users,
		history: history,
		costs:   table,
	}
}

func (s *creditService) GetBalance(dbc dbctx.Context, userID uuid.UUID) (int, error) {
	u, err := s.users.GetByID(dbc, userID)
	if err != nil {
		return 0, dberr.Map("get balance", err)
	}
	if u == nil {
		return 0, apierr.NotFound("user_not_found", "user not found")
	}
	return u.Credits, nil
}

func (s *creditService) Debit(dbc dbctx.Context, in DebitInput) (*types.CreditHistory, error) {
	if in.Amount <= 0 {
		return nil, apierr.Validation("invalid_amount", "amount must be greater than zero")
	}
	var entry *types.CreditHistory
	err := dbctx.Run(dbc, s.db, func(inner dbctx.Context) error {
		ok, err := s.users.DebitCredits(inner, in.UserID, in.Amount)
		if err != nil {
			return dberr.Map("debit credits", err)
		}
		u, err := s.users.GetByID(inner, in.UserID)
		if err != nil {
			return dberr.Map("debit credits", err)
		}
		if u == nil {
			return apierr.NotFound("user_not_found", "user not found")
		}
		if !ok {
			return apierr.InsufficientCredits(u.Credits, in.Amount)
		}
		entry = &types.CreditHistory{
			UserID:       in.UserID,
			Amount:       -in.Amount,
			BalanceAfter: u.Credits,
			Description:  in.Description,
			ActivityID:   in.ActivityID,
		}
		if in.Provider != "" {
			p := string(in.Provider)
			entry.Provider = &p
		}
		if err := s.history.Create(inner, entry); err != nil {
			return dberr.Map("record debit", err)
		}
		return nil
	})
	if err != nil {
		if !apierr.IsKind(err, apierr.KindInsufficientCredits) {
			s.log.Warn("debit failed", "user_id", in.UserID, "amount", in.Amount, "error", err)
		}
		return nil, err
	}
	s.log.Debug("credits debited", "user_id", in.UserID, "amount", in.Amount, "balance_after", entry.BalanceAfter)
	return entry, nil
}

func (s *creditService) Credit(dbc dbctx.Context, in CreditInput) (*types.CreditHistory, error) {
	if in.Amount <= 0 {
		return nil, apierr.Validation("invalid_amount", "amount must be greater than zero")
	}
	var entry *types.CreditHistory
	err := dbctx.Run(dbc, s.db, func(inner dbctx.Context) error {
		ok, err := s.users.AddCredits(inner, in.UserID, in.Amount)
		if err != nil {
			return dberr.Map("add credits", err)
		}
		if !ok {
			return apierr.NotFound("user_not_found", "user not found")
		}
		u, err := s.users.GetByID(inner, in.UserID)
		if err != nil {
			return dberr.Map("add credits", err)
		}
		entry = &types.CreditHistory{
			UserID:       in.UserID,
			Amount:       in.Amount,
			BalanceAfter: u.Credits,
			Description:  in.Description,
			CreatedByID:  in.CreatedByID,
		}
		if err := s.history.Create(inner, entry); err != nil {
			return dberr.Map("record credit", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("credits added", "user_id", in.UserID, "amount", in.Amount, "balance_after", entry.BalanceAfter)
	return entry, nil
}

func (s *creditService) CostFor(provider types.Provider) (int, error) {
	cost, ok := s.costs[provider]
	if !ok {
		return 0, apierr.Validation("unknown_provider", fmt.Sprintf("unknown provider %q", provider))
	}
	return cost, nil
}

func (s *creditService) Costs() map[types.Provider]int {
	out := make(map[types.Provider]int, len(s.costs))
	for p, c := range s.costs {
		out[p] = c
	}
	return out
}

func (s *creditService) History(dbc dbctx.Context, userID uuid.UUID, page Page) ([]*types.CreditHistory, int64, error) {
	rows, total, err := s.history.ListByUser(dbc, userID, page.Offset(), page.Limit())
	if err != nil {
		return nil, 0, dberr.Map("credit history", err)
	}
	return rows, total, nil
}
