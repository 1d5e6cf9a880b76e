package services

import (
	"context"
	"sync"
	"testing"

	"github.com/yungbote/aula-backend/internal/data/repos/testutil"
	types "github.com/yungbote/aula-backend/internal/domain"
	"github.com/yungbote/aula-backend/internal/pkg/dbctx"
	"github.com/yungbote/aula-backend/internal/platform/apierr"
)

func TestDebitInsufficientLeavesBalance(t *testing.T) {
	e := newEnv(t)
	dbc := dbctx.Context{Ctx: context.Background()}
	u := testutil.SeedUser(t, e.db, types.RoleTeacher, "t@example.com", 5)

	_, err := e.credits.Debit(dbc, DebitInput{UserID: u.ID, Amount: 10, Provider: types.ProviderOpenAI})
	if !apierr.IsKind(err, apierr.KindInsufficientCredits) {
		t.Fatalf("Debit: want insufficient_credits got=%v", err)
	}
	if got := e.balance(t, u); got != 5 {
		t.Fatalf("balance after failed debit: want=5 got=%d", got)
	}
	if n := e.count(t, &types.CreditHistory{}, "user_id = ?", u.ID); n != 0 {
		t.Fatalf("history rows after failed debit: want=0 got=%d", n)
	}
}

func TestDebitAndCreditWriteOneHistoryRowEach(t *testing.T) {
	e := newEnv(t)
	dbc := dbctx.Context{Ctx: context.Background()}
	u := testutil.SeedUser(t, e.db, types.RoleTeacher, "t@example.com", 20)
	admin := testutil.SeedUser(t, e.db, types.RoleAdmin, "a@example.com", 0)

	d, err := e.credits.Debit(dbc, DebitInput{UserID: u.ID, Amount: 10, Provider: types.ProviderOpenAI, Description: "gen"})
	if err != nil {
		t.Fatalf("Debit: %v", err)
	}
	if d.Amount != -10 || d.BalanceAfter != 10 || d.Provider == nil || *d.Provider != "OPENAI" {
		t.Fatalf("debit entry: unexpected %+v", d)
	}
	c, err := e.credits.Credit(dbc, CreditInput{UserID: u.ID, Amount: 7, Description: "top-up", CreatedByID: &admin.ID})
	if err != nil {
		t.Fatalf("Credit: %v", err)
	}
	if c.Amount != 7 || c.BalanceAfter != 17 || c.CreatedByID == nil || *c.CreatedByID != admin.ID {
		t.Fatalf("credit entry: unexpected %+v", c)
	}

	bal, err := e.credits.GetBalance(dbc, u.ID)
	if err != nil || bal != 17 {
		t.Fatalf("GetBalance: want=17 got=%d err=%v", bal, err)
	}
	rows, total, err := e.credits.History(dbc, u.ID, Page{})
	if err != nil || total != 2 || len(rows) != 2 {
		t.Fatalf("History: want=2 got=%d rows=%d err=%v", total, len(rows), err)
	}
}

func TestCreditValidation(t *testing.T) {
	e := newEnv(t)
	dbc := dbctx.Context{Ctx: context.Background()}
	u := testutil.SeedUser(t, e.db, types.RoleTeacher, "t@example.com", 20)

	if _, err := e.credits.Debit(dbc, DebitInput{UserID: u.ID, Amount: 0}); !apierr.IsKind(err, apierr.KindValidation) {
		t.Fatalf("zero debit: want validation got=%v", err)
	}
	if _, err := e.credits.Credit(dbc, CreditInput{UserID: u.ID, Amount: -3}); !apierr.IsKind(err, apierr.KindValidation) {
		t.Fatalf("negative credit: want validation got=%v", err)
	}
	missing := testutil.SeedUser(t, e.db, types.RoleTeacher, "gone@example.com", 0)
	if err := e.db.Delete(&types.User{}, "id = ?", missing.ID).Error; err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := e.credits.Credit(dbc, CreditInput{UserID: missing.ID, Amount: 3}); !apierr.IsKind(err, apierr.KindNotFound) {
		t.Fatalf("credit unknown user: want not_found got=%v", err)
	}
}

func TestCostFor(t *testing.T) {
	e := newEnv(t)
	for p, want := range testCosts {
		got, err := e.credits.CostFor(p)
		if err != nil || got != want {
			t.Fatalf("CostFor(%s): want=%d got=%d err=%v", p, want, got, err)
		}
	}
	if _, err := e.credits.CostFor(types.Provider("CLAUDE")); apierr.CodeOf(err) != "unknown_provider" {
		t.Fatalf("CostFor unknown: want unknown_provider got=%v", err)
	}
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	e := newEnv(t)
	u := testutil.SeedUser(t, e.db, types.RoleTeacher, "t@example.com", 30)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.credits.Debit(dbctx.Context{Ctx: context.Background()}, DebitInput{UserID: u.ID, Amount: 10, Provider: types.ProviderOpenAI})
			if err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if ok != 3 {
		t.Fatalf("successful debits: want=3 got=%d", ok)
	}
	if got := e.balance(t, u); got != 0 {
		t.Fatalf("final balance: want=0 got=%d", got)
	}
	if n := e.count(t, &types.CreditHistory{}, "user_id = ?", u.ID); n != 3 {
		t.Fatalf("history rows: want=3 got=%d", n)
	}
}
