package user

import (
	"context"
	"testing"

	"github.com/yungbote/aula-backend/internal/data/repos/testutil"
	types "github.com/yungbote/aula-backend/internal/domain"
	"github.com/yungbote/aula-backend/internal/pkg/dbctx"
)

func TestUserRepo(t *testing.T) {
	db := testutil.DB(t)
	repo := NewUserRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}

	u := &types.User{Email: "userrepo@example.com", Password: "pw", FirstName: "A", LastName: "B", Role: types.RoleTeacher, Credits: 5, IsActive: true}
	if err := repo.Create(dbc, u); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.GetByEmail(dbc, "userrepo@example.com")
	if err != nil || got == nil || got.ID != u.ID {
		t.Fatalf("GetByEmail: want=%s got=%+v err=%v", u.ID, got, err)
	}

	missing, err := repo.GetByEmail(dbc, "nobody@example.com")
	if err != nil || missing != nil {
		t.Fatalf("GetByEmail (missing): want=nil got=%+v err=%v", missing, err)
	}

	exists, err := repo.EmailExists(dbc, u.Email)
	if err != nil || !exists {
		t.Fatalf("EmailExists: want=true got=%v err=%v", exists, err)
	}

	ok, err := repo.DebitCredits(dbc, u.ID, 10)
	if err != nil {
		t.Fatalf("DebitCredits: %v", err)
	}
	if ok {
		t.Fatalf("DebitCredits over balance: want=false got=true")
	}
	ok, err = repo.DebitCredits(dbc, u.ID, 5)
	if err != nil || !ok {
		t.Fatalf("DebitCredits exact: want=true got=%v err=%v", ok, err)
	}
	if _, err := repo.AddCredits(dbc, u.ID, 3); err != nil {
		t.Fatalf("AddCredits: %v", err)
	}
	after, _ := repo.GetByID(dbc, u.ID)
	if after.Credits != 3 {
		t.Fatalf("credits: want=3 got=%d", after.Credits)
	}

	if err := repo.Create(dbc, &types.User{Email: u.Email, Password: "pw", Role: types.RoleStudent}); err == nil {
		t.Fatalf("Create duplicate email: want error")
	}
}

func TestUserRepoListAndCount(t *testing.T) {
	db := testutil.DB(t)
	repo := NewUserRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}

	testutil.SeedUser(t, db, types.RoleTeacher, "t1@example.com", 0)
	testutil.SeedUser(t, db, types.RoleStudent, "s1@example.com", 0)
	testutil.SeedUser(t, db, types.RoleStudent, "s2@example.com", 0)

	students, total, err := repo.List(dbc, UserFilter{Role: types.RoleStudent, Limit: 1})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 2 || len(students) != 1 {
		t.Fatalf("List: want total=2 page=1 got total=%d page=%d", total, len(students))
	}

	_, total, err = repo.List(dbc, UserFilter{Search: "T1@"})
	if err != nil || total != 1 {
		t.Fatalf("List search: want=1 got=%d err=%v", total, err)
	}

	counts, err := repo.CountByRole(dbc)
	if err != nil {
		t.Fatalf("CountByRole: %v", err)
	}
	if counts[types.RoleStudent] != 2 || counts[types.RoleTeacher] != 1 {
		t.Fatalf("CountByRole: unexpected %+v", counts)
	}
}
