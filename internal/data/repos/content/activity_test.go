package content

import (
	"context"
	"testing"

	"github.com/yungbote/aula-backend/internal/data/repos/testutil"
	types "github.com/yungbote/aula-backend/internal/domain"
	"github.com/yungbote/aula-backend/internal/pkg/dbctx"
)

func TestActivityRepoFilters(t *testing.T) {
	db := testutil.DB(t)
	repo := NewActivityRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}

	owner := testutil.SeedUser(t, db, types.RoleTeacher, "owner@example.com", 0)
	other := testutil.SeedUser(t, db, types.RoleTeacher, "other@example.com", 0)

	mk := func(userID, typ, vis, subject string) {
		a := testutil.SeedActivity(t, db, owner.ID, types.ActivityType(typ), types.Visibility(vis), `{}`)
		if userID == "other" {
			_ = repo.UpdateFields(dbc, a.ID, map[string]interface{}{"user_id": other.ID})
		}
		_ = repo.UpdateFields(dbc, a.ID, map[string]interface{}{"subject": subject})
	}
	mk("owner", "EXAM", "PUBLIC", "Math")
	mk("owner", "QUIZ", "PRIVATE", "Math")
	mk("other", "EXAM", "PUBLIC", "History")
	mk("other", "EXAM", "PUBLIC", "Math")

	public, total, err := repo.List(dbc, ActivityFilter{Visibility: types.VisibilityPublic, Type: "EXAM", Subject: "Math"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 2 || len(public) != 2 {
		t.Fatalf("public EXAM/Math: want=2 got=%d", total)
	}

	mine, total, err := repo.List(dbc, ActivityFilter{OwnerID: &owner.ID})
	if err != nil || total != 2 || len(mine) != 2 {
		t.Fatalf("owner list: want=2 got=%d err=%v", total, err)
	}

	// Subject matching is exact, not substring.
	_, total, _ = repo.List(dbc, ActivityFilter{Subject: "Mat"})
	if total != 0 {
		t.Fatalf("partial subject: want=0 got=%d", total)
	}

	counts, err := repo.CountByType(dbc)
	if err != nil || counts["EXAM"] != 3 {
		t.Fatalf("CountByType: want EXAM=3 got=%+v err=%v", counts, err)
	}
}
