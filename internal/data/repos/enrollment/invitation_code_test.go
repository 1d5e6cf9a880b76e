package enrollment

import (
	"context"
	"testing"

	"github.com/yungbote/aula-backend/internal/data/repos/testutil"
	"github.com/yungbote/aula-backend/internal/pkg/dbctx"
)

func TestIncrementUsageRespectsCap(t *testing.T) {
	db := testutil.DB(t)
	repo := NewInvitationCodeRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}

	inst := testutil.SeedInstitution(t, db, "Colegio X")
	teacherUser, teacher := testutil.SeedTeacher(t, db, "t@example.com", &inst.ID)
	grade := testutil.SeedGrade(t, db, "5A", inst.ID, teacher.ID)
	two := 2
	code := testutil.SeedInvitationCode(t, db, "ABCD2345", grade, teacherUser.ID, &two)

	for i := 0; i < 2; i++ {
		ok, err := repo.IncrementUsage(dbc, code.ID)
		if err != nil || !ok {
			t.Fatalf("IncrementUsage #%d: want=true got=%v err=%v", i+1, ok, err)
		}
	}
	ok, err := repo.IncrementUsage(dbc, code.ID)
	if err != nil || ok {
		t.Fatalf("IncrementUsage over cap: want=false got=%v err=%v", ok, err)
	}

	got, err := repo.GetByCode(dbc, "ABCD2345")
	if err != nil || got == nil {
		t.Fatalf("GetByCode: %v", err)
	}
	if got.UsedCount != 2 {
		t.Fatalf("UsedCount: want=2 got=%d", got.UsedCount)
	}
	if got.Grade == nil || got.Institution == nil {
		t.Fatalf("GetByCode: relations not preloaded")
	}

	if err := repo.UpdateFields(dbc, code.ID, map[string]interface{}{"is_active": false, "max_uses": nil}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	if ok, _ := repo.IncrementUsage(dbc, code.ID); ok {
		t.Fatalf("IncrementUsage on inactive code: want=false")
	}
}
