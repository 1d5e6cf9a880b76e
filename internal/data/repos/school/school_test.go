package school

import (
	"context"
	"testing"

	"github.com/yungbote/aula-backend/internal/data/dberr"
	"github.com/yungbote/aula-backend/internal/data/repos/testutil"
	types "github.com/yungbote/aula-backend/internal/domain"
	"github.com/yungbote/aula-backend/internal/pkg/dbctx"
)

func TestEnrollmentUniquePair(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	dbc := dbctx.Context{Ctx: context.Background()}

	inst := testutil.SeedInstitution(t, db, "Colegio X")
	_, teacher := testutil.SeedTeacher(t, db, "teacher@example.com", &inst.ID)
	grade := testutil.SeedGrade(t, db, "5A", inst.ID, teacher.ID)
	_, student := testutil.SeedStudent(t, db, "student@example.com")

	enrollments := NewEnrollmentRepo(db, log)
	if err := enrollments.Create(dbc, &types.GradeStudent{GradeID: grade.ID, StudentProfileID: student.ID}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	err := enrollments.Create(dbc, &types.GradeStudent{GradeID: grade.ID, StudentProfileID: student.ID})
	if !dberr.IsUnique(err) {
		t.Fatalf("duplicate enrollment: want unique violation got=%v", err)
	}

	exists, err := enrollments.Exists(dbc, grade.ID, student.ID)
	if err != nil || !exists {
		t.Fatalf("Exists: want=true got=%v err=%v", exists, err)
	}
	n, err := enrollments.CountByInstitution(dbc, inst.ID)
	if err != nil || n != 1 {
		t.Fatalf("CountByInstitution: want=1 got=%d err=%v", n, err)
	}

	grades := NewGradeRepo(db, log)
	byStudent, total, err := grades.List(dbc, GradeFilter{StudentProfileID: &student.ID})
	if err != nil || total != 1 || byStudent[0].ID != grade.ID {
		t.Fatalf("List by student: want=%s got=%+v total=%d err=%v", grade.ID, byStudent, total, err)
	}

	detailed, err := grades.GetDetailed(dbc, grade.ID)
	if err != nil {
		t.Fatalf("GetDetailed: %v", err)
	}
	if len(detailed.Students) != 1 || detailed.Students[0].User == nil {
		t.Fatalf("GetDetailed students: unexpected %+v", detailed.Students)
	}
	if detailed.Teacher == nil || detailed.Teacher.User == nil || detailed.Institution == nil {
		t.Fatalf("GetDetailed relations missing: %+v", detailed)
	}

	removed, err := enrollments.Delete(dbc, grade.ID, student.ID)
	if err != nil || !removed {
		t.Fatalf("Delete: want=true got=%v err=%v", removed, err)
	}
	if n, _ := enrollments.CountByGrade(dbc, grade.ID); n != 0 {
		t.Fatalf("CountByGrade after delete: want=0 got=%d", n)
	}
}

func TestInstitutionRepoSoftDelete(t *testing.T) {
	db := testutil.DB(t)
	repo := NewInstitutionRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}

	a := testutil.SeedInstitution(t, db, "Alpha")
	testutil.SeedInstitution(t, db, "Beta")

	if err := repo.UpdateFields(dbc, a.ID, map[string]interface{}{"is_active": false}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	active := true
	list, total, err := repo.List(dbc, InstitutionFilter{Active: &active})
	if err != nil || total != 1 || list[0].Name != "Beta" {
		t.Fatalf("List active: want=[Beta] got=%+v err=%v", list, err)
	}
	still, err := repo.GetByID(dbc, a.ID)
	if err != nil || still == nil || still.IsActive {
		t.Fatalf("GetByID after deactivate: want inactive row got=%+v err=%v", still, err)
	}
}
