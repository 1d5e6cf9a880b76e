package services

import (
	"context"
	"testing"

	"github.com/yungbote/aula-backend/internal/data/repos/testutil"
	types "github.com/yungbote/aula-backend/internal/domain"
	"github.com/yungbote/aula-backend/internal/platform/apierr"
)

func TestChangeRoleRules(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	inst := testutil.SeedInstitution(t, e.db, "Colegio X")
	admin := testutil.SeedUser(t, e.db, types.RoleAdmin, "a@example.com", 0)
	tu, tp := testutil.SeedTeacher(t, e.db, "t@example.com", &inst.ID)
	idle, _ := testutil.SeedTeacher(t, e.db, "idle@example.com", &inst.ID)
	su, sp := testutil.SeedStudent(t, e.db, "s@example.com")
	grade := testutil.SeedGrade(t, e.db, "5A", inst.ID, tp.ID)
	testutil.SeedEnrollment(t, e.db, grade.ID, sp.ID)

	if _, err := e.admin.ChangeRole(ctx, actorOf(admin), admin.ID, types.RoleTeacher); apierr.CodeOf(err) != "own_role" {
		t.Fatalf("own role: want own_role got=%v", err)
	}
	if _, err := e.admin.ChangeRole(ctx, actorOf(admin), tu.ID, types.RoleStudent); apierr.CodeOf(err) != "teacher_has_grades" {
		t.Fatalf("teacher with grades: want teacher_has_grades got=%v", err)
	}
	if _, err := e.admin.ChangeRole(ctx, actorOf(admin), tu.ID, "JANITOR"); apierr.CodeOf(err) != "invalid_role" {
		t.Fatalf("bad role: want invalid_role got=%v", err)
	}

	u, err := e.admin.ChangeRole(ctx, actorOf(admin), idle.ID, types.RoleStudent)
	if err != nil {
		t.Fatalf("teacher to student: %v", err)
	}
	if u.Role != types.RoleStudent || u.StudentProfile == nil || u.TeacherProfile != nil {
		t.Fatalf("teacher to student: unexpected %+v", u)
	}

	u, err = e.admin.ChangeRole(ctx, actorOf(admin), su.ID, types.RoleTeacher)
	if err != nil {
		t.Fatalf("student to teacher: %v", err)
	}
	if u.Role != types.RoleTeacher || u.TeacherProfile == nil || u.StudentProfile != nil {
		t.Fatalf("student to teacher: unexpected %+v", u)
	}
	if n := e.count(t, &types.GradeStudent{}, "student_profile_id = ?", sp.ID); n != 0 {
		t.Fatalf("enrollments after role change: want=0 got=%d", n)
	}
}

func TestAdminCreateListAndDelete(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	inst := testutil.SeedInstitution(t, e.db, "Colegio X")
	other := testutil.SeedInstitution(t, e.db, "Colegio Y")
	admin := testutil.SeedUser(t, e.db, types.RoleAdmin, "a@example.com", 0)
	tu, _ := testutil.SeedTeacher(t, e.db, "t@example.com", &inst.ID)

	created, err := e.admin.Create(ctx, CreateUserInput{
		Email: "kid@example.com", Password: "secret1", FirstName: "K", LastName: "D",
		Role: types.RoleStudent, InstitutionID: &inst.ID,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.StudentProfile == nil || created.Credits != testSignupCredits {
		t.Fatalf("Create: unexpected %+v", created)
	}
	foreign, err := e.admin.Create(ctx, CreateUserInput{
		Email: "far@example.com", Password: "secret1", FirstName: "F", LastName: "A",
		Role: types.RoleStudent, InstitutionID: &other.ID,
	})
	if err != nil {
		t.Fatalf("Create foreign: %v", err)
	}

	_, total, err := e.admin.List(ctx, actorOf(tu), UserListFilter{})
	if err != nil || total != 2 {
		t.Fatalf("teacher List scoped to institution: want=2 got=%d err=%v", total, err)
	}
	if _, err := e.admin.Get(ctx, actorOf(tu), foreign.ID); apierr.CodeOf(err) != "foreign_institution" {
		t.Fatalf("teacher Get foreign: want foreign_institution got=%v", err)
	}
	_, total, err = e.admin.List(ctx, actorOf(admin), UserListFilter{Role: types.RoleStudent})
	if err != nil || total != 2 {
		t.Fatalf("admin List students: want=2 got=%d err=%v", total, err)
	}

	newEmail := "Kid2@Example.com"
	updated, err := e.admin.Update(ctx, created.ID, UpdateUserInput{Email: &newEmail, ClearInstitution: true})
	if err != nil || updated.Email != "kid2@example.com" || updated.InstitutionID != nil {
		t.Fatalf("Update: unexpected %+v err=%v", updated, err)
	}
	taken := "t@example.com"
	if _, err := e.admin.Update(ctx, created.ID, UpdateUserInput{Email: &taken}); apierr.CodeOf(err) != "email_taken" {
		t.Fatalf("Update to taken email: want email_taken got=%v", err)
	}

	if err := e.admin.ResetPassword(ctx, created.ID, "brandnew"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
	if _, err := e.auth.Login(ctx, "kid2@example.com", "brandnew"); err != nil {
		t.Fatalf("Login after reset: %v", err)
	}
	if _, err := e.admin.SetActive(ctx, actorOf(admin), admin.ID, false); apierr.CodeOf(err) != "own_account" {
		t.Fatalf("self deactivate: want own_account got=%v", err)
	}

	testutil.SeedActivity(t, e.db, created.ID, "QUIZ", types.VisibilityPrivate, `{}`)
	if err := e.admin.Delete(ctx, actorOf(admin), created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	for name, model := range map[string]any{
		"user":           &types.User{},
		"activities":     &types.Activity{},
		"credit history": &types.CreditHistory{},
	} {
		col := "user_id"
		if name == "user" {
			col = "id"
		}
		if n := e.count(t, model, col+" = ?", created.ID); n != 0 {
			t.Fatalf("%s after delete: want=0 got=%d", name, n)
		}
	}
	if n := e.count(t, &types.StudentProfile{}, "user_id = ?", created.ID); n != 0 {
		t.Fatalf("student profile after delete: want=0 got=%d", n)
	}
}

func TestStats(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	inst := testutil.SeedInstitution(t, e.db, "Colegio X")
	tu, tp := testutil.SeedTeacher(t, e.db, "t@example.com", &inst.ID)
	_, sp := testutil.SeedStudent(t, e.db, "s@example.com")
	testutil.SeedUser(t, e.db, types.RoleAdmin, "a@example.com", 0)
	grade := testutil.SeedGrade(t, e.db, "5A", inst.ID, tp.ID)
	testutil.SeedEnrollment(t, e.db, grade.ID, sp.ID)
	testutil.SeedInvitationCode(t, e.db, "CODE2345", grade, tu.ID, nil)
	testutil.SeedActivity(t, e.db, tu.ID, "QUIZ", types.VisibilityPublic, `{}`)
	testutil.SeedActivity(t, e.db, tu.ID, "EXAM", types.VisibilityPublic, `{}`)
	if _, err := e.credits.Debit(dbcOf(ctx), DebitInput{UserID: tu.ID, Amount: 10, Provider: types.ProviderOpenAI}); err != nil {
		t.Fatalf("Debit: %v", err)
	}

	s, err := e.admin.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if s.TotalUsers != 3 || s.UsersByRole[types.RoleTeacher] != 1 {
		t.Fatalf("users: unexpected %+v", s.UsersByRole)
	}
	if s.Institutions != 1 || s.ActiveInstitutions != 1 || s.Grades != 1 || s.Enrollments != 1 || s.InvitationCodes != 1 {
		t.Fatalf("counts: unexpected %+v", s)
	}
	if s.TotalActivities != 2 || s.ActivitiesByType["QUIZ"] != 1 {
		t.Fatalf("activities: unexpected %+v", s.ActivitiesByType)
	}
	if s.CreditsSpent != 10 {
		t.Fatalf("credits spent: want=10 got=%d", s.CreditsSpent)
	}
}
