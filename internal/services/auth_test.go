package services

import (
	"context"
	"testing"
	"time"

	"github.com/yungbote/aula-backend/internal/data/repos/testutil"
	types "github.com/yungbote/aula-backend/internal/domain"
	"github.com/yungbote/aula-backend/internal/pkg/ctxutil"
	"github.com/yungbote/aula-backend/internal/platform/apierr"
)

func TestRegisterGrantsSignupCreditsThroughLedger(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	res, err := e.auth.Register(ctx, RegisterInput{Email: "new@example.com", Password: "secret1", FirstName: "N", LastName: "U", Role: "student"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if res.User.Role != types.RoleStudent || res.User.Credits != testSignupCredits || res.Token == "" {
		t.Fatalf("Register: unexpected %+v", res.User)
	}
	if n := e.count(t, &types.CreditHistory{}, "user_id = ? AND amount = ?", res.User.ID, testSignupCredits); n != 1 {
		t.Fatalf("signup history rows: want=1 got=%d", n)
	}
	if n := e.count(t, &types.StudentProfile{}, "user_id = ?", res.User.ID); n != 1 {
		t.Fatalf("student profile: want=1 got=%d", n)
	}

	_, err = e.auth.Register(ctx, RegisterInput{Email: " NEW@example.com", Password: "secret1", FirstName: "N", LastName: "U"})
	if apierr.CodeOf(err) != "email_taken" || !apierr.IsKind(err, apierr.KindConflict) {
		t.Fatalf("duplicate email: want email_taken got=%v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	inactive := testutil.SeedInstitution(t, e.db, "Closed")
	if err := e.db.Model(inactive).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	cases := []struct {
		name string
		in   RegisterInput
		code string
	}{
		{"admin role", RegisterInput{Email: "a@example.com", Password: "secret1", FirstName: "A", LastName: "B", Role: "ADMIN"}, "invalid_role"},
		{"short password", RegisterInput{Email: "a@example.com", Password: "123", FirstName: "A", LastName: "B"}, "invalid_input"},
		{"bad email", RegisterInput{Email: "not-an-email", Password: "secret1", FirstName: "A", LastName: "B"}, "invalid_input"},
		{"inactive institution", RegisterInput{Email: "a@example.com", Password: "secret1", FirstName: "A", LastName: "B", InstitutionID: &inactive.ID}, "invalid_institution"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.auth.Register(ctx, tc.in)
			if apierr.CodeOf(err) != tc.code {
				t.Fatalf("Register: want=%s got=%v", tc.code, err)
			}
		})
	}
}

func TestLoginAndTokenContext(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	reg, err := e.auth.Register(ctx, RegisterInput{Email: "t@example.com", Password: "secret1", FirstName: "T", LastName: "U"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, err := e.auth.Login(ctx, "t@example.com", "wrong-pw"); apierr.CodeOf(err) != "invalid_credentials" {
		t.Fatalf("Login bad password: want invalid_credentials got=%v", err)
	}
	res, err := e.auth.Login(ctx, "T@Example.com", "secret1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	authed, err := e.auth.SetContextFromToken(ctx, res.Token)
	if err != nil {
		t.Fatalf("SetContextFromToken: %v", err)
	}
	rd := ctxutil.GetRequestData(authed)
	if rd == nil || rd.UserID != reg.User.ID || rd.Role != string(types.RoleTeacher) {
		t.Fatalf("request data: unexpected %+v", rd)
	}
	actor, err := ActorFromContext(authed)
	if err != nil || actor.UserID != reg.User.ID || !actor.IsTeacher() {
		t.Fatalf("ActorFromContext: unexpected %+v err=%v", actor, err)
	}

	if err := e.db.Model(&types.User{}).Where("id = ?", reg.User.ID).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := e.auth.SetContextFromToken(ctx, res.Token); apierr.CodeOf(err) != "account_disabled" {
		t.Fatalf("token of disabled user: want account_disabled got=%v", err)
	}
	if _, err := e.auth.Login(ctx, "t@example.com", "secret1"); apierr.CodeOf(err) != "account_disabled" {
		t.Fatalf("Login disabled: want account_disabled got=%v", err)
	}
	if _, err := e.auth.ParseToken(res.Token + "x"); apierr.CodeOf(err) != "invalid_token" {
		t.Fatalf("tampered token: want invalid_token got=%v", err)
	}
}

func TestExpiredToken(t *testing.T) {
	e := newEnv(t)
	log := testutil.Logger(t)
	short := NewAuthService(e.db, log, e.users, e.teachers, e.students, nil, e.grades, e.credits, 0, "test-secret", time.Nanosecond)
	u := testutil.SeedUser(t, e.db, types.RoleTeacher, "t@example.com", 0)
	tok, _, err := short.IssueToken(u)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	time.Sleep(1100 * time.Millisecond)
	if _, err := short.ParseToken(tok); apierr.CodeOf(err) != "token_expired" {
		t.Fatalf("ParseToken: want token_expired got=%v", err)
	}
}

func TestChangePasswordAndProfile(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	inst := testutil.SeedInstitution(t, e.db, "Colegio X")
	reg, err := e.auth.Register(ctx, RegisterInput{Email: "t@example.com", Password: "secret1", FirstName: "T", LastName: "U", InstitutionID: &inst.ID})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := e.gradeSvc.Create(ctx, actorOf(reg.User), GradeInput{Name: "5A"}); err != nil {
		t.Fatalf("create grade: %v", err)
	}

	p, err := e.auth.Profile(ctx, reg.User.ID)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if p.Institution == nil || p.Institution.ID != inst.ID || len(p.Grades) != 1 || p.User.TeacherProfile == nil {
		t.Fatalf("Profile: unexpected %+v", p)
	}

	if err := e.auth.ChangePassword(ctx, reg.User.ID, "nope", "another1"); apierr.CodeOf(err) != "invalid_credentials" {
		t.Fatalf("ChangePassword wrong current: want invalid_credentials got=%v", err)
	}
	if err := e.auth.ChangePassword(ctx, reg.User.ID, "secret1", "abc"); apierr.CodeOf(err) != "weak_password" {
		t.Fatalf("ChangePassword weak: want weak_password got=%v", err)
	}
	if err := e.auth.ChangePassword(ctx, reg.User.ID, "secret1", "another1"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if _, err := e.auth.Login(ctx, "t@example.com", "another1"); err != nil {
		t.Fatalf("Login with new password: %v", err)
	}
}
