package testutil

import (
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/aula-backend/internal/domain"
)

func SeedUser(tb testing.TB, conn *gorm.DB, role types.Role, email string, credits int) *types.User {
	tb.Helper()
	u := &types.User{
		ID:        uuid.New(),
		Email:     email,
		Password:  "pw",
		FirstName: "A",
		LastName:  "B",
		Role:      role,
		Credits:   credits,
		IsActive:  true,
	}
	if err := conn.Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedInstitution(tb testing.TB, conn *gorm.DB, name string) *types.Institution {
	tb.Helper()
	inst := &types.Institution{ID: uuid.New(), Name: name, IsActive: true}
	if err := conn.Create(inst).Error; err != nil {
		tb.Fatalf("seed institution: %v", err)
	}
	return inst
}

func SeedTeacher(tb testing.TB, conn *gorm.DB, email string, institutionID *uuid.UUID) (*types.User, *types.TeacherProfile) {
	tb.Helper()
	u := SeedUser(tb, conn, types.RoleTeacher, email, 100)
	if institutionID != nil {
		if err := conn.Model(u).Update("institution_id", *institutionID).Error; err != nil {
			tb.Fatalf("seed teacher institution: %v", err)
		}
		u.InstitutionID = institutionID
	}
	p := &types.TeacherProfile{ID: uuid.New(), UserID: u.ID}
	if err := conn.Create(p).Error; err != nil {
		tb.Fatalf("seed teacher profile: %v", err)
	}
	return u, p
}

func SeedStudent(tb testing.TB, conn *gorm.DB, email string) (*types.User, *types.StudentProfile) {
	tb.Helper()
	u := SeedUser(tb, conn, types.RoleStudent, email, 0)
	p := &types.StudentProfile{ID: uuid.New(), UserID: u.ID}
	if err := conn.Create(p).Error; err != nil {
		tb.Fatalf("seed student profile: %v", err)
	}
	return u, p
}

func SeedGrade(tb testing.TB, conn *gorm.DB, name string, institutionID, teacherProfileID uuid.UUID) *types.Grade {
	tb.Helper()
	g := &types.Grade{
		ID:               uuid.New(),
		Name:             name,
		InstitutionID:    institutionID,
		TeacherProfileID: teacherProfileID,
		IsActive:         true,
	}
	if err := conn.Omit("Institution", "Teacher", "Students").Create(g).Error; err != nil {
		tb.Fatalf("seed grade: %v", err)
	}
	return g
}

func SeedEnrollment(tb testing.TB, conn *gorm.DB, gradeID, studentProfileID uuid.UUID) {
	tb.Helper()
	if err := conn.Create(&types.GradeStudent{GradeID: gradeID, StudentProfileID: studentProfileID}).Error; err != nil {
		tb.Fatalf("seed enrollment: %v", err)
	}
}

func SeedActivity(tb testing.TB, conn *gorm.DB, ownerID uuid.UUID, typ types.ActivityType, vis types.Visibility, content string) *types.Activity {
	tb.Helper()
	a := &types.Activity{
		ID:         uuid.New(),
		UserID:     ownerID,
		Type:       typ,
		Title:      "activity",
		Visibility: vis,
		Content:    datatypes.JSON([]byte(content)),
		Provider:   types.ProviderOpenAI,
	}
	if err := conn.Create(a).Error; err != nil {
		tb.Fatalf("seed activity: %v", err)
	}
	return a
}

func SeedInvitationCode(tb testing.TB, conn *gorm.DB, code string, grade *types.Grade, creatorID uuid.UUID, maxUses *int) *types.InvitationCode {
	tb.Helper()
	c := &types.InvitationCode{
		ID:            uuid.New(),
		Code:          code,
		GradeID:       grade.ID,
		InstitutionID: grade.InstitutionID,
		CreatedByID:   creatorID,
		MaxUses:       maxUses,
		IsActive:      true,
	}
	if err := conn.Omit("Grade", "Institution").Create(c).Error; err != nil {
		tb.Fatalf("seed invitation code: %v", err)
	}
	return c
}
