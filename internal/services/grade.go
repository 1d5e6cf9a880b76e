package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/aula-backend/internal/data/dberr"
	"github.com/yungbote/aula-backend/internal/data/repos"
	types "github.com/yungbote/aula-backend/internal/domain"
	"github.com/yungbote/aula-backend/internal/pkg/dbctx"
	"github.com/yungbote/aula-backend/internal/pkg/logger"
	"github.com/yungbote/aula-backend/internal/platform/apierr"
)

type GradeInput struct {
	Name          string
	Level         string
	Section       string
	AcademicYear  string
	Description   string
	InstitutionID *uuid.UUID
	// TeacherID is the teacher's user id; required when an admin creates the grade.
	TeacherID *uuid.UUID
}

type GradeUpdate struct {
	Name         *string
	Level        *string
	Section      *string
	AcademicYear *string
	Description  *string
	IsActive     *bool
	TeacherID    *uuid.UUID
}

type GradeListFilter struct {
	InstitutionID *uuid.UUID
	Active        *bool
	Page          Page
}

type GradeService interface {
	Create(ctx context.Context, actor Actor, in GradeInput) (*types.Grade, error)
	Get(ctx context.Context, actor Actor, id uuid.UUID) (*types.Grade, error)
	List(ctx context.Context, actor Actor, f GradeListFilter) ([]*types.Grade, int64, error)
	Update(ctx context.Context, actor Actor, id uuid.UUID, in GradeUpdate) (*types.Grade, error)
	Delete(ctx context.Context, actor Actor, id uuid.UUID) error
	AddStudent(ctx context.Context, actor Actor, gradeID, studentUserID uuid.UUID) (*types.Grade, error)
	RemoveStudent(ctx context.Context, actor Actor, gradeID, studentUserID uuid.UUID) error
}

type gradeService struct {
	db           *gorm.DB
	log          *logger.Logger
	grades       repos.GradeRepo
	institutions repos.InstitutionRepo
	users        repos.UserRepo
	teachers     repos.TeacherProfileRepo
	students     repos.StudentProfileRepo
	enrollments  repos.EnrollmentRepo
	codes        repos.InvitationCodeRepo
}

func NewGradeService(
	db *gorm.DB,
	baseLog *logger.Logger,
	grades repos.GradeRepo,
	institutions repos.InstitutionRepo,
	users repos.UserRepo,
	teachers repos.TeacherProfileRepo,
	students repos.StudentProfileRepo,
	enrollments repos.EnrollmentRepo,
	codes repos.InvitationCodeRepo,
) GradeService {
	return &gradeService{
		db:           db,
		log:          baseLog.With("service", "GradeService"),
		grades:       grades,
		institutions: institutions,
		users:        users,
		teachers:     teachers,
		students:     students,
		enrollments:  enrollments,
		codes:        codes,
	}
}

// teacherFor resolves a teacher user id to its user row and profile.
func (s *gradeService) teacherFor(dbc dbctx.Context, userID uuid.UUID) (*types.User, *types.TeacherProfile, error) {
	u, err := s.users.GetByID(dbc, userID)
	if err != nil {
		return nil, nil, dberr.Map("get teacher", err)
	}
	if u == nil || u.Role != types.RoleTeacher {
		return nil, nil, apierr.Validation("invalid_teacher", "teacherId must reference a teacher").
			WithFields(apierr.FieldError{Field: "teacherId", Rule: "teacher"})
	}
	p, err := s.teachers.GetByUserID(dbc, userID)
	if err != nil {
		return nil, nil, dberr.Map("get teacher profile", err)
	}
	if p == nil {
		return nil, nil, apierr.Validation("invalid_teacher", "teacher has no profile")
	}
	return u, p, nil
}

func (s *gradeService) Create(ctx context.Context, actor Actor, in GradeInput) (*types.Grade, error) {
	dbc := dbctx.Context{Ctx: ctx}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apierr.Validation("missing_name", "name is required").
			WithFields(apierr.FieldError{Field: "name", Rule: "required"})
	}

	var teacherUserID uuid.UUID
	switch {
	case actor.IsTeacher():
		teacherUserID = actor.UserID
	case actor.IsAdmin():
		if in.TeacherID == nil {
			return nil, apierr.Validation("missing_teacher", "teacherId is required").
				WithFields(apierr.FieldError{Field: "teacherId", Rule: "required"})
		}
		teacherUserID = *in.TeacherID
	default:
		return nil, apierr.Forbidden("forbidden", "only teachers and admins can create grades")
	}
	teacher, profile, err := s.teacherFor(dbc, teacherUserID)
	if err != nil {
		return nil, err
	}

	instID := in.InstitutionID
	if actor.IsTeacher() && teacher.InstitutionID != nil {
		if instID != nil && *instID != *teacher.InstitutionID {
			return nil, apierr.Forbidden("foreign_institution", "teachers can only create grades in their own institution")
		}
		instID = teacher.InstitutionID
	}
	if instID == nil {
		instID = teacher.InstitutionID
	}
	if instID == nil {
		return nil, apierr.Validation("missing_institution", "institutionId is required").
			WithFields(apierr.FieldError{Field: "institutionId", Rule: "required"})
	}
	inst, err := s.institutions.GetByID(dbc, *instID)
	if err != nil {
		return nil, dberr.Map("get institution", err)
	}
	if inst == nil || !inst.IsActive {
		return nil, apierr.Validation("invalid_institution", "institution does not exist or is inactive")
	}

	g := &types.Grade{
		Name:             name,
		Level:            strings.TrimSpace(in.Level),
		Section:          strings.TrimSpace(in.Section),
		AcademicYear:     strings.TrimSpace(in.AcademicYear),
		Description:      strings.TrimSpace(in.Description),
		InstitutionID:    inst.ID,
		TeacherProfileID: profile.ID,
		IsActive:         true,
	}
	if err := s.grades.Create(dbc, g); err != nil {
		return nil, dberr.Map("create grade", err)
	}
	s.log.Info("grade created", "grade_id", g.ID, "institution_id", inst.ID, "teacher_profile_id", profile.ID)
	return g, nil
}

func (s *gradeService) load(dbc dbctx.Context, id uuid.UUID) (*types.Grade, error) {
	g, err := s.grades.GetByID(dbc, id)
	if err != nil {
		return nil, dberr.Map("get grade", err)
	}
	if g == nil {
		return nil, apierr.NotFound("grade_not_found", "grade not found")
	}
	return g, nil
}

func (s *gradeService) ownsGrade(dbc dbctx.Context, actor Actor, g *types.Grade) (bool, error) {
	if actor.IsAdmin() {
		return true, nil
	}
	if !actor.IsTeacher() {
		return false, nil
	}
	p, err := s.teachers.GetByUserID(dbc, actor.UserID)
	if err != nil {
		return false, dberr.Map("get teacher profile", err)
	}
	return p != nil && p.ID == g.TeacherProfileID, nil
}

func (s *gradeService) managed(dbc dbctx.Context, actor Actor, id uuid.UUID) (*types.Grade, error) {
	g, err := s.load(dbc, id)
	if err != nil {
		return nil, err
	}
	ok, err := s.ownsGrade(dbc, actor, g)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apierr.Forbidden("not_grade_owner", "only the grade's teacher or an admin can do this")
	}
	return g, nil
}

func (s *gradeService) Get(ctx context.Context, actor Actor, id uuid.UUID) (*types.Grade, error) {
	dbc := dbctx.Context{Ctx: ctx}
	g, err := s.grades.GetDetailed(dbc, id)
	if err != nil {
		return nil, dberr.Map("get grade", err)
	}
	if g == nil {
		return nil, apierr.NotFound("grade_not_found", "grade not found")
	}
	ok, err := s.ownsGrade(dbc, actor, g)
	if err != nil {
		return nil, err
	}
	if !ok && actor.IsStudent() {
		p, err := s.students.GetByUserID(dbc, actor.UserID)
		if err != nil {
			return nil, dberr.Map("get student profile", err)
		}
		if p != nil {
			if ok, err = s.enrollments.Exists(dbc, g.ID, p.ID); err != nil {
				return nil, dberr.Map("check enrollment", err)
			}
		}
	}
	if !ok {
		return nil, apierr.Forbidden("access_denied", "you do not have access to this grade")
	}
	return g, nil
}

func (s *gradeService) List(ctx context.Context, actor Actor, f GradeListFilter) ([]*types.Grade, int64, error) {
	dbc := dbctx.Context{Ctx: ctx}
	rf := repos.GradeFilter{Active: f.Active, Offset: f.Page.Offset(), Limit: f.Page.Limit()}
	switch {
	case actor.IsAdmin():
		rf.InstitutionID = f.InstitutionID
	case actor.IsTeacher():
		p, err := s.teachers.GetByUserID(dbc, actor.UserID)
		if err != nil {
			return nil, 0, dberr.Map("get teacher profile", err)
		}
		if p == nil {
			return []*types.Grade{}, 0, nil
		}
		rf.TeacherProfileID = &p.ID
	default:
		p, err := s.students.GetByUserID(dbc, actor.UserID)
		if err != nil {
			return nil, 0, dberr.Map("get student profile", err)
		}
		if p == nil {
			return []*types.Grade{}, 0, nil
		}
		rf.StudentProfileID = &p.ID
	}
	rows, total, err := s.grades.List(dbc, rf)
	if err != nil {
		return nil, 0, dberr.Map("list grades", err)
	}
	return rows, total, nil
}

func (s *gradeService) Update(ctx context.Context, actor Actor, id uuid.UUID, in GradeUpdate) (*types.Grade, error) {
	dbc := dbctx.Context{Ctx: ctx}
	if _, err := s.managed(dbc, actor, id); err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apierr.Validation("missing_name", "name cannot be empty")
		}
		updates["name"] = name
	}
	if in.Level != nil {
		updates["level"] = strings.TrimSpace(*in.Level)
	}
	if in.Section != nil {
		updates["section"] = strings.TrimSpace(*in.Section)
	}
	if in.AcademicYear != nil {
		updates["academic_year"] = strings.TrimSpace(*in.AcademicYear)
	}
	if in.Description != nil {
		updates["description"] = strings.TrimSpace(*in.Description)
	}
	if in.IsActive != nil {
		updates["is_active"] = *in.IsActive
	}
	if in.TeacherID != nil {
		if !actor.IsAdmin() {
			return nil, apierr.Forbidden("admin_only", "only admins can reassign a grade's teacher")
		}
		_, profile, err := s.teacherFor(dbc, *in.TeacherID)
		if err != nil {
			return nil, err
		}
		updates["teacher_profile_id"] = profile.ID
	}
	if len(updates) > 0 {
		if err := s.grades.UpdateFields(dbc, id, updates); err != nil {
			return nil, dberr.Map("update grade", err)
		}
	}
	return s.load(dbc, id)
}

// Delete removes the grade and its invitation codes; grades with enrolled students are kept.
func (s *gradeService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	err := dbctx.Run(dbctx.Context{Ctx: ctx}, s.db, func(inner dbctx.Context) error {
		if _, err := s.managed(inner, actor, id); err != nil {
			return err
		}
		n, err := s.enrollments.CountByGrade(inner, id)
		if err != nil {
			return dberr.Map("count enrollments", err)
		}
		if n > 0 {
			return apierr.Conflict("grade_has_students", "remove all students before deleting this grade")
		}
		if err := s.codes.DeleteByGrade(inner, id); err != nil {
			return dberr.Map("delete grade codes", err)
		}
		if err := s.grades.Delete(inner, id); err != nil {
			return dberr.Map("delete grade", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info("grade deleted", "grade_id", id, "by", actor.UserID)
	return nil
}

func (s *gradeService) studentFor(dbc dbctx.Context, userID uuid.UUID) (*types.StudentProfile, error) {
	u, err := s.users.GetByID(dbc, userID)
	if err != nil {
		return nil, dberr.Map("get student", err)
	}
	if u == nil {
		return nil, apierr.NotFound("student_not_found", "student not found")
	}
	if u.Role != types.RoleStudent {
		return nil, apierr.Validation("not_a_student", "user is not a student")
	}
	p, err := s.students.GetByUserID(dbc, userID)
	if err != nil {
		return nil, dberr.Map("get student profile", err)
	}
	if p == nil {
		p = &types.StudentProfile{UserID: userID}
		if err := s.students.Create(dbc, p); err != nil {
			return nil, dberr.Map("create student profile", err)
		}
	}
	return p, nil
}

func (s *gradeService) AddStudent(ctx context.Context, actor Actor, gradeID, studentUserID uuid.UUID) (*types.Grade, error) {
	err := dbctx.Run(dbctx.Context{Ctx: ctx}, s.db, func(inner dbctx.Context) error {
		if _, err := s.managed(inner, actor, gradeID); err != nil {
			return err
		}
		p, err := s.studentFor(inner, studentUserID)
		if err != nil {
			return err
		}
		return enrollStudent(inner, s.enrollments, gradeID, p.ID, nil)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, actor, gradeID)
}

func (s *gradeService) RemoveStudent(ctx context.Context, actor Actor, gradeID, studentUserID uuid.UUID) error {
	dbc := dbctx.Context{Ctx: ctx}
	if _, err := s.managed(dbc, actor, gradeID); err != nil {
		return err
	}
	p, err := s.students.GetByUserID(dbc, studentUserID)
	if err != nil {
		return dberr.Map("get student profile", err)
	}
	if p == nil {
		return apierr.NotFound("enrollment_not_found", "student is not enrolled in this grade")
	}
	removed, err := s.enrollments.Delete(dbc, gradeID, p.ID)
	if err != nil {
		return dberr.Map("remove enrollment", err)
	}
	if !removed {
		return apierr.NotFound("enrollment_not_found", "student is not enrolled in this grade")
	}
	return nil
}
