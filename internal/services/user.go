package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/aula-backend/internal/data/dberr"
	"github.com/yungbote/aula-backend/internal/data/repos"
	types "github.com/yungbote/aula-backend/internal/domain"
	"github.com/yungbote/aula-backend/internal/pkg/dbctx"
	"github.com/yungbote/aula-backend/internal/pkg/logger"
	"github.com/yungbote/aula-backend/internal/platform/apierr"
)

type UserListFilter struct {
	Role          types.Role
	InstitutionID *uuid.UUID
	Active        *bool
	Search        string
	Page          Page
}

type CreateUserInput struct {
	Email         string
	Password      string
	FirstName     string
	LastName      string
	Role          types.Role
	InstitutionID *uuid.UUID
}

type UpdateUserInput struct {
	Email            *string
	FirstName        *string
	LastName         *string
	InstitutionID    *uuid.UUID
	ClearInstitution bool
}

type Stats struct {
	UsersByRole        map[types.Role]int64         `json:"usersByRole"`
	TotalUsers         int64                        `json:"totalUsers"`
	Institutions       int64                        `json:"institutions"`
	ActiveInstitutions int64                        `json:"activeInstitutions"`
	Grades             int64                        `json:"grades"`
	Enrollments        int64                        `json:"enrollments"`
	ActivitiesByType   map[types.ActivityType]int64 `json:"activitiesByType"`
	TotalActivities    int64                        `json:"totalActivities"`
	InvitationCodes    int64                        `json:"invitationCodes"`
	CreditsSpent       int64                        `json:"creditsSpent"`
}

// UserAdminService is the back-office surface over user accounts.
type UserAdminService interface {
	List(ctx context.Context, actor Actor, f UserListFilter) ([]*types.User, int64, error)
	Get(ctx context.Context, actor Actor, id uuid.UUID) (*types.User, error)
	Create(ctx context.Context, in CreateUserInput) (*types.User, error)
	Update(ctx context.Context, id uuid.UUID, in UpdateUserInput) (*types.User, error)
	ChangeRole(ctx context.Context, actor Actor, id uuid.UUID, role types.Role) (*types.User, error)
	SetActive(ctx context.Context, actor Actor, id uuid.UUID, active bool) (*types.User, error)
	ResetPassword(ctx context.Context, id uuid.UUID, password string) error
	Delete(ctx context.Context, actor Actor, id uuid.UUID) error
	Stats(ctx context.Context) (*Stats, error)
}

type userAdminService struct {
	db           *gorm.DB
	log          *logger.Logger
	users        repos.UserRepo
	teachers     repos.TeacherProfileRepo
	students     repos.StudentProfileRepo
	institutions repos.InstitutionRepo
	grades       repos.GradeRepo
	enrollments  repos.EnrollmentRepo
	activities   repos.ActivityRepo
	history      repos.CreditHistoryRepo
	codes        repos.InvitationCodeRepo
	accounts     *accounts
}

func NewUserAdminService(
	db *gorm.DB,
	baseLog *logger.Logger,
	users repos.UserRepo,
	teachers repos.TeacherProfileRepo,
	students repos.StudentProfileRepo,
	institutions repos.InstitutionRepo,
	grades repos.GradeRepo,
	enrollments repos.EnrollmentRepo,
	activities repos.ActivityRepo,
	history repos.CreditHistoryRepo,
	codes repos.InvitationCodeRepo,
	credits CreditService,
	signupCredits int,
) UserAdminService {
	return &userAdminService{
		db:           db,
		log:          baseLog.With("service", "UserAdminService"),
		users:        users,
		teachers:     teachers,
		students:     students,
		institutions: institutions,
		grades:       grades,
		enrollments:  enrollments,
		activities:   activities,
		history:      history,
		codes:        codes,
		accounts: &accounts{
			users:         users,
			teachers:      teachers,
			students:      students,
			credits:       credits,
			signupCredits: signupCredits,
		},
	}
}

func (s *userAdminService) load(dbc dbctx.Context, id uuid.UUID) (*types.User, error) {
	u, err := s.users.GetByIDWithProfiles(dbc, id)
	if err != nil {
		return nil, dberr.Map("get user", err)
	}
	if u == nil {
		return nil, apierr.NotFound("user_not_found", "user not found")
	}
	return u, nil
}

// teacherScope returns the institution a teacher is limited to.
func (s *userAdminService) teacherScope(dbc dbctx.Context, actor Actor) (*uuid.UUID, error) {
	me, err := s.users.GetByID(dbc, actor.UserID)
	if err != nil {
		return nil, dberr.Map("get caller", err)
	}
	if me == nil || me.InstitutionID == nil {
		return nil, apierr.Forbidden("no_institution", "teacher is not assigned to an institution")
	}
	return me.InstitutionID, nil
}

func (s *userAdminService) List(ctx context.Context, actor Actor, f UserListFilter) ([]*types.User, int64, error) {
	dbc := dbctx.Context{Ctx: ctx}
	rf := repos.UserFilter{
		Role:          f.Role,
		InstitutionID: f.InstitutionID,
		Active:        f.Active,
		Search:        strings.TrimSpace(f.Search),
		Offset:        f.Page.Offset(),
		Limit:         f.Page.Limit(),
	}
	if !actor.IsAdmin() {
		inst, err := s.teacherScope(dbc, actor)
		if err != nil {
			return nil, 0, err
		}
		rf.InstitutionID = inst
	}
	rows, total, err := s.users.List(dbc, rf)
	if err != nil {
		return nil, 0, dberr.Map("list users", err)
	}
	return rows, total, nil
}

func (s *userAdminService) Get(ctx context.Context, actor Actor, id uuid.UUID) (*types.User, error) {
	dbc := dbctx.Context{Ctx: ctx}
	u, err := s.load(dbc, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		inst, err := s.teacherScope(dbc, actor)
		if err != nil {
			return nil, err
		}
		if u.InstitutionID == nil || *u.InstitutionID != *inst {
			return nil, apierr.Forbidden("foreign_institution", "user belongs to another institution")
		}
	}
	return u, nil
}

func (s *userAdminService) checkInstitution(dbc dbctx.Context, id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	inst, err := s.institutions.GetByID(dbc, *id)
	if err != nil {
		return dberr.Map("get institution", err)
	}
	if inst == nil || !inst.IsActive {
		return apierr.Validation("invalid_institution", "institution does not exist or is inactive").
			WithFields(apierr.FieldError{Field: "institutionId", Rule: "exists"})
	}
	return nil
}

func (s *userAdminService) Create(ctx context.Context, in CreateUserInput) (*types.User, error) {
	if _, ok := types.ParseRole(string(in.Role)); !ok {
		return nil, apierr.Validation("invalid_role", "role must be ADMIN, TEACHER or STUDENT").
			WithFields(apierr.FieldError{Field: "role", Rule: "oneof"})
	}
	var created *types.User
	err := dbctx.Run(dbctx.Context{Ctx: ctx}, s.db, func(inner dbctx.Context) error {
		if err := s.checkInstitution(inner, in.InstitutionID); err != nil {
			return err
		}
		u, err := s.accounts.create(inner, newAccount{
			Email:         in.Email,
			Password:      in.Password,
			FirstName:     in.FirstName,
			LastName:      in.LastName,
			Role:          in.Role,
			InstitutionID: in.InstitutionID,
		})
		if err != nil {
			return err
		}
		created = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("user created", "user_id", created.ID, "role", created.Role)
	return s.load(dbctx.Context{Ctx: ctx}, created.ID)
}

func (s *userAdminService) Update(ctx context.Context, id uuid.UUID, in UpdateUserInput) (*types.User, error) {
	dbc := dbctx.Context{Ctx: ctx}
	u, err := s.load(dbc, id)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if in.FirstName != nil {
		v := strings.TrimSpace(*in.FirstName)
		if v == "" {
			return nil, apierr.Validation("missing_name", "firstName cannot be empty")
		}
		updates["first_name"] = v
	}
	if in.LastName != nil {
		v := strings.TrimSpace(*in.LastName)
		if v == "" {
			return nil, apierr.Validation("missing_name", "lastName cannot be empty")
		}
		updates["last_name"] = v
	}
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		if email != u.Email {
			if !validEmail(email) {
				return nil, apierr.Validation("invalid_input", "invalid email").
					WithFields(apierr.FieldError{Field: "email", Rule: "email"})
			}
			exists, err := s.users.EmailExists(dbc, email)
			if err != nil {
				return nil, dberr.Map("check email", err)
			}
			if exists {
				return nil, apierr.Conflict("email_taken", "an account with this email already exists")
			}
			updates["email"] = email
		}
	}
	switch {
	case in.ClearInstitution:
		updates["institution_id"] = nil
	case in.InstitutionID != nil:
		if err := s.checkInstitution(dbc, in.InstitutionID); err != nil {
			return nil, err
		}
		updates["institution_id"] = *in.InstitutionID
	}
	if len(updates) > 0 {
		if err := s.users.UpdateFields(dbc, id, updates); err != nil {
			if dberr.IsUnique(err) {
				return nil, apierr.Conflict("email_taken", "an account with this email already exists")
			}
			return nil, dberr.Map("update user", err)
		}
	}
	return s.load(dbc, id)
}

// releaseTeacher drops the teacher profile; teachers who still own grades are refused.
func (s *userAdminService) releaseTeacher(dbc dbctx.Context, userID uuid.UUID) error {
	p, err := s.teachers.GetByUserID(dbc, userID)
	if err != nil {
		return dberr.Map("get teacher profile", err)
	}
	if p == nil {
		return nil
	}
	n, err := s.grades.CountByTeacher(dbc, p.ID)
	if err != nil {
		return dberr.Map("count teacher grades", err)
	}
	if n > 0 {
		return apierr.Conflict("teacher_has_grades", "reassign or delete this teacher's grades first")
	}
	if err := s.teachers.DeleteByUserID(dbc, userID); err != nil {
		return dberr.Map("delete teacher profile", err)
	}
	return nil
}

// releaseStudent removes the student's enrollments and profile.
func (s *userAdminService) releaseStudent(dbc dbctx.Context, userID uuid.UUID) error {
	p, err := s.students.GetByUserID(dbc, userID)
	if err != nil {
		return dberr.Map("get student profile", err)
	}
	if p == nil {
		return nil
	}
	if err := s.enrollments.DeleteByStudent(dbc, p.ID); err != nil {
		return dberr.Map("delete enrollments", err)
	}
	if err := s.students.DeleteByUserID(dbc, userID); err != nil {
		return dberr.Map("delete student profile", err)
	}
	return nil
}

func (s *userAdminService) ChangeRole(ctx context.Context, actor Actor, id uuid.UUID, role types.Role) (*types.User, error) {
	role, ok := types.ParseRole(string(role))
	if !ok {
		return nil, apierr.Validation("invalid_role", "role must be ADMIN, TEACHER or STUDENT").
			WithFields(apierr.FieldError{Field: "role", Rule: "oneof"})
	}
	if id == actor.UserID {
		return nil, apierr.Forbidden("own_role", "you cannot change your own role")
	}
	err := dbctx.Run(dbctx.Context{Ctx: ctx}, s.db, func(inner dbctx.Context) error {
		u, err := s.users.GetByID(inner, id)
		if err != nil {
			return dberr.Map("get user", err)
		}
		if u == nil {
			return apierr.NotFound("user_not_found", "user not found")
		}
		if u.Role == role {
			return nil
		}
		switch u.Role {
		case types.RoleTeacher:
			if err := s.releaseTeacher(inner, id); err != nil {
				return err
			}
		case types.RoleStudent:
			if err := s.releaseStudent(inner, id); err != nil {
				return err
			}
		}
		if err := s.users.UpdateFields(inner, id, map[string]interface{}{"role": role}); err != nil {
			return dberr.Map("update role", err)
		}
		return s.accounts.ensureProfile(inner, id, role)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("user role changed", "user_id", id, "role", role, "by", actor.UserID)
	return s.load(dbctx.Context{Ctx: ctx}, id)
}

func (s *userAdminService) SetActive(ctx context.Context, actor Actor, id uuid.UUID, active bool) (*types.User, error) {
	if id == actor.UserID && !active {
		return nil, apierr.Forbidden("own_account", "you cannot deactivate your own account")
	}
	dbc := dbctx.Context{Ctx: ctx}
	if _, err := s.load(dbc, id); err != nil {
		return nil, err
	}
	if err := s.users.UpdateFields(dbc, id, map[string]interface{}{"is_active": active}); err != nil {
		return nil, dberr.Map("set user status", err)
	}
	return s.load(dbc, id)
}

func (s *userAdminService) ResetPassword(ctx context.Context, id uuid.UUID, password string) error {
	if len(password) < minPasswordLength {
		return apierr.Validation("weak_password", "password must be at least 6 characters").
			WithFields(apierr.FieldError{Field: "password", Rule: "min"})
	}
	dbc := dbctx.Context{Ctx: ctx}
	if _, err := s.load(dbc, id); err != nil {
		return err
	}
	hashed, err := hashPassword(password)
	if err != nil {
		return err
	}
	if err := s.users.UpdateFields(dbc, id, map[string]interface{}{"password": hashed}); err != nil {
		return dberr.Map("reset password", err)
	}
	s.log.Info("password reset", "user_id", id)
	return nil
}

func (s *userAdminService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	if id == actor.UserID {
		return apierr.Forbidden("own_account", "you cannot delete your own account")
	}
	err := dbctx.Run(dbctx.Context{Ctx: ctx}, s.db, func(inner dbctx.Context) error {
		u, err := s.users.GetByID(inner, id)
		if err != nil {
			return dberr.Map("get user", err)
		}
		if u == nil {
			return apierr.NotFound("user_not_found", "user not found")
		}
		if err := s.releaseTeacher(inner, id); err != nil {
			return err
		}
		if err := s.releaseStudent(inner, id); err != nil {
			return err
		}
		if err := s.codes.DeleteByCreator(inner, id); err != nil {
			return dberr.Map("delete invitation codes", err)
		}
		if err := s.history.DeleteByUser(inner, id); err != nil {
			return dberr.Map("delete credit history", err)
		}
		if err := s.activities.DeleteByUser(inner, id); err != nil {
			return dberr.Map("delete activities", err)
		}
		if err := s.users.Delete(inner, id); err != nil {
			return dberr.Map("delete user", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info("user deleted", "user_id", id, "by", actor.UserID)
	return nil
}

func (s *userAdminService) Stats(ctx context.Context) (*Stats, error) {
	out := &Stats{}
	g, gctx := errgroup.WithContext(ctx)
	dbc := dbctx.Context{Ctx: gctx}

	g.Go(func() (err error) {
		out.UsersByRole, err = s.users.CountByRole(dbc)
		return err
	})
	g.Go(func() (err error) {
		out.Institutions, err = s.institutions.Count(dbc, false)
		return err
	})
	g.Go(func() (err error) {
		out.ActiveInstitutions, err = s.institutions.Count(dbc, true)
		return err
	})
	g.Go(func() (err error) {
		out.Grades, err = s.grades.Count(dbc)
		return err
	})
	g.Go(func() (err error) {
		out.Enrollments, err = s.enrollments.Count(dbc)
		return err
	})
	g.Go(func() (err error) {
		out.ActivitiesByType, err = s.activities.CountByType(dbc)
		return err
	})
	g.Go(func() (err error) {
		out.InvitationCodes, err = s.codes.Count(dbc)
		return err
	})
	g.Go(func() (err error) {
		out.CreditsSpent, err = s.history.TotalSpent(dbc)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, dberr.Map("load stats", err)
	}
	for _, n := range out.UsersByRole {
		out.TotalUsers += n
	}
	for _, n := range out.ActivitiesByType {
		out.TotalActivities += n
	}
	return out, nil
}
