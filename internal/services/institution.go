package services

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/aula-backend/internal/data/dberr"
	"github.com/yungbote/aula-backend/internal/data/repos"
	types "github.com/yungbote/aula-backend/internal/domain"
	"github.com/yungbote/aula-backend/internal/pkg/dbctx"
	"github.com/yungbote/aula-backend/internal/pkg/logger"
	"github.com/yungbote/aula-backend/internal/platform/apierr"
)

type InstitutionInput struct {
	Name    string
	Code    *string
	Address string
	Phone   string
	Email   string
}

type InstitutionUpdate struct {
	Name    *string
	Code    *string
	Address *string
	Phone   *string
	Email   *string
}

type InstitutionListFilter struct {
	Active *bool
	Search string
	Page   Page
}

type InstitutionDetail struct {
	*types.Institution
	GradeCount   int64 `json:"gradeCount"`
	UserCount    int64 `json:"userCount"`
	StudentCount int64 `json:"studentCount"`
}

type InstitutionService interface {
	Create(ctx context.Context, in InstitutionInput) (*types.Institution, error)
	Get(ctx context.Context, id uuid.UUID) (*InstitutionDetail, error)
	List(ctx context.Context, f InstitutionListFilter) ([]*types.Institution, int64, error)
	Update(ctx context.Context, id uuid.UUID, in InstitutionUpdate) (*types.Institution, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*types.Institution, error)
}

type institutionService struct {
	log          *logger.Logger
	institutions repos.InstitutionRepo
	grades       repos.GradeRepo
	users        repos.UserRepo
	enrollments  repos.EnrollmentRepo
}

func NewInstitutionService(
	baseLog *logger.Logger,
	institutions repos.InstitutionRepo,
	grades repos.GradeRepo,
	users repos.UserRepo,
	enrollments repos.EnrollmentRepo,
) InstitutionService {
	return &institutionService{
		log:          baseLog.With("service", "InstitutionService"),
		institutions: institutions,
		grades:       grades,
		users:        users,
		enrollments:  enrollments,
	}
}

func optionalCode(code *string) *string {
	if code == nil {
		return nil
	}
	c := strings.ToUpper(strings.TrimSpace(*code))
	if c == "" {
		return nil
	}
	return &c
}

func (s *institutionService) Create(ctx context.Context, in InstitutionInput) (*types.Institution, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apierr.Validation("missing_name", "name is required").
			WithFields(apierr.FieldError{Field: "name", Rule: "required"})
	}
	inst := &types.Institution{
		Name:     name,
		Code:     optionalCode(in.Code),
		Address:  strings.TrimSpace(in.Address),
		Phone:    strings.TrimSpace(in.Phone),
		Email:    normalizeEmail(in.Email),
		IsActive: true,
	}
	if err := s.institutions.Create(dbctx.Context{Ctx: ctx}, inst); err != nil {
		if dberr.IsUnique(err) {
			return nil, apierr.Conflict("institution_code_taken", "an institution with this code already exists")
		}
		return nil, dberr.Map("create institution", err)
	}
	s.log.Info("institution created", "institution_id", inst.ID)
	return inst, nil
}

func (s *institutionService) load(dbc dbctx.Context, id uuid.UUID) (*types.Institution, error) {
	inst, err := s.institutions.GetByID(dbc, id)
	if err != nil {
		return nil, dberr.Map("get institution", err)
	}
	if inst == nil {
		return nil, apierr.NotFound("institution_not_found", "institution not found")
	}
	return inst, nil
}

func (s *institutionService) Get(ctx context.Context, id uuid.UUID) (*InstitutionDetail, error) {
	dbc := dbctx.Context{Ctx: ctx}
	inst, err := s.load(dbc, id)
	if err != nil {
		return nil, err
	}
	out := &InstitutionDetail{Institution: inst}
	if out.GradeCount, err = s.grades.CountByInstitution(dbc, id); err != nil {
		return nil, dberr.Map("count grades", err)
	}
	if _, out.UserCount, err = s.users.List(dbc, repos.UserFilter{InstitutionID: &id, Limit: 1}); err != nil {
		return nil, dberr.Map("count users", err)
	}
	if out.StudentCount, err = s.enrollments.CountByInstitution(dbc, id); err != nil {
		return nil, dberr.Map("count students", err)
	}
	return out, nil
}

func (s *institutionService) List(ctx context.Context, f InstitutionListFilter) ([]*types.Institution, int64, error) {
	rows, total, err := s.institutions.List(dbctx.Context{Ctx: ctx}, repos.InstitutionFilter{
		Active: f.Active,
		Search: strings.TrimSpace(f.Search),
		Offset: f.Page.Offset(),
		Limit:  f.Page.Limit(),
	})
	if err != nil {
		return nil, 0, dberr.Map("list institutions", err)
	}
	return rows, total, nil
}

func (s *institutionService) Update(ctx context.Context, id uuid.UUID, in InstitutionUpdate) (*types.Institution, error) {
	dbc := dbctx.Context{Ctx: ctx}
	if _, err := s.load(dbc, id); err != nil {
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
	if in.Code != nil {
		updates["code"] = optionalCode(in.Code)
	}
	if in.Address != nil {
		updates["address"] = strings.TrimSpace(*in.Address)
	}
	if in.Phone != nil {
		updates["phone"] = strings.TrimSpace(*in.Phone)
	}
	if in.Email != nil {
		updates["email"] = normalizeEmail(*in.Email)
	}
	if len(updates) > 0 {
		if err := s.institutions.UpdateFields(dbc, id, updates); err != nil {
			if dberr.IsUnique(err) {
				return nil, apierr.Conflict("institution_code_taken", "an institution with this code already exists")
			}
			return nil, dberr.Map("update institution", err)
		}
	}
	return s.load(dbc, id)
}

// SetActive is the soft delete: deactivated institutions keep their rows and history.
func (s *institutionService) SetActive(ctx context.Context, id uuid.UUID, active bool) (*types.Institution, error) {
	dbc := dbctx.Context{Ctx: ctx}
	if _, err := s.load(dbc, id); err != nil {
		return nil, err
	}
	if err := s.institutions.UpdateFields(dbc, id, map[string]interface{}{"is_active": active}); err != nil {
		return nil, dberr.Map("set institution status", err)
	}
	s.log.Info("institution status changed", "institution_id", id, "active", active)
	return s.load(dbc, id)
}
