package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/aula-backend/internal/data/dberr"
	"github.com/yungbote/aula-backend/internal/data/repos"
	types "github.com/yungbote/aula-backend/internal/domain"
	"github.com/yungbote/aula-backend/internal/pkg/dbctx"
	"github.com/yungbote/aula-backend/internal/pkg/logger"
	"github.com/yungbote/aula-backend/internal/platform/apierr"
)

const (
	// CodeAlphabet omits I, O, 0 and 1 so codes survive being read aloud.
	CodeAlphabet       = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	CodeLength         = 8
	maxCodeGenAttempts = 10
)

const (
	ReasonInvalidCode = "Invalid invitation code"
	ReasonInactive    = "This invitation code has been deactivated"
	ReasonExpired     = "This invitation code has expired"
	ReasonDepleted    = "This invitation code has reached its maximum number of uses"
)

// GenerateCode returns a random CodeLength string over CodeAlphabet.
func GenerateCode() (string, error) {
	buf := make([]byte, CodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, CodeLength)
	for i, b := range buf {
		// 256 is a multiple of len(CodeAlphabet), so the mapping is unbiased.
		out[i] = CodeAlphabet[int(b)%len(CodeAlphabet)]
	}
	return string(out), nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

type GenerateCodeInput struct {
	GradeID       uuid.UUID
	MaxUses       *int
	ExpiresAt     *time.Time
	ExpiresInDays int
	Description   string
}

type UpdateCodeInput struct {
	IsActive       *bool
	MaxUses        *int
	ClearMaxUses   bool
	ExpiresAt      *time.Time
	ClearExpiresAt bool
	Description    *string
}

type UseCodeInput struct {
	Code      string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// CodeValidation never carries an error for an unknown code; Valid is false with a reason.
type CodeValidation struct {
	Valid         bool               `json:"valid"`
	Reason        string             `json:"reason,omitempty"`
	Code          string             `json:"code,omitempty"`
	Status        types.CodeStatus   `json:"status,omitempty"`
	RemainingUses *int               `json:"remainingUses,omitempty"`
	Grade         *types.Grade       `json:"grade,omitempty"`
	Institution   *types.Institution `json:"institution,omitempty"`
}

type EnrollmentResult struct {
	Token       string             `json:"token,omitempty"`
	ExpiresAt   *time.Time         `json:"expiresAt,omitempty"`
	User        *types.User        `json:"user"`
	Grade       *types.Grade       `json:"grade"`
	Institution *types.Institution `json:"institution,omitempty"`
}

type CodeView struct {
	*types.InvitationCode
	Status        types.CodeStatus `json:"status"`
	RemainingUses *int             `json:"remainingUses,omitempty"`
}

type InvitationService interface {
	GenerateCode(ctx context.Context, actor Actor, in GenerateCodeInput) (*CodeView, error)
	ValidateCode(ctx context.Context, code string) (*CodeValidation, error)
	UseCode(ctx context.Context, in UseCodeInput) (*EnrollmentResult, error)
	JoinWithCode(ctx context.Context, actor Actor, code string) (*EnrollmentResult, error)
	ListByGrade(ctx context.Context, actor Actor, gradeID uuid.UUID) ([]*CodeView, error)
	ListMine(ctx context.Context, actor Actor) ([]*CodeView, error)
	Get(ctx context.Context, actor Actor, id uuid.UUID) (*CodeView, error)
	Update(ctx context.Context, actor Actor, id uuid.UUID, in UpdateCodeInput) (*CodeView, error)
	Delete(ctx context.Context, actor Actor, id uuid.UUID) error
}

type invitationService struct {
	db          *gorm.DB
	log         *logger.Logger
	codes       repos.InvitationCodeRepo
	grades      repos.GradeRepo
	teachers    repos.TeacherProfileRepo
	users       repos.UserRepo
	enrollments repos.EnrollmentRepo
	accounts    *accounts
	tokens      TokenIssuer
	now         func() time.Time
	newCode     func() (string, error)
}

func NewInvitationService(
	db *gorm.DB,
	baseLog *logger.Logger,
	codes repos.InvitationCodeRepo,
	grades repos.GradeRepo,
	users repos.UserRepo,
	teachers repos.TeacherProfileRepo,
	students repos.StudentProfileRepo,
	enrollments repos.EnrollmentRepo,
	credits CreditService,
	tokens TokenIssuer,
	signupCredits int,
) InvitationService {
	return &invitationService{
		db:          db,
		log:         baseLog.With("service", "InvitationService"),
		codes:       codes,
		grades:      grades,
		teachers:    teachers,
		users:       users,
		enrollments: enrollments,
		accounts: &accounts{
			users:         users,
			teachers:      teachers,
			students:      students,
			credits:       credits,
			signupCredits: signupCredits,
		},
		tokens:  tokens,
		now:     time.Now,
		newCode: GenerateCode,
	}
}

func view(c *types.InvitationCode, now time.Time) *CodeView {
	return &CodeView{InvitationCode: c, Status: c.Status(now), RemainingUses: c.RemainingUses()}
}

// canManageGrade: admins, or the teacher the grade belongs to.
func (s *invitationService) canManageGrade(dbc dbctx.Context, actor Actor, grade *types.Grade) (bool, error) {
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
	return p != nil && p.ID == grade.TeacherProfileID, nil
}

func (s *invitationService) GenerateCode(ctx context.Context, actor Actor, in GenerateCodeInput) (*CodeView, error) {
	dbc := dbctx.Context{Ctx: ctx}
	grade, err := s.grades.GetByID(dbc, in.GradeID)
	if err != nil {
		return nil, dberr.Map("get grade", err)
	}
	if grade == nil {
		return nil, apierr.NotFound("grade_not_found", "grade not found")
	}
	ok, err := s.canManageGrade(dbc, actor, grade)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apierr.Forbidden("not_grade_owner", "only the grade's teacher or an admin can create codes")
	}
	if in.MaxUses != nil && *in.MaxUses < 1 {
		return nil, apierr.Validation("invalid_max_uses", "maxUses must be at least 1").
			WithFields(apierr.FieldError{Field: "maxUses", Rule: "min"})
	}
	now := s.now()
	expiresAt := in.ExpiresAt
	if expiresAt == nil && in.ExpiresInDays > 0 {
		t := now.Add(time.Duration(in.ExpiresInDays) * 24 * time.Hour)
		expiresAt = &t
	}
	if expiresAt != nil && !expiresAt.After(now) {
		return nil, apierr.Validation("invalid_expiry", "expiresAt must be in the future").
			WithFields(apierr.FieldError{Field: "expiresAt", Rule: "future"})
	}

	for attempt := 1; attempt <= maxCodeGenAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return nil, apierr.Internal("code_generation_failed", err)
		}
		taken, err := s.codes.CodeExists(dbc, code)
		if err != nil {
			return nil, dberr.Map("check code", err)
		}
		if taken {
			s.log.Debug("invitation code collision", "attempt", attempt)
			continue
		}
		row := &types.InvitationCode{
			Code:          code,
			GradeID:       grade.ID,
			InstitutionID: grade.InstitutionID,
			CreatedByID:   actor.UserID,
			Description:   strings.TrimSpace(in.Description),
			MaxUses:       in.MaxUses,
			ExpiresAt:     expiresAt,
			IsActive:      true,
		}
		if err := s.codes.Create(dbc, row); err != nil {
			if dberr.IsUnique(err) {
				continue
			}
			return nil, dberr.Map("create invitation code", err)
		}
		s.log.Info("invitation code created", "code_id", row.ID, "grade_id", grade.ID, "created_by", actor.UserID)
		return view(row, now), nil
	}
	s.log.Error("invitation code generation exhausted", "grade_id", grade.ID, "attempts", maxCodeGenAttempts)
	return nil, apierr.Internal("code_generation_failed", fmt.Errorf("no unique code after %d attempts", maxCodeGenAttempts))
}

func reasonFor(status types.CodeStatus) string {
	switch status {
	case types.CodeInactive:
		return ReasonInactive
	case types.CodeExpired:
		return ReasonExpired
	case types.CodeDepleted:
		return ReasonDepleted
	}
	return ""
}

func codeErrorFor(status types.CodeStatus) string {
	switch status {
	case types.CodeInactive:
		return "code_inactive"
	case types.CodeExpired:
		return "code_expired"
	default:
		return "code_depleted"
	}
}

func (s *invitationService) ValidateCode(ctx context.Context, code string) (*CodeValidation, error) {
	row, err := s.codes.GetByCode(dbctx.Context{Ctx: ctx}, normalizeCode(code))
	if err != nil {
		return nil, dberr.Map("validate code", err)
	}
	if row == nil {
		return &CodeValidation{Valid: false, Reason: ReasonInvalidCode}, nil
	}
	status := row.Status(s.now())
	out := &CodeValidation{
		Valid:  status == types.CodeActive,
		Reason: reasonFor(status),
		Code:   row.Code,
		Status: status,
	}
	if out.Valid {
		out.RemainingUses = row.RemainingUses()
		out.Grade = row.Grade
		out.Institution = row.Institution
	}
	return out, nil
}

// usableCode loads and re-validates a code inside the caller's transaction.
func (s *invitationService) usableCode(dbc dbctx.Context, code string) (*types.InvitationCode, error) {
	row, err := s.codes.GetByCode(dbc, normalizeCode(code))
	if err != nil {
		return nil, dberr.Map("load code", err)
	}
	if row == nil {
		return nil, apierr.Validation("invalid_code", ReasonInvalidCode)
	}
	if status := row.Status(s.now()); status != types.CodeActive {
		return nil, apierr.Validation(codeErrorFor(status), reasonFor(status))
	}
	return row, nil
}

// redeem enrolls the student and consumes one use of the code.
func (s *invitationService) redeem(dbc dbctx.Context, row *types.InvitationCode, studentProfileID uuid.UUID) error {
	if err := enrollStudent(dbc, s.enrollments, row.GradeID, studentProfileID, &row.ID); err != nil {
		return err
	}
	ok, err := s.codes.IncrementUsage(dbc, row.ID)
	if err != nil {
		return dberr.Map("consume code", err)
	}
	if !ok {
		return apierr.Validation("code_depleted", ReasonDepleted)
	}
	return nil
}

func enrollStudent(dbc dbctx.Context, enrollments repos.EnrollmentRepo, gradeID, studentProfileID uuid.UUID, codeID *uuid.UUID) error {
	exists, err := enrollments.Exists(dbc, gradeID, studentProfileID)
	if err != nil {
		return dberr.Map("check enrollment", err)
	}
	if exists {
		return apierr.Conflict("already_enrolled", "student is already enrolled in this grade")
	}
	err = enrollments.Create(dbc, &types.GradeStudent{
		GradeID:          gradeID,
		StudentProfileID: studentProfileID,
		InvitationCodeID: codeID,
	})
	if dberr.IsUnique(err) {
		return apierr.Conflict("already_enrolled", "student is already enrolled in this grade")
	}
	if err != nil {
		return dberr.Map("create enrollment", err)
	}
	return nil
}

func (s *invitationService) UseCode(ctx context.Context, in UseCodeInput) (*EnrollmentResult, error) {
	var (
		user *types.User
		row  *types.InvitationCode
	)
	err := dbctx.Run(dbctx.Context{Ctx: ctx}, s.db, func(inner dbctx.Context) error {
		var err error
		row, err = s.usableCode(inner, in.Code)
		if err != nil {
			return err
		}
		instID := row.InstitutionID
		user, err = s.accounts.create(inner, newAccount{
			Email:         in.Email,
			Password:      in.Password,
			FirstName:     in.FirstName,
			LastName:      in.LastName,
			Role:          types.RoleStudent,
			InstitutionID: &instID,
		})
		if err != nil {
			return err
		}
		profile, err := s.accounts.studentProfile(inner, user.ID)
		if err != nil {
			return err
		}
		return s.redeem(inner, row, profile.ID)
	})
	if err != nil {
		return nil, err
	}
	tok, exp, err := s.tokens.IssueToken(user)
	if err != nil {
		return nil, err
	}
	s.log.Info("invitation code used", "code_id", row.ID, "user_id", user.ID, "grade_id", row.GradeID)
	return &EnrollmentResult{Token: tok, ExpiresAt: &exp, User: user, Grade: row.Grade, Institution: row.Institution}, nil
}

func (s *invitationService) JoinWithCode(ctx context.Context, actor Actor, code string) (*EnrollmentResult, error) {
	if !actor.IsStudent() {
		return nil, apierr.Forbidden("students_only", "only students can join with a code")
	}
	var (
		user *types.User
		row  *types.InvitationCode
	)
	err := dbctx.Run(dbctx.Context{Ctx: ctx}, s.db, func(inner dbctx.Context) error {
		var err error
		row, err = s.usableCode(inner, code)
		if err != nil {
			return err
		}
		user, err = s.users.GetByID(inner, actor.UserID)
		if err != nil {
			return dberr.Map("load user", err)
		}
		if user == nil {
			return apierr.NotFound("user_not_found", "user not found")
		}
		profile, err := s.accounts.studentProfile(inner, user.ID)
		if err != nil {
			return err
		}
		if user.InstitutionID == nil {
			instID := row.InstitutionID
			if err := s.users.UpdateFields(inner, user.ID, map[string]interface{}{"institution_id": instID}); err != nil {
				return dberr.Map("assign institution", err)
			}
			user.InstitutionID = &instID
		}
		return s.redeem(inner, row, profile.ID)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("student joined with code", "code_id", row.ID, "user_id", user.ID, "grade_id", row.GradeID)
	return &EnrollmentResult{User: user, Grade: row.Grade, Institution: row.Institution}, nil
}

func (s *invitationService) ListByGrade(ctx context.Context, actor Actor, gradeID uuid.UUID) ([]*CodeView, error) {
	dbc := dbctx.Context{Ctx: ctx}
	grade, err := s.grades.GetByID(dbc, gradeID)
	if err != nil {
		return nil, dberr.Map("get grade", err)
	}
	if grade == nil {
		return nil, apierr.NotFound("grade_not_found", "grade not found")
	}
	ok, err := s.canManageGrade(dbc, actor, grade)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apierr.Forbidden("not_grade_owner", "you cannot view codes for this grade")
	}
	rows, err := s.codes.ListByGrade(dbc, gradeID)
	if err != nil {
		return nil, dberr.Map("list codes", err)
	}
	return s.views(rows), nil
}

func (s *invitationService) ListMine(ctx context.Context, actor Actor) ([]*CodeView, error) {
	rows, err := s.codes.ListByCreator(dbctx.Context{Ctx: ctx}, actor.UserID)
	if err != nil {
		return nil, dberr.Map("list codes", err)
	}
	return s.views(rows), nil
}

func (s *invitationService) views(rows []*types.InvitationCode) []*CodeView {
	now := s.now()
	out := make([]*CodeView, 0, len(rows))
	for _, r := range rows {
		out = append(out, view(r, now))
	}
	return out
}

func (s *invitationService) managed(dbc dbctx.Context, actor Actor, id uuid.UUID) (*types.InvitationCode, error) {
	row, err := s.codes.GetByID(dbc, id)
	if err != nil {
		return nil, dberr.Map("get code", err)
	}
	if row == nil {
		return nil, apierr.NotFound("code_not_found", "invitation code not found")
	}
	if actor.IsAdmin() || row.CreatedByID == actor.UserID {
		return row, nil
	}
	if row.Grade != nil {
		ok, err := s.canManageGrade(dbc, actor, row.Grade)
		if err != nil {
			return nil, err
		}
		if ok {
			return row, nil
		}
	}
	return nil, apierr.Forbidden("not_code_owner", "you cannot manage this invitation code")
}

func (s *invitationService) Get(ctx context.Context, actor Actor, id uuid.UUID) (*CodeView, error) {
	row, err := s.managed(dbctx.Context{Ctx: ctx}, actor, id)
	if err != nil {
		return nil, err
	}
	return view(row, s.now()), nil
}

func (s *invitationService) Update(ctx context.Context, actor Actor, id uuid.UUID, in UpdateCodeInput) (*CodeView, error) {
	dbc := dbctx.Context{Ctx: ctx}
	row, err := s.managed(dbc, actor, id)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if in.IsActive != nil {
		updates["is_active"] = *in.IsActive
	}
	switch {
	case in.ClearMaxUses:
		updates["max_uses"] = nil
	case in.MaxUses != nil:
		if *in.MaxUses < 1 || *in.MaxUses < row.UsedCount {
			return nil, apierr.Validation("invalid_max_uses", fmt.Sprintf("maxUses must be at least %d", max(1, row.UsedCount))).
				WithFields(apierr.FieldError{Field: "maxUses", Rule: "min"})
		}
		updates["max_uses"] = *in.MaxUses
	}
	switch {
	case in.ClearExpiresAt:
		updates["expires_at"] = nil
	case in.ExpiresAt != nil:
		updates["expires_at"] = *in.ExpiresAt
	}
	if in.Description != nil {
		updates["description"] = strings.TrimSpace(*in.Description)
	}
	if len(updates) > 0 {
		if err := s.codes.UpdateFields(dbc, id, updates); err != nil {
			return nil, dberr.Map("update code", err)
		}
	}
	fresh, err := s.codes.GetByID(dbc, id)
	if err != nil {
		return nil, dberr.Map("get code", err)
	}
	return view(fresh, s.now()), nil
}

func (s *invitationService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	dbc := dbctx.Context{Ctx: ctx}
	if _, err := s.managed(dbc, actor, id); err != nil {
		return err
	}
	if err := s.codes.Delete(dbc, id); err != nil {
		return dberr.Map("delete code", err)
	}
	return nil
}
