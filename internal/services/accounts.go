package services

import (
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/yungbote/aula-backend/internal/data/dberr"
	"github.com/yungbote/aula-backend/internal/data/repos"
	types "github.com/yungbote/aula-backend/internal/domain"
	"github.com/yungbote/aula-backend/internal/pkg/dbctx"
	"github.com/yungbote/aula-backend/internal/platform/apierr"
)

const minPasswordLength = 6

type newAccount struct {
	Email         string
	Password      string
	FirstName     string
	LastName      string
	Role          types.Role
	InstitutionID *uuid.UUID
}

// accounts creates users together with their role profile and signup grant.
// Callers provide the transaction.
type accounts struct {
	users         repos.UserRepo
	teachers      repos.TeacherProfileRepo
	students      repos.StudentProfileRepo
	credits       CreditService
	signupCredits int
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func validateAccountInput(in newAccount) error {
	var fields []apierr.FieldError
	if !validEmail(normalizeEmail(in.Email)) {
		fields = append(fields, apierr.FieldError{Field: "email", Rule: "email"})
	}
	if len(in.Password) < minPasswordLength {
		fields = append(fields, apierr.FieldError{Field: "password", Rule: "min"})
	}
	if strings.TrimSpace(in.FirstName) == "" {
		fields = append(fields, apierr.FieldError{Field: "firstName", Rule: "required"})
	}
	if strings.TrimSpace(in.LastName) == "" {
		fields = append(fields, apierr.FieldError{Field: "lastName", Rule: "required"})
	}
	if len(fields) > 0 {
		return apierr.Validation("invalid_input", "invalid account details").WithFields(fields...)
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", apierr.Internal("password_hash_failed", err)
	}
	return string(hashed), nil
}

func (a *accounts) create(dbc dbctx.Context, in newAccount) (*types.User, error) {
	if err := validateAccountInput(in); err != nil {
		return nil, err
	}
	email := normalizeEmail(in.Email)
	exists, err := a.users.EmailExists(dbc, email)
	if err != nil {
		return nil, dberr.Map("check email", err)
	}
	if exists {
		return nil, apierr.Conflict("email_taken", "an account with this email already exists")
	}
	hashed, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &types.User{
		Email:         email,
		Password:      hashed,
		FirstName:     strings.TrimSpace(in.FirstName),
		LastName:      strings.TrimSpace(in.LastName),
		Role:          in.Role,
		IsActive:      true,
		InstitutionID: in.InstitutionID,
	}
	if err := a.users.Create(dbc, u); err != nil {
		if dberr.IsUnique(err) {
			return nil, apierr.Conflict("email_taken", "an account with this email already exists")
		}
		return nil, dberr.Map("create user", err)
	}
	if err := a.ensureProfile(dbc, u.ID, in.Role); err != nil {
		return nil, err
	}
	if a.signupCredits > 0 {
		entry, err := a.credits.Credit(dbc, CreditInput{UserID: u.ID, Amount: a.signupCredits, Description: "Signup credits"})
		if err != nil {
			return nil, err
		}
		u.Credits = entry.BalanceAfter
	}
	return u, nil
}

// ensureProfile creates the role's profile row when it does not exist yet.
func (a *accounts) ensureProfile(dbc dbctx.Context, userID uuid.UUID, role types.Role) error {
	switch role {
	case types.RoleTeacher:
		p, err := a.teachers.GetByUserID(dbc, userID)
		if err != nil {
			return dberr.Map("get teacher profile", err)
		}
		if p == nil {
			if err := a.teachers.Create(dbc, &types.TeacherProfile{UserID: userID}); err != nil {
				return dberr.Map("create teacher profile", err)
			}
		}
	case types.RoleStudent:
		if _, err := a.studentProfile(dbc, userID); err != nil {
			return err
		}
	}
	return nil
}

func (a *accounts) studentProfile(dbc dbctx.Context, userID uuid.UUID) (*types.StudentProfile, error) {
	p, err := a.students.GetByUserID(dbc, userID)
	if err != nil {
		return nil, dberr.Map("get student profile", err)
	}
	if p != nil {
		return p, nil
	}
	p = &types.StudentProfile{UserID: userID}
	if err := a.students.Create(dbc, p); err != nil {
		return nil, dberr.Map("create student profile", err)
	}
	return p, nil
}
