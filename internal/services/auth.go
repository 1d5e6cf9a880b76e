package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/yungbote/aula-backend/internal/data/dberr"
	"github.com/yungbote/aula-backend/internal/data/repos"
	types "github.com/yungbote/aula-backend/internal/domain"
	"github.com/yungbote/aula-backend/internal/pkg/ctxutil"
	"github.com/yungbote/aula-backend/internal/pkg/dbctx"
	"github.com/yungbote/aula-backend/internal/pkg/logger"
	"github.com/yungbote/aula-backend/internal/platform/apierr"
)

type RegisterInput struct {
	Email         string
	Password      string
	FirstName     string
	LastName      string
	Role          string
	InstitutionID *uuid.UUID
}

type AuthResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      *types.User `json:"user"`
}

type Profile struct {
	User        *types.User        `json:"user"`
	Institution *types.Institution `json:"institution,omitempty"`
	Grades      []*types.Grade     `json:"grades"`
}

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer signs access tokens for a user.
type TokenIssuer interface {
	IssueToken(u *types.User) (string, time.Time, error)
}

type AuthService interface {
	TokenIssuer
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	ParseToken(tokenString string) (*Claims, error)
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	Profile(ctx context.Context, userID uuid.UUID) (*Profile, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error
}

type authService struct {
	db           *gorm.DB
	log          *logger.Logger
	users        repos.UserRepo
	institutions repos.InstitutionRepo
	grades       repos.GradeRepo
	accounts     *accounts
	jwtSecretKey string
	accessTTL    time.Duration
}

func NewAuthService(
	db *gorm.DB,
	baseLog *logger.Logger,
	users repos.UserRepo,
	teachers repos.TeacherProfileRepo,
	students repos.StudentProfileRepo,
	institutions repos.InstitutionRepo,
	grades repos.GradeRepo,
	credits CreditService,
	signupCredits int,
	jwtSecretKey string,
	accessTTL time.Duration,
) AuthService {
	if accessTTL <= 0 {
		accessTTL = 24 * time.Hour
	}
	return &authService{
		db:           db,
		log:          baseLog.With("service", "AuthService"),
		users:        users,
		institutions: institutions,
		grades:       grades,
		accounts: &accounts{
			users:         users,
			teachers:      teachers,
			students:      students,
			credits:       credits,
			signupCredits: signupCredits,
		},
		jwtSecretKey: jwtSecretKey,
		accessTTL:    accessTTL,
	}
}

func (s *authService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	role := types.RoleTeacher
	if strings.TrimSpace(in.Role) != "" {
		r, ok := types.ParseRole(in.Role)
		if !ok || r == types.RoleAdmin {
			return nil, apierr.Validation("invalid_role", "role must be TEACHER or STUDENT").
				WithFields(apierr.FieldError{Field: "role", Rule: "oneof"})
		}
		role = r
	}
	var created *types.User
	err := dbctx.Run(dbctx.Context{Ctx: ctx}, s.db, func(inner dbctx.Context) error {
		if in.InstitutionID != nil {
			if err := s.requireActiveInstitution(inner, *in.InstitutionID); err != nil {
				return err
			}
		}
		u, err := s.accounts.create(inner, newAccount{
			Email:         in.Email,
			Password:      in.Password,
			FirstName:     in.FirstName,
			LastName:      in.LastName,
			Role:          role,
			InstitutionID: in.InstitutionID,
		})
		created = u
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("user registered", "user_id", created.ID, "role", created.Role)
	return s.result(created)
}

func (s *authService) requireActiveInstitution(dbc dbctx.Context, id uuid.UUID) error {
	inst, err := s.institutions.GetByID(dbc, id)
	if err != nil {
		return dberr.Map("get institution", err)
	}
	if inst == nil || !inst.IsActive {
		return apierr.Validation("invalid_institution", "institution does not exist or is inactive").
			WithFields(apierr.FieldError{Field: "institutionId", Rule: "exists"})
	}
	return nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	u, err := s.users.GetByEmail(dbctx.Context{Ctx: ctx}, normalizeEmail(email))
	if err != nil {
		return nil, dberr.Map("login", err)
	}
	if u == nil {
		return nil, apierr.Unauthorized("invalid_credentials", "invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return nil, apierr.Unauthorized("invalid_credentials", "invalid email or password")
	}
	if !u.IsActive {
		return nil, apierr.Forbidden("account_disabled", "this account has been disabled")
	}
	return s.result(u)
}

func (s *authService) result(u *types.User) (*AuthResult, error) {
	tok, exp, err := s.IssueToken(u)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: tok, ExpiresAt: exp, User: u}, nil
}

func (s *authService) IssueToken(u *types.User) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(s.accessTTL)
	claims := Claims{
		Role: string(u.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.jwtSecretKey))
	if err != nil {
		return "", time.Time{}, apierr.Internal("token_sign_failed", err)
	}
	return signed, exp, nil
}

func (s *authService) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.jwtSecretKey), nil
	})
	if err != nil || !token.Valid {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apierr.New(apierr.KindUnauthorized, "token_expired", "token has expired", err)
		}
		return nil, apierr.New(apierr.KindUnauthorized, "invalid_token", "invalid token", err)
	}
	return claims, nil
}

// SetContextFromToken validates the token against the current user row, so
// deactivated users and role changes take effect before the token expires.
func (s *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	claims, err := s.ParseToken(tokenString)
	if err != nil {
		return nil, err
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, apierr.New(apierr.KindUnauthorized, "invalid_token", "invalid token subject", err)
	}
	u, err := s.users.GetByID(dbctx.Context{Ctx: ctx}, userID)
	if err != nil {
		return nil, dberr.Map("load token user", err)
	}
	if u == nil {
		return nil, apierr.Unauthorized("invalid_token", "user no longer exists")
	}
	if !u.IsActive {
		return nil, apierr.Forbidden("account_disabled", "this account has been disabled")
	}
	return ctxutil.WithRequestData(ctx, &ctxutil.RequestData{
		TokenString: tokenString,
		UserID:      u.ID,
		Role:        string(u.Role),
	}), nil
}

func (s *authService) Profile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	dbc := dbctx.Context{Ctx: ctx}
	u, err := s.users.GetByIDWithProfiles(dbc, userID)
	if err != nil {
		return nil, dberr.Map("get profile", err)
	}
	if u == nil {
		return nil, apierr.NotFound("user_not_found", "user not found")
	}
	out := &Profile{User: u, Grades: []*types.Grade{}}
	if u.InstitutionID != nil {
		inst, err := s.institutions.GetByID(dbc, *u.InstitutionID)
		if err != nil {
			return nil, dberr.Map("get profile institution", err)
		}
		out.Institution = inst
	}
	var f repos.GradeFilter
	switch {
	case u.TeacherProfile != nil:
		f.TeacherProfileID = &u.TeacherProfile.ID
	case u.StudentProfile != nil:
		f.StudentProfileID = &u.StudentProfile.ID
	default:
		return out, nil
	}
	f.Limit = maxPageSize
	grades, _, err := s.grades.List(dbc, f)
	if err != nil {
		return nil, dberr.Map("get profile grades", err)
	}
	out.Grades = grades
	return out, nil
}

func (s *authService) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	dbc := dbctx.Context{Ctx: ctx}
	u, err := s.users.GetByID(dbc, userID)
	if err != nil {
		return dberr.Map("change password", err)
	}
	if u == nil {
		return apierr.NotFound("user_not_found", "user not found")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(current)); err != nil {
		return apierr.Unauthorized("invalid_credentials", "current password is incorrect")
	}
	if len(next) < minPasswordLength {
		return apierr.Validation("weak_password", "password must be at least 6 characters").
			WithFields(apierr.FieldError{Field: "newPassword", Rule: "min"})
	}
	hashed, err := hashPassword(next)
	if err != nil {
		return err
	}
	if err := s.users.UpdateFields(dbc, userID, map[string]interface{}{"password": hashed}); err != nil {
		return dberr.Map("change password", err)
	}
	s.log.Info("password changed", "user_id", userID)
	return nil
}
