package dberr

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/yungbote/aula-backend/internal/platform/apierr"
)

// Map translates persistence failures into the API error taxonomy.
// Errors that already carry a kind pass through untouched.
func Map(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apierr.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apierr.New(apierr.KindNotFound, "not_found", op+": record not found", err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apierr.New(apierr.KindConflict, "unique_violation", op+": already exists", err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return apierr.New(apierr.KindConflict, "foreign_key_violation", op+": referenced record missing or in use", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return apierr.Internal("request_cancelled", err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case "23505":
			return apierr.New(apierr.KindConflict, "unique_violation", op+": already exists", err)
		case "23503":
			return apierr.New(apierr.KindConflict, "foreign_key_violation", op+": referenced record missing or in use", err)
		case "40001", "40P01":
			return apierr.New(apierr.KindConflict, "concurrent_update", op+": conflicting concurrent update, retry", err)
		}
	}
	return apierr.Internal("database_error", err)
}

// IsUnique reports whether err is a unique-constraint violation from any driver.
func IsUnique(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
