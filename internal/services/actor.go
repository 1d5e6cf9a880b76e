package services

import (
	"context"

	"github.com/google/uuid"

	types "github.com/yungbote/aula-backend/internal/domain"
	"github.com/yungbote/aula-backend/internal/pkg/ctxutil"
	"github.com/yungbote/aula-backend/internal/platform/apierr"
)

// Actor is the authenticated caller an operation is performed for.
type Actor struct {
	UserID uuid.UUID
	Role   types.Role
}

func (a Actor) IsAdmin() bool   { return a.Role == types.RoleAdmin }
func (a Actor) IsTeacher() bool { return a.Role == types.RoleTeacher }
func (a Actor) IsStudent() bool { return a.Role == types.RoleStudent }

// ActorFromContext reads the caller set by the auth middleware.
func ActorFromContext(ctx context.Context) (Actor, error) {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return Actor{}, apierr.Unauthorized("unauthenticated", "authentication required")
	}
	return Actor{UserID: rd.UserID, Role: types.Role(rd.Role)}, nil
}
