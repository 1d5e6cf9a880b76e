package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/aula-backend/internal/domain"
	"github.com/yungbote/aula-backend/internal/http/response"
	"github.com/yungbote/aula-backend/internal/pkg/logger"
	"github.com/yungbote/aula-backend/internal/services"
)

// UserHandler serves the /api/admin surface.
type UserHandler struct {
	log   *logger.Logger
	users services.UserAdminService
}

func NewUserHandler(log *logger.Logger, users services.UserAdminService) *UserHandler {
	return &UserHandler{log: log.With("handler", "UserHandler"), users: users}
}

// GET /api/admin/users
func (h *UserHandler) List(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	instID, ok := uuidQuery(c, "institutionId")
	if !ok {
		return
	}
	f := services.UserListFilter{
		Role:          types.Role(c.Query("role")),
		InstitutionID: instID,
		Active:        boolQuery(c, "active"),
		Search:        c.Query("search"),
		Page:          pageQuery(c),
	}
	items, total, err := h.users.List(c.Request.Context(), actor, f)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, pageResponse(items, total, f.Page))
}

// GET /api/admin/users/:id
func (h *UserHandler) Get(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	u, err := h.users.Get(c.Request.Context(), actor, id)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, u)
}

// POST /api/admin/users
func (h *UserHandler) Create(c *gin.Context) {
	var req struct {
		Email         string     `json:"email" binding:"required,email"`
		Password      string     `json:"password" binding:"required"`
		FirstName     string     `json:"firstName" binding:"required"`
		LastName      string     `json:"lastName" binding:"required"`
		Role          string     `json:"role" binding:"required"`
		InstitutionID *uuid.UUID `json:"institutionId"`
	}
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.users.Create(c.Request.Context(), services.CreateUserInput{
		Email:         req.Email,
		Password:      req.Password,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Role:          types.Role(req.Role),
		InstitutionID: req.InstitutionID,
	})
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondCreated(c, u)
}

// PUT /api/admin/users/:id
func (h *UserHandler) Update(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Email            *string    `json:"email" binding:"omitempty,email"`
		FirstName        *string    `json:"firstName"`
		LastName         *string    `json:"lastName"`
		InstitutionID    *uuid.UUID `json:"institutionId"`
		ClearInstitution bool       `json:"clearInstitution"`
	}
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.users.Update(c.Request.Context(), id, services.UpdateUserInput{
		Email:            req.Email,
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		InstitutionID:    req.InstitutionID,
		ClearInstitution: req.ClearInstitution,
	})
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, u)
}

// PUT /api/admin/users/:id/role
func (h *UserHandler) ChangeRole(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Role string `json:"role" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.users.ChangeRole(c.Request.Context(), actor, id, types.Role(req.Role))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, u)
}

// PUT /api/admin/users/:id/status
func (h *UserHandler) SetStatus(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		IsActive *bool `json:"isActive" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.users.SetActive(c.Request.Context(), actor, id, *req.IsActive)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, u)
}

// PUT /api/admin/users/:id/password
func (h *UserHandler) ResetPassword(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Password string `json:"password" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if err := h.users.ResetPassword(c.Request.Context(), id, req.Password); err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// DELETE /api/admin/users/:id
func (h *UserHandler) Delete(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.users.Delete(c.Request.Context(), actor, id); err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// GET /api/admin/stats
func (h *UserHandler) Stats(c *gin.Context) {
	st, err := h.users.Stats(c.Request.Context())
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, st)
}
