package handlers

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/aula-backend/internal/http/response"
	"github.com/yungbote/aula-backend/internal/pkg/logger"
	"github.com/yungbote/aula-backend/internal/platform/apierr"
	"github.com/yungbote/aula-backend/internal/services"
)

type InvitationHandler struct {
	log         *logger.Logger
	invitations services.InvitationService
}

func NewInvitationHandler(log *logger.Logger, invitations services.InvitationService) *InvitationHandler {
	return &InvitationHandler{log: log.With("handler", "InvitationHandler"), invitations: invitations}
}

// POST /api/invitations/generate
func (h *InvitationHandler) Generate(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var req struct {
		GradeID       uuid.UUID  `json:"gradeId" binding:"required"`
		MaxUses       *int       `json:"maxUses"`
		ExpiresAt     *time.Time `json:"expiresAt"`
		ExpiresInDays int        `json:"expiresInDays"`
		Description   string     `json:"description"`
	}
	if !bindJSON(c, &req) {
		return
	}
	v, err := h.invitations.GenerateCode(c.Request.Context(), actor, services.GenerateCodeInput{
		GradeID:       req.GradeID,
		MaxUses:       req.MaxUses,
		ExpiresAt:     req.ExpiresAt,
		ExpiresInDays: req.ExpiresInDays,
		Description:   req.Description,
	})
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondCreated(c, v)
}

// POST /api/invitations/validate
func (h *InvitationHandler) Validate(c *gin.Context) {
	var req struct {
		Code string `json:"code" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	v, err := h.invitations.ValidateCode(c.Request.Context(), req.Code)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, v)
}

// POST /api/invitations/use registers a new student through the code.
func (h *InvitationHandler) Use(c *gin.Context) {
	var req struct {
		Code      string `json:"code" binding:"required"`
		Email     string `json:"email" binding:"required,email"`
		Password  string `json:"password" binding:"required"`
		FirstName string `json:"firstName" binding:"required"`
		LastName  string `json:"lastName" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.invitations.UseCode(c.Request.Context(), services.UseCodeInput{
		Code:      req.Code,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondCreated(c, res)
}

// POST /api/invitations/join enrolls the signed-in student.
func (h *InvitationHandler) Join(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var req struct {
		Code string `json:"code" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.invitations.JoinWithCode(c.Request.Context(), actor, req.Code)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, res)
}

// GET /api/invitations/my
func (h *InvitationHandler) ListMine(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	items, err := h.invitations.ListMine(c.Request.Context(), actor)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"items": items})
}

// GET /api/invitations/grade/:gradeId
func (h *InvitationHandler) ListByGrade(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	gradeID, ok := uuidParam(c, "gradeId")
	if !ok {
		return
	}
	items, err := h.invitations.ListByGrade(c.Request.Context(), actor, gradeID)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"items": items})
}

// GET /api/invitations/:id
func (h *InvitationHandler) Get(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	v, err := h.invitations.Get(c.Request.Context(), actor, id)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, v)
}

// PUT /api/invitations/:id
// An explicit null for maxUses or expiresAt removes the limit.
func (h *InvitationHandler) Update(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		IsActive    *bool           `json:"isActive"`
		MaxUses     json.RawMessage `json:"maxUses"`
		ExpiresAt   json.RawMessage `json:"expiresAt"`
		Description *string         `json:"description"`
	}
	if !bindJSON(c, &req) {
		return
	}
	in := services.UpdateCodeInput{IsActive: req.IsActive, Description: req.Description}
	var err error
	if in.ClearMaxUses, err = nullable(req.MaxUses, &in.MaxUses, "maxUses"); err != nil {
		response.RespondError(c, err)
		return
	}
	if in.ClearExpiresAt, err = nullable(req.ExpiresAt, &in.ExpiresAt, "expiresAt"); err != nil {
		response.RespondError(c, err)
		return
	}
	v, err := h.invitations.Update(c.Request.Context(), actor, id, in)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, v)
}

// nullable decodes raw into *dst; it reports true when raw is an explicit null.
func nullable[T any](raw json.RawMessage, dst **T, field string) (bool, error) {
	if len(raw) == 0 {
		return false, nil
	}
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return true, nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return false, apierr.Validation("invalid_"+snake(field), "invalid "+field).
			WithFields(apierr.FieldError{Field: field, Rule: "type"})
	}
	*dst = &v
	return false, nil
}

// DELETE /api/invitations/:id
func (h *InvitationHandler) Delete(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.invitations.Delete(c.Request.Context(), actor, id); err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}
