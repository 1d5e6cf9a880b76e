package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/aula-backend/internal/http/response"
	"github.com/yungbote/aula-backend/internal/pkg/logger"
	"github.com/yungbote/aula-backend/internal/services"
)

type InstitutionHandler struct {
	log          *logger.Logger
	institutions services.InstitutionService
}

func NewInstitutionHandler(log *logger.Logger, institutions services.InstitutionService) *InstitutionHandler {
	return &InstitutionHandler{log: log.With("handler", "InstitutionHandler"), institutions: institutions}
}

// GET /api/institutions
func (h *InstitutionHandler) List(c *gin.Context) {
	f := services.InstitutionListFilter{
		Active: boolQuery(c, "active"),
		Search: c.Query("search"),
		Page:   pageQuery(c),
	}
	items, total, err := h.institutions.List(c.Request.Context(), f)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, pageResponse(items, total, f.Page))
}

// POST /api/institutions
func (h *InstitutionHandler) Create(c *gin.Context) {
	var req struct {
		Name    string  `json:"name" binding:"required"`
		Code    *string `json:"code"`
		Address string  `json:"address"`
		Phone   string  `json:"phone"`
		Email   string  `json:"email" binding:"omitempty,email"`
	}
	if !bindJSON(c, &req) {
		return
	}
	inst, err := h.institutions.Create(c.Request.Context(), services.InstitutionInput{
		Name:    req.Name,
		Code:    req.Code,
		Address: req.Address,
		Phone:   req.Phone,
		Email:   req.Email,
	})
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondCreated(c, inst)
}

// GET /api/institutions/:id
func (h *InstitutionHandler) Get(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	d, err := h.institutions.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, d)
}

// PUT /api/institutions/:id
func (h *InstitutionHandler) Update(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Name     *string `json:"name"`
		Code     *string `json:"code"`
		Address  *string `json:"address"`
		Phone    *string `json:"phone"`
		Email    *string `json:"email" binding:"omitempty,email"`
		IsActive *bool   `json:"isActive"`
	}
	if !bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	inst, err := h.institutions.Update(ctx, id, services.InstitutionUpdate{
		Name:    req.Name,
		Code:    req.Code,
		Address: req.Address,
		Phone:   req.Phone,
		Email:   req.Email,
	})
	if err == nil && req.IsActive != nil && *req.IsActive != inst.IsActive {
		inst, err = h.institutions.SetActive(ctx, id, *req.IsActive)
	}
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, inst)
}

// DELETE /api/institutions/:id deactivates; rows are never hard deleted.
func (h *InstitutionHandler) Delete(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	inst, err := h.institutions.SetActive(c.Request.Context(), id, false)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, inst)
}
