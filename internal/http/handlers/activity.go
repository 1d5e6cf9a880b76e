package handlers

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/aula-backend/internal/domain"
	"github.com/yungbote/aula-backend/internal/http/response"
	"github.com/yungbote/aula-backend/internal/pkg/logger"
	"github.com/yungbote/aula-backend/internal/platform/apierr"
	"github.com/yungbote/aula-backend/internal/services"
)

const maxUploadBytes = 10 << 20

type ActivityHandler struct {
	log        *logger.Logger
	activities services.ActivityService
	ai         services.AIService
	credits    services.CreditService
}

func NewActivityHandler(
	log *logger.Logger,
	activities services.ActivityService,
	ai services.AIService,
	credits services.CreditService,
) *ActivityHandler {
	return &ActivityHandler{
		log:        log.With("handler", "ActivityHandler"),
		activities: activities,
		ai:         ai,
		credits:    credits,
	}
}

type generateRequest struct {
	Title       string `json:"title" form:"title"`
	Instruction string `json:"instruction" form:"instruction"`
	Type        string `json:"type" form:"type"`
	Provider    string `json:"provider" form:"provider"`
	Visibility  string `json:"visibility" form:"visibility"`
	Subject     string `json:"subject" form:"subject"`
	GradeLevel  string `json:"gradeLevel" form:"gradeLevel"`
}

// POST /api/activities/generate
// Accepts JSON, or multipart with an optional "file" reference document.
func (h *ActivityHandler) Generate(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	var req generateRequest
	var upload *services.Upload
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := c.ShouldBind(&req); err != nil {
			response.RespondError(c, response.BindingError(err))
			return
		}
		u, err := readUpload(c)
		if err != nil {
			response.RespondError(c, err)
			return
		}
		upload = u
	} else if !bindJSON(c, &req) {
		return
	}

	out, err := h.activities.Generate(c.Request.Context(), actor, services.GenerateInput{
		Title:       req.Title,
		Instruction: req.Instruction,
		Type:        req.Type,
		Provider:    req.Provider,
		Visibility:  req.Visibility,
		Subject:     req.Subject,
		GradeLevel:  req.GradeLevel,
		File:        upload,
	})
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondCreated(c, out)
}

func readUpload(c *gin.Context) (*services.Upload, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		// the attachment is optional
		return nil, nil
	}
	if fh.Size > maxUploadBytes {
		return nil, apierr.Validation("file_too_large", "the attached file exceeds 10 MB")
	}
	f, err := fh.Open()
	if err != nil {
		return nil, apierr.Validation("invalid_file", "could not read the attached file")
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
	if err != nil {
		return nil, apierr.Validation("invalid_file", "could not read the attached file")
	}
	if len(data) > maxUploadBytes {
		return nil, apierr.Validation("file_too_large", "the attached file exceeds 10 MB")
	}
	return &services.Upload{Name: fh.Filename, Data: data}, nil
}

// POST /api/activities
func (h *ActivityHandler) Create(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var req struct {
		Title      string          `json:"title" binding:"required"`
		Type       string          `json:"type" binding:"required"`
		Visibility string          `json:"visibility"`
		Subject    string          `json:"subject"`
		GradeLevel string          `json:"gradeLevel"`
		Content    json.RawMessage `json:"content" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	a, err := h.activities.Create(c.Request.Context(), actor, services.CreateActivityInput{
		Title:      req.Title,
		Type:       req.Type,
		Visibility: req.Visibility,
		Subject:    req.Subject,
		GradeLevel: req.GradeLevel,
		Content:    req.Content,
	})
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondCreated(c, a)
}

type activityTypeView struct {
	Type    types.ActivityType `json:"type"`
	Welcome string             `json:"welcomeMessage,omitempty"`
}

type providerView struct {
	Provider types.Provider `json:"provider"`
	Cost     int            `json:"cost"`
}

// GET /api/activities/types
func (h *ActivityHandler) Types(c *gin.Context) {
	typesOut := make([]activityTypeView, 0, len(types.ActivityTypes))
	for _, t := range types.ActivityTypes {
		v := activityTypeView{Type: t}
		if tpl, ok := h.ai.Template(t); ok {
			v.Welcome = tpl.Welcome
		}
		typesOut = append(typesOut, v)
	}
	costs := h.credits.Costs()
	provs := make([]providerView, 0, len(costs))
	for _, p := range h.ai.Available() {
		provs = append(provs, providerView{Provider: p, Cost: costs[p]})
	}
	response.RespondOK(c, gin.H{"types": typesOut, "providers": provs})
}

func listFilter(c *gin.Context) services.ActivityListFilter {
	return services.ActivityListFilter{
		Type:       c.Query("type"),
		Subject:    c.Query("subject"),
		GradeLevel: c.Query("gradeLevel"),
		Visibility: c.Query("visibility"),
		Page:       pageQuery(c),
	}
}

// GET /api/activities/my-activities
func (h *ActivityHandler) ListMine(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	f := listFilter(c)
	items, total, err := h.activities.ListForOwner(c.Request.Context(), actor.UserID, f)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, pageResponse(items, total, f.Page))
}

// GET /api/activities/public
func (h *ActivityHandler) ListPublic(c *gin.Context) {
	f := listFilter(c)
	f.Visibility = ""
	items, total, err := h.activities.ListPublic(c.Request.Context(), f)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, pageResponse(items, total, f.Page))
}

// GET /api/activities/:id
func (h *ActivityHandler) Get(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	a, err := h.activities.GetByID(c.Request.Context(), actor, id)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, a)
}

// PUT /api/activities/:id
func (h *ActivityHandler) Update(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Title      *string         `json:"title"`
		Visibility *string         `json:"visibility"`
		Subject    *string         `json:"subject"`
		GradeLevel *string         `json:"gradeLevel"`
		Content    json.RawMessage `json:"content"`
	}
	if !bindJSON(c, &req) {
		return
	}
	a, err := h.activities.Update(c.Request.Context(), actor, id, services.UpdateActivityInput{
		Title:      req.Title,
		Visibility: req.Visibility,
		Subject:    req.Subject,
		GradeLevel: req.GradeLevel,
		Content:    req.Content,
	})
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, a)
}

// DELETE /api/activities/:id
func (h *ActivityHandler) Delete(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.activities.Delete(c.Request.Context(), actor, id); err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}
