package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/aula-backend/internal/http/response"
	"github.com/yungbote/aula-backend/internal/pkg/logger"
	"github.com/yungbote/aula-backend/internal/services"
)

type GradeHandler struct {
	log    *logger.Logger
	grades services.GradeService
}

func NewGradeHandler(log *logger.Logger, grades services.GradeService) *GradeHandler {
	return &GradeHandler{log: log.With("handler", "GradeHandler"), grades: grades}
}

// GET /api/grades
func (h *GradeHandler) List(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	instID, ok := uuidQuery(c, "institutionId")
	if !ok {
		return
	}
	f := services.GradeListFilter{InstitutionID: instID, Active: boolQuery(c, "active"), Page: pageQuery(c)}
	items, total, err := h.grades.List(c.Request.Context(), actor, f)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, pageResponse(items, total, f.Page))
}

// POST /api/grades
func (h *GradeHandler) Create(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var req struct {
		Name          string     `json:"name" binding:"required"`
		Level         string     `json:"level" binding:"required"`
		Section       string     `json:"section"`
		AcademicYear  string     `json:"academicYear"`
		Description   string     `json:"description"`
		InstitutionID *uuid.UUID `json:"institutionId"`
		TeacherID     *uuid.UUID `json:"teacherId"`
	}
	if !bindJSON(c, &req) {
		return
	}
	g, err := h.grades.Create(c.Request.Context(), actor, services.GradeInput{
		Name:          req.Name,
		Level:         req.Level,
		Section:       req.Section,
		AcademicYear:  req.AcademicYear,
		Description:   req.Description,
		InstitutionID: req.InstitutionID,
		TeacherID:     req.TeacherID,
	})
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondCreated(c, g)
}

// GET /api/grades/:id
func (h *GradeHandler) Get(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	g, err := h.grades.Get(c.Request.Context(), actor, id)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, g)
}

// PUT /api/grades/:id
func (h *GradeHandler) Update(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Name         *string    `json:"name"`
		Level        *string    `json:"level"`
		Section      *string    `json:"section"`
		AcademicYear *string    `json:"academicYear"`
		Description  *string    `json:"description"`
		IsActive     *bool      `json:"isActive"`
		TeacherID    *uuid.UUID `json:"teacherId"`
	}
	if !bindJSON(c, &req) {
		return
	}
	g, err := h.grades.Update(c.Request.Context(), actor, id, services.GradeUpdate{
		Name:         req.Name,
		Level:        req.Level,
		Section:      req.Section,
		AcademicYear: req.AcademicYear,
		Description:  req.Description,
		IsActive:     req.IsActive,
		TeacherID:    req.TeacherID,
	})
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, g)
}

// DELETE /api/grades/:id
func (h *GradeHandler) Delete(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.grades.Delete(c.Request.Context(), actor, id); err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// POST /api/grades/:id/students
func (h *GradeHandler) AddStudent(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		StudentID uuid.UUID `json:"studentId" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	g, err := h.grades.AddStudent(c.Request.Context(), actor, id, req.StudentID)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondCreated(c, g)
}

// DELETE /api/grades/:id/students/:studentId
func (h *GradeHandler) RemoveStudent(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	studentID, ok := uuidParam(c, "studentId")
	if !ok {
		return
	}
	if err := h.grades.RemoveStudent(c.Request.Context(), actor, id, studentID); err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}
