package handlers

import (
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/aula-backend/internal/http/response"
	"github.com/yungbote/aula-backend/internal/pkg/logger"
	"github.com/yungbote/aula-backend/internal/services"
)

type ExportHandler struct {
	log    *logger.Logger
	export services.ExportService
}

func NewExportHandler(log *logger.Logger, export services.ExportService) *ExportHandler {
	return &ExportHandler{log: log.With("handler", "ExportHandler"), export: export}
}

// GET /api/export/:id/:format
func (h *ExportHandler) Export(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	f, err := h.export.Export(c.Request.Context(), actor, id, c.Param("format"))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": f.Name}))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, f.ContentType, f.Data)
}
