package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/aula-backend/internal/http/response"
	"github.com/yungbote/aula-backend/internal/platform/apierr"
	"github.com/yungbote/aula-backend/internal/services"
)

// actorOrAbort reads the authenticated caller; it writes the 401 itself.
func actorOrAbort(c *gin.Context) (services.Actor, bool) {
	actor, err := services.ActorFromContext(c.Request.Context())
	if err != nil {
		response.RespondError(c, err)
		return services.Actor{}, false
	}
	return actor, true
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil || id == uuid.Nil {
		response.RespondError(c, apierr.Validation("invalid_"+snake(name), "invalid "+name).
			WithFields(apierr.FieldError{Field: name, Rule: "uuid"}))
		return uuid.Nil, false
	}
	return id, true
}

func uuidQuery(c *gin.Context, name string) (*uuid.UUID, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		response.RespondError(c, apierr.Validation("invalid_"+snake(name), "invalid "+name).
			WithFields(apierr.FieldError{Field: name, Rule: "uuid"}))
		return nil, false
	}
	return &id, true
}

func boolQuery(c *gin.Context, name string) *bool {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &v
}

func pageQuery(c *gin.Context) services.Page {
	page, _ := strconv.Atoi(c.Query("page"))
	size, _ := strconv.Atoi(c.DefaultQuery("pageSize", c.Query("limit")))
	return services.Page{Page: page, PageSize: size}.Normalize()
}

func pageResponse(items any, total int64, p services.Page) response.Page {
	return response.Page{Items: items, Total: total, Page: p.Page, Limit: p.PageSize}
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.RespondError(c, response.BindingError(err))
		return false
	}
	return true
}

// snake turns a camelCase parameter name into snake_case for error codes.
func snake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
