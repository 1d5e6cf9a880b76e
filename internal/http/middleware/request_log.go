package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/aula-backend/internal/http/response"
	"github.com/yungbote/aula-backend/internal/pkg/ctxutil"
	"github.com/yungbote/aula-backend/internal/pkg/logger"
)

// quietPaths are liveness probes; they are only logged when they fail.
var quietPaths = map[string]bool{
	"/health":     true,
	"/api/health": true,
}

// RequestLogger emits one access line per request once the handler chain returns.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		if quietPaths[route] && status < 400 {
			return
		}

		kv := []interface{}{
			"method", c.Request.Method,
			"route", route,
			"uri", c.Request.URL.RequestURI(),
			"status", status,
			"bytes", max(c.Writer.Size(), 0),
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		kv = append(kv, callerFields(c)...)
		if code := c.GetString(response.ErrorCodeKey); code != "" {
			kv = append(kv, "error_code", code)
		}

		logAt(log, status)("request served", kv...)
	}
}

func callerFields(c *gin.Context) []interface{} {
	var kv []interface{}
	ctx := c.Request.Context()
	if td := ctxutil.GetTraceData(ctx); td != nil {
		if td.TraceID != "" {
			kv = append(kv, "trace_id", td.TraceID)
		}
		if td.RequestID != "" {
			kv = append(kv, "request_id", td.RequestID)
		}
	}
	if rd := ctxutil.GetRequestData(ctx); rd != nil && rd.UserID != uuid.Nil {
		kv = append(kv, "user_id", rd.UserID.String(), "role", rd.Role)
	}
	return kv
}

func logAt(log *logger.Logger, status int) func(string, ...interface{}) {
	switch {
	case status >= 500:
		return log.Error
	case status >= 400:
		return log.Warn
	default:
		return log.Info
	}
}
