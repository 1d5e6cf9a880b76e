package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yungbote/aula-backend/internal/http/response"
	"github.com/yungbote/aula-backend/internal/pkg/logger"
	"github.com/yungbote/aula-backend/internal/platform/apierr"
)

func TestRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.DebugLevel)
	log := &logger.Logger{SugaredLogger: zap.New(core).Sugar()}

	r := gin.New()
	r.Use(RequestLogger(log))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/activities/:id", func(c *gin.Context) {
		response.RespondError(c, apierr.NotFound("activity_not_found", "activity not found"))
	})
	r.GET("/api/boom", func(c *gin.Context) {
		response.RespondError(c, apierr.Upstream("generation_failed", "failed", nil))
	})

	for _, path := range []string{"/health", "/api/activities/abc", "/api/boom"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("entries: want=2 (health is quiet) got=%d", len(entries))
	}
	cases := []struct {
		level zapcore.Level
		route string
		code  string
	}{
		{zapcore.WarnLevel, "/api/activities/:id", "activity_not_found"},
		{zapcore.ErrorLevel, "/api/boom", "generation_failed"},
	}
	for i, tc := range cases {
		e := entries[i]
		fields := e.ContextMap()
		if e.Level != tc.level {
			t.Fatalf("entry %d level: want=%s got=%s", i, tc.level, e.Level)
		}
		if fields["route"] != tc.route {
			t.Fatalf("entry %d route: want=%s got=%v", i, tc.route, fields["route"])
		}
		if fields["error_code"] != tc.code {
			t.Fatalf("entry %d error_code: want=%s got=%v", i, tc.code, fields["error_code"])
		}
	}
}
