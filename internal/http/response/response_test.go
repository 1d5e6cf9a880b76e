package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/aula-backend/internal/platform/apierr"
)

func serve(t *testing.T, err error) (int, ErrorEnvelope) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", func(c *gin.Context) { RespondError(c, err) })
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	var env ErrorEnvelope
	if e := json.Unmarshal(rec.Body.Bytes(), &env); e != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), e)
	}
	return rec.Code, env
}

func TestRespondErrorMapsKinds(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{apierr.Validation("missing_title", "title is required"), http.StatusBadRequest, "missing_title"},
		{apierr.Unauthorized("invalid_token", "invalid token"), http.StatusUnauthorized, "invalid_token"},
		{apierr.Forbidden("access_denied", "no"), http.StatusForbidden, "access_denied"},
		{apierr.NotFound("activity_not_found", "gone"), http.StatusNotFound, "activity_not_found"},
		{apierr.InsufficientCredits(5, 10), http.StatusPaymentRequired, "insufficient_credits"},
		{apierr.Conflict("email_taken", "taken"), http.StatusConflict, "email_taken"},
		{apierr.Upstream("generation_failed", "failed", errors.New("boom")), http.StatusInternalServerError, "generation_failed"},
		{errors.New("plain"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		status, env := serve(t, tc.err)
		if status != tc.status {
			t.Fatalf("%v status: want=%d got=%d", tc.err, tc.status, status)
		}
		if env.Error.Code != tc.code {
			t.Fatalf("%v code: want=%s got=%s", tc.err, tc.code, env.Error.Code)
		}
	}
}

func TestUpstreamMessageHidesCause(t *testing.T) {
	_, env := serve(t, apierr.Upstream("generation_failed", "generation failed", errors.New("api key sk-123")))
	if env.Error.Message != "generation failed" {
		t.Fatalf("message: want=%q got=%q", "generation failed", env.Error.Message)
	}
}

func TestValidationFieldsAreReturned(t *testing.T) {
	gin.SetMode(gin.TestMode)
	type body struct {
		Email string `json:"email" binding:"required,email"`
	}
	r := gin.New()
	r.POST("/x", func(c *gin.Context) {
		var b body
		if err := c.ShouldBindJSON(&b); err != nil {
			RespondError(c, BindingError(err))
			return
		}
		RespondOK(c, b)
	})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"email":"nope"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: want=%d got=%d", http.StatusBadRequest, rec.Code)
	}
	var env ErrorEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	if len(env.Error.Fields) != 1 || env.Error.Fields[0].Field != "email" || env.Error.Fields[0].Rule != "email" {
		t.Fatalf("fields: got=%+v", env.Error.Fields)
	}
}
