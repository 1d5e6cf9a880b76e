package response

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/yungbote/aula-backend/internal/platform/apierr"
)

type APIError struct {
	Message string              `json:"message"`
	Code    string              `json:"code,omitempty"`
	Kind    apierr.Kind         `json:"kind,omitempty"`
	Fields  []apierr.FieldError `json:"fields,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// Page is the listing envelope shared by every paginated endpoint.
type Page struct {
	Items any   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

// ErrorCodeKey holds the machine code of the error written for the request, for access logs.
const ErrorCodeKey = "aula.error_code"

// RespondError writes err as the standard error envelope. Foreign errors are
// treated as internal, and internal causes are only shown outside release mode.
func RespondError(c *gin.Context, err error) {
	status, body := statusAndBody(err)
	c.Set(ErrorCodeKey, body.Error.Code)
	c.AbortWithStatusJSON(status, body)
}

func statusAndBody(err error) (int, ErrorEnvelope) {
	ae, ok := apierr.As(err)
	if !ok {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			ae = BindingError(verrs)
		} else {
			ae = apierr.Internal("internal_error", err)
		}
	}
	body := APIError{
		Message: ae.PublicMessage(),
		Code:    ae.Code,
		Kind:    ae.Kind,
		Fields:  ae.Fields,
	}
	if ae.Kind == apierr.KindInternal {
		body.Message = "internal server error"
		if gin.Mode() != gin.ReleaseMode && ae.Err != nil {
			body.Message = ae.Err.Error()
		}
	}
	return ae.Status(), ErrorEnvelope{Error: body}
}

// BindingError converts gin binding failures into a validation error with
// per-field details.
func BindingError(err error) *apierr.Error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apierr.New(apierr.KindValidation, "invalid_body", "malformed request body", err)
	}
	out := apierr.Validation("invalid_body", "request validation failed")
	for _, fe := range verrs {
		out.WithFields(apierr.FieldError{
			Field: lowerFirst(fe.Field()),
			Rule:  fe.Tag(),
		})
	}
	return out
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}

func RespondNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
