package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the closed set of failure classes surfaced to API clients.
type Kind string

const (
	KindValidation          Kind = "validation"
	KindUnauthorized        Kind = "unauthorized"
	KindForbidden           Kind = "forbidden"
	KindNotFound            Kind = "not_found"
	KindInsufficientCredits Kind = "insufficient_credits"
	KindConflict            Kind = "conflict"
	KindUpstream            Kind = "upstream"
	KindInternal            Kind = "internal"
)

// Status maps a kind to its HTTP status. Upstream provider and document backend
// failures report 500 like any other server-side fault; the kind and code tell them apart.
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindInsufficientCredits:
		return http.StatusPaymentRequired
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// FieldError names one rejected input field.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
	Fields  []FieldError
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	case e.Code != "":
		return e.Code
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Status is the HTTP status for the error's kind.
func (e *Error) Status() int {
	if e == nil {
		return http.StatusInternalServerError
	}
	return e.Kind.Status()
}

// PublicMessage is the message safe to show a client; it never includes the cause.
func (e *Error) PublicMessage() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return string(e.Kind)
}

func New(kind Kind, code, message string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: cause}
}

func Validation(code, message string) *Error { return New(KindValidation, code, message, nil) }
func Unauthorized(code, message string) *Error {
	return New(KindUnauthorized, code, message, nil)
}
func Forbidden(code, message string) *Error { return New(KindForbidden, code, message, nil) }
func NotFound(code, message string) *Error  { return New(KindNotFound, code, message, nil) }
func InsufficientCredits(balance, required int) *Error {
	return New(KindInsufficientCredits, "insufficient_credits",
		fmt.Sprintf("insufficient credits: balance %d, required %d", balance, required), nil)
}
func Conflict(code, message string) *Error { return New(KindConflict, code, message, nil) }
func Upstream(code, message string, cause error) *Error {
	return New(KindUpstream, code, message, cause)
}
func Internal(code string, cause error) *Error {
	return New(KindInternal, code, "", cause)
}

// WithFields attaches field-level validation details.
func (e *Error) WithFields(fields ...FieldError) *Error {
	e.Fields = append(e.Fields, fields...)
	return e
}

// As extracts the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) && ae != nil {
		return ae, true
	}
	return nil, false
}

// KindOf returns the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	if ae, ok := As(err); ok {
		return ae.Kind
	}
	return KindInternal
}

func IsKind(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}

func CodeOf(err error) string {
	if ae, ok := As(err); ok {
		return ae.Code
	}
	return ""
}
