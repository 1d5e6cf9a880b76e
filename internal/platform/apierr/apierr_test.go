package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindStatus(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:          http.StatusBadRequest,
		KindUnauthorized:        http.StatusUnauthorized,
		KindForbidden:           http.StatusForbidden,
		KindNotFound:            http.StatusNotFound,
		KindInsufficientCredits: http.StatusPaymentRequired,
		KindConflict:            http.StatusConflict,
		KindUpstream:            http.StatusInternalServerError,
		KindInternal:            http.StatusInternalServerError,
	}
	for kind, want := range cases {
		if got := kind.Status(); got != want {
			t.Fatalf("%s: want=%d got=%d", kind, want, got)
		}
	}
}

func TestKindOfThroughWrapping(t *testing.T) {
	base := Conflict("email_taken", "email already registered")
	wrapped := fmt.Errorf("register: %w", base)
	if !IsKind(wrapped, KindConflict) {
		t.Fatalf("IsKind: want conflict, got %s", KindOf(wrapped))
	}
	if got := CodeOf(wrapped); got != "email_taken" {
		t.Fatalf("CodeOf: want=email_taken got=%q", got)
	}
	if got := KindOf(errors.New("boom")); got != KindInternal {
		t.Fatalf("foreign error: want=internal got=%s", got)
	}
	if IsKind(nil, KindInternal) {
		t.Fatalf("nil error must not match any kind")
	}
}

func TestPublicMessageHidesCause(t *testing.T) {
	e := Internal("db_failure", errors.New("pq: password authentication failed"))
	if got := e.PublicMessage(); got != "db_failure" {
		t.Fatalf("PublicMessage: want=db_failure got=%q", got)
	}
}
