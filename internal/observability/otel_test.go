package observability

import (
	"context"
	"testing"

	"github.com/yungbote/aula-backend/internal/pkg/logger"
)

func TestParseHeaders(t *testing.T) {
	got := ParseHeaders([]string{"api-key=abc", "bad", "=x", "tenant = aula "})
	if len(got) != 2 || got["api-key"] != "abc" || got["tenant"] != "aula" {
		t.Fatalf("headers: got=%v", got)
	}
	if ParseHeaders(nil) != nil {
		t.Fatalf("empty input: want=nil")
	}
}

func TestInitOTelDisabledIsNoop(t *testing.T) {
	shutdown := InitOTel(context.Background(), logger.Nop(), OtelConfig{Enabled: false})
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestClampRatio(t *testing.T) {
	for in, want := range map[float64]float64{-1: 0, 0.25: 0.25, 3: 1} {
		if got := clampRatio(in); got != want {
			t.Fatalf("clampRatio(%v): want=%v got=%v", in, want, got)
		}
	}
}
