package logger

import "testing"

func TestSanitizeKVsRedactsSecrets(t *testing.T) {
	jwtLike := "eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiIxMjM0NTY3ODkwIn0.signature"
	out := sanitizeKVs([]interface{}{
		"password", "hunter2",
		"Authorization", "Bearer abc",
		"note", jwtLike,
		"email", "a@b.co",
		"dangling",
	})
	if len(out) != 9 {
		t.Fatalf("len: want=9 got=%d", len(out))
	}
	if out[1] != "[REDACTED]" {
		t.Fatalf("password: want=[REDACTED] got=%v", out[1])
	}
	if out[3] != "[REDACTED]" {
		t.Fatalf("authorization: want=[REDACTED] got=%v", out[3])
	}
	if out[5] != "[REDACTED]" {
		t.Fatalf("jwt value: want=[REDACTED] got=%v", out[5])
	}
	if out[7] != "a@b.co" {
		t.Fatalf("email: want=a@b.co got=%v", out[7])
	}
	if out[8] != "dangling" {
		t.Fatalf("dangling key: want=dangling got=%v", out[8])
	}
}

func TestNewModes(t *testing.T) {
	for _, mode := range []string{"production", "test", "development"} {
		l, err := New(mode)
		if err != nil {
			t.Fatalf("New(%q): %v", mode, err)
		}
		l.With("service", "X").Debug("hello", "k", "v")
	}
}
