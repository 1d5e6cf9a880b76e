package llm

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync/atomic"
	"testing"
)

type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader([]byte(body))),
	}
}

func TestDecodeJSONObject(t *testing.T) {
	cases := []struct {
		name  string
		in    string
		ok    bool
		start string
	}{
		{"plain", `{"a":1}`, true, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", true, `{"a":1}`},
		{"prose", "Here you go: {\"a\": [1,2]} enjoy", true, `{"a": [1,2]}`},
		{"array", `[1,2,3]`, false, ""},
		{"broken", `{"a":`, false, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeJSONObject(tc.in)
			if tc.ok != (err == nil) {
				t.Fatalf("DecodeJSONObject: want ok=%v got err=%v", tc.ok, err)
			}
			if tc.ok && string(got) != tc.start {
				t.Fatalf("DecodeJSONObject: want=%s got=%s", tc.start, got)
			}
		})
	}
}

func TestSplitSystem(t *testing.T) {
	system, rest := SplitSystem([]Message{
		{Role: RoleSystem, Content: "a"},
		{Role: RoleAssistant, Content: "hi"},
		{Role: RoleUser, Content: "q"},
	})
	if system != "a" || len(rest) != 2 {
		t.Fatalf("SplitSystem: want system=a rest=2 got system=%q rest=%d", system, len(rest))
	}
}

func TestTransportRetriesTransientErrors(t *testing.T) {
	var calls int32
	tr := &Transport{
		Provider:   "test",
		BaseURL:    "http://upstream",
		MaxRetries: 1,
		HTTPClient: &http.Client{Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if atomic.AddInt32(&calls, 1) == 1 {
				r := jsonResponse(http.StatusServiceUnavailable, `{"error":"busy"}`)
				r.Header.Set("Retry-After", "0")
				return r, nil
			}
			return jsonResponse(http.StatusOK, `{"ok":true}`), nil
		})},
	}
	var out struct {
		OK bool `json:"ok"`
	}
	if err := tr.Do(context.Background(), http.MethodPost, "/x", map[string]string{"a": "b"}, &out); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if !out.OK || atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("Do: want ok after 2 calls got ok=%v calls=%d", out.OK, calls)
	}
}

func TestTransportNoRetryByDefault(t *testing.T) {
	var calls int32
	tr := &Transport{
		Provider: "test",
		BaseURL:  "http://upstream",
		HTTPClient: &http.Client{Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			atomic.AddInt32(&calls, 1)
			return jsonResponse(http.StatusInternalServerError, `boom`), nil
		})},
	}
	err := tr.Do(context.Background(), http.MethodPost, "/x", nil, nil)
	herr, ok := err.(*HTTPError)
	if !ok || herr.StatusCode != 500 {
		t.Fatalf("Do: want *HTTPError 500 got=%v", err)
	}
	if calls != 1 {
		t.Fatalf("calls: want=1 got=%d", calls)
	}
}
