package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/yungbote/aula-backend/internal/pkg/httpx"
	"github.com/yungbote/aula-backend/internal/pkg/logger"
)

// Transport is the shared JSON-over-HTTP plumbing for provider adapters.
type Transport struct {
	Provider   string
	BaseURL    string
	Headers    map[string]string
	HTTPClient *http.Client
	MaxRetries int
	Log        *logger.Logger
}

func (t *Transport) doOnce(ctx context.Context, method, path string, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, t.BaseURL+path, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range t.Headers {
		req.Header.Set(k, v)
	}

	client := t.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &HTTPError{Provider: t.Provider, StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}

// Do sends body and decodes the JSON reply into out, retrying transient
// failures up to MaxRetries times with jittered exponential backoff.
func (t *Transport) Do(ctx context.Context, method, path string, body any, out any) error {
	backoff := 1 * time.Second
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		resp, raw, err := t.doOnce(ctx, method, path, body)
		if err == nil {
			if out == nil {
				return nil
			}
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("%s decode error: %w", t.Provider, uErr)
			}
			return nil
		}
		if attempt >= t.MaxRetries || !httpx.IsRetryableError(err) || ctx.Err() != nil {
			return err
		}

		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 10*time.Second))
		if t.Log != nil {
			t.Log.Warn("LLM request retrying",
				"provider", t.Provider,
				"path", path,
				"attempt", attempt+1,
				"max_retries", t.MaxRetries,
				"sleep", sleepFor.String(),
				"error", err.Error(),
			)
		}
		if sErr := httpx.Sleep(ctx, sleepFor); sErr != nil {
			return err
		}
		backoff *= 2
	}
}
