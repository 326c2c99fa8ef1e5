package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrMissingAPIKey is returned by constructors of tools that cannot run without a key.
var ErrMissingAPIKey = errors.New("missing api key")

const defaultHTTPTimeout = 15 * time.Second

// maxErrorBody caps how much of a failed upstream response is echoed back to the model.
const maxErrorBody = 512

const userAgent = "concept-tutor/1.0 (+https://github.com/petasbytes/concept-tutor)"

func httpClientOrDefault(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return &http.Client{Timeout: defaultHTTPTimeout}
}

// do executes req and returns the body of a 200 response. Non-200 responses
// become an ERR_UPSTREAM_STATUS ToolError so the model sees a bounded message.
func do(ctx context.Context, client *http.Client, req *http.Request, service string) ([]byte, error) {
	req = req.WithContext(ctx)
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", userAgent)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", service, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, ToolError{
			Code:    "ERR_UPSTREAM_STATUS",
			Message: fmt.Sprintf("%s returned status %d: %s", service, resp.StatusCode, string(body)),
		}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s read response: %w", service, err)
	}
	return body, nil
}

func marshalResult(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func clampLimit(requested, fallback, ceiling int) int {
	n := requested
	if n <= 0 {
		n = fallback
	}
	if ceiling > 0 && n > ceiling {
		n = ceiling
	}
	return n
}
