// Package provider constructs the Anthropic Messages API client.
package provider

import (
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// DefaultModel is used when no model is configured.
const DefaultModel = anthropic.ModelClaude3_7SonnetLatest

// Config carries everything the client needs; nothing is read from the
// environment here.
type Config struct {
	APIKey string
	// BaseURL overrides the API host, used by tests and proxies.
	BaseURL string
	// MaxRetries < 0 keeps the SDK default.
	MaxRetries int
	HTTPClient *http.Client
}

// NewAnthropicClient returns a client configured from cfg.
func NewAnthropicClient(cfg Config) *anthropic.Client {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.MaxRetries >= 0 {
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	c := anthropic.NewClient(opts...)
	return &c
}
