package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError is a single invalid field.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects every failure found by Validate.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// ValidLogLevels returns the accepted logging.level values.
func ValidLogLevels() []string {
	return []string{"DEBUG", "INFO", "WARN", "ERROR"}
}

// Validate returns ValidationErrors, or nil when c is usable.
// The Giphy key is checked by the agent factory, not here.
func (c *Config) Validate() error {
	var errs ValidationErrors
	add := func(field string, value any, msg string) {
		errs = append(errs, ValidationError{Field: field, Value: value, Message: msg})
	}

	if c.AnthropicAPIKey == "" {
		add("anthropic_api_key", "", "is required; set ANTHROPIC_API_KEY")
	}
	if strings.TrimSpace(c.Model) == "" {
		add("model", c.Model, "must not be empty")
	}
	if c.MaxTokens <= 0 {
		add("max_tokens", c.MaxTokens, "must be positive")
	}
	if c.MaxSteps <= 0 {
		add("max_steps", c.MaxSteps, "must be positive")
	}
	if c.TokenBudget <= 0 {
		add("token_budget", c.TokenBudget, "must be positive")
	}
	if strings.TrimSpace(c.CodeLanguage) == "" {
		add("code_language", c.CodeLanguage, "must not be empty")
	}
	if strings.TrimSpace(c.DataDir) == "" {
		add("data_dir", c.DataDir, "must not be empty")
	}
	if c.UI.Addr == "" {
		add("ui.addr", c.UI.Addr, "must not be empty")
	}
	if c.Playground.Addr == "" {
		add("playground.addr", c.Playground.Addr, "must not be empty")
	}
	if !slices.Contains(ValidLogLevels(), strings.ToUpper(c.Logging.Level)) {
		add("logging.level", c.Logging.Level, "must be one of "+strings.Join(ValidLogLevels(), ", "))
	}
	if c.Tools.HTTPTimeout <= 0 {
		add("tools.http_timeout", c.Tools.HTTPTimeout, "must be positive")
	}
	if c.Tools.WebMaxResults <= 0 {
		add("tools.web_max_results", c.Tools.WebMaxResults, "must be positive")
	}
	if c.Tools.GitHubMaxResults <= 0 {
		add("tools.github_max_results", c.Tools.GitHubMaxResults, "must be positive")
	}
	if c.Tools.GiphyLimit <= 0 {
		add("tools.giphy_limit", c.Tools.GiphyLimit, "must be positive")
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}
