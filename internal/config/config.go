// Package config loads tutor settings from defaults, a .env file, an optional
// config file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/petasbytes/concept-tutor/internal/provider"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every viper-managed key, e.g. TUTOR_UI_ADDR.
const EnvPrefix = "TUTOR"

// Config is passed into every constructor; nothing reads the environment after Load.
type Config struct {
	AnthropicAPIKey string `mapstructure:"anthropic_api_key"`
	GiphyAPIKey     string `mapstructure:"giphy_api_key"`
	GitHubToken     string `mapstructure:"github_token"`

	Model        string `mapstructure:"model"`
	MaxTokens    int64  `mapstructure:"max_tokens"`
	MaxSteps     int    `mapstructure:"max_steps"`
	TokenBudget  int    `mapstructure:"token_budget"`
	CodeLanguage string `mapstructure:"code_language"`
	DataDir      string `mapstructure:"data_dir"`

	UI         UIConfig         `mapstructure:"ui"`
	Playground PlaygroundConfig `mapstructure:"playground"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
	Tools      ToolsConfig      `mapstructure:"tools"`
}

type UIConfig struct {
	Addr string `mapstructure:"addr"`
}

type PlaygroundConfig struct {
	Addr string `mapstructure:"addr"`
	// IncludeTeam also serves the coordinating team agent.
	IncludeTeam bool `mapstructure:"include_team"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
	// ToFile writes {data_dir}/tutor.log instead of stderr.
	ToFile bool `mapstructure:"to_file"`
}

type TelemetryConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// ToolsConfig tunes the search tools.
type ToolsConfig struct {
	HTTPTimeout      time.Duration `mapstructure:"http_timeout"`
	WebMaxResults    int           `mapstructure:"web_max_results"`
	GitHubMaxResults int           `mapstructure:"github_max_results"`
	GiphyLimit       int           `mapstructure:"giphy_limit"`
}

// Default returns the built-in settings. API keys are empty.
func Default() *Config {
	return &Config{
		Model:        string(provider.DefaultModel),
		MaxTokens:    1024,
		MaxSteps:     6,
		TokenBudget:  60000,
		CodeLanguage: "Python",
		DataDir:      ".tutor",
		UI:           UIConfig{Addr: ":8501"},
		Playground:   PlaygroundConfig{Addr: ":7777"},
		Logging:      LoggingConfig{Level: "INFO"},
		Tools: ToolsConfig{
			HTTPTimeout:      15 * time.Second,
			WebMaxResults:    5,
			GitHubMaxResults: 3,
			GiphyLimit:       1,
		},
	}
}

// SetDefaults registers Default() on v and wires environment lookup.
// Provider-native variables take precedence over their TUTOR_ aliases.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("anthropic_api_key", "")
	v.SetDefault("giphy_api_key", "")
	v.SetDefault("github_token", "")
	v.SetDefault("model", d.Model)
	v.SetDefault("max_tokens", d.MaxTokens)
	v.SetDefault("max_steps", d.MaxSteps)
	v.SetDefault("token_budget", d.TokenBudget)
	v.SetDefault("code_language", d.CodeLanguage)
	v.SetDefault("data_dir", d.DataDir)

	v.SetDefault("ui.addr", d.UI.Addr)

	v.SetDefault("playground.addr", d.Playground.Addr)
	v.SetDefault("playground.include_team", d.Playground.IncludeTeam)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.to_file", d.Logging.ToFile)

	v.SetDefault("telemetry.enabled", d.Telemetry.Enabled)

	v.SetDefault("tools.http_timeout", d.Tools.HTTPTimeout)
	v.SetDefault("tools.web_max_results", d.Tools.WebMaxResults)
	v.SetDefault("tools.github_max_results", d.Tools.GitHubMaxResults)
	v.SetDefault("tools.giphy_limit", d.Tools.GiphyLimit)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("anthropic_api_key", "ANTHROPIC_API_KEY", EnvPrefix+"_ANTHROPIC_API_KEY")
	_ = v.BindEnv("giphy_api_key", "GIPHY_API_KEY", EnvPrefix+"_GIPHY_API_KEY")
	_ = v.BindEnv("github_token", "GITHUB_TOKEN", EnvPrefix+"_GITHUB_TOKEN")
}

// LoadDotEnv loads .env files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("config: load %s: %w", p, err)
		}
	}
	return nil
}

// ReadFile reads path into v. With an empty path it looks for config.yaml in
// the working directory and dataDir, and a missing file is not an error.
func ReadFile(v *viper.Viper, path, dataDir string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("config: read %s: %w", path, err)
		}
		return nil
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if dataDir != "" {
		v.AddConfigPath(filepath.Clean(dataDir))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("config: read config file: %w", err)
	}
	return nil
}

// Load unmarshals v into a Config. It does not validate.
func Load(v *viper.Viper) (*Config, error) {
	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	cfg.AnthropicAPIKey = strings.TrimSpace(cfg.AnthropicAPIKey)
	cfg.GiphyAPIKey = strings.TrimSpace(cfg.GiphyAPIKey)
	cfg.GitHubToken = strings.TrimSpace(cfg.GitHubToken)
	return cfg, nil
}
