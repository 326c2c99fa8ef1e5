package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/petasbytes/concept-tutor/internal/logging"
	"github.com/petasbytes/concept-tutor/tools"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func setKeys(t *testing.T, anthropic, giphy string) {
	t.Helper()
	t.Setenv("ANTHROPIC_API_KEY", anthropic)
	t.Setenv("GIPHY_API_KEY", giphy)
	t.Setenv("TUTOR_ANTHROPIC_API_KEY", "")
	t.Setenv("TUTOR_GIPHY_API_KEY", "")
}

func TestBootstrap_OK(t *testing.T) {
	setKeys(t, "sk-test", "giphy-test")
	t.Setenv("TUTOR_DATA_DIR", t.TempDir())
	env, err := Bootstrap(viper.New(), Flags{EnvFile: filepath.Join(t.TempDir(), "missing.env")})
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	defer env.Close()
	if env.Agents.Web == nil || env.Agents.Team == nil {
		t.Fatal("agents not built")
	}
	if env.Agents.Runner.Telemetry != env.Telemetry {
		t.Error("runner should use the bootstrap telemetry sink")
	}
}

func TestBootstrap_MissingAnthropicKey(t *testing.T) {
	setKeys(t, "", "giphy-test")
	_, err := Bootstrap(viper.New(), Flags{EnvFile: filepath.Join(t.TempDir(), "missing.env")})
	if err == nil || !strings.Contains(err.Error(), "ANTHROPIC_API_KEY") {
		t.Fatalf("expected validation error naming ANTHROPIC_API_KEY, got %v", err)
	}
}

func TestBootstrap_MissingGiphyKey(t *testing.T) {
	setKeys(t, "sk-test", "")
	_, err := Bootstrap(viper.New(), Flags{EnvFile: filepath.Join(t.TempDir(), "missing.env")})
	if !errors.Is(err, tools.ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestBootstrap_EnvFileAndFlags(t *testing.T) {
	setKeys(t, "sk-test", "")
	os.Unsetenv("GIPHY_API_KEY")
	t.Cleanup(func() { os.Unsetenv("GIPHY_API_KEY") })
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("GIPHY_API_KEY=from-dotenv\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	v := viper.New()
	var f Flags
	cmd := &cobra.Command{Use: "test"}
	AddFlags(cmd, v, &f, "ui.addr", ":8501")
	if err := cmd.PersistentFlags().Parse([]string{"--addr", ":9999", "--log-level", "DEBUG", "--env-file", envFile}); err != nil {
		t.Fatal(err)
	}

	env, err := Bootstrap(v, f)
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	defer env.Close()
	if env.Config.GiphyAPIKey != "from-dotenv" {
		t.Errorf("GiphyAPIKey = %q", env.Config.GiphyAPIKey)
	}
	if env.Config.UI.Addr != ":9999" || env.Config.Logging.Level != "DEBUG" {
		t.Errorf("flags not applied: addr=%q level=%q", env.Config.UI.Addr, env.Config.Logging.Level)
	}
}

func TestServe_ListenError(t *testing.T) {
	err := Serve(context.Background(), "256.0.0.1:bad", http.NotFoundHandler(), logging.Nop())
	if err == nil {
		t.Fatal("expected listen error")
	}
}

func TestServe_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Serve(ctx, "127.0.0.1:0", http.NotFoundHandler(), logging.Nop()); err != nil {
		t.Fatalf("expected clean shutdown, got %v", err)
	}
}
