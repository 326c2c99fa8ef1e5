// Package cli holds the start-up steps shared by cmd/tutor and cmd/playground.
package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/petasbytes/concept-tutor/internal/catalog"
	"github.com/petasbytes/concept-tutor/internal/config"
	"github.com/petasbytes/concept-tutor/internal/logging"
	"github.com/petasbytes/concept-tutor/internal/telemetry"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const shutdownTimeout = 10 * time.Second

// Flags are the persistent flags every command carries.
type Flags struct {
	ConfigFile string
	EnvFile    string
}

// Env is everything a command needs after start-up.
type Env struct {
	Config    *config.Config
	Logger    *logging.Logger
	Telemetry *telemetry.Sink
	Agents    *catalog.Set
}

// Close releases the log file.
func (e *Env) Close() error {
	return e.Logger.Close()
}

// AddFlags registers --config, --env-file, --log-level and an --addr flag
// bound to addrKey on v.
func AddFlags(cmd *cobra.Command, v *viper.Viper, f *Flags, addrKey, addrDefault string) {
	pf := cmd.PersistentFlags()
	pf.StringVarP(&f.ConfigFile, "config", "c", "", "config file (default is ./config.yaml)")
	pf.StringVar(&f.EnvFile, "env-file", ".env", "dotenv file loaded before the environment is read")
	pf.String("log-level", "", "log level: DEBUG, INFO, WARN or ERROR")
	pf.String("addr", addrDefault, "listen address")
	_ = v.BindPFlag("logging.level", pf.Lookup("log-level"))
	_ = v.BindPFlag(addrKey, pf.Lookup("addr"))
}

// Bootstrap loads configuration, validates it and builds the agent catalog.
func Bootstrap(v *viper.Viper, f Flags) (*Env, error) {
	if err := config.LoadDotEnv(f.EnvFile); err != nil {
		return nil, err
	}
	config.SetDefaults(v)
	if err := config.ReadFile(v, f.ConfigFile, v.GetString("data_dir")); err != nil {
		return nil, err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logDir := ""
	if cfg.Logging.ToFile {
		logDir = cfg.DataDir
	}
	logger, err := logging.NewFile(logDir, cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	sink := telemetry.New(telemetry.Config{Enabled: cfg.Telemetry.Enabled, Dir: cfg.DataDir})

	set, err := catalog.Build(cfg, catalog.Deps{Telemetry: sink, Logger: logger})
	if err != nil {
		logger.Close()
		return nil, err
	}
	return &Env{Config: cfg, Logger: logger, Telemetry: sink, Agents: set}, nil
}

// Serve runs h on addr until SIGINT/SIGTERM, then shuts down gracefully.
func Serve(ctx context.Context, addr string, h http.Handler, logger *logging.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigch)
	go func() {
		select {
		case <-sigch:
			logger.Info("shutting down")
			cancel()
		case <-ctx.Done():
		}
	}()

	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
