package cli

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/vietddude/stylelog"

	"github.com/vietddude/cemetery/internal/control"
	"github.com/vietddude/cemetery/internal/core/config"
	"github.com/vietddude/cemetery/internal/core/domain"
	"github.com/vietddude/cemetery/internal/registry"
)

var (
	cfgPath   string
	isDebug   bool
	useMemory bool
	principal string
)

var rootCmd = &cobra.Command{
	Use:   "registry",
	Short: "Cemetery register client",
	Long: `registry talks to a cemetery register service: it browses alleys and graves,
searches the public projection and performs role-gated administration.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "config file (default is config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&useMemory, "memory", false, "use an in-process registry instead of the configured endpoint")
	rootCmd.PersistentFlags().StringVar(&principal, "principal", "", "principal to sign in as (overrides auth.principal)")
}

// loadConfig reads the config file and initializes logging. A missing file
// falls back to defaults so --memory works without any setup.
func loadConfig() *config.AppConfig {
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if errors.Is(err, fs.ErrNotExist) {
		cfg, err = config.Default(), nil
	}
	if err != nil {
		stylelog.InitDefault()
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	slogLevel := slog.LevelInfo
	if isDebug || cfg.Logging.Level == "debug" {
		slogLevel = slog.LevelDebug
	}
	stylelog.InitDefault(&tint.Options{
		Level:      slogLevel,
		TimeFormat: time.RFC3339,
	})
	return cfg
}

// openApp builds the application and signs in the selected principal.
func openApp(ctx context.Context) (*control.App, *config.AppConfig) {
	cfg := loadConfig()
	controlCfg := control.FromAppConfig(cfg)
	controlCfg.Memory = useMemory

	app, err := control.NewApp(controlCfg)
	if err != nil {
		slog.Error("Failed to initialize registry client", "error", err)
		os.Exit(1)
	}

	role, err := app.SignIn(ctx, domain.Principal(principal))
	if err != nil {
		slog.Warn("Could not resolve access role", "error", err)
	} else {
		slog.Debug("Signed in", "role", role)
	}
	return app, cfg
}

// closeApp releases transports without starting a shutdown sequence.
func closeApp(app *control.App) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = app.Stop(ctx)
}

// report renders err the way the client presents failures and returns it so
// cobra sets the exit status.
func report(err error) error {
	if err == nil {
		return nil
	}
	p := registry.Present(err)
	if p.Retryable {
		pterm.Warning.Println(p.Text)
	} else {
		pterm.Error.Println(p.Text)
	}
	slog.Debug("Command failed", "error", err, "class", p.Class)
	return err
}
