// Package cli is the cobra command tree for meetsight.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/meetsight/internal/adapters/driven/ai"
	"github.com/custodia-labs/meetsight/internal/adapters/driven/config/file"
	"github.com/custodia-labs/meetsight/internal/core/domain"
	"github.com/custodia-labs/meetsight/internal/core/ports/driven"
	"github.com/custodia-labs/meetsight/internal/core/ports/driving"
	"github.com/custodia-labs/meetsight/internal/core/services"
	"github.com/custodia-labs/meetsight/internal/logger"
)

var (
	// version is set by the build via SetVersion.
	version = "dev"

	// configPath overrides ~/.meetsight/config.toml.
	configPath string

	verbose bool

	// settingsService is resolved lazily so commands that need no
	// configuration (version, help) never touch the config directory.
	settingsService driving.SettingsService

	// openBackend builds the pipeline from settings. Replaced in tests.
	openBackend = openRuntimeBackend
)

// healthChecker reports collaborator health.
type healthChecker interface {
	CheckHealth(ctx context.Context) ai.HealthReport
}

// backend is what the pipeline commands need from the runtime.
type backend struct {
	settings *domain.AppSettings
	meetings driving.MeetingService
	health   healthChecker
	prompts  driven.PromptStore
	formats  driven.NormaliserRegistry
	close    func() error
}

// Close releases the collaborator handles.
func (b *backend) Close() error {
	if b == nil || b.close == nil {
		return nil
	}
	return b.close()
}

var rootCmd = &cobra.Command{
	Use:   "meetsight",
	Short: "Meeting transcripts in, action items and answers out",
	Long: `meetsight ingests meeting transcripts or recordings, indexes them for
semantic retrieval and extracts action items, decisions and participant
interactions with a local language model. Questions about a meeting are
answered from its most relevant transcript passages.

Configuration lives in ~/.meetsight/config.toml and can be overridden with
MEETSIGHT_* environment variables or a .env file in the working directory.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.meetsight/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print debug logs, including raw model output")
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// SetSettingsService injects the settings service instead of building one
// from the config file.
func SetSettingsService(s driving.SettingsService) {
	settingsService = s
}

func setup(_ *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	return loadDotEnv(".env")
}

// loadDotEnv loads path into the environment. A missing file is not an
// error; variables already set win.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load %s: %w", path, err)
}

// getSettingsService returns the injected settings service or builds one
// over the TOML config file.
func getSettingsService() (driving.SettingsService, error) {
	if settingsService != nil {
		return settingsService, nil
	}

	var (
		store *file.ConfigStore
		err   error
	)
	if configPath != "" {
		store, err = file.OpenConfigFile(configPath)
	} else {
		store, err = file.NewConfigStore("")
	}
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	logger.Debug("Using config %s", store.Path())

	settingsService = services.NewSettingsService(store)
	return settingsService, nil
}

// openRuntimeBackend resolves settings and connects every collaborator.
func openRuntimeBackend(ctx context.Context) (*backend, error) {
	svc, err := getSettingsService()
	if err != nil {
		return nil, err
	}
	settings, err := svc.Get()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	rt, err := ai.NewRuntime(ctx, settings)
	if err != nil {
		return nil, err
	}
	return &backend{
		settings: settings,
		meetings: rt.Meetings,
		health:   rt,
		prompts:  rt.Prompts,
		formats:  rt.Normalisers,
		close:    rt.Close,
	}, nil
}

// closeBackend closes b and logs a failure.
func closeBackend(b *backend) {
	if err := b.Close(); err != nil {
		logger.Warn("Closing collaborators: %v", err)
	}
}

// pipelineError logs the raw error and returns the message users see.
func pipelineError(err error) error {
	logger.Debug("Pipeline error: %v", err)
	return errors.New(services.PublicMessage(err))
}
