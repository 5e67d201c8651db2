package driving

import "github.com/custodia-labs/meetsight/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves the effective settings: defaults, then the config
	// file, then environment overrides.
	Get() (*domain.AppSettings, error)

	// Save persists settings to the config file.
	Save(settings *domain.AppSettings) error
}
