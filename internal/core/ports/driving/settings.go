package driving

import "github.com/custodia-labs/ragtube/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings, defaults applied.
	Get() (*domain.AppSettings, error)

	// Set updates a single setting by key. The value is parsed according to
	// the key's type and the resulting settings are validated before saving.
	Set(key, value string) error

	// Keys returns the known setting keys.
	Keys() []string

	// ConfigPath returns the location of the settings file.
	ConfigPath() string
}
