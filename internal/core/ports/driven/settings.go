package driven

import "github.com/custodia-labs/ragstore/internal/core/domain"

// SettingsStore persists application settings.
// Implementations handle storage (e.g., TOML files) and change notification.
type SettingsStore interface {
	// Load reads settings from storage, applying defaults for absent fields.
	Load() (domain.AppSettings, error)

	// Save persists the settings to storage.
	Save(settings domain.AppSettings) error

	// Watch invokes fn with freshly loaded settings whenever the backing
	// storage changes. It returns a stop function releasing the watcher.
	// Implementations that cannot watch return a no-op stop function.
	Watch(fn func(domain.AppSettings)) (stop func(), err error)

	// Path returns the storage location, for diagnostics.
	Path() string
}
