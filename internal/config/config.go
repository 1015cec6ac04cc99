// Package config loads adapter configuration from a YAML file, the
// environment and command-line flags.
package config

import "time"

// Backend names.
const (
	BackendMemory = "memory"
	BackendRemote = "remote"
)

// Config is the adapter configuration.
type Config struct {
	// Backend selects the executor: "memory" or "remote".
	Backend string `mapstructure:"backend" validate:"required,oneof=memory remote"`

	// QueryEndpoint is the SPARQL query endpoint of the remote backend.
	QueryEndpoint string `mapstructure:"queryEndpoint" validate:"required_if=Backend remote,omitempty,url"`

	// UpdateEndpoint is the SPARQL update endpoint of the remote backend.
	// Empty means QueryEndpoint.
	UpdateEndpoint string `mapstructure:"updateEndpoint" validate:"omitempty,url"`

	// SetTimestamps stamps dcterms:created and dcterms:modified on save
	// and update.
	SetTimestamps bool `mapstructure:"setTimestamps"`

	// Headers are sent with every remote request, typically for endpoint
	// authentication. Viper lowercases the names; HTTP canonicalizes them.
	Headers map[string]string `mapstructure:"headers"`

	// Timeout bounds each remote call. Zero disables the bound.
	Timeout time.Duration `mapstructure:"timeout" validate:"gte=0"`

	// StorePath is the SQLite database of the memory backend.
	StorePath string `mapstructure:"storePath" validate:"required_if=Backend memory"`

	// MaxSolutions is the solution budget of the memory backend. Zero
	// means the engine default.
	MaxSolutions int `mapstructure:"maxSolutions" validate:"gte=0"`

	// LogLevel is a logrus level name.
	LogLevel string `mapstructure:"logLevel" validate:"omitempty,oneof=trace debug info warn warning error"`
}

// DefaultConfig returns the configuration used when nothing is set: a
// private in-memory store.
func DefaultConfig() *Config {
	return &Config{
		Backend:   BackendMemory,
		StorePath: ":memory:",
		Timeout:   30 * time.Second,
		LogLevel:  "info",
	}
}
