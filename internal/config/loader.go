package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, as in QUADQUERY_BACKEND.
const EnvPrefix = "QUADQUERY"

// FileName is the configuration file searched for when no path is given.
const FileName = "quadquery"

// keys lists every scalar configuration key. Viper only consults the
// environment for keys it knows about; headers come from the file only.
var keys = []string{
	"backend",
	"queryEndpoint",
	"updateEndpoint",
	"setTimestamps",
	"timeout",
	"storePath",
	"maxSolutions",
	"logLevel",
}

// Loader reads configuration with viper. Precedence, highest first:
// bound flags, environment, file, defaults.
type Loader struct {
	v         *viper.Viper
	validator *Validator
}

// NewLoader returns a loader seeded with DefaultConfig.
func NewLoader() *Loader {
	v := viper.New()
	def := DefaultConfig()
	v.SetDefault("backend", def.Backend)
	v.SetDefault("queryEndpoint", def.QueryEndpoint)
	v.SetDefault("updateEndpoint", def.UpdateEndpoint)
	v.SetDefault("setTimestamps", def.SetTimestamps)
	v.SetDefault("timeout", def.Timeout)
	v.SetDefault("storePath", def.StorePath)
	v.SetDefault("maxSolutions", def.MaxSolutions)
	v.SetDefault("logLevel", def.LogLevel)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range keys {
		// QUADQUERY_QUERY_ENDPOINT as well as QUADQUERY_QUERYENDPOINT.
		_ = v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(key), EnvPrefix+"_"+envName(key))
	}
	return &Loader{v: v, validator: NewValidator()}
}

// BindFlag makes flag override the configuration key. Unchanged flags
// leave the key alone.
func (l *Loader) BindFlag(key string, flag *pflag.Flag) error {
	if flag == nil {
		return fmt.Errorf("bind %s: nil flag", key)
	}
	return l.v.BindPFlag(key, flag)
}

// Load reads the configuration. A non-empty path must exist; an empty
// path searches the working directory for quadquery.yaml and falls back
// to defaults when there is none.
func (l *Loader) Load(path string) (*Config, error) {
	if path != "" {
		l.v.SetConfigFile(path)
	} else {
		l.v.SetConfigName(FileName)
		l.v.SetConfigType("yaml")
		l.v.AddConfigPath(".")
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := l.validator.Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ConfigFileUsed returns the file the last Load read, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// envName converts a camelCase key to SCREAMING_SNAKE_CASE.
func envName(key string) string {
	var b strings.Builder
	for i, r := range key {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteRune('_')
		}
		b.WriteRune(r)
	}
	return strings.ToUpper(b.String())
}
