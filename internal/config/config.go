// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads bridge configuration from defaults, a YAML file, the
// environment and command-line flags, in that order of precedence.
package config

import (
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/caarlos0/env/v11"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/holomush/hookbridge/internal/control"
	"github.com/holomush/hookbridge/internal/logging"
	"github.com/holomush/hookbridge/internal/plugin"
	"github.com/holomush/hookbridge/internal/runner"
	"github.com/holomush/hookbridge/internal/xdg"
)

// EnvPrefix prefixes every environment variable the bridge reads.
const EnvPrefix = "HOOKBRIDGE_"

// CodeInvalidConfig marks configuration that failed to load or validate.
const CodeInvalidConfig = "INVALID_CONFIG"

// Config is the bridge configuration.
type Config struct {
	ScriptsDir    string              `koanf:"scripts_dir"`
	TickInterval  time.Duration       `koanf:"tick_interval"`
	LogFormat     string              `koanf:"log_format"`
	LogLevel      string              `koanf:"log_level"`
	MetricsAddr   string              `koanf:"metrics_addr"`
	ControlSocket string              `koanf:"control_socket"`
	Seed          uint64              `koanf:"seed"`
	APIVersion    string              `koanf:"api_version"`
	Grants        map[string][]string `koanf:"grants"`
}

// envConfig mirrors the scalar keys that may come from the environment.
type envConfig struct {
	ScriptsDir    string        `env:"SCRIPTS_DIR"`
	TickInterval  time.Duration `env:"TICK_INTERVAL"`
	LogFormat     string        `env:"LOG_FORMAT"`
	LogLevel      string        `env:"LOG_LEVEL"`
	MetricsAddr   string        `env:"METRICS_ADDR"`
	ControlSocket string        `env:"CONTROL_SOCKET"`
	Seed          uint64        `env:"SEED"`
	APIVersion    string        `env:"API_VERSION"`
}

// flagKeys maps flag names to configuration keys.
var flagKeys = map[string]string{
	"scripts-dir":    "scripts_dir",
	"tick-interval":  "tick_interval",
	"log-format":     "log_format",
	"log-level":      "log_level",
	"metrics-addr":   "metrics_addr",
	"control-socket": "control_socket",
	"seed":           "seed",
	"api-version":    "api_version",
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() Config {
	return Config{
		ScriptsDir:    xdg.ScriptsDir(),
		TickInterval:  runner.DefaultInterval,
		LogFormat:     "json",
		LogLevel:      "info",
		ControlSocket: control.DefaultSocketPath(),
		APIVersion:    plugin.APIVersion,
	}
}

// RegisterFlags adds the configuration flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Defaults()
	fs.String("scripts-dir", d.ScriptsDir, "directory scripts are discovered in")
	fs.Duration("tick-interval", d.TickInterval, "period between timer sweeps")
	fs.String("log-format", d.LogFormat, "log format (json, text)")
	fs.String("log-level", d.LogLevel, "log level (debug, info, warn, error)")
	fs.String("metrics-addr", d.MetricsAddr, "address for /metrics and health probes (empty disables)")
	fs.String("control-socket", d.ControlSocket, "unix socket for status and shutdown (empty disables)")
	fs.Uint64("seed", d.Seed, "random seed for timer delay ranges (0 picks one)")
	fs.String("api-version", d.APIVersion, "bridge API version scripts are checked against")
}

// Load reads configuration from path (skipped when empty), the process
// environment and the changed flags in fs (skipped when nil).
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	return LoadWithEnv(path, fs, nil)
}

// LoadWithEnv is Load with an explicit environment. A nil environ reads the
// process environment.
func LoadWithEnv(path string, fs *pflag.FlagSet, environ map[string]string) (*Config, error) {
	k := koanf.New(".")
	errb := oops.In("config").Code(CodeInvalidConfig)

	d := Defaults()
	defaults := map[string]any{
		"scripts_dir":    d.ScriptsDir,
		"tick_interval":  d.TickInterval,
		"log_format":     d.LogFormat,
		"log_level":      d.LogLevel,
		"metrics_addr":   d.MetricsAddr,
		"control_socket": d.ControlSocket,
		"seed":           d.Seed,
		"api_version":    d.APIVersion,
	}
	for key, val := range defaults {
		if err := k.Set(key, val); err != nil {
			return nil, errb.With("key", key).Wrapf(err, "set default")
		}
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errb.With("path", path).Wrapf(err, "load config file")
		}
	}

	if err := loadEnv(k, environ); err != nil {
		return nil, errb.Wrapf(err, "load environment")
	}

	if fs != nil {
		provider := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(fs, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, errb.Wrapf(err, "load flags")
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errb.Wrapf(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadEnv copies every HOOKBRIDGE_ variable that is set and non-empty into k.
func loadEnv(k *koanf.Koanf, environ map[string]string) error {
	var setErr error
	var parsed envConfig
	err := env.ParseWithOptions(&parsed, env.Options{
		Prefix:      EnvPrefix,
		Environment: environ,
		OnSet: func(tag string, value any, isDefault bool) {
			if isDefault || setErr != nil {
				return
			}
			if s, ok := value.(string); ok && s == "" {
				return
			}
			key := strings.ToLower(strings.TrimPrefix(tag, EnvPrefix))
			setErr = k.Set(key, value)
		},
	})
	if err != nil {
		return err
	}
	return setErr
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	errb := oops.In("config").Code(CodeInvalidConfig)
	if c.ScriptsDir == "" {
		return errb.Errorf("scripts_dir must not be empty")
	}
	if c.TickInterval <= 0 {
		return errb.With("tick_interval", c.TickInterval).Errorf("tick_interval must be positive, got %s", c.TickInterval)
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return errb.With("log_format", c.LogFormat).Errorf("log_format must be json or text, got %q", c.LogFormat)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return errb.With("log_level", c.LogLevel).Errorf("log_level must be debug, info, warn or error, got %q", c.LogLevel)
	}
	if _, err := semver.StrictNewVersion(c.APIVersion); err != nil {
		return errb.With("api_version", c.APIVersion).Wrapf(err, "api_version must be a semantic version")
	}
	for script, patterns := range c.Grants {
		for _, p := range patterns {
			if p == "" {
				return errb.With("script", script).Errorf("grants for %s contain an empty pattern", script)
			}
		}
	}
	return nil
}
