package config

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	herrors "github.com/pbaille/hop/internal/errors"
	"github.com/pbaille/hop/internal/paths"
)

// Config holds every tunable of the store, the matcher and the ranker
type Config struct {
	DataDir  string `mapstructure:"data_dir"`
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`

	// Frecency
	HalfLife         time.Duration `mapstructure:"half_life"`
	RescaleThreshold int64         `mapstructure:"rescale_threshold"`
	RescaleFactor    int64         `mapstructure:"rescale_factor"`

	// Ranking weights
	WeightText     float64 `mapstructure:"weight_text"`
	WeightFrecency float64 `mapstructure:"weight_frecency"`

	// Edit-distance budget thresholds, in characters
	ExactMaxLen   int `mapstructure:"exact_max_len"`
	OneEditMaxLen int `mapstructure:"one_edit_max_len"`

	// Store
	BusyTimeout time.Duration `mapstructure:"busy_timeout"`
	MaxRetries  int           `mapstructure:"max_retries"`

	// Glob patterns of directories never recorded
	ExcludeDirs []string `mapstructure:"exclude_dirs"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		LogLevel:         "warn",
		HalfLife:         14 * 24 * time.Hour,
		RescaleThreshold: 10000,
		RescaleFactor:    2,
		WeightText:       0.6,
		WeightFrecency:   0.4,
		ExactMaxLen:      2,
		OneEditMaxLen:    5,
		BusyTimeout:      5 * time.Second,
		MaxRetries:       5,
		ExcludeDirs:      []string{},
	}
}

// Load reads configuration with precedence flags > HOP_* environment >
// config file > defaults. An empty configFile means
// <config dir>/config.toml, which may be absent.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	def := DefaultConfig()
	v.SetDefault("data_dir", "")
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("log_file", "")
	v.SetDefault("half_life", def.HalfLife)
	v.SetDefault("rescale_threshold", def.RescaleThreshold)
	v.SetDefault("rescale_factor", def.RescaleFactor)
	v.SetDefault("weight_text", def.WeightText)
	v.SetDefault("weight_frecency", def.WeightFrecency)
	v.SetDefault("exact_max_len", def.ExactMaxLen)
	v.SetDefault("one_edit_max_len", def.OneEditMaxLen)
	v.SetDefault("busy_timeout", def.BusyTimeout)
	v.SetDefault("max_retries", def.MaxRetries)
	v.SetDefault("exclude_dirs", def.ExcludeDirs)

	v.SetEnvPrefix("HOP")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for key, name := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	v.SetConfigType("toml")
	readFile := true
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else if dir, err := paths.ConfigDir(); err == nil {
		v.SetConfigName("config")
		v.AddConfigPath(dir)
	} else {
		readFile = false
	}

	if readFile {
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if configFile != "" || !errors.As(err, &notFound) {
				return nil, herrors.New(herrors.InvalidConfig, "read config", err).WithPath(configFile)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, herrors.New(herrors.InvalidConfig, "decode config", err)
	}

	if cfg.DataDir == "" {
		dir, err := paths.DataDir()
		if err != nil {
			return nil, herrors.New(herrors.StoreUnavailable, "locate data directory", err)
		}
		cfg.DataDir = dir
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// flagKeys maps config keys to the CLI flags that override them
var flagKeys = map[string]string{
	"data_dir":  "data-dir",
	"log_level": "log-level",
	"log_file":  "log-file",
}

// StorePath is the database file inside DataDir
func (c *Config) StorePath() string {
	return paths.StorePath(c.DataDir)
}

// Validate checks value ranges
func (c *Config) Validate() error {
	switch {
	case c.HalfLife <= 0:
		return &ConfigError{Field: "half_life", Message: "must be positive"}
	case c.RescaleThreshold <= 0:
		return &ConfigError{Field: "rescale_threshold", Message: "must be positive"}
	case c.RescaleFactor < 2:
		return &ConfigError{Field: "rescale_factor", Message: "must be at least 2"}
	case c.WeightText < 0 || c.WeightFrecency < 0:
		return &ConfigError{Field: "weight_text/weight_frecency", Message: "must not be negative"}
	case c.WeightText+c.WeightFrecency == 0:
		return &ConfigError{Field: "weight_text/weight_frecency", Message: "must not both be zero"}
	case c.ExactMaxLen < 0 || c.OneEditMaxLen < c.ExactMaxLen:
		return &ConfigError{Field: "exact_max_len/one_edit_max_len", Message: "must satisfy 0 <= exact_max_len <= one_edit_max_len"}
	case c.MaxRetries < 0:
		return &ConfigError{Field: "max_retries", Message: "must not be negative"}
	}
	for _, p := range c.ExcludeDirs {
		if _, err := filepath.Match(p, ""); err != nil {
			return &ConfigError{Field: "exclude_dirs", Message: fmt.Sprintf("bad pattern %q", p)}
		}
	}
	return nil
}

// Encode renders the configuration as TOML
func (c *Config) Encode() (string, error) {
	// durations are written in their string form so the output reads back
	out := fileConfig{
		DataDir:          c.DataDir,
		LogLevel:         c.LogLevel,
		LogFile:          c.LogFile,
		HalfLife:         c.HalfLife.String(),
		RescaleThreshold: c.RescaleThreshold,
		RescaleFactor:    c.RescaleFactor,
		WeightText:       c.WeightText,
		WeightFrecency:   c.WeightFrecency,
		ExactMaxLen:      c.ExactMaxLen,
		OneEditMaxLen:    c.OneEditMaxLen,
		BusyTimeout:      c.BusyTimeout.String(),
		MaxRetries:       c.MaxRetries,
		ExcludeDirs:      c.ExcludeDirs,
	}
	if out.ExcludeDirs == nil {
		out.ExcludeDirs = []string{}
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(out); err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return buf.String(), nil
}

type fileConfig struct {
	DataDir          string   `toml:"data_dir"`
	LogLevel         string   `toml:"log_level"`
	LogFile          string   `toml:"log_file,omitempty"`
	HalfLife         string   `toml:"half_life"`
	RescaleThreshold int64    `toml:"rescale_threshold"`
	RescaleFactor    int64    `toml:"rescale_factor"`
	WeightText       float64  `toml:"weight_text"`
	WeightFrecency   float64  `toml:"weight_frecency"`
	ExactMaxLen      int      `toml:"exact_max_len"`
	OneEditMaxLen    int      `toml:"one_edit_max_len"`
	BusyTimeout      string   `toml:"busy_timeout"`
	MaxRetries       int      `toml:"max_retries"`
	ExcludeDirs      []string `toml:"exclude_dirs"`
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}

// Unwrap lets callers classify a ConfigError as InvalidConfig
func (e *ConfigError) Unwrap() error {
	return herrors.New(herrors.InvalidConfig, e.Message, nil)
}
