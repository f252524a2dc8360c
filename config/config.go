package config

import (
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"

	"github.com/szervas/fusebox/internal/circuitbreaker"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

type ServerConfig struct {
	Address     string `mapstructure:"address"`
	Environment string `mapstructure:"environment"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// BreakerOverride tunes the numeric settings of one profile-table entry.
// Zero fields keep the profile's value; fallbacks and classifiers stay in
// code and cannot be overridden from configuration.
type BreakerOverride struct {
	Name             string `mapstructure:"name"`
	FailureThreshold int    `mapstructure:"failure_threshold"`
	SuccessThreshold int    `mapstructure:"success_threshold"`
	Timeout          string `mapstructure:"timeout"`
	ResetTimeout     string `mapstructure:"reset_timeout"`
}

type BreakersConfig struct {
	Overrides []BreakerOverride `mapstructure:"overrides"`
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Breakers BreakersConfig `mapstructure:"breakers"`
}

func Load() (*Config, error) {
	viper.SetDefault("server.environment", EnvDev)
	viper.SetDefault("server.address", ":8090")
	viper.SetDefault("logging.level", LogLevelInfo)

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Info("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", viper.ConfigFileUsed()))
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server,
			validation.Required,
			validation.By(func(value interface{}) error {
				sc, ok := value.(ServerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ServerConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.Environment,
						validation.Required,
						validation.In(EnvDev, EnvStaging, EnvProd),
					),
					validation.Field(&sc.Address,
						validation.Required,
						validation.By(validateHostPort),
					),
				)
			}),
		),
		validation.Field(&c.Logging,
			validation.Required,
			validation.By(func(value interface{}) error {
				lc, ok := value.(LoggingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.Level,
						validation.Required,
						validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
					),
				)
			}),
		),
		validation.Field(&c.Breakers,
			validation.By(func(value interface{}) error {
				bc, ok := value.(BreakersConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a BreakersConfig")
				}
				for _, override := range bc.Overrides {
					if err := validateOverride(override); err != nil {
						return err
					}
				}
				return nil
			}),
		),
	)
}

// Profiles applies the configured overrides to the built-in profile table.
// Overrides naming a profile that does not exist are rejected.
func (c *Config) Profiles() ([]circuitbreaker.Config, error) {
	profiles := circuitbreaker.DefaultProfiles()

	byName := make(map[string]int, len(profiles))
	for i, profile := range profiles {
		byName[profile.Name] = i
	}

	for _, override := range c.Breakers.Overrides {
		i, exists := byName[override.Name]
		if !exists {
			return nil, fmt.Errorf("breaker override %q does not match any profile", override.Name)
		}

		if override.FailureThreshold > 0 {
			profiles[i].FailureThreshold = override.FailureThreshold
		}
		if override.SuccessThreshold > 0 {
			profiles[i].SuccessThreshold = override.SuccessThreshold
		}
		if override.Timeout != "" {
			d, err := time.ParseDuration(override.Timeout)
			if err != nil {
				return nil, fmt.Errorf("breaker override %q: invalid timeout: %w", override.Name, err)
			}
			profiles[i].Timeout = d
		}
		if override.ResetTimeout != "" {
			d, err := time.ParseDuration(override.ResetTimeout)
			if err != nil {
				return nil, fmt.Errorf("breaker override %q: invalid reset_timeout: %w", override.Name, err)
			}
			profiles[i].ResetTimeout = d
		}
	}

	return profiles, nil
}

func validateOverride(override BreakerOverride) error {
	return validation.ValidateStruct(&override,
		validation.Field(&override.Name, validation.Required),
		validation.Field(&override.FailureThreshold, validation.Min(0)),
		validation.Field(&override.SuccessThreshold, validation.Min(0)),
		validation.Field(&override.Timeout, validation.By(validateOptionalDuration)),
		validation.Field(&override.ResetTimeout, validation.By(validateOptionalDuration)),
	)
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}

func validateOptionalDuration(value interface{}) error {
	durationStr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if durationStr == "" {
		return nil
	}

	if _, err := time.ParseDuration(durationStr); err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 2s, 5m, 1h)")
	}

	return nil
}
