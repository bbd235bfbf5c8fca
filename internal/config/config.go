package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

var ErrMissingEnvironmentVariables = errors.New("missing required environment variables")

// Config holds application configuration loaded from files and environment variables.
type Config struct {
	Env       string    `mapstructure:"env" validate:"required"` // current application environment (local, dev, prod etc)
	DB        DB        `mapstructure:"database"`
	Scheduler Scheduler `mapstructure:"scheduler"`
	Session   Session   `mapstructure:"session"`
	Selector  Selector  `mapstructure:"selector"`
}

// DB contains database-related configuration parameters.
type DB struct {
	URL             string        `mapstructure:"-"` // connection string loaded from environment
	MaxConnections  int           `mapstructure:"max_connections" validate:"gt=0"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime" validate:"gt=0"`
}

// DSN returns the database connection string if it is configured.
func (db DB) DSN() (string, error) {
	if db.URL == "" {
		return "", ErrMissingEnvironmentVariables
	}
	return db.URL, nil
}

// Scheduler configures the spaced-repetition engine. The weight vector stays
// at the built-in defaults unless a tuned one is supplied.
type Scheduler struct {
	DesiredRetention    float64         `mapstructure:"desired_retention" validate:"gt=0,lte=1"`
	MaximumIntervalDays int             `mapstructure:"maximum_interval_days" validate:"gte=1"`
	LearningSteps       []time.Duration `mapstructure:"learning_steps" validate:"dive,gt=0"`
	RelearningSteps     []time.Duration `mapstructure:"relearning_steps" validate:"dive,gt=0"`
	Weights             []float64       `mapstructure:"weights" validate:"omitempty,len=21"`
	HistoryMaxEntries   int             `mapstructure:"history_max_entries" validate:"gte=0"`
}

// Session configures per-session card limits.
type Session struct {
	MaxNewPerSession    int     `mapstructure:"max_new_per_session" validate:"gt=0"`
	MaxReviewPerSession int     `mapstructure:"max_review_per_session" validate:"gt=0"`
	MinNewShare         float64 `mapstructure:"min_new_share" validate:"gte=0,lt=1"`
}

// Selector configures new-card level mixing.
type Selector struct {
	CurrentLevelShare float64 `mapstructure:"current_level_share" validate:"gt=0,lte=1"`
}

// Load reads configuration from config files and environment variables.
func Load() (*Config, error) {
	// Initialize Viper instance and base config options.
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")

	// Set default values for configuration keys.
	v.SetDefault("env", "local")
	v.SetDefault("database.max_connections", 20)
	v.SetDefault("database.max_conn_lifetime", "30s")
	v.SetDefault("scheduler.desired_retention", 0.9)
	v.SetDefault("scheduler.maximum_interval_days", 36500)
	v.SetDefault("scheduler.learning_steps", []string{"1m", "10m"})
	v.SetDefault("scheduler.relearning_steps", []string{"10m"})
	v.SetDefault("scheduler.history_max_entries", 500)
	v.SetDefault("session.max_new_per_session", 50)
	v.SetDefault("session.max_review_per_session", 100)
	v.SetDefault("session.min_new_share", 0.25)
	v.SetDefault("selector.current_level_share", 0.5)

	// Configure environment variable handling and key mapping.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // map nested keys to ENV style names
	v.AutomaticEnv()

	// Bind explicit environment variables to configuration keys.
	_ = v.BindEnv("database_url", "DATABASE_URL")
	_ = v.BindEnv("env", "APP_ENV")

	// Try to read configuration file if present.
	if err := v.ReadInConfig(); err != nil {
		var fileLookupErr viper.ConfigFileNotFoundError
		if !errors.As(err, &fileLookupErr) {
			return nil, fmt.Errorf("error loading config file: %w", err)
		}
	}

	// Unmarshal configuration into strongly typed struct.
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	// Load sensitive values from environment variables.
	cfg.DB.URL = v.GetString("database_url")
	if cfg.DB.URL == "" {
		return nil, ErrMissingEnvironmentVariables
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}
