// Package config provides Viper-based configuration loading for the balance
// simulator.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Report store kinds.
const (
	StoreNone     = "none"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// LogFileConfig holds the optional rotating log file sink.
type LogFileConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string        `mapstructure:"format"`
	File   LogFileConfig `mapstructure:"file"`
}

// SimulationConfig holds batch and content settings.
type SimulationConfig struct {
	// ContentDir overrides the embedded catalog when non-empty.
	ContentDir string `mapstructure:"content_dir"`
	// ScriptsDir holds Lua boss mechanics; empty disables scripting.
	ScriptsDir       string        `mapstructure:"scripts_dir"`
	ScriptInstrLimit int           `mapstructure:"script_instruction_limit"`
	Trials           int           `mapstructure:"trials"`
	Workers          int           `mapstructure:"workers"`
	Seed             uint64        `mapstructure:"seed"`
	Policy           string        `mapstructure:"policy"`
	RollTTL          time.Duration `mapstructure:"roll_ttl"`
}

// ReportConfig selects where batch reports are stored.
type ReportConfig struct {
	// Store is one of "none", "sqlite", or "postgres".
	Store      string `mapstructure:"store"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

// Config is the top-level application configuration.
type Config struct {
	Logging    LoggingConfig    `mapstructure:"logging"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Simulation SimulationConfig `mapstructure:"simulation"`
	Report     ReportConfig     `mapstructure:"report"`
}

// Validate checks all configuration invariants. Database settings are only
// checked when reports are stored in PostgreSQL.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateSimulation(c.Simulation); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateReport(c.Report); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Report.Store == StorePostgres {
		if err := validateDatabase(c.Database); err != nil {
			errs = append(errs, err.Error())
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	if l.File.Enabled {
		if l.File.Path == "" {
			return fmt.Errorf("logging.file.path must not be empty when the file sink is enabled")
		}
		if l.File.MaxSizeMB < 1 {
			return fmt.Errorf("logging.file.max_size_mb must be >= 1, got %d", l.File.MaxSizeMB)
		}
	}
	return nil
}

func validateSimulation(s SimulationConfig) error {
	var errs []string
	if s.Trials < 1 {
		errs = append(errs, fmt.Sprintf("simulation.trials must be >= 1, got %d", s.Trials))
	}
	if s.Workers < 0 {
		errs = append(errs, fmt.Sprintf("simulation.workers must be >= 0, got %d", s.Workers))
	}
	if s.ScriptInstrLimit < 1 {
		errs = append(errs, fmt.Sprintf("simulation.script_instruction_limit must be >= 1, got %d", s.ScriptInstrLimit))
	}
	validPolicies := map[string]bool{"all_or_nothing": true, "partial": true}
	if !validPolicies[s.Policy] {
		errs = append(errs, fmt.Sprintf("simulation.policy must be one of [all_or_nothing, partial], got %q", s.Policy))
	}
	if s.RollTTL <= 0 {
		errs = append(errs, "simulation.roll_ttl must be positive")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateReport(r ReportConfig) error {
	switch r.Store {
	case StoreNone, StorePostgres:
		return nil
	case StoreSQLite:
		if r.SQLitePath == "" {
			return fmt.Errorf("report.sqlite_path must not be empty for the sqlite store")
		}
		return nil
	default:
		return fmt.Errorf("report.store must be one of [none, sqlite, postgres], got %q", r.Store)
	}
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result. An empty path uses defaults and
// environment only.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()

	// Environment variable overrides with IDLESIM_ prefix
	v.SetEnvPrefix("IDLESIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// NewViper returns a Viper instance carrying every default.
func NewViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file.enabled", false)
	v.SetDefault("logging.file.path", "logs/idlesim.log")
	v.SetDefault("logging.file.max_size_mb", 50)
	v.SetDefault("logging.file.max_backups", 3)
	v.SetDefault("logging.file.max_age_days", 14)
	v.SetDefault("logging.file.compress", false)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "idlesim")
	v.SetDefault("database.password", "idlesim")
	v.SetDefault("database.name", "idlesim")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("simulation.content_dir", "")
	v.SetDefault("simulation.scripts_dir", "content/scripts")
	v.SetDefault("simulation.script_instruction_limit", 100000)
	v.SetDefault("simulation.trials", 1000)
	v.SetDefault("simulation.workers", 0)
	v.SetDefault("simulation.seed", 1)
	v.SetDefault("simulation.policy", "all_or_nothing")
	v.SetDefault("simulation.roll_ttl", "24h")

	v.SetDefault("report.store", StoreNone)
	v.SetDefault("report.sqlite_path", "data/reports.db")
}
