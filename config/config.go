// Package config loads server configuration from flags, the environment and
// an optional .env file, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds application configuration (flags + env + Viper).
type Config struct {
	Env            string
	Port           int
	DBDriver       string // sqlite3 | postgres
	DatabaseURL    string
	RedisURL       string // empty disables the Redis audit stream
	AuditStream    string
	LeaveTypesFile string // empty uses the built-in catalog
	SeedDemo       string // scenario name, empty for none

	SchedulerEnabled   bool
	CronMonthlyAccrual string
	CronYearlyAccrual  string
	CronCarryForward   string

	LogLevel  string
	LogFormat string // json | console
}

// Defaults for every key. The cron specs use the five-field format.
var defaults = map[string]any{
	"APP_ENV":              "development",
	"PORT":                 8080,
	"DB_DRIVER":            "sqlite3",
	"DATABASE_URL":         "leave.db",
	"REDIS_URL":            "",
	"AUDIT_STREAM":         "leave:audit",
	"LEAVE_TYPES_FILE":     "",
	"SEED_DEMO":            "",
	"SCHEDULER_ENABLED":    true,
	"CRON_MONTHLY_ACCRUAL": "5 0 1 * *",
	"CRON_YEARLY_ACCRUAL":  "10 0 1 1 *",
	"CRON_CARRY_FORWARD":   "30 0 1 1 *",
	"LOG_LEVEL":            "info",
	"LOG_FORMAT":           "json",
}

// flagKeys maps command-line flags onto config keys.
var flagKeys = map[string]string{
	"port":         "PORT",
	"db-driver":    "DB_DRIVER",
	"database-url": "DATABASE_URL",
	"redis-url":    "REDIS_URL",
	"leave-types":  "LEAVE_TYPES_FILE",
	"seed-demo":    "SEED_DEMO",
	"scheduler":    "SCHEDULER_ENABLED",
	"log-level":    "LOG_LEVEL",
	"log-format":   "LOG_FORMAT",
}

// AddFlags registers the server flags on flagSet.
func AddFlags(flagSet *pflag.FlagSet) {
	flagSet.Int("port", 8080, "HTTP server port")
	flagSet.String("db-driver", "sqlite3", "database driver: sqlite3 or postgres")
	flagSet.String("database-url", "leave.db", "SQLite path (\":memory:\" for in-memory) or Postgres DSN")
	flagSet.String("redis-url", "", "Redis URL for the audit stream (empty disables it)")
	flagSet.String("leave-types", "", "leave-type catalog file (YAML or JSON)")
	flagSet.String("seed-demo", "", "seed a demo scenario on start-up")
	flagSet.Bool("scheduler", true, "run accrual and carry-forward on their cron schedules")
	flagSet.String("log-level", "info", "log level: debug, info, warn, error")
	flagSet.String("log-format", "json", "log format: json or console")
}

// Load reads envFile (ignored when absent), the environment and the flags
// that were explicitly set on flagSet. flagSet may be nil.
func Load(envFile string, flagSet *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil && !isNotExist(err) {
			return nil, fmt.Errorf("failed to read %s: %w", envFile, err)
		}
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if flagSet != nil {
		for name, key := range flagKeys {
			if f := flagSet.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	cfg := &Config{
		Env:                v.GetString("APP_ENV"),
		Port:               v.GetInt("PORT"),
		DBDriver:           v.GetString("DB_DRIVER"),
		DatabaseURL:        v.GetString("DATABASE_URL"),
		RedisURL:           strings.TrimSpace(v.GetString("REDIS_URL")),
		AuditStream:        v.GetString("AUDIT_STREAM"),
		LeaveTypesFile:     v.GetString("LEAVE_TYPES_FILE"),
		SeedDemo:           v.GetString("SEED_DEMO"),
		SchedulerEnabled:   v.GetBool("SCHEDULER_ENABLED"),
		CronMonthlyAccrual: v.GetString("CRON_MONTHLY_ACCRUAL"),
		CronYearlyAccrual:  v.GetString("CRON_YEARLY_ACCRUAL"),
		CronCarryForward:   v.GetString("CRON_CARRY_FORWARD"),
		LogLevel:           v.GetString("LOG_LEVEL"),
		LogFormat:          v.GetString("LOG_FORMAT"),
	}
	return cfg, cfg.Validate()
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	switch c.DBDriver {
	case "sqlite3", "sqlite", "postgres", "postgresql":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	return nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

func isNotExist(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}
