// Package config loads run configuration from flags, environment variables
// (prefix COHORT_) and an optional cohort.yaml file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"cohort-retention/internal/cohort"
)

// EnvPrefix prefixes every environment variable, e.g. COHORT_INTERVAL_DAYS.
const EnvPrefix = "COHORT"

// Input sources.
const (
	SourceCSV      = "csv"
	SourcePostgres = "postgres"
	SourceMySQL    = "mysql"
	SourceFixtures = "fixtures"
)

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid configuration")

// Config is the merged flag, environment and file configuration of one command.
type Config struct {
	RecentDate   string `mapstructure:"recent_date"`
	IntervalDays int    `mapstructure:"interval_days"`
	Intervals    int    `mapstructure:"intervals"`

	Source         string   `mapstructure:"source"`
	UseFixtures    bool     `mapstructure:"use_fixtures"`
	Customers      []string `mapstructure:"customers"`
	Orders         []string `mapstructure:"orders"`
	CustomersTable string   `mapstructure:"customers_table"`
	OrdersTable    string   `mapstructure:"orders_table"`
	Progress       bool     `mapstructure:"progress"`

	PostgresDSN   string `mapstructure:"postgres_dsn"`
	MySQLDSN      string `mapstructure:"mysql_dsn"`
	ClickhouseDSN string `mapstructure:"clickhouse_dsn"`
	Verify        bool   `mapstructure:"verify"`

	OutputDir string `mapstructure:"output_dir"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	MetricsAddr string        `mapstructure:"metrics_addr"`
	Interval    time.Duration `mapstructure:"interval"`
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("recent_date", "")
	v.SetDefault("interval_days", cohort.DefaultIntervalDays)
	v.SetDefault("intervals", cohort.DefaultIntervals)

	v.SetDefault("source", SourceCSV)
	v.SetDefault("use_fixtures", false)
	v.SetDefault("customers", []string{})
	v.SetDefault("orders", []string{})
	v.SetDefault("customers_table", "customers")
	v.SetDefault("orders_table", "orders")
	v.SetDefault("progress", false)

	v.SetDefault("postgres_dsn", "")
	v.SetDefault("mysql_dsn", "")
	v.SetDefault("clickhouse_dsn", "")
	v.SetDefault("verify", false)

	v.SetDefault("output_dir", "output")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", LogFormatText)

	v.SetDefault("metrics_addr", ":9090")
	v.SetDefault("interval", time.Hour)
}

// Load reads configuration into a validated Config. Flags must already be
// bound to v. configFile overrides the cohort.yaml lookup in the working directory.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("cohort")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	if cfg.UseFixtures {
		cfg.Source = SourceFixtures
	}
	cfg.Source = strings.ToLower(cfg.Source)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field ranges and that the selected source is fully configured.
func (c *Config) Validate() error {
	if c.IntervalDays < 1 {
		return invalid("interval_days must be at least 1, got %d", c.IntervalDays)
	}
	if c.Intervals < 1 {
		return invalid("intervals must be at least 1, got %d", c.Intervals)
	}
	if c.RecentDate != "" {
		if _, err := ParseAnchor(c.RecentDate); err != nil {
			return err
		}
	}

	switch c.Source {
	case SourceCSV:
		if len(c.Customers) == 0 || len(c.Orders) == 0 {
			return invalid("csv source needs at least one customers file and one orders file")
		}
	case SourcePostgres:
		if c.PostgresDSN == "" {
			return invalid("postgres source needs postgres_dsn")
		}
	case SourceMySQL:
		if c.MySQLDSN == "" {
			return invalid("mysql source needs mysql_dsn")
		}
	case SourceFixtures:
	default:
		return invalid("unknown source %q", c.Source)
	}

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return invalid("log_level: %v", err)
	}
	if c.LogFormat != LogFormatText && c.LogFormat != LogFormatJSON {
		return invalid("log_format must be %q or %q, got %q", LogFormatText, LogFormatJSON, c.LogFormat)
	}
	if c.Interval <= 0 {
		return invalid("interval must be positive, got %s", c.Interval)
	}
	return nil
}

// anchorLayouts are tried in order. Layouts without an offset parse in local time.
var anchorLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05-07:00",
	cohort.TimestampLayout,
	"2006-01-02",
}

// ParseAnchor parses a recent date given on the command line.
func ParseAnchor(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range anchorLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, invalid("recent_date %q: expected RFC 3339, %q or %q", raw, cohort.TimestampLayout, "2006-01-02")
}

// Window builds the study window. An empty recent date anchors at now.
func (c *Config) Window(now time.Time) (*cohort.Window, error) {
	anchor := now
	if c.RecentDate != "" {
		var err error
		if anchor, err = ParseAnchor(c.RecentDate); err != nil {
			return nil, err
		}
	}
	return cohort.NewWindow(cohort.Config{
		Anchor:       anchor,
		IntervalDays: c.IntervalDays,
		Intervals:    c.Intervals,
	})
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}
