// Package config loads the reporting configuration with the usual cascade:
// explicit flag path > ./reporting.yaml > ~/.thawk/reporting.yaml, with
// REPORTING_* environment variables overriding file values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Source kinds understood by the pipeline.
const (
	SourceCSV        = "csv"
	SourcePostgres   = "postgres"
	SourceOpenSearch = "opensearch"
)

// Config represents the complete reporting configuration.
type Config struct {
	Storage    StorageConfig    `mapstructure:"storage" yaml:"storage"`
	Source     SourceConfig     `mapstructure:"source" yaml:"source"`
	Recipients RecipientsConfig `mapstructure:"recipients" yaml:"recipients"`
	Report     ReportConfig     `mapstructure:"report" yaml:"report"`
	Mail       MailConfig       `mapstructure:"mail" yaml:"mail"`
	Redis      RedisConfig      `mapstructure:"redis" yaml:"redis"`
	NATS       NATSConfig       `mapstructure:"nats" yaml:"nats"`
	Metrics    MetricsConfig    `mapstructure:"metrics" yaml:"metrics"`
	Schedule   ScheduleConfig   `mapstructure:"schedule" yaml:"schedule"`
	Log        LogConfig        `mapstructure:"log" yaml:"log"`
}

// StorageConfig locates the report archive.
type StorageConfig struct {
	BasePath string `mapstructure:"base_path" yaml:"base_path"`
}

// SourceConfig selects and configures the record source.
type SourceConfig struct {
	Kind       string           `mapstructure:"kind" yaml:"kind"`
	CSV        CSVSource        `mapstructure:"csv" yaml:"csv"`
	Postgres   PostgresSource   `mapstructure:"postgres" yaml:"postgres"`
	OpenSearch OpenSearchSource `mapstructure:"opensearch" yaml:"opensearch"`
}

type CSVSource struct {
	Path string `mapstructure:"path" yaml:"path"`
}

type PostgresSource struct {
	DSN   string `mapstructure:"dsn" yaml:"dsn"`
	Table string `mapstructure:"table" yaml:"table"`
}

type OpenSearchSource struct {
	URL      string `mapstructure:"url" yaml:"url"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
	Index    string `mapstructure:"index" yaml:"index"`
	Insecure bool   `mapstructure:"insecure" yaml:"insecure"`
}

// RecipientsConfig locates the recipient list source.
type RecipientsConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// ReportConfig selects the report definition and the aggregation slot width.
type ReportConfig struct {
	Definition string        `mapstructure:"definition" yaml:"definition"`
	SlotWidth  time.Duration `mapstructure:"slot_width" yaml:"slot_width"`
}

// MailConfig holds SMTP settings and the sender identity.
type MailConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
	Sender   string `mapstructure:"sender" yaml:"sender"`
}

// RedisConfig enables the cross-process run lock.
type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled" yaml:"enabled"`
	Addr     string        `mapstructure:"addr" yaml:"addr"`
	Password string        `mapstructure:"password" yaml:"password"`
	DB       int           `mapstructure:"db" yaml:"db"`
	LockTTL  time.Duration `mapstructure:"lock_ttl" yaml:"lock_ttl"`
}

// NATSConfig enables run event publishing.
type NATSConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	URL     string `mapstructure:"url" yaml:"url"`
}

// MetricsConfig enables Pushgateway metrics.
type MetricsConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	GatewayURL string `mapstructure:"gateway_url" yaml:"gateway_url"`
	Job        string `mapstructure:"job" yaml:"job"`
}

// ScheduleConfig controls the periodic run loop.
type ScheduleConfig struct {
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
	Mode     string        `mapstructure:"mode" yaml:"mode"`
}

// LogConfig controls log output.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Default returns the configuration used when no file, flag, or environment
// override is present. It is built from the same defaults Load applies.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		// Defaults are static and always unmarshal; reaching this is a bug.
		panic(fmt.Sprintf("config defaults do not unmarshal: %v", err))
	}
	return &config
}

// Load loads configuration with cascade: flags > ./reporting.yaml > ~/.thawk/reporting.yaml > defaults
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("reporting")
	v.SetConfigType("yaml")
	v.SetEnvPrefix("REPORTING")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".thawk"))
		}
	}

	// Config file is optional; only a found-but-broken file is fatal.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.base_path", "./reports")

	v.SetDefault("source.kind", SourceCSV)
	v.SetDefault("source.csv.path", "./records.csv")
	v.SetDefault("source.postgres.dsn", "")
	v.SetDefault("source.postgres.table", "activity_records")
	v.SetDefault("source.opensearch.url", "")
	v.SetDefault("source.opensearch.username", "")
	v.SetDefault("source.opensearch.password", "")
	v.SetDefault("source.opensearch.index", "activity-records")
	v.SetDefault("source.opensearch.insecure", false)

	v.SetDefault("recipients.path", "./recipients.csv")

	v.SetDefault("report.definition", "")
	v.SetDefault("report.slot_width", 30*time.Minute)

	v.SetDefault("mail.host", "")
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.sender", "thawk-report@localhost")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.lock_ttl", time.Minute)

	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.url", "nats://localhost:4222")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.gateway_url", "http://localhost:9091")
	v.SetDefault("metrics.job", "thawk-report")

	v.SetDefault("schedule.interval", time.Hour)
	v.SetDefault("schedule.mode", "preview")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Storage.BasePath == "" {
		return fmt.Errorf("storage.base_path is required")
	}
	if c.Recipients.Path == "" {
		return fmt.Errorf("recipients.path is required")
	}

	switch c.Source.Kind {
	case SourceCSV:
		if c.Source.CSV.Path == "" {
			return fmt.Errorf("source.csv.path is required for the csv source")
		}
	case SourcePostgres:
		if c.Source.Postgres.DSN == "" {
			return fmt.Errorf("source.postgres.dsn is required for the postgres source")
		}
	case SourceOpenSearch:
		if c.Source.OpenSearch.URL == "" {
			return fmt.Errorf("source.opensearch.url is required for the opensearch source")
		}
	default:
		return fmt.Errorf("unknown source kind %q", c.Source.Kind)
	}

	if c.Report.SlotWidth <= 0 {
		return fmt.Errorf("report.slot_width must be positive")
	}
	if c.Mail.Port <= 0 {
		return fmt.Errorf("mail.port must be positive")
	}

	switch c.Schedule.Mode {
	case "preview", "send":
	default:
		return fmt.Errorf("schedule.mode must be preview or send, got %q", c.Schedule.Mode)
	}

	return nil
}
