package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/vircom/folio/internal/types"
)

type Configuration struct {
	Deployment     DeploymentConfig     `validate:"required"`
	Server         ServerConfig         `validate:"required"`
	Logging        LoggingConfig        `validate:"required"`
	Database       DatabaseConfig       `validate:"required"`
	Sequence       SequenceConfig       `validate:"required"`
	Reconciliation ReconciliationConfig `validate:"required"`
	Cache          CacheConfig
}

type DeploymentConfig struct {
	Mode types.RunMode `validate:"required"`
}

type ServerConfig struct {
	Address string `validate:"required"`
}

type LoggingConfig struct {
	Level types.LogLevel `validate:"required"`
}

type DatabaseConfig struct {
	Driver                 types.DatabaseDriver `validate:"required,oneof=postgres sqlite3"`
	Postgres               PostgresConfig
	SQLite                 SQLiteConfig `mapstructure:"sqlite"`
	MaxOpenConns           int          `mapstructure:"max_open_conns"`
	MaxIdleConns           int          `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeMinutes int          `mapstructure:"conn_max_lifetime_minutes"`
	AutoMigrate            bool         `mapstructure:"auto_migrate"`
}

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type SQLiteConfig struct {
	Path string
}

// SequenceConfig tunes the number allocator
type SequenceConfig struct {
	// LockTimeout bounds the wait for the per (tenant, type) counter lock
	LockTimeout          time.Duration `mapstructure:"lock_timeout" validate:"required"`
	MaxRetries           uint64        `mapstructure:"max_retries"`
	RetryInitialInterval time.Duration `mapstructure:"retry_initial_interval"`
	RetryMaxElapsedTime  time.Duration `mapstructure:"retry_max_elapsed_time"`
}

// ReconciliationConfig tunes the drift scan
type ReconciliationConfig struct {
	BatchSize   int `mapstructure:"batch_size" validate:"required,min=1"`
	Concurrency int `mapstructure:"concurrency" validate:"required,min=1"`
	// SampleSize caps how many unparseable numbers are echoed back in a report
	SampleSize int `mapstructure:"sample_size"`
	// RateLimitPerMinute caps manual repair triggers per tenant, 0 disables the limit
	RateLimitPerMinute int `mapstructure:"rate_limit_per_minute"`
}

type CacheConfig struct {
	Enabled bool
	TTL     time.Duration `mapstructure:"ttl"`
}

func NewConfig() (*Configuration, error) {
	// .env is optional, the environment always wins
	_ = godotenv.Load()

	v := viper.New()

	// Modify config paths to ensure config.yaml is found
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/folio")

	// Set up environment variables support
	v.SetEnvPrefix("FOLIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file if exists
	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
		fmt.Printf("No config file found, using defaults and environment\n")
	} else {
		fmt.Printf("Using config file: %s\n", v.ConfigFileUsed())
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	d := GetDefaultConfig()
	v.SetDefault("deployment.mode", d.Deployment.Mode)
	v.SetDefault("server.address", d.Server.Address)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.sqlite.path", d.Database.SQLite.Path)
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.dbname", "")
	v.SetDefault("database.postgres.sslmode", "disable")
	v.SetDefault("database.max_open_conns", d.Database.MaxOpenConns)
	v.SetDefault("database.max_idle_conns", d.Database.MaxIdleConns)
	v.SetDefault("database.conn_max_lifetime_minutes", d.Database.ConnMaxLifetimeMinutes)
	v.SetDefault("database.auto_migrate", d.Database.AutoMigrate)
	v.SetDefault("sequence.lock_timeout", d.Sequence.LockTimeout)
	v.SetDefault("sequence.max_retries", d.Sequence.MaxRetries)
	v.SetDefault("sequence.retry_initial_interval", d.Sequence.RetryInitialInterval)
	v.SetDefault("sequence.retry_max_elapsed_time", d.Sequence.RetryMaxElapsedTime)
	v.SetDefault("reconciliation.batch_size", d.Reconciliation.BatchSize)
	v.SetDefault("reconciliation.concurrency", d.Reconciliation.Concurrency)
	v.SetDefault("reconciliation.sample_size", d.Reconciliation.SampleSize)
	v.SetDefault("reconciliation.rate_limit_per_minute", d.Reconciliation.RateLimitPerMinute)
	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.ttl", d.Cache.TTL)
}

func (c Configuration) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Database.Driver == types.DatabaseDriverSQLite && c.Database.SQLite.Path == "" {
		return fmt.Errorf("database.sqlite.path is required for the sqlite3 driver")
	}
	return nil
}

// GetDefaultConfig returns a default configuration for local development
// This is useful for running scripts or other non-web applications
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Server:     ServerConfig{Address: ":8080"},
		Logging:    LoggingConfig{Level: types.LogLevelDebug},
		Database: DatabaseConfig{
			Driver:                 types.DatabaseDriverSQLite,
			SQLite:                 SQLiteConfig{Path: "folio.db"},
			MaxOpenConns:           10,
			MaxIdleConns:           5,
			ConnMaxLifetimeMinutes: 30,
			AutoMigrate:            true,
		},
		Sequence: SequenceConfig{
			LockTimeout:          2 * time.Second,
			MaxRetries:           5,
			RetryInitialInterval: 50 * time.Millisecond,
			RetryMaxElapsedTime:  5 * time.Second,
		},
		Reconciliation: ReconciliationConfig{
			BatchSize:          500,
			Concurrency:        4,
			SampleSize:         10,
			RateLimitPerMinute: 6,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     10 * time.Minute,
		},
	}
}

func (c PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"user=%s password=%s dbname=%s host=%s port=%d sslmode=%s",
		c.User,
		c.Password,
		c.DBName,
		c.Host,
		c.Port,
		c.SSLMode,
	)
}

// GetDSN returns the sqlite3 connection string. Write transactions take the
// database lock at BEGIN and wait up to busyTimeout for it.
func (c SQLiteConfig) GetDSN(busyTimeout time.Duration) string {
	return fmt.Sprintf(
		"file:%s?_foreign_keys=on&_journal_mode=WAL&_txlock=immediate&_busy_timeout=%d",
		c.Path,
		busyTimeout.Milliseconds(),
	)
}
