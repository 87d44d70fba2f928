// Package config loads draft-review configuration from YAML with .env and
// environment variable overrides.
package config

import (
	"fmt"
	"time"
)

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Refetch modes for list+stats refreshes after a status change.
const (
	RefetchSequential = "sequential"
	RefetchParallel   = "parallel"
)

const (
	defaultServiceName    = "draft-review"
	defaultServiceVersion = "1.0.0"
	defaultServicePort    = 8095
	defaultLogLevel       = "info"
	defaultLogFormat      = "json"

	defaultDBHost          = "localhost"
	defaultDBPort          = 5432
	defaultDBUser          = "postgres"
	defaultDBName          = "draft_review"
	defaultDBSSLMode       = "disable"
	defaultDBMaxConns      = 25
	defaultDBMaxIdleConns  = 5
	defaultDBConnLifetimeM = 5

	defaultRedisAddress   = "localhost:6379"
	defaultSessionChannel = "auth:session-expired"
	defaultChangesChannel = "drafts:changed"

	defaultPageLimit = 10
)

// Config holds the application configuration.
type Config struct {
	Service  ServiceConfig  `yaml:"service"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`
	Review   ReviewConfig   `yaml:"review"`
}

// ServiceConfig holds service identity and runtime settings.
type ServiceConfig struct {
	Name        string   `yaml:"name"`
	Version     string   `yaml:"version"`
	Port        int      `env:"DRAFT_REVIEW_PORT" yaml:"port"`
	Debug       bool     `env:"APP_DEBUG"         yaml:"debug"`
	CORSOrigins []string `env:"CORS_ORIGINS"      yaml:"cors_origins"`
}

// DatabaseConfig holds repository settings. Driver "memory" needs nothing else.
type DatabaseConfig struct {
	Driver          string        `env:"DRAFT_REVIEW_DB_DRIVER"   yaml:"driver"`
	Host            string        `env:"POSTGRES_REVIEW_HOST"     yaml:"host"`
	Port            int           `env:"POSTGRES_REVIEW_PORT"     yaml:"port"`
	User            string        `env:"POSTGRES_REVIEW_USER"     yaml:"user"`
	Password        string        `env:"POSTGRES_REVIEW_PASSWORD" yaml:"password"`
	Database        string        `env:"POSTGRES_REVIEW_DB"       yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxConnections  int           `yaml:"max_connections"`
	MaxIdleConns    int           `yaml:"max_idle_connections"`
	ConnMaxLifetime time.Duration `yaml:"connection_max_lifetime"`
}

// DSN returns the lib/pq connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}

// MigrateURL returns the postgres URL form used by golang-migrate.
func (d *DatabaseConfig) MigrateURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Database, d.SSLMode,
	)
}

// RedisConfig holds Redis settings for session-expiry and draft-change channels.
type RedisConfig struct {
	Address        string `env:"REDIS_ADDRESS"         yaml:"address"`
	Password       string `env:"REDIS_PASSWORD"        yaml:"password"`
	DB             int    `env:"REDIS_DB"              yaml:"db"`
	Enabled        bool   `env:"REDIS_EVENTS_ENABLED"  yaml:"enabled"`
	SessionChannel string `env:"REDIS_SESSION_CHANNEL" yaml:"session_channel"`
	ChangesChannel string `env:"REDIS_CHANGES_CHANNEL" yaml:"changes_channel"`
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	JWTSecret string `env:"AUTH_JWT_SECRET" yaml:"jwt_secret"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL"  yaml:"level"`
	Format string `env:"LOG_FORMAT" yaml:"format"`
}

// ReviewConfig holds console behaviour shared by the service and reviewctl.
type ReviewConfig struct {
	DefaultLimit int    `env:"REVIEW_DEFAULT_LIMIT" yaml:"default_limit"`
	RefetchMode  string `env:"REVIEW_REFETCH_MODE"  yaml:"refetch_mode"`
}

// Load loads configuration from a YAML file, applies defaults, then env overrides.
func Load(path string) (*Config, error) {
	cfg, err := LoadWithDefaults(path, true, SetDefaults)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if validateErr := cfg.Validate(); validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return cfg, nil
}

// SetDefaults applies default values to all configuration sections.
func SetDefaults(cfg *Config) {
	setServiceDefaults(&cfg.Service)
	setDatabaseDefaults(&cfg.Database)
	setRedisDefaults(&cfg.Redis)
	setLoggingDefaults(&cfg.Logging)
	setReviewDefaults(&cfg.Review)
}

func setServiceDefaults(s *ServiceConfig) {
	if s.Name == "" {
		s.Name = defaultServiceName
	}
	if s.Version == "" {
		s.Version = defaultServiceVersion
	}
	if s.Port == 0 {
		s.Port = defaultServicePort
	}
}

func setDatabaseDefaults(d *DatabaseConfig) {
	if d.Driver == "" {
		d.Driver = DriverPostgres
	}
	if d.Host == "" {
		d.Host = defaultDBHost
	}
	if d.Port == 0 {
		d.Port = defaultDBPort
	}
	if d.User == "" {
		d.User = defaultDBUser
	}
	if d.Database == "" {
		d.Database = defaultDBName
	}
	if d.SSLMode == "" {
		d.SSLMode = defaultDBSSLMode
	}
	if d.MaxConnections == 0 {
		d.MaxConnections = defaultDBMaxConns
	}
	if d.MaxIdleConns == 0 {
		d.MaxIdleConns = defaultDBMaxIdleConns
	}
	if d.ConnMaxLifetime == 0 {
		d.ConnMaxLifetime = defaultDBConnLifetimeM * time.Minute
	}
}

func setRedisDefaults(r *RedisConfig) {
	if r.Address == "" {
		r.Address = defaultRedisAddress
	}
	if r.SessionChannel == "" {
		r.SessionChannel = defaultSessionChannel
	}
	if r.ChangesChannel == "" {
		r.ChangesChannel = defaultChangesChannel
	}
	// Enabled stays false unless configured
}

func setLoggingDefaults(l *LoggingConfig) {
	if l.Level == "" {
		l.Level = defaultLogLevel
	}
	if l.Format == "" {
		l.Format = defaultLogFormat
	}
}

func setReviewDefaults(r *ReviewConfig) {
	if r.DefaultLimit == 0 {
		r.DefaultLimit = defaultPageLimit
	}
	if r.RefetchMode == "" {
		r.RefetchMode = RefetchSequential
	}
}
