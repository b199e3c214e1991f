package config

import (
	"errors"
	"time"
)

// Config represents the swissd service configuration
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Tournament  TournamentConfig  `mapstructure:"tournament"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Snapshot    SnapshotConfig    `mapstructure:"snapshot"`
	Idempotency IdempotencyConfig `mapstructure:"idempotency"`
	RateLimiter RateLimiterConfig `mapstructure:"rate_limiter"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Health      HealthConfig      `mapstructure:"health"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxHeaderBytes  int           `mapstructure:"max_header_bytes"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// TournamentConfig holds defaults applied to new tournaments
type TournamentConfig struct {
	AdditionalRounds int      `mapstructure:"additional_rounds"`
	AllowRepeats     bool     `mapstructure:"allow_repeats"`
	Criteria         []string `mapstructure:"criteria"`
	MaxPlayers       int      `mapstructure:"max_players"`
	// Seed fixes the pairing randomness when non-zero
	Seed int64 `mapstructure:"seed"`
}

// StorageConfig selects and configures the snapshot store
type StorageConfig struct {
	Backend  string         `mapstructure:"backend"`
	File     FileConfig     `mapstructure:"file"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	S3       S3Config       `mapstructure:"s3"`
}

// FileConfig represents the local YAML snapshot directory
type FileConfig struct {
	Directory string `mapstructure:"directory"`
	Backup    bool   `mapstructure:"backup"`
}

// DatabaseConfig represents PostgreSQL snapshot store configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConnections  int           `mapstructure:"max_connections"`
	MinConnections  int           `mapstructure:"min_connections"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RedisConfig represents Redis configuration shared by the snapshot and
// idempotency stores
type RedisConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	MaxRetries   int    `mapstructure:"max_retries"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
}

// S3Config represents an S3 compatible bucket (AWS, R2, MinIO)
type S3Config struct {
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
}

// SnapshotConfig controls periodic persistence of dirty tournaments
type SnapshotConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Interval        time.Duration `mapstructure:"interval"`
	Timeout         time.Duration `mapstructure:"timeout"`
	PreloadOnStart  bool          `mapstructure:"preload_on_start"`
	FlushOnShutdown bool          `mapstructure:"flush_on_shutdown"`
}

// IdempotencyConfig controls commit acknowledgement caching
type IdempotencyConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Backend string        `mapstructure:"backend"`
	TTL     time.Duration `mapstructure:"ttl"`
	MaxSize int           `mapstructure:"max_size"`
}

// RateLimiterConfig represents rate limiter configuration
type RateLimiterConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerSecond int  `mapstructure:"requests_per_second"`
	Burst             int  `mapstructure:"burst"`
}

// MetricsConfig represents Prometheus metrics configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

// HealthConfig represents health check configuration
type HealthConfig struct {
	CheckTimeout time.Duration `mapstructure:"check_timeout"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Storage backends
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendS3       = "s3"
)

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Host == "" {
		return errors.New("server.host is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.New("server.port must be between 1 and 65535")
	}
	if c.Tournament.AdditionalRounds < 0 {
		return errors.New("tournament.additional_rounds must not be negative")
	}
	if c.Tournament.MaxPlayers <= 0 {
		return errors.New("tournament.max_players must be positive")
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendMemory
	}
	if !isValidBackend(c.Storage.Backend) {
		return errors.New("storage.backend must be one of: memory, file, postgres, redis, s3")
	}
	switch c.Storage.Backend {
	case BackendFile:
		if c.Storage.File.Directory == "" {
			return errors.New("storage.file.directory is required")
		}
	case BackendPostgres:
		if c.Storage.Database.Host == "" {
			return errors.New("storage.database.host is required")
		}
		if c.Storage.Database.Database == "" {
			return errors.New("storage.database.database is required")
		}
		if c.Storage.Database.User == "" {
			return errors.New("storage.database.user is required")
		}
	case BackendRedis:
		if c.Storage.Redis.Host == "" {
			return errors.New("storage.redis.host is required")
		}
	case BackendS3:
		if c.Storage.S3.Bucket == "" {
			return errors.New("storage.s3.bucket is required")
		}
	}
	if c.Snapshot.Enabled && c.Snapshot.Interval <= 0 {
		return errors.New("snapshot.interval must be positive")
	}
	if c.Idempotency.Enabled {
		if c.Idempotency.Backend == "" {
			c.Idempotency.Backend = BackendMemory
		}
		if c.Idempotency.Backend != BackendMemory && c.Idempotency.Backend != BackendRedis {
			return errors.New("idempotency.backend must be one of: memory, redis")
		}
		if c.Idempotency.TTL <= 0 {
			return errors.New("idempotency.ttl must be positive")
		}
	}
	if c.RateLimiter.Enabled && c.RateLimiter.RequestsPerSecond <= 0 {
		return errors.New("rate_limiter.requests_per_second must be positive")
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	return nil
}

func isValidBackend(backend string) bool {
	switch backend {
	case BackendMemory, BackendFile, BackendPostgres, BackendRedis, BackendS3:
		return true
	default:
		return false
	}
}

// DefaultConfig returns default configuration values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     60 * time.Second,
			RequestTimeout:  5 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxHeaderBytes:  1 << 20,
			CORSOrigins:     []string{"*"},
		},
		Tournament: TournamentConfig{
			AdditionalRounds: 0,
			AllowRepeats:     false,
			Criteria: []string{
				"score",
				"buchholz_score",
				"neustadtl_score",
				"c_score",
				"opp_c_score",
				"wins",
			},
			MaxPlayers: 4096,
		},
		Storage: StorageConfig{
			Backend: BackendMemory,
			File: FileConfig{
				Directory: "./data/tournaments",
				Backup:    true,
			},
			Database: DatabaseConfig{
				Host:            "localhost",
				Port:            5432,
				Database:        "swissmatch",
				User:            "swissd",
				Password:        "",
				SSLMode:         "disable",
				MaxConnections:  20,
				MinConnections:  2,
				ConnMaxLifetime: 30 * time.Minute,
			},
			Redis: RedisConfig{
				Host:         "localhost",
				Port:         6379,
				Password:     "",
				DB:           0,
				MaxRetries:   3,
				PoolSize:     50,
				MinIdleConns: 5,
			},
			S3: S3Config{
				Prefix: "tournaments/",
				Region: "us-east-1",
			},
		},
		Snapshot: SnapshotConfig{
			Enabled:         true,
			Interval:        10 * time.Second,
			Timeout:         30 * time.Second,
			PreloadOnStart:  true,
			FlushOnShutdown: true,
		},
		Idempotency: IdempotencyConfig{
			Enabled: true,
			Backend: BackendMemory,
			TTL:     24 * time.Hour,
			MaxSize: 100000,
		},
		RateLimiter: RateLimiterConfig{
			Enabled:           false,
			RequestsPerSecond: 1000,
			Burst:             2000,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
			Path:    "/metrics",
		},
		Health: HealthConfig{
			CheckTimeout: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
