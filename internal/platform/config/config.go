package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store drivers accepted by STORE_DRIVER.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Server captures process level configuration for the civic-services API.
type Server struct {
	Addr            string        `env:"CITYCONNECT_ADDR" envDefault:":8080"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`

	Store     StoreConfig
	Auth      AuthConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Policy    PolicyConfig
	RateLimit RateLimitConfig
}

// StoreConfig selects and addresses the entity store.
type StoreConfig struct {
	Driver      string `env:"STORE_DRIVER" envDefault:"memory"`
	DatabaseURL string `env:"DATABASE_URL"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"data/cityconnect.db"`
}

// AuthConfig configures bearer token verification.
type AuthConfig struct {
	JWTSigningKey string        `env:"JWT_SIGNING_KEY" envDefault:"dev-secret-key-change-in-production"`
	JWTIssuer     string        `env:"JWT_ISSUER" envDefault:"cityconnect"`
	JWTAudience   string        `env:"JWT_AUDIENCE" envDefault:"cityconnect-api"`
	TokenTTL      time.Duration `env:"JWT_TOKEN_TTL" envDefault:"1h"`
}

// RedisConfig configures the optional Redis client shared by the token
// revocation list and the rate limiter.
type RedisConfig struct {
	URL          string        `env:"REDIS_URL"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// KafkaConfig configures the optional notification event publisher.
type KafkaConfig struct {
	Brokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	Topic   string   `env:"KAFKA_TOPIC" envDefault:"cityconnect.events"`
}

// PolicyConfig holds deployment-level visibility parameters.
type PolicyConfig struct {
	ComplaintDepartmentScope string `env:"COMPLAINT_DEPARTMENT_SCOPE" envDefault:"all"`
	CitizenAnnouncementScope string `env:"CITIZEN_ANNOUNCEMENT_SCOPE" envDefault:"global"`
}

// RateLimitConfig sets per-actor request budgets. A zero budget disables
// throttling for that class; Enabled=false disables it entirely.
type RateLimitConfig struct {
	Enabled        bool          `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	ReadPerWindow  int           `env:"RATE_LIMIT_READ_PER_WINDOW" envDefault:"120"`
	WritePerWindow int           `env:"RATE_LIMIT_WRITE_PER_WINDOW" envDefault:"30"`
	Window         time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	var cfg Server
	if err := env.Parse(&cfg); err != nil {
		return Server{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// Validate rejects combinations that cannot start a server.
func (c Server) Validate() error {
	switch c.Store.Driver {
	case DriverMemory, DriverSQLite:
	case DriverPostgres:
		if strings.TrimSpace(c.Store.DatabaseURL) == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres store driver")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}
	if strings.TrimSpace(c.Auth.JWTSigningKey) == "" {
		return fmt.Errorf("JWT_SIGNING_KEY is required")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}
	if c.RateLimit.ReadPerWindow < 0 || c.RateLimit.WritePerWindow < 0 {
		return fmt.Errorf("rate limit budgets cannot be negative")
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
	}
	return nil
}

// KafkaEnabled reports whether notification events should go to Kafka.
func (c Server) KafkaEnabled() bool {
	return len(c.Kafka.Brokers) > 0
}
