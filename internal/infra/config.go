package infra

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	// Database
	DatabaseURL string `env:"DATABASE_URL"`
	PGHost      string `env:"PGHOST" envDefault:"localhost"`
	PGPort      int    `env:"PGPORT" envDefault:"5435"`
	PGUser      string `env:"PGUSER" envDefault:"rewardly"`
	PGPassword  string `env:"PGPASSWORD" envDefault:"rewardly"`
	PGDatabase  string `env:"PGDATABASE" envDefault:"rewardly"`

	// JWT (verify-only; tokens are minted by the identity service)
	JWTSecret string `env:"JWT_SECRET" envDefault:"change-me-in-production"`

	// Server
	APIPort int `env:"API_PORT" envDefault:"3200"`

	// Kafka
	KafkaBrokers string `env:"KAFKA_BROKERS" envDefault:"localhost:9092"`
	KafkaEnabled bool   `env:"KAFKA_ENABLED" envDefault:"false"`

	// CORS
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`

	// Ledger access
	LedgerTimeout time.Duration `env:"LEDGER_TIMEOUT" envDefault:"10s"`

	// Reconciliation retry queue
	ReconcileQueueSize   int           `env:"RECONCILE_QUEUE_SIZE" envDefault:"256"`
	ReconcileMaxAttempts int           `env:"RECONCILE_MAX_ATTEMPTS" envDefault:"6"`
	ReconcileBaseBackoff time.Duration `env:"RECONCILE_BASE_BACKOFF" envDefault:"2s"`
	ReconcileMaxBackoff  time.Duration `env:"RECONCILE_MAX_BACKOFF" envDefault:"2m"`

	// Circuit breaker for the reward ledger
	BreakerFailThreshold int           `env:"BREAKER_FAIL_THRESHOLD" envDefault:"5"`
	BreakerResetTimeout  time.Duration `env:"BREAKER_RESET_TIMEOUT" envDefault:"30s"`

	// Wallet projection
	ProjectionTTL time.Duration `env:"PROJECTION_TTL" envDefault:"5m"`

	// Wheel draws come from the local CSPRNG unless an API key is set
	RandomOrgAPIKey string `env:"RANDOM_ORG_API_KEY"`

	// Game sessions
	SessionIdleTTL time.Duration `env:"SESSION_IDLE_TTL" envDefault:"30m"`
	SpinRateLimit  int           `env:"SPIN_RATE_LIMIT" envDefault:"30"`
	SpinRateWindow time.Duration `env:"SPIN_RATE_WINDOW" envDefault:"1m"`

	// Dev
	AllowInsecureDefaults bool `env:"ALLOW_INSECURE_DEFAULTS" envDefault:"false"`
}

// LoadConfig parses environment variables into a Config struct.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks for insecure configuration that must not run in production.
// Set ALLOW_INSECURE_DEFAULTS=true to bypass (local dev only).
func (c *Config) Validate() error {
	if c.AllowInsecureDefaults {
		return nil
	}
	if c.JWTSecret == "change-me-in-production" {
		return fmt.Errorf("JWT_SECRET is set to the insecure default; set a strong secret or set ALLOW_INSECURE_DEFAULTS=true for local dev")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET is too short (%d chars); minimum 32 characters required", len(c.JWTSecret))
	}
	return nil
}

// DSN returns the PostgreSQL connection string, preferring DATABASE_URL if set.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.PGUser, c.PGPassword, c.PGHost, c.PGPort, c.PGDatabase)
}
