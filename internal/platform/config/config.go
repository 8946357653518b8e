package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	strs "brokerage/pkg/platform/strings"
)

// Config is the full runtime configuration, loaded from environment variables
// so main stays lean.
type Config struct {
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	Server    Server
	Database  Database
	Redis     RedisConfig
	Kafka     Kafka
	Staging   Staging
	Documents Documents
	Payments  Payments
	Session   Session
	RateLimit RateLimit
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `env:"ONBOARDING_ADDR" envDefault:":8080"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"60s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"120s"`
	RequestTimeout  time.Duration `env:"SERVER_REQUEST_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Database configures the relational store. An empty URL selects the
// in-memory stores.
type Database struct {
	URL             string        `env:"DATABASE_URL"`
	Driver          string        `env:"DATABASE_DRIVER" envDefault:"pgx"`
	MaxOpenConns    int           `env:"DATABASE_MAX_OPEN_CONNS" envDefault:"20"`
	MaxIdleConns    int           `env:"DATABASE_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"DATABASE_CONN_MAX_LIFETIME" envDefault:"30m"`
}

// RedisConfig configures the Redis client. An empty URL disables Redis.
type RedisConfig struct {
	URL          string        `env:"REDIS_URL"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// Kafka configures event publishing. No brokers means events are only logged.
type Kafka struct {
	Brokers  []string `env:"KAFKA_BROKERS" envSeparator:","`
	Topic    string   `env:"KAFKA_TOPIC" envDefault:"onboarding-events"`
	ClientID string   `env:"KAFKA_CLIENT_ID" envDefault:"brokerage-onboarding"`
}

// Staging configures the ephemeral per-session registration store.
type Staging struct {
	SessionTTL time.Duration `env:"STAGING_SESSION_TTL" envDefault:"2h"`
}

// Documents configures object-store placement. Buckets are tried in order.
type Documents struct {
	Buckets       []string `env:"DOCUMENT_BUCKETS" envSeparator:"," envDefault:"kyc-documents,documents,uploads"`
	MaxBytes      int64    `env:"DOCUMENT_MAX_BYTES" envDefault:"10485760"`
	StoreRoot     string   `env:"DOCUMENT_STORE_ROOT" envDefault:"./data/objects"`
	PublicBaseURL string   `env:"DOCUMENT_PUBLIC_BASE_URL" envDefault:"http://localhost:8080/objects"`
}

// Payments holds the extra encodings tried for each logical payment mode after
// the derived case variants. Format: "upi=UPI_Payment|UPI Payment;card=Card".
type Payments struct {
	Aliases map[string]string `env:"PAYMENT_MODE_ALIASES" envSeparator:";" envKeyValSeparator:"=" envDefault:"upi=UPI_Payment;netbanking=Net_Banking|NetBanking;card=Card_Payment;bank_transfer=Bank_Transfer|NEFT"`
}

// ModeAliases expands the configured alias lists.
func (p Payments) ModeAliases() map[string][]string {
	out := make(map[string][]string, len(p.Aliases))
	for mode, raw := range p.Aliases {
		key := strings.ToLower(strings.TrimSpace(mode))
		for _, alias := range strings.Split(raw, "|") {
			if alias = strings.TrimSpace(alias); alias != "" {
				out[key] = append(out[key], alias)
			}
		}
	}
	return out
}

// Session configures signed registration-session tokens.
type Session struct {
	SigningKey string        `env:"SESSION_SIGNING_KEY" envDefault:"dev-session-key-change-in-production"`
	TokenTTL   time.Duration `env:"SESSION_TOKEN_TTL" envDefault:"2h"`
	Issuer     string        `env:"SESSION_ISSUER" envDefault:"brokerage-onboarding"`

	// MinSecretLength applies to secrets chosen at stage 1. 1 accepts any
	// non-empty secret.
	MinSecretLength int `env:"IDENTITY_MIN_SECRET_LENGTH" envDefault:"1"`
}

// RateLimit configures per-IP throttling of the identity and login routes.
// Counters live in Redis when it is configured.
type RateLimit struct {
	Disabled         bool          `env:"RATE_LIMIT_DISABLED" envDefault:"false"`
	IdentityRequests int           `env:"RATE_LIMIT_IDENTITY_REQUESTS" envDefault:"10"`
	LoginRequests    int           `env:"RATE_LIMIT_LOGIN_REQUESTS" envDefault:"5"`
	Window           time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
}

// Load builds a Config from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.Documents.Buckets = strs.DedupeAndTrim(cfg.Documents.Buckets)
	cfg.Kafka.Brokers = strs.DedupeAndTrimLower(cfg.Kafka.Brokers)
	if len(cfg.Documents.Buckets) == 0 {
		return Config{}, fmt.Errorf("DOCUMENT_BUCKETS must name at least one bucket")
	}
	switch cfg.Database.Driver {
	case "pgx", "postgres":
	default:
		return Config{}, fmt.Errorf("unsupported DATABASE_DRIVER %q", cfg.Database.Driver)
	}
	if cfg.Server.RequestTimeout >= cfg.Server.WriteTimeout {
		return Config{}, fmt.Errorf("SERVER_REQUEST_TIMEOUT (%s) must be shorter than SERVER_WRITE_TIMEOUT (%s)",
			cfg.Server.RequestTimeout, cfg.Server.WriteTimeout)
	}
	return cfg, nil
}
